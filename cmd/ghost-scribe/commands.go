package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sjawhar/ghost-scribe/internal/textproc"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List voice commands and their trigger phrases",
	Long: `List every voice command in match order. Names in the NAME column are the
values accepted by text.disabled_commands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return writeCommands(cmd.OutOrStdout(), textproc.NewCommandParser(cfg.Text.DisabledCommands...))
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}

func writeCommands(w io.Writer, parser *textproc.CommandParser) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tENABLED\tSAY\tDOES")
	for _, def := range textproc.Definitions {
		enabled := "yes"
		if !parser.Enabled(def.Name) {
			enabled = "no"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Name, enabled, strings.Join(def.Triggers, " | "), def.Description)
	}
	return tw.Flush()
}
