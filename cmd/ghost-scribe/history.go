package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/sjawhar/ghost-scribe/internal/bootstrap"
	"github.com/sjawhar/ghost-scribe/internal/storage"
)

var (
	historyDate   string
	historyRecent int
	historyJSON   bool
	statsDays     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print logged transcriptions",
	Long: `Print the transcriptions logged on a day, newest first.

Examples:
  # Today
  ghost-scribe history

  # A specific day
  ghost-scribe history --date 2026-03-01

  # The last five dictations that produced text
  ghost-scribe history --recent 5

  # Raw entries for scripting
  ghost-scribe history --json | jq '.[].text'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		var entries []storage.Entry
		if historyRecent > 0 {
			entries, err = store.Recent(historyRecent)
		} else {
			date := historyDate
			if date == "" {
				date = time.Now().Format(storage.DayLayout)
			}
			entries, err = store.ByDate(date)
		}
		if err != nil {
			return err
		}

		if historyJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if entries == nil {
				entries = []storage.Entry{}
			}
			return enc.Encode(entries)
		}
		return writeHistory(cmd.OutOrStdout(), entries)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dictation totals and a daily breakdown",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		now := time.Now()
		stats, err := store.Stats(now)
		if err != nil {
			return err
		}
		daily, err := store.DailyCounts(statsDays, now)
		if err != nil {
			return err
		}
		return writeStats(cmd.OutOrStdout(), stats, daily)
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyDate, "date", "d", "", "day to print as YYYY-MM-DD (default today)")
	historyCmd.Flags().IntVarP(&historyRecent, "recent", "n", 0, "print the N most recent dictations instead of a day")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	statsCmd.Flags().IntVar(&statsDays, "days", 14, "number of days in the breakdown")
	rootCmd.AddCommand(historyCmd, statsCmd)
}

func openStore() (*storage.SQLiteStore, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	injector := do.New()
	bootstrap.Register(injector, cfg)

	store, err := do.Invoke[*storage.SQLiteStore](injector)
	if err != nil {
		return nil, nil, fmt.Errorf("open transcription log: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func writeHistory(w io.Writer, entries []storage.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no transcriptions")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tWORDS\tMODEL\tTEXT")
	for _, e := range entries {
		text := e.FinalText
		if e.WasVoiceCommand {
			if text == "" {
				text = "(" + e.VoiceCommandName + ")"
			} else {
				text += " (" + e.VoiceCommandName + ")"
			}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.WordCount, e.ModelUsed, oneLine(text))
	}
	return tw.Flush()
}

func writeStats(w io.Writer, stats storage.Stats, daily []storage.DailyCount) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "WINDOW\tSESSIONS\tWORDS\tLISTENING")
	_, _ = fmt.Fprintf(tw, "today\t%d\t%d\t%s\n", stats.Today.Count, stats.Today.Words, stats.Today.Listening.Round(time.Second))
	_, _ = fmt.Fprintf(tw, "7 days\t%d\t%d\t%s\n", stats.Week.Count, stats.Week.Words, stats.Week.Listening.Round(time.Second))
	_, _ = fmt.Fprintf(tw, "all time\t%d\t\t\n", stats.Total)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(daily) == 0 {
		return nil
	}
	_, _ = fmt.Fprintln(w)
	peak := 0
	for _, d := range daily {
		peak = max(peak, d.Count)
	}
	for _, d := range daily {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("#", d.Count*30/peak)
		}
		if _, err := fmt.Fprintf(w, "%s %4d %s\n", d.Date, d.Count, bar); err != nil {
			return err
		}
	}
	return nil
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 80 {
		return string(r[:77]) + "..."
	}
	return s
}
