package textproc

import (
	"context"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

type Kind int

const (
	DeleteLast Kind = iota + 1
	Undo
	SelectAll
	NewLine
	NewParagraph
	StopListening
	Rewrite
)

type RewriteStyle string

const (
	StyleShorter    RewriteStyle = "shorter"
	StyleFormal     RewriteStyle = "formal"
	StyleCasual     RewriteStyle = "casual"
	StyleFixGrammar RewriteStyle = "fix_grammar"
)

// Command is a spoken instruction detected at the end of an utterance.
// Style is only set for Rewrite.
type Command struct {
	Kind  Kind
	Style RewriteStyle
}

// Name is the canonical identifier used in logs and configuration.
func (c Command) Name() string {
	switch c.Kind {
	case DeleteLast:
		return "delete_last"
	case Undo:
		return "undo"
	case SelectAll:
		return "select_all"
	case NewLine:
		return "new_line"
	case NewParagraph:
		return "new_paragraph"
	case StopListening:
		return "stop_listening"
	case Rewrite:
		return "rewrite." + string(c.Style)
	default:
		return "unknown"
	}
}

func (c Command) String() string { return c.Name() }

type Definition struct {
	Name        string
	Triggers    []string
	Command     Command
	Description string
}

// Definitions lists every voice command in match priority order.
var Definitions = []Definition{
	{Name: "delete_last", Triggers: []string{"delete that", "scratch that"}, Command: Command{Kind: DeleteLast}, Description: "Undo the last insertion"},
	{Name: "undo", Triggers: []string{"undo that", "undo"}, Command: Command{Kind: Undo}, Description: "Undo"},
	{Name: "select_all", Triggers: []string{"select all"}, Command: Command{Kind: SelectAll}, Description: "Select all"},
	{Name: "new_line", Triggers: []string{"new line"}, Command: Command{Kind: NewLine}, Description: "Insert line break"},
	{Name: "new_paragraph", Triggers: []string{"new paragraph"}, Command: Command{Kind: NewParagraph}, Description: "Insert double line break"},
	{Name: "stop_listening", Triggers: []string{"stop listening", "stop dictation"}, Command: Command{Kind: StopListening}, Description: "End dictation session"},
	{Name: "rewrite.shorter", Triggers: []string{"make it shorter"}, Command: Command{Kind: Rewrite, Style: StyleShorter}, Description: "Rewrite shorter"},
	{Name: "rewrite.formal", Triggers: []string{"make it formal"}, Command: Command{Kind: Rewrite, Style: StyleFormal}, Description: "Rewrite in a formal tone"},
	{Name: "rewrite.casual", Triggers: []string{"make it casual"}, Command: Command{Kind: Rewrite, Style: StyleCasual}, Description: "Rewrite in a casual tone"},
	{Name: "rewrite.fix_grammar", Triggers: []string{"fix grammar", "fix the grammar"}, Command: Command{Kind: Rewrite, Style: StyleFixGrammar}, Description: "Fix grammar"},
}

// LookupCommand returns the command with the given canonical name.
func LookupCommand(name string) (Command, bool) {
	for _, d := range Definitions {
		if d.Name == name {
			return d.Command, true
		}
	}
	return Command{}, false
}

// CommandParser detects a trailing trigger phrase and strips it from the text.
type CommandParser struct {
	mu       sync.RWMutex
	disabled map[string]struct{}
}

func NewCommandParser(disabled ...string) *CommandParser {
	p := &CommandParser{}
	p.SetDisabled(disabled)
	return p
}

// SetDisabled replaces the set of command names that never match.
func (p *CommandParser) SetDisabled(names []string) {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			set[n] = struct{}{}
		}
	}
	p.mu.Lock()
	p.disabled = set
	p.mu.Unlock()
}

func (p *CommandParser) Enabled(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, off := p.disabled[name]
	return !off
}

func (p *CommandParser) Name() string { return "commands" }

func (p *CommandParser) Process(_ context.Context, in Result) Result {
	text, cmd := p.Parse(in.Text)
	return Result{Text: text, Command: cmd}
}

// Parse returns the text preceding a trailing trigger and the matched
// command. Text without a trigger is returned unchanged with a nil command.
// Sentence punctuation after the trigger ("stop dictation.") is ignored.
func (p *CommandParser) Parse(text string) (string, *Command) {
	body := strings.TrimRight(strings.TrimSpace(text), ".,!? \t\n")
	if body == "" {
		return text, nil
	}

	for _, def := range Definitions {
		if !p.Enabled(def.Name) {
			continue
		}
		for _, trigger := range def.Triggers {
			if strings.EqualFold(body, trigger) {
				cmd := def.Command
				return "", &cmd
			}
			if rest, ok := cutTrailingPhrase(body, trigger); ok {
				cmd := def.Command
				return rest, &cmd
			}
		}
	}
	return text, nil
}

func cutTrailingPhrase(body, phrase string) (string, bool) {
	if len(body) <= len(phrase) {
		return "", false
	}
	cut := len(body) - len(phrase)
	if !utf8.RuneStart(body[cut]) || !strings.EqualFold(body[cut:], phrase) {
		return "", false
	}
	prev, _ := utf8.DecodeLastRuneInString(body[:cut])
	if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
		return "", false
	}
	return strings.TrimSpace(body[:cut]), true
}
