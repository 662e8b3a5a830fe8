package textproc

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type Snippet struct {
	Trigger     string `yaml:"trigger" json:"trigger"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

// SnippetSource supplies the current snippet table. Implementations may
// reload it at any time.
type SnippetSource interface {
	Snippets() []Snippet
}

type StaticSnippets []Snippet

func (s StaticSnippets) Snippets() []Snippet { return s }

const (
	varDate      = "{{date}}"
	varTime      = "{{time}}"
	varClipboard = "{{clipboard}}"
)

type Snippets struct {
	source    SnippetSource
	now       func() time.Time
	clipboard func() (string, error)
}

// NewSnippets builds the expander. clipboard may be nil, in which case
// {{clipboard}} expands to an empty string.
func NewSnippets(source SnippetSource, clipboard func() (string, error)) *Snippets {
	return &Snippets{source: source, now: time.Now, clipboard: clipboard}
}

func (s *Snippets) Name() string { return "snippets" }

func (s *Snippets) Process(_ context.Context, in Result) Result {
	return Result{Text: s.Expand(in.Text)}
}

// Expand replaces the first whole-phrase occurrence of every trigger.
func (s *Snippets) Expand(text string) string {
	if s.source == nil {
		return text
	}
	for _, snip := range s.source.Snippets() {
		if strings.TrimSpace(snip.Trigger) == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + boundedPattern(snip.Trigger))
		if err != nil {
			continue
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		text = text[:loc[0]] + s.render(snip.Replacement) + text[loc[1]:]
	}
	return text
}

func (s *Snippets) render(template string) string {
	now := s.now()
	out := strings.ReplaceAll(template, varDate, now.Format("Jan 2, 2006"))
	out = strings.ReplaceAll(out, varTime, now.Format("3:04 PM"))
	if strings.Contains(out, varClipboard) {
		var clip string
		if s.clipboard != nil {
			if v, err := s.clipboard(); err == nil {
				clip = v
			}
		}
		out = strings.ReplaceAll(out, varClipboard, clip)
	}
	return out
}

// boundedPattern anchors phrase on word boundaries at whichever ends start or
// finish with a word character.
func boundedPattern(phrase string) string {
	phrase = strings.TrimSpace(phrase)
	pattern := regexp.QuoteMeta(phrase)
	first, _ := utf8.DecodeRuneInString(phrase)
	last, _ := utf8.DecodeLastRuneInString(phrase)
	if isWordRune(first) {
		pattern = `\b` + pattern
	}
	if isWordRune(last) {
		pattern += `\b`
	}
	return pattern
}

func isWordRune(r rune) bool {
	return r == '_' || (r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}
