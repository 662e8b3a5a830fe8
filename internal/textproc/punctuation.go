package textproc

import (
	"context"
	"regexp"
)

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

var spokenPunctuation = []struct {
	word   string
	symbol string
}{
	{"period", "."},
	{"full stop", "."},
	{"comma", ","},
	{"question mark", "?"},
	{"exclamation mark", "!"},
	{"exclamation point", "!"},
	{"colon", ":"},
	{"semicolon", ";"},
	{"dash", "—"},
	{"hyphen", "-"},
	{"ellipsis", "…"},
	{"open quote", `"`},
	{"close quote", `"`},
	{"open paren", "("},
	{"close paren", ")"},
	{"open bracket", "["},
	{"close bracket", "]"},
}

// Punctuation turns spoken punctuation names into symbols.
type Punctuation struct {
	table      []replacement
	spaceTrail *regexp.Regexp
}

func NewPunctuation() *Punctuation {
	table := make([]replacement, 0, len(spokenPunctuation))
	for _, p := range spokenPunctuation {
		table = append(table, replacement{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p.word) + `\b`),
			with:    p.symbol,
		})
	}
	return &Punctuation{
		table:      table,
		spaceTrail: regexp.MustCompile(`[ \t]+([.,?!:;])`),
	}
}

func (p *Punctuation) Name() string { return "punctuation" }

func (p *Punctuation) Process(_ context.Context, in Result) Result {
	return Result{Text: p.Apply(in.Text)}
}

func (p *Punctuation) Apply(text string) string {
	for _, r := range p.table {
		text = r.pattern.ReplaceAllLiteralString(text, r.with)
	}
	return p.spaceTrail.ReplaceAllString(text, "$1")
}
