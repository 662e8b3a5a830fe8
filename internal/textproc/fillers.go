package textproc

import (
	"context"
	"regexp"
	"strings"
)

var (
	fillerPattern = regexp.MustCompile(`(?i)\b(?:um|uh|uhh|umm|er|erm|ahh?)\b`)
	doubleSpace   = regexp.MustCompile(` {2,}`)
)

// Fillers drops isolated disfluency tokens.
type Fillers struct{}

func NewFillers() *Fillers { return &Fillers{} }

func (f *Fillers) Name() string { return "fillers" }

func (f *Fillers) Process(_ context.Context, in Result) Result {
	return Result{Text: f.Apply(in.Text)}
}

func (f *Fillers) Apply(text string) string {
	text = fillerPattern.ReplaceAllString(text, "")
	text = doubleSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
