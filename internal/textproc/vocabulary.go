package textproc

import (
	"context"
	"regexp"
	"strings"
)

type VocabularyEntry struct {
	Misrecognized string `yaml:"misrecognized" json:"misrecognized"`
	Corrected     string `yaml:"corrected" json:"corrected"`
}

type VocabularySource interface {
	Vocabulary() []VocabularyEntry
}

type StaticVocabulary []VocabularyEntry

func (v StaticVocabulary) Vocabulary() []VocabularyEntry { return v }

// Vocabulary fixes words the speech engine consistently gets wrong.
type Vocabulary struct {
	source VocabularySource
}

func NewVocabulary(source VocabularySource) *Vocabulary {
	return &Vocabulary{source: source}
}

func (v *Vocabulary) Name() string { return "vocabulary" }

func (v *Vocabulary) Process(_ context.Context, in Result) Result {
	return Result{Text: v.Apply(in.Text)}
}

func (v *Vocabulary) Apply(text string) string {
	if v.source == nil {
		return text
	}
	for _, e := range v.source.Vocabulary() {
		if strings.TrimSpace(e.Misrecognized) == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + boundedPattern(e.Misrecognized))
		if err != nil {
			continue
		}
		text = re.ReplaceAllLiteralString(text, e.Corrected)
	}
	return text
}
