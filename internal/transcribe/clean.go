package transcribe

import (
	"regexp"
	"strings"
)

// Whisper-family models hallucinate stage directions and music glyphs from
// subtitle training data.
var (
	bracketed     = regexp.MustCompile(`\[[^\]]*\]`)
	parenthesized = regexp.MustCompile(`\([^)]*\)`)
	musicGlyphs   = regexp.MustCompile(`[♩♪♫♬♭♮♯]+`)
	runsOfSpace   = regexp.MustCompile(`[ \t]{2,}`)
)

// Clean strips non-speech annotations from engine output.
func Clean(text string) string {
	text = bracketed.ReplaceAllString(text, "")
	text = parenthesized.ReplaceAllString(text, "")
	text = musicGlyphs.ReplaceAllString(text, "")
	text = runsOfSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
