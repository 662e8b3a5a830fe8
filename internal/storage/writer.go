package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Journal appends dictated text to one markdown file per local day.
type Journal struct {
	dir string
	mu  sync.Mutex
}

func NewJournal(dir string) *Journal {
	return &Journal{dir: dir}
}

// Append writes entries that produced text. Command-only sessions are skipped.
func (j *Journal) Append(e Entry) error {
	if strings.TrimSpace(e.FinalText) == "" {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", j.dir, err)
	}

	path := j.PathFor(e.Day())
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, FormatMarkdown(e)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func (j *Journal) Dir() string { return j.dir }

func (j *Journal) PathFor(day string) string {
	return filepath.Join(j.dir, day+".md")
}

func (j *Journal) CurrentPath() string {
	return j.PathFor(time.Now().Format(DayLayout))
}

// FormatMarkdown renders an entry as a journal bullet.
func FormatMarkdown(e Entry) string {
	line := fmt.Sprintf("- **%s** %s", e.Timestamp.Local().Format("15:04:05"), e.FinalText)
	if e.WasVoiceCommand && e.VoiceCommandName != "" {
		line += fmt.Sprintf(" _(%s)_", e.VoiceCommandName)
	}
	return line
}
