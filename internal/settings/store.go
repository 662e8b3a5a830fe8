// Package settings persists the user-editable snippet and vocabulary tables
// and reloads them when the files change on disk.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sjawhar/ghost-scribe/internal/textproc"
)

type snippetFile struct {
	Snippets []textproc.Snippet `yaml:"snippets"`
}

type vocabularyFile struct {
	Vocabulary []textproc.VocabularyEntry `yaml:"vocabulary"`
}

// DefaultSnippets seed a fresh snippets file.
var DefaultSnippets = []textproc.Snippet{
	{Trigger: "my email", Replacement: "user@example.com"},
	{Trigger: "meeting template", Replacement: "## Meeting Notes - {{date}}\nAttendees:\n### Agenda\n### Action Items"},
	{Trigger: "thanks email", Replacement: "Thank you for your message. I appreciate you reaching out and will get back to you shortly.\n\nBest regards"},
}

type Store struct {
	snippetsPath   string
	vocabularyPath string

	mu         sync.RWMutex
	snippets   []textproc.Snippet
	vocabulary []textproc.VocabularyEntry
}

// NewStore loads both tables. A missing snippets file is created with the
// defaults; a missing vocabulary file means no corrections.
func NewStore(snippetsPath, vocabularyPath string) (*Store, error) {
	s := &Store{snippetsPath: snippetsPath, vocabularyPath: vocabularyPath}

	if err := s.loadSnippets(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if err := s.SetSnippets(DefaultSnippets); err != nil {
			return nil, err
		}
	}
	if err := s.loadVocabulary(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

func (s *Store) Snippets() []textproc.Snippet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]textproc.Snippet(nil), s.snippets...)
}

func (s *Store) Vocabulary() []textproc.VocabularyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]textproc.VocabularyEntry(nil), s.vocabulary...)
}

func (s *Store) SetSnippets(snippets []textproc.Snippet) error {
	if err := writeYAML(s.snippetsPath, snippetFile{Snippets: snippets}); err != nil {
		return fmt.Errorf("save snippets: %w", err)
	}
	s.mu.Lock()
	s.snippets = append([]textproc.Snippet(nil), snippets...)
	s.mu.Unlock()
	return nil
}

func (s *Store) SetVocabulary(entries []textproc.VocabularyEntry) error {
	if err := writeYAML(s.vocabularyPath, vocabularyFile{Vocabulary: entries}); err != nil {
		return fmt.Errorf("save vocabulary: %w", err)
	}
	s.mu.Lock()
	s.vocabulary = append([]textproc.VocabularyEntry(nil), entries...)
	s.mu.Unlock()
	return nil
}

// Reload re-reads whichever file path names. Unknown paths are ignored and a
// file that fails to parse leaves the previous table in place.
func (s *Store) Reload(path string) {
	var err error
	switch filepath.Clean(path) {
	case filepath.Clean(s.snippetsPath):
		err = s.loadSnippets()
	case filepath.Clean(s.vocabularyPath):
		err = s.loadVocabulary()
	default:
		return
	}
	if err != nil {
		log.Printf("warning: keeping previous settings, reload of %s failed: %v", path, err)
		return
	}
	log.Printf("reloaded %s", path)
}

func (s *Store) loadSnippets() error {
	var file snippetFile
	if err := readYAML(s.snippetsPath, &file); err != nil {
		return err
	}
	s.mu.Lock()
	s.snippets = file.Snippets
	s.mu.Unlock()
	return nil
}

func (s *Store) loadVocabulary() error {
	var file vocabularyFile
	if err := readYAML(s.vocabularyPath, &file); err != nil {
		return err
	}
	s.mu.Lock()
	s.vocabulary = file.Vocabulary
	s.mu.Unlock()
	return nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// writeYAML replaces path atomically so watchers never see a partial file.
func writeYAML(path string, in any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
