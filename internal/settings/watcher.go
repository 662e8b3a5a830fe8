package settings

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 250 * time.Millisecond

// Watch reloads the store whenever one of its files is written, debouncing
// bursts of events per file. It blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	dirs := map[string]bool{
		filepath.Dir(s.snippetsPath):   true,
		filepath.Dir(s.vocabularyPath): true,
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}

	watched := map[string]bool{
		filepath.Clean(s.snippetsPath):   true,
		filepath.Clean(s.vocabularyPath): true,
	}
	pending := make(map[string]*time.Timer)
	fire := make(chan string, 4)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if !watched[name] || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if t, ok := pending[name]; ok {
				t.Reset(debounce)
				continue
			}
			pending[name] = time.AfterFunc(debounce, func() {
				select {
				case fire <- name:
				case <-ctx.Done():
				}
			})

		case name := <-fire:
			delete(pending, name)
			s.Reload(name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("warning: settings watcher: %v", err)
		}
	}
}
