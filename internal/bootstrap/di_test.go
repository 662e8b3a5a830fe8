package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"

	"github.com/sjawhar/ghost-scribe/internal/config"
	"github.com/sjawhar/ghost-scribe/internal/gdrive"
	"github.com/sjawhar/ghost-scribe/internal/storage"
	"github.com/sjawhar/ghost-scribe/internal/textproc"
	"github.com/sjawhar/ghost-scribe/internal/transcribe"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DBPath:     filepath.Join(dir, "scribe.db"),
		JournalDir: filepath.Join(dir, "journal"),
		AudioDir:   filepath.Join(dir, "audio"),
		Engine: config.EngineConfig{
			Backend:   "whisper",
			Model:     "base.en",
			ModelsDir: filepath.Join(dir, "models"),
			Command:   "whisper-cli",
			Language:  "en",
		},
		Session: config.SessionConfig{PartialInterval: time.Second},
		Text: config.TextConfig{
			Punctuation:      true,
			Snippets:         true,
			Fillers:          true,
			Vocabulary:       true,
			DisabledCommands: []string{"select_all"},
			SnippetsFile:     filepath.Join(dir, "snippets.yaml"),
			VocabularyFile:   filepath.Join(dir, "vocabulary.yaml"),
		},
		LLM: config.LLMConfig{Model: "openai/gpt-4o-mini"},
	}
}

func TestPipelineFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Text.Fillers = false

	injector := do.New()
	Register(injector, cfg)

	p, err := do.Invoke[*textproc.Pipeline](injector)
	if err != nil {
		t.Fatalf("invoke pipeline: %v", err)
	}
	if p.Enabled("fillers") || !p.Enabled("punctuation") || p.Enabled("rewrite") {
		t.Fatalf("stage toggles not applied: %v", p.Stages())
	}

	res := p.Process(context.Background(), "write to my email period")
	if res.Text != "write to user@example.com." {
		t.Fatalf("unexpected pipeline output %q", res.Text)
	}

	res = p.Process(context.Background(), "select all")
	if res.Command != nil {
		t.Fatalf("disabled command should not match, got %v", res.Command)
	}
}

func TestTranscriptionLogFansOut(t *testing.T) {
	cfg := testConfig(t)
	injector := do.New()
	Register(injector, cfg)

	log, err := do.Invoke[storage.Appender](injector)
	if err != nil {
		t.Fatalf("invoke log: %v", err)
	}
	if syncer := do.MustInvoke[*gdrive.Syncer](injector); syncer != nil {
		t.Fatal("syncer should be disabled without a folder id")
	}

	entry := storage.NewEntry("", time.Now(), "hello there", "Hello there.")
	if err := log.Append(entry); err != nil {
		t.Fatalf("append: %v", err)
	}

	store := do.MustInvoke[*storage.SQLiteStore](injector)
	t.Cleanup(func() { _ = store.Close() })
	got, err := store.Get(entry.ID)
	if err != nil || got.FinalText != "Hello there." {
		t.Fatalf("entry not stored: %+v %v", got, err)
	}

	journal := do.MustInvoke[*storage.Journal](injector)
	if _, err := os.Stat(journal.PathFor(entry.Day())); err != nil {
		t.Fatalf("journal not written: %v", err)
	}
}

func TestNewEngineSelectsBackend(t *testing.T) {
	cfg := testConfig(t)

	cases := []struct {
		backend string
		check   func(transcribe.Engine) bool
	}{
		{"whisper", func(e transcribe.Engine) bool { _, ok := e.(*transcribe.WhisperExec); return ok }},
		{"openai", func(e transcribe.Engine) bool { _, ok := e.(*transcribe.OpenAIEngine); return ok }},
		{"deepgram", func(e transcribe.Engine) bool { _, ok := e.(*transcribe.DeepgramEngine); return ok }},
	}
	for _, tc := range cases {
		cfg.Engine.Backend = tc.backend
		engine, err := NewEngine(cfg)
		if err != nil {
			t.Fatalf("%s: %v", tc.backend, err)
		}
		if !tc.check(engine) {
			t.Fatalf("%s: got %T", tc.backend, engine)
		}
	}

	cfg.Engine.Backend = "carrier-pigeon"
	if _, err := NewEngine(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
