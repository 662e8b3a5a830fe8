// Package bootstrap builds the dependency graph for the ghost-scribe daemon.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/sjawhar/ghost-scribe/internal/audio"
	"github.com/sjawhar/ghost-scribe/internal/config"
	"github.com/sjawhar/ghost-scribe/internal/dictation"
	"github.com/sjawhar/ghost-scribe/internal/gdrive"
	"github.com/sjawhar/ghost-scribe/internal/inject"
	"github.com/sjawhar/ghost-scribe/internal/llm"
	"github.com/sjawhar/ghost-scribe/internal/notify"
	"github.com/sjawhar/ghost-scribe/internal/rewrite"
	"github.com/sjawhar/ghost-scribe/internal/server"
	"github.com/sjawhar/ghost-scribe/internal/settings"
	"github.com/sjawhar/ghost-scribe/internal/storage"
	"github.com/sjawhar/ghost-scribe/internal/textproc"
	"github.com/sjawhar/ghost-scribe/internal/transcribe"
)

// Register adds every component to injector. Nothing is constructed until it
// is invoked, so commands that only read history never touch audio devices.
func Register(injector do.Injector, cfg *config.Config) {
	do.ProvideValue(injector, cfg)

	do.Provide(injector, func(i do.Injector) (*storage.SQLiteStore, error) {
		c := do.MustInvoke[*config.Config](i)
		return storage.NewSQLiteStore(c.DBPath)
	})

	do.Provide(injector, func(i do.Injector) (*storage.Journal, error) {
		c := do.MustInvoke[*config.Config](i)
		return storage.NewJournal(c.JournalDir), nil
	})

	// Provides a nil syncer when journal upload is not configured.
	do.Provide(injector, func(i do.Injector) (*gdrive.Syncer, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.GDriveFolderID == "" {
			return nil, nil
		}
		journal := do.MustInvoke[*storage.Journal](i)
		return gdrive.NewSyncer(context.Background(), c.GoogleCredentialsFile, c.GDriveFolderID, journal.PathFor)
	})

	do.Provide(injector, func(i do.Injector) (storage.Appender, error) {
		store, err := do.Invoke[*storage.SQLiteStore](i)
		if err != nil {
			return nil, err
		}
		journal := do.MustInvoke[*storage.Journal](i)
		syncer, err := do.Invoke[*gdrive.Syncer](i)
		if err != nil {
			return nil, err
		}
		fan := storage.Fanout{store, journal}
		if syncer != nil {
			fan = append(fan, syncer)
		}
		return fan, nil
	})

	do.Provide(injector, func(i do.Injector) (*settings.Store, error) {
		c := do.MustInvoke[*config.Config](i)
		return settings.NewStore(c.Text.SnippetsFile, c.Text.VocabularyFile)
	})

	do.Provide(injector, func(i do.Injector) (llm.Factory, error) {
		c := do.MustInvoke[*config.Config](i)
		keys := llm.Keys{
			OpenAI:    c.Secrets.OpenAIAPIKey,
			Anthropic: c.Secrets.AnthropicAPIKey,
			Gemini:    c.Secrets.GeminiAPIKey,
		}
		return llm.NewFactory(keys, llm.WithMaxTokens(c.LLM.MaxTokens)), nil
	})

	do.Provide(injector, func(i do.Injector) (*textproc.Pipeline, error) {
		c := do.MustInvoke[*config.Config](i)
		store, err := do.Invoke[*settings.Store](i)
		if err != nil {
			return nil, err
		}

		opts := textproc.Options{
			Commands:     textproc.NewCommandParser(c.Text.DisabledCommands...),
			Snippets:     store,
			Vocabulary:   store,
			Clipboard:    inject.SystemClipboard{}.Read,
			RewriteStyle: textproc.RewriteStyle(c.Text.RewriteStyle),
			Rewrite:      c.Text.Rewrite,
		}
		if c.Text.Rewrite {
			opts.Rewriter = rewrite.New(c.LLM.Model, do.MustInvoke[llm.Factory](i))
		}

		p := textproc.NewDefaultPipeline(opts)
		p.SetEnabled("punctuation", c.Text.Punctuation)
		p.SetEnabled("snippets", c.Text.Snippets)
		p.SetEnabled("fillers", c.Text.Fillers)
		p.SetEnabled("vocabulary", c.Text.Vocabulary)
		return p, nil
	})

	do.Provide(injector, func(i do.Injector) (transcribe.Engine, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewEngine(c)
	})

	do.Provide(injector, func(i do.Injector) (*transcribe.Coordinator, error) {
		c := do.MustInvoke[*config.Config](i)
		engine, err := do.Invoke[transcribe.Engine](i)
		if err != nil {
			return nil, err
		}
		return transcribe.NewCoordinator(engine, c.Session.PartialInterval), nil
	})

	do.Provide(injector, func(i do.Injector) (*audio.Mic, error) {
		c := do.MustInvoke[*config.Config](i)
		return audio.NewMic(c.SampleRateCandidates(), c.Mic.FramesPerBuffer), nil
	})

	do.Provide(injector, func(i do.Injector) (*inject.Marker, error) {
		return inject.NewMarker(inject.DefaultMarkTTL), nil
	})

	do.Provide(injector, func(i do.Injector) (inject.KeySender, error) {
		return inject.NewKeyboard()
	})

	do.Provide(injector, func(i do.Injector) (*inject.Injector, error) {
		keys, err := do.Invoke[inject.KeySender](i)
		if err != nil {
			return nil, err
		}
		return inject.NewInjector(inject.SystemClipboard{}, keys, do.MustInvoke[*inject.Marker](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*inject.Executor, error) {
		keys, err := do.Invoke[inject.KeySender](i)
		if err != nil {
			return nil, err
		}
		return inject.NewExecutor(keys, do.MustInvoke[*inject.Marker](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*server.Hub, error) {
		return server.NewHub(), nil
	})

	do.Provide(injector, func(i do.Injector) (*dictation.Session, error) {
		c := do.MustInvoke[*config.Config](i)

		engine, err := do.Invoke[transcribe.Engine](i)
		if err != nil {
			return nil, fmt.Errorf("speech engine: %w", err)
		}
		pipeline, err := do.Invoke[*textproc.Pipeline](i)
		if err != nil {
			return nil, fmt.Errorf("text pipeline: %w", err)
		}
		log, err := do.Invoke[storage.Appender](i)
		if err != nil {
			return nil, fmt.Errorf("transcription log: %w", err)
		}
		injectorSvc, err := do.Invoke[*inject.Injector](i)
		if err != nil {
			return nil, fmt.Errorf("text injector: %w", err)
		}

		deps := dictation.Deps{
			Capture:     do.MustInvoke[*audio.Mic](i),
			Engine:      engine,
			Coordinator: do.MustInvoke[*transcribe.Coordinator](i),
			Pipeline:    pipeline,
			Injector:    injectorSvc,
			Executor:    do.MustInvoke[*inject.Executor](i),
			Permissions: audio.Permission{},
			Log:         log,
			Notifier:    notify.NewDesktop(c.Sounds),
			Events:      do.MustInvoke[*server.Hub](i),
		}
		if c.KeepAudio {
			deps.Archiver = audio.NewArchiver(c.AudioDir)
		}

		return dictation.NewSession(dictation.Config{
			Model:              c.Engine.Model,
			SilenceTimeout:     c.Session.SilenceTimeout,
			SilenceThreshold:   c.Session.SilenceThreshold,
			LongSessionWarning: c.Session.LongSessionWarning,
		}, deps), nil
	})

	do.Provide(injector, func(i do.Injector) (http.Handler, error) {
		session, err := do.Invoke[*dictation.Session](i)
		if err != nil {
			return nil, err
		}
		store, err := do.Invoke[*storage.SQLiteStore](i)
		if err != nil {
			return nil, err
		}
		settingsStore, err := do.Invoke[*settings.Store](i)
		if err != nil {
			return nil, err
		}
		return server.Handler(do.MustInvoke[*server.Hub](i), session, store, settingsStore)
	})
}

// NewEngine picks the speech backend named in the config.
func NewEngine(c *config.Config) (transcribe.Engine, error) {
	switch c.Engine.Backend {
	case "openai":
		return transcribe.NewOpenAIEngine(c.Secrets.OpenAIAPIKey, c.Engine.BaseURL, c.Engine.Language), nil
	case "deepgram":
		return transcribe.NewDeepgramEngine(c.Secrets.DeepgramAPIKey, c.Engine.Language), nil
	case "whisper", "":
		return transcribe.NewWhisperExec(c.Engine.Command, c.Engine.ModelsDir, c.Engine.Language)
	default:
		return nil, fmt.Errorf("unknown engine backend %q", c.Engine.Backend)
	}
}
