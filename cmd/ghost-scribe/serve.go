package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/sjawhar/ghost-scribe/internal/audio"
	"github.com/sjawhar/ghost-scribe/internal/bootstrap"
	"github.com/sjawhar/ghost-scribe/internal/config"
	"github.com/sjawhar/ghost-scribe/internal/dictation"
	"github.com/sjawhar/ghost-scribe/internal/gdrive"
	"github.com/sjawhar/ghost-scribe/internal/server"
	"github.com/sjawhar/ghost-scribe/internal/settings"
	"github.com/sjawhar/ghost-scribe/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dictation daemon and its control API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, warnings, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}
	return &cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	log.Println("ghost-scribe: starting")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	terminate, err := audio.Init()
	if err != nil {
		log.Printf("warning: audio unavailable, dictation will fail to start: %v", err)
	} else {
		defer terminate()
	}

	injector := do.New()
	bootstrap.Register(injector, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := do.Invoke[*storage.SQLiteStore](injector)
	if err != nil {
		return fmt.Errorf("storage init failed: %w", err)
	}
	defer func() { _ = store.Close() }()

	session, err := do.Invoke[*dictation.Session](injector)
	if err != nil {
		return fmt.Errorf("build dictation session: %w", err)
	}

	handler, err := do.Invoke[http.Handler](injector)
	if err != nil {
		return fmt.Errorf("build http handler failed: %w", err)
	}

	go func() {
		if err := session.Preload(ctx); err != nil {
			log.Printf("warning: preloading model %s failed: %v", cfg.Engine.Model, err)
		}
	}()

	settingsStore := do.MustInvoke[*settings.Store](injector)
	go func() {
		if err := settingsStore.Watch(ctx, settings.DefaultDebounce); err != nil {
			log.Printf("warning: snippet and vocabulary reload disabled: %v", err)
		}
	}()

	syncDone := make(chan struct{})
	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()
	if syncer := do.MustInvoke[*gdrive.Syncer](injector); syncer != nil {
		go func() {
			syncer.Run(syncCtx, gdrive.DefaultInterval)
			close(syncDone)
		}()
	} else {
		close(syncDone)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx, cfg.HTTPAddr, handler)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}

	log.Println("ghost-scribe: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := session.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: finishing active session failed: %v", err)
	}

	// upload whatever the last session added
	stopSync()
	select {
	case <-syncDone:
	case <-shutdownCtx.Done():
		log.Printf("warning: journal upload did not finish before shutdown")
	}

	return nil
}
