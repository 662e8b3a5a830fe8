package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sjawhar/ghost-scribe/internal/storage"
)

// Handler builds the control API and event stream. settings may be nil, in
// which case the snippet and vocabulary routes are not registered.
func Handler(hub *Hub, session Controller, history HistoryStore, settings SettingsStore) (http.Handler, error) {
	if hub == nil || session == nil || history == nil {
		return nil, errors.New("server: hub, session and history are required")
	}

	mux := http.NewServeMux()

	stats := cache.New(statsCacheTTL, 2*statsCacheTTL)
	hub.OnTranscription(func(storage.Entry) { stats.Flush() })

	registerWSRoute(mux, hub)
	registerControlRoutes(mux, session)
	registerHistoryRoutes(mux, history, stats)
	if settings != nil {
		registerSettingsRoutes(mux, settings)
	}

	return mux, nil
}

// Serve listens on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("control API at http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
