package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sjawhar/ghost-scribe/internal/dictation"
	"github.com/sjawhar/ghost-scribe/internal/storage"
	"github.com/sjawhar/ghost-scribe/internal/textproc"
)

var entryIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Controller is the part of dictation.Session the API drives.
type Controller interface {
	Status() dictation.Status
	Toggle() error
	Start() error
	StopListening() error
	SwitchModel(ctx context.Context, name string) error
	LastTranscription() string
}

type HistoryStore interface {
	Get(id string) (storage.Entry, error)
	ByDate(day string) ([]storage.Entry, error)
	Recent(limit int) ([]storage.Entry, error)
	Dates() ([]string, error)
	Stats(now time.Time) (storage.Stats, error)
	DailyCounts(days int, now time.Time) ([]storage.DailyCount, error)
}

type SettingsStore interface {
	Snippets() []textproc.Snippet
	Vocabulary() []textproc.VocabularyEntry
	SetSnippets(snippets []textproc.Snippet) error
	SetVocabulary(entries []textproc.VocabularyEntry) error
}

const statsCacheTTL = 30 * time.Second

func registerControlRoutes(mux *http.ServeMux, session Controller) {
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, session.Status())
	})

	mux.HandleFunc("POST /api/toggle", func(w http.ResponseWriter, r *http.Request) {
		if err := session.Toggle(); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, session.Status())
	})

	mux.HandleFunc("POST /api/start", func(w http.ResponseWriter, r *http.Request) {
		if err := session.Start(); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, session.Status())
	})

	mux.HandleFunc("POST /api/stop", func(w http.ResponseWriter, r *http.Request) {
		if err := session.StopListening(); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, session.Status())
	})

	mux.HandleFunc("POST /api/model", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeJSONError(w, http.StatusBadRequest, "model name is required")
			return
		}
		if err := session.SwitchModel(r.Context(), req.Name); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, session.Status())
	})

	mux.HandleFunc("GET /api/last", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"text": session.LastTranscription()})
	})
}

func registerHistoryRoutes(mux *http.ServeMux, store HistoryStore, stats *cache.Cache) {
	mux.HandleFunc("GET /api/history", func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = time.Now().Format(storage.DayLayout)
		}
		if _, err := time.Parse(storage.DayLayout, date); err != nil {
			writeJSONError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}

		entries, err := store.ByDate(date)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list transcriptions: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, nonNil(entries))
	})

	mux.HandleFunc("GET /api/history/recent", func(w http.ResponseWriter, r *http.Request) {
		limit, ok := intParam(w, r, "limit", storage.DefaultRecentLimit)
		if !ok {
			return
		}
		entries, err := store.Recent(limit)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("recent transcriptions: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, nonNil(entries))
	})

	mux.HandleFunc("GET /api/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		entry, ok := lookupEntry(w, store, r.PathValue("id"))
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, entry)
	})

	mux.HandleFunc("GET /api/history/{id}/audio", func(w http.ResponseWriter, r *http.Request) {
		entry, ok := lookupEntry(w, store, r.PathValue("id"))
		if !ok {
			return
		}
		if entry.AudioPath == "" {
			writeJSONError(w, http.StatusNotFound, "audio not available")
			return
		}

		cleanPath := filepath.Clean(entry.AudioPath)
		if cleanPath == "" || cleanPath == "." || strings.Contains(cleanPath, "..") {
			writeJSONError(w, http.StatusForbidden, "invalid audio path")
			return
		}

		f, err := os.Open(cleanPath)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "audio file not found")
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("stat audio: %v", err))
			return
		}

		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("Content-Type", contentTypeForAudio(cleanPath))
		http.ServeContent(w, r, filepath.Base(cleanPath), info.ModTime(), f)
	})

	mux.HandleFunc("GET /api/dates", func(w http.ResponseWriter, r *http.Request) {
		dates, err := store.Dates()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get dates: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, nonNil(dates))
	})

	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		if cached, ok := stats.Get("stats"); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
		s, err := store.Stats(time.Now())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get stats: %v", err))
			return
		}
		stats.SetDefault("stats", s)
		writeJSON(w, http.StatusOK, s)
	})

	mux.HandleFunc("GET /api/stats/daily", func(w http.ResponseWriter, r *http.Request) {
		days, ok := intParam(w, r, "days", 14)
		if !ok {
			return
		}
		key := "daily:" + strconv.Itoa(days)
		if cached, ok := stats.Get(key); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
		counts, err := store.DailyCounts(days, time.Now())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get daily counts: %v", err))
			return
		}
		stats.SetDefault(key, counts)
		writeJSON(w, http.StatusOK, counts)
	})
}

func registerSettingsRoutes(mux *http.ServeMux, settings SettingsStore) {
	mux.HandleFunc("GET /api/snippets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, nonNil(settings.Snippets()))
	})

	mux.HandleFunc("PUT /api/snippets", func(w http.ResponseWriter, r *http.Request) {
		var snippets []textproc.Snippet
		if err := json.NewDecoder(r.Body).Decode(&snippets); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode snippets: %v", err))
			return
		}
		for _, s := range snippets {
			if strings.TrimSpace(s.Trigger) == "" {
				writeJSONError(w, http.StatusBadRequest, "snippet trigger is required")
				return
			}
		}
		if err := settings.SetSnippets(snippets); err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("save snippets: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, nonNil(settings.Snippets()))
	})

	mux.HandleFunc("GET /api/vocabulary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, nonNil(settings.Vocabulary()))
	})

	mux.HandleFunc("PUT /api/vocabulary", func(w http.ResponseWriter, r *http.Request) {
		var entries []textproc.VocabularyEntry
		if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode vocabulary: %v", err))
			return
		}
		for _, e := range entries {
			if strings.TrimSpace(e.Misrecognized) == "" {
				writeJSONError(w, http.StatusBadRequest, "vocabulary entry needs a misrecognized phrase")
				return
			}
		}
		if err := settings.SetVocabulary(entries); err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("save vocabulary: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, nonNil(settings.Vocabulary()))
	})
}

func lookupEntry(w http.ResponseWriter, store HistoryStore, id string) (storage.Entry, bool) {
	if !entryIDPattern.MatchString(id) {
		writeJSONError(w, http.StatusForbidden, "invalid transcription id")
		return storage.Entry{}, false
	}
	entry, err := store.Get(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, sql.ErrNoRows) {
			status = http.StatusNotFound
		}
		writeJSONError(w, status, fmt.Sprintf("get transcription: %v", err))
		return storage.Entry{}, false
	}
	return entry, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dictation.ErrNoActiveSession):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, dictation.ErrPermissionDenied):
		writeJSONError(w, http.StatusForbidden, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 365 {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("%s must be between 1 and 365", name))
		return 0, false
	}
	return n, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func contentTypeForAudio(path string) string {
	switch filepath.Ext(path) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
