package server

import (
	"time"

	"github.com/sjawhar/ghost-scribe/internal/storage"
)

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type StateChangedEvent struct {
	Event
	State   string `json:"state"`
	Display string `json:"display"`
	Active  bool   `json:"active"`
}

type LiveTextEvent struct {
	Event
	Text string `json:"text"`
}

type AudioLevelEvent struct {
	Event
	Level float32 `json:"level"`
}

type SessionErrorEvent struct {
	Event
	Message string `json:"message"`
}

type AdvisoryEvent struct {
	Event
	Message string `json:"message"`
}

type TranscriptionLoggedEvent struct {
	Event
	Entry storage.Entry `json:"entry"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
