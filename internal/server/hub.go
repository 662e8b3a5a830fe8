package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/sjawhar/ghost-scribe/internal/dictation"
	"github.com/sjawhar/ghost-scribe/internal/storage"
)

// Hub fans session events out to websocket subscribers. It implements
// dictation.EventBroadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}

	logged []func(storage.Entry)
	now    func() time.Time
}

var _ dictation.EventBroadcaster = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{}), now: time.Now}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Broadcast never blocks; slow subscribers drop messages.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// OnTranscription registers fn to run after each logged transcription. fn runs
// on the session's goroutine and must return quickly.
func (h *Hub) OnTranscription(fn func(storage.Entry)) {
	h.mu.Lock()
	h.logged = append(h.logged, fn)
	h.mu.Unlock()
}

func (h *Hub) BroadcastState(state dictation.State) {
	h.broadcastEvent(StateChangedEvent{
		Event:   newEvent("state_changed", h.now()),
		State:   state.String(),
		Display: state.DisplayText(),
		Active:  state.Active(),
	})
}

func (h *Hub) BroadcastLiveText(text string) {
	h.broadcastEvent(LiveTextEvent{Event: newEvent("live_text", h.now()), Text: text})
}

func (h *Hub) BroadcastLevel(level float32) {
	h.broadcastEvent(AudioLevelEvent{Event: newEvent("audio_level", h.now()), Level: level})
}

func (h *Hub) BroadcastError(message string) {
	h.broadcastEvent(SessionErrorEvent{Event: newEvent("session_error", h.now()), Message: message})
}

func (h *Hub) BroadcastAdvisory(message string) {
	h.broadcastEvent(AdvisoryEvent{Event: newEvent("advisory", h.now()), Message: message})
}

func (h *Hub) BroadcastTranscription(entry storage.Entry) {
	h.broadcastEvent(TranscriptionLoggedEvent{Event: newEvent("transcription_logged", h.now()), Entry: entry})

	h.mu.RLock()
	hooks := append([]func(storage.Entry){}, h.logged...)
	h.mu.RUnlock()
	for _, fn := range hooks {
		fn(entry)
	}
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}
