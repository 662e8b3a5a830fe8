package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sjawhar/ghost-scribe/internal/dictation"
	"github.com/sjawhar/ghost-scribe/internal/storage"
)

func receive(t *testing.T, ch chan []byte) map[string]any {
	t.Helper()
	select {
	case msg := <-ch:
		var payload map[string]any
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		return payload
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for broadcast")
		return nil
	}
}

func TestHubBroadcastEventShapes(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	hub.BroadcastState(dictation.Listening)
	payload := receive(t, ch)
	if payload["type"] != "state_changed" || payload["state"] != "listening" || payload["display"] != "Listening..." {
		t.Fatalf("unexpected state event: %v", payload)
	}

	hub.BroadcastLiveText("hello there")
	if payload := receive(t, ch); payload["type"] != "live_text" || payload["text"] != "hello there" {
		t.Fatalf("unexpected live text event: %v", payload)
	}

	hub.BroadcastLevel(0.5)
	if payload := receive(t, ch); payload["type"] != "audio_level" || payload["level"] != 0.5 {
		t.Fatalf("unexpected level event: %v", payload)
	}

	hub.BroadcastError("failed to start recording")
	if payload := receive(t, ch); payload["type"] != "session_error" {
		t.Fatalf("unexpected error event: %v", payload)
	}

	hub.BroadcastAdvisory(dictation.AdvisoryLongSession)
	if payload := receive(t, ch); payload["type"] != "advisory" || payload["message"] != dictation.AdvisoryLongSession {
		t.Fatalf("unexpected advisory event: %v", payload)
	}

	var hooked string
	hub.OnTranscription(func(e storage.Entry) { hooked = e.ID })
	hub.BroadcastTranscription(storage.Entry{ID: "t1", FinalText: "done"})
	payload = receive(t, ch)
	entry, _ := payload["entry"].(map[string]any)
	if payload["type"] != "transcription_logged" || entry["text"] != "done" {
		t.Fatalf("unexpected transcription event: %v", payload)
	}
	if hooked != "t1" {
		t.Fatalf("expected transcription hook to run, got %q", hooked)
	}
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.BroadcastLevel(0.1)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
}

func TestWSStreamsEvents(t *testing.T) {
	h, hub := newTestHandler(t, &controllerStub{}, &historyStub{}, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first map[string]any
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read connection event: %v", err)
	}
	if first["type"] != "connection" || first["connected"] != true {
		t.Fatalf("unexpected first event: %v", first)
	}

	// The subscription is registered right after the connection event, so
	// keep broadcasting until one arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.BroadcastState(dictation.Transcribing)
			}
		}
	}()

	var next map[string]any
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read state event: %v", err)
	}
	if next["type"] != "state_changed" || next["state"] != "transcribing" {
		t.Fatalf("unexpected event: %v", next)
	}
}
