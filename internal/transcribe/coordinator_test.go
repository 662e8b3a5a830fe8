package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type engineMock struct {
	mu      sync.Mutex
	model   string
	calls   int
	lengths []int
	fail    bool
	text    string
}

func (e *engineMock) LoadModel(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = name
	return nil
}

func (e *engineMock) UnloadModel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = ""
}

func (e *engineMock) IsLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model != ""
}

func (e *engineMock) ModelName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

func (e *engineMock) Transcribe(_ context.Context, samples []float32) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.lengths = append(e.lengths, len(samples))
	if e.fail {
		return "", errors.New("engine failure")
	}
	if e.text != "" {
		return e.text, nil
	}
	return fmt.Sprintf("[noise] heard %d", len(samples)), nil
}

func (e *engineMock) setFail(v bool) {
	e.mu.Lock()
	e.fail = v
	e.mu.Unlock()
}

func (e *engineMock) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type liveRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *liveRecorder) record(text string) {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
}

func (r *liveRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCoordinatorPublishesPartialsAndFinal(t *testing.T) {
	engine := &engineMock{}
	c := NewCoordinator(engine, 10*time.Millisecond)
	rec := &liveRecorder{}
	unsubscribe := c.Subscribe(rec.record)
	defer unsubscribe()

	samples := make(chan []float32, 8)
	if err := c.StartStreaming(context.Background(), samples); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	samples <- make([]float32, 160)

	waitFor(t, time.Second, func() bool { return c.LiveText() != "" })
	if got := c.LiveText(); got != "heard 160" {
		t.Fatalf("expected cleaned partial, got %q", got)
	}

	samples <- make([]float32, 40)
	final := c.StopStreaming(context.Background())
	if final != "heard 200" {
		t.Fatalf("expected final over all samples, got %q", final)
	}
	if c.LiveText() != "" {
		t.Fatalf("expected live text cleared, got %q", c.LiveText())
	}

	texts := rec.snapshot()
	if len(texts) == 0 || texts[len(texts)-1] != "" {
		t.Fatalf("expected last live update to clear text, got %v", texts)
	}
	if c.Streaming() {
		t.Fatal("expected coordinator stopped")
	}
}

func TestCoordinatorSwallowsPartialFailures(t *testing.T) {
	engine := &engineMock{fail: true}
	c := NewCoordinator(engine, 5*time.Millisecond)

	samples := make(chan []float32, 1)
	if err := c.StartStreaming(context.Background(), samples); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	samples <- make([]float32, 10)

	waitFor(t, time.Second, func() bool { return engine.callCount() >= 2 })
	if c.LiveText() != "" {
		t.Fatalf("expected no live text from failed partials, got %q", c.LiveText())
	}

	engine.setFail(false)
	if got := c.StopStreaming(context.Background()); got != "heard 10" {
		t.Fatalf("expected final transcript despite partial failures, got %q", got)
	}
}

func TestCoordinatorFinalFailureYieldsEmpty(t *testing.T) {
	engine := &engineMock{fail: true}
	c := NewCoordinator(engine, 0)

	samples := make(chan []float32, 1)
	samples <- make([]float32, 10)
	if err := c.StartStreaming(context.Background(), samples); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return c.Buffered() == 10 })

	if got := c.StopStreaming(context.Background()); got != "" {
		t.Fatalf("expected empty final on engine failure, got %q", got)
	}
}

func TestCoordinatorNoSamplesSkipsEngine(t *testing.T) {
	engine := &engineMock{}
	c := NewCoordinator(engine, 0)

	if err := c.StartStreaming(context.Background(), make(chan []float32)); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	if got := c.StopStreaming(context.Background()); got != "" {
		t.Fatalf("expected empty final, got %q", got)
	}
	if engine.callCount() != 0 {
		t.Fatalf("expected no engine calls, got %d", engine.callCount())
	}
}

func TestCoordinatorDrainsQueuedChunksOnStop(t *testing.T) {
	engine := &engineMock{}
	c := NewCoordinator(engine, 0)

	samples := make(chan []float32, 4)
	if err := c.StartStreaming(context.Background(), samples); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		samples <- make([]float32, 25)
	}

	if got := c.StopStreaming(context.Background()); got != "heard 100" {
		t.Fatalf("expected all queued samples transcribed, got %q", got)
	}
}

func TestCoordinatorRejectsDoubleStartAndResetsBetweenSessions(t *testing.T) {
	engine := &engineMock{}
	c := NewCoordinator(engine, 0)

	first := make(chan []float32, 1)
	first <- make([]float32, 50)
	if err := c.StartStreaming(context.Background(), first); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	if err := c.StartStreaming(context.Background(), first); !errors.Is(err, ErrAlreadyStreaming) {
		t.Fatalf("expected ErrAlreadyStreaming, got %v", err)
	}
	if got := c.StopStreaming(context.Background()); got != "heard 50" {
		t.Fatalf("unexpected first final %q", got)
	}

	second := make(chan []float32, 1)
	second <- make([]float32, 7)
	if err := c.StartStreaming(context.Background(), second); err != nil {
		t.Fatalf("second StartStreaming failed: %v", err)
	}
	if got := c.StopStreaming(context.Background()); got != "heard 7" {
		t.Fatalf("expected buffer reset between sessions, got %q", got)
	}
}

func TestCoordinatorUnsubscribe(t *testing.T) {
	engine := &engineMock{text: "hello"}
	c := NewCoordinator(engine, 5*time.Millisecond)
	rec := &liveRecorder{}
	unsubscribe := c.Subscribe(rec.record)
	unsubscribe()
	unsubscribe()

	samples := make(chan []float32, 1)
	samples <- make([]float32, 5)
	if err := c.StartStreaming(context.Background(), samples); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return c.LiveText() == "hello" })
	_ = c.StopStreaming(context.Background())

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no updates after unsubscribe, got %v", got)
	}
}

func TestCoordinatorStopWithoutStart(t *testing.T) {
	c := NewCoordinator(&engineMock{}, 0)
	if got := c.StopStreaming(context.Background()); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
