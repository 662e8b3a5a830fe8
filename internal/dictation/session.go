package dictation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sjawhar/ghost-scribe/internal/storage"
	"github.com/sjawhar/ghost-scribe/internal/textproc"
)

const DefaultLongSessionWarning = 60 * time.Second

type Config struct {
	Model string
	// SilenceTimeout <= 0 disables auto-stop.
	SilenceTimeout   time.Duration
	SilenceThreshold float32
	// LongSessionWarning <= 0 disables the advisory.
	LongSessionWarning time.Duration
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	State             State     `json:"state"`
	Display           string    `json:"display"`
	Active            bool      `json:"active"`
	LiveText          string    `json:"live_text"`
	Error             string    `json:"error,omitempty"`
	Advisory          string    `json:"advisory,omitempty"`
	Level             float32   `json:"level"`
	Levels            []float32 `json:"levels"`
	Model             string    `json:"model"`
	ModelLoaded       bool      `json:"model_loaded"`
	LastTranscription string    `json:"last_transcription,omitempty"`
}

// run is the bookkeeping for one Listening..Idle cycle. Timers and
// asynchronous steps compare against Session.current so a stale run can never
// act on a newer one.
type run struct {
	id        string
	model     string
	startedAt time.Time

	ready chan struct{} // closed once startup finished or gave up
	done  chan struct{} // closed when the run returns to Idle

	// guarded by Session.mu
	captured    bool
	streaming   bool
	stopping    bool
	unsubscribe func()
	silence     *SilenceWatch
	watchdog    *time.Timer
}

// Session owns the dictation state machine. Start, Stop and Toggle never
// block; the work they trigger runs on background goroutines.
type Session struct {
	cfg  Config
	deps Deps

	mu                sync.Mutex
	state             State
	current           *run
	model             string
	liveText          string
	lastErr           string
	advisory          string
	lastTranscription string
	level             float32
	levels            LevelHistory

	// serializes engine load and unload
	modelMu sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewSession(cfg Config, deps Deps) *Session {
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = DefaultSilenceThreshold
	}
	return &Session{
		cfg:   cfg,
		deps:  deps,
		model: cfg.Model,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:             s.state,
		Display:           s.state.DisplayText(),
		Active:            s.state.Active(),
		LiveText:          s.liveText,
		Error:             s.lastErr,
		Advisory:          s.advisory,
		Level:             s.level,
		Levels:            s.levels.Values(),
		Model:             s.model,
		ModelLoaded:       s.deps.Engine.IsLoaded() && s.deps.Engine.ModelName() == s.model,
		LastTranscription: s.lastTranscription,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LastTranscription() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTranscription
}

func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Toggle starts a session when idle and stops it otherwise.
func (s *Session) Toggle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return s.startLocked()
	}
	s.stopLocked(s.current)
	return nil
}

// Start begins listening. It is a no-op unless the session is idle and only
// fails synchronously when microphone permission is missing.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return nil
	}
	return s.startLocked()
}

// Stop ends listening and hands the captured audio to transcription. It is a
// no-op unless the session is listening.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(s.current)
}

// StopListening is Stop for callers that need to know whether a listening
// session was actually stopped.
func (s *Session) StopListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.current
	if r == nil || s.state != Listening || r.stopping {
		return ErrNoActiveSession
	}
	s.stopLocked(r)
	return nil
}

// SwitchModel selects and loads a model regardless of session state. Loading
// the already active model does nothing.
func (s *Session) SwitchModel(ctx context.Context, name string) error {
	s.mu.Lock()
	s.model = name
	s.mu.Unlock()
	return s.ensureModel(ctx, name)
}

// Preload loads the selected model ahead of the first session.
func (s *Session) Preload(ctx context.Context) error {
	return s.ensureModel(ctx, s.Model())
}

// Shutdown stops any active session and waits for it to finish.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	r := s.current
	s.stopLocked(r)
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) startLocked() error {
	s.lastErr = ""
	s.advisory = ""
	s.liveText = ""
	s.levels.Reset()
	s.level = 0

	if s.deps.Permissions != nil && !s.deps.Permissions.MicrophoneGranted() {
		s.lastErr = ErrPermissionDenied.Error()
		s.emitError(s.lastErr)
		return ErrPermissionDenied
	}

	r := &run{
		id:        s.newID(),
		model:     s.model,
		startedAt: s.now(),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.current = r
	s.setStateLocked(Listening)
	r.unsubscribe = s.deps.Coordinator.Subscribe(func(text string) {
		s.onLiveText(r, text)
	})

	go s.startup(r)
	return nil
}

func (s *Session) startup(r *run) {
	defer close(r.ready)
	ctx := context.Background()

	if err := s.ensureModel(ctx, r.model); err != nil {
		s.abort(r, fmt.Errorf("%w: %v", ErrModelLoad, err))
		return
	}
	if s.isStopping(r) {
		return
	}

	stream, err := s.deps.Capture.Start(ctx)
	if err != nil {
		s.abort(r, fmt.Errorf("%w: %v", ErrCaptureStart, err))
		return
	}

	s.mu.Lock()
	r.captured = true
	if r.stopping {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.deps.Coordinator.StartStreaming(ctx, stream.Samples()); err != nil {
		if stopErr := s.deps.Capture.Stop(); stopErr != nil {
			log.Printf("warning: failed to stop capture: %v", stopErr)
		}
		s.mu.Lock()
		r.captured = false
		s.mu.Unlock()
		s.abort(r, fmt.Errorf("%w: %v", ErrCaptureStart, err))
		return
	}
	go s.watchLevels(r, stream.Levels())

	s.mu.Lock()
	r.streaming = true
	if r.stopping {
		s.mu.Unlock()
		return
	}
	if s.cfg.SilenceTimeout > 0 {
		r.silence = NewSilenceWatch(s.cfg.SilenceTimeout, s.cfg.SilenceThreshold, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.stopLocked(r)
		})
	}
	if s.cfg.LongSessionWarning > 0 {
		r.watchdog = time.AfterFunc(s.cfg.LongSessionWarning, func() {
			s.onLongSession(r)
		})
	}
	s.mu.Unlock()

	if s.deps.Notifier != nil {
		s.deps.Notifier.SessionStarted()
	}
}

// stopLocked moves a listening run to Transcribing and schedules the
// remainder of the session. Callers hold s.mu.
func (s *Session) stopLocked(r *run) {
	if r == nil || s.current != r || s.state != Listening || r.stopping {
		return
	}
	r.stopping = true
	s.disarmLocked(r)
	s.setStateLocked(Transcribing)
	go s.finish(r)
}

func (s *Session) disarmLocked(r *run) {
	if r.silence != nil {
		r.silence.Stop()
	}
	if r.watchdog != nil {
		r.watchdog.Stop()
	}
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

func (s *Session) finish(r *run) {
	<-r.ready
	ctx := context.Background()

	s.mu.Lock()
	captured, streaming := r.captured, r.streaming
	s.mu.Unlock()

	if captured {
		if err := s.deps.Capture.Stop(); err != nil {
			log.Printf("warning: failed to stop capture: %v", err)
		}
	}
	raw := ""
	if streaming {
		raw = s.deps.Coordinator.StopStreaming(ctx)
	}
	// the model may have been switched since start
	model := s.deps.Engine.ModelName()
	if model == "" {
		model = r.model
	}

	s.mu.Lock()
	if s.current == r {
		s.liveText = ""
		s.emitLiveText("")
	}
	s.mu.Unlock()
	if captured && s.deps.Notifier != nil {
		s.deps.Notifier.SessionStopped()
	}

	if raw == "" {
		s.toIdle(r)
		return
	}

	s.setState(r, Processing)
	result := s.deps.Pipeline.Process(ctx, raw)
	cmd := result.Command
	audioPath := s.archive(r)

	if cmd != nil && cmd.Kind == textproc.StopListening {
		s.record(r, model, raw, "", cmd, audioPath)
		s.toIdle(r)
		return
	}

	if result.Text != "" {
		s.setState(r, Injecting)
		if err := s.deps.Injector.Inject(ctx, result.Text); err != nil {
			log.Printf("warning: text injection failed: %v", err)
		}
		s.mu.Lock()
		s.lastTranscription = result.Text
		s.mu.Unlock()
	}

	if cmd != nil {
		s.setState(r, ExecutingCommand)
		if err := s.deps.Executor.Execute(ctx, *cmd); err != nil {
			log.Printf("warning: voice command %s failed: %v", cmd.Name(), err)
		}
	}

	s.record(r, model, raw, result.Text, cmd, audioPath)
	s.toIdle(r)
}

func (s *Session) archive(r *run) string {
	if s.deps.Archiver == nil {
		return ""
	}
	path, err := s.deps.Archiver.Save(r.id, s.deps.Coordinator.Samples())
	if err != nil {
		log.Printf("warning: failed to archive audio for %s: %v", r.id, err)
		return ""
	}
	return path
}

func (s *Session) record(r *run, model, raw, final string, cmd *textproc.Command, audioPath string) {
	entry := storage.NewEntry(r.id, s.now(), raw, final)
	entry.Duration = entry.Timestamp.Sub(r.startedAt)
	entry.ModelUsed = model
	entry.AudioPath = audioPath
	if cmd != nil {
		entry.WasVoiceCommand = true
		entry.VoiceCommandName = cmd.Name()
	}

	if err := s.deps.Log.Append(entry); err != nil {
		log.Printf("warning: failed to log transcription %s: %v", entry.ID, err)
	}

	s.mu.Lock()
	if s.deps.Events != nil {
		s.deps.Events.BroadcastTranscription(entry)
	}
	s.mu.Unlock()
}

func (s *Session) abort(r *run, err error) {
	log.Printf("dictation session %s failed: %v", r.id, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r || r.stopping {
		return
	}
	s.disarmLocked(r)
	s.lastErr = err.Error()
	s.emitError(s.lastErr)
	s.idleLocked(r)
}

func (s *Session) toIdle(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == r {
		s.idleLocked(r)
	}
}

func (s *Session) idleLocked(r *run) {
	s.current = nil
	s.liveText = ""
	s.level = 0
	s.setStateLocked(Idle)
	close(r.done)
}

func (s *Session) isStopping(r *run) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.stopping || s.current != r
}

func (s *Session) setState(r *run, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == r {
		s.setStateLocked(next)
	}
}

func (s *Session) setStateLocked(next State) {
	if !CanTransition(s.state, next) {
		log.Printf("warning: unexpected transition %s -> %s", s.state, next)
	}
	s.state = next
	if s.deps.Events != nil {
		s.deps.Events.BroadcastState(next)
	}
}

func (s *Session) ensureModel(ctx context.Context, name string) error {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()

	engine := s.deps.Engine
	if engine.IsLoaded() && engine.ModelName() == name {
		return nil
	}
	if engine.IsLoaded() {
		engine.UnloadModel()
	}
	return engine.LoadModel(ctx, name)
}

func (s *Session) onLiveText(r *run, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r || s.state != Listening {
		return
	}
	s.liveText = text
	s.emitLiveText(text)
}

func (s *Session) watchLevels(r *run, levels <-chan float32) {
	for {
		select {
		case <-r.done:
			return
		case level, ok := <-levels:
			if !ok {
				return
			}
			s.onLevel(r, level)
		}
	}
}

func (s *Session) onLevel(r *run, level float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r || s.state != Listening {
		return
	}
	s.level = level
	s.levels.Push(level)
	if s.deps.Events != nil {
		s.deps.Events.BroadcastLevel(level)
	}
	if r.silence != nil {
		r.silence.Observe(level)
	}
}

func (s *Session) onLongSession(r *run) {
	s.mu.Lock()
	if s.current != r || s.state != Listening {
		s.mu.Unlock()
		return
	}
	s.advisory = AdvisoryLongSession
	if s.deps.Events != nil {
		s.deps.Events.BroadcastAdvisory(AdvisoryLongSession)
	}
	s.mu.Unlock()

	if s.deps.Notifier != nil {
		s.deps.Notifier.Advisory(AdvisoryLongSession)
	}
}

func (s *Session) emitError(message string) {
	if s.deps.Events != nil {
		s.deps.Events.BroadcastError(message)
	}
}

func (s *Session) emitLiveText(text string) {
	if s.deps.Events != nil {
		s.deps.Events.BroadcastLiveText(text)
	}
}
