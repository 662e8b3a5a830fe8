package dictation

import (
	"context"

	"github.com/sjawhar/ghost-scribe/internal/storage"
	"github.com/sjawhar/ghost-scribe/internal/textproc"
	"github.com/sjawhar/ghost-scribe/internal/transcribe"
)

// CaptureStream delivers 16 kHz mono chunks and normalized levels. Both
// channels close when capture stops.
type CaptureStream interface {
	Samples() <-chan []float32
	Levels() <-chan float32
}

type AudioCapture interface {
	Start(ctx context.Context) (CaptureStream, error)
	Stop() error
}

// Transcriber is the streaming side of speech recognition.
type Transcriber interface {
	StartStreaming(ctx context.Context, samples <-chan []float32) error
	StopStreaming(ctx context.Context) string
	Subscribe(fn func(string)) func()
	Samples() []float32
}

type TextPipeline interface {
	Process(ctx context.Context, text string) textproc.Result
}

type TextInjector interface {
	Inject(ctx context.Context, text string) error
}

type CommandExecutor interface {
	Execute(ctx context.Context, cmd textproc.Command) error
}

type PermissionChecker interface {
	MicrophoneGranted() bool
}

type LogStore interface {
	Append(entry storage.Entry) error
}

type Notifier interface {
	SessionStarted()
	SessionStopped()
	Advisory(message string)
}

// Archiver persists a session's audio and returns where it was written.
type Archiver interface {
	Save(id string, samples []float32) (string, error)
}

// EventBroadcaster receives session notifications. Calls are made while the
// session lock is held, so implementations must not call back into Session.
type EventBroadcaster interface {
	BroadcastState(state State)
	BroadcastLiveText(text string)
	BroadcastLevel(level float32)
	BroadcastError(message string)
	BroadcastAdvisory(message string)
	BroadcastTranscription(entry storage.Entry)
}

// Deps are the collaborators a Session drives. Notifier, Archiver and Events
// are optional.
type Deps struct {
	Capture     AudioCapture
	Engine      transcribe.Engine
	Coordinator Transcriber
	Pipeline    TextPipeline
	Injector    TextInjector
	Executor    CommandExecutor
	Permissions PermissionChecker
	Log         LogStore
	Notifier    Notifier
	Archiver    Archiver
	Events      EventBroadcaster
}
