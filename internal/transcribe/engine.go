package transcribe

import (
	"context"
	"errors"
)

// ErrModelNotLoaded is returned by engines asked to transcribe before a
// model is loaded.
var ErrModelNotLoaded = errors.New("speech model not loaded")

// Engine turns accumulated 16 kHz mono samples into text. The same call
// serves partial and final transcriptions.
type Engine interface {
	LoadModel(ctx context.Context, name string) error
	UnloadModel()
	IsLoaded() bool
	ModelName() string
	Transcribe(ctx context.Context, samples []float32) (string, error)
}
