package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sjawhar/ghost-scribe/internal/pcm"
)

// OpenAIEngine sends the accumulated audio to the hosted transcription API.
// Loading a model only selects it; there is nothing to download.
type OpenAIEngine struct {
	client   *openai.Client
	language string

	mu    sync.RWMutex
	model string
}

func NewOpenAIEngine(apiKey, baseURL, language string) *OpenAIEngine {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIEngine{client: openai.NewClientWithConfig(config), language: language}
}

func (e *OpenAIEngine) LoadModel(_ context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("openai transcription model is required")
	}
	e.mu.Lock()
	e.model = name
	e.mu.Unlock()
	return nil
}

func (e *OpenAIEngine) UnloadModel() {
	e.mu.Lock()
	e.model = ""
	e.mu.Unlock()
}

func (e *OpenAIEngine) IsLoaded() bool {
	return e.ModelName() != ""
}

func (e *OpenAIEngine) ModelName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, samples []float32) (string, error) {
	model := e.ModelName()
	if model == "" {
		return "", ErrModelNotLoaded
	}
	if len(samples) == 0 {
		return "", nil
	}

	file, err := os.CreateTemp("", "ghost_scribe_*.wav")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer func() { _ = os.Remove(file.Name()) }()
	if err := pcm.WriteWAV(file, samples, pcm.SampleRate); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close temp wav: %w", err)
	}

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: file.Name(),
		Language: e.language,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
