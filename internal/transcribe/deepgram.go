package transcribe

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/sjawhar/ghost-scribe/internal/pcm"
)

const (
	deepgramChunkBytes = 3200 // 100ms of 16 kHz linear16
	deepgramSettle     = 1500 * time.Millisecond
)

// DeepgramEngine streams the accumulated samples over a live websocket and
// collects the finalized results.
type DeepgramEngine struct {
	apiKey   string
	language string
	settle   time.Duration

	mu    sync.RWMutex
	model string
}

func NewDeepgramEngine(apiKey, language string) *DeepgramEngine {
	if language == "" {
		language = "en-US"
	}
	return &DeepgramEngine{apiKey: apiKey, language: language, settle: deepgramSettle}
}

func (e *DeepgramEngine) LoadModel(_ context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("deepgram model is required")
	}
	e.mu.Lock()
	e.model = name
	e.mu.Unlock()
	return nil
}

func (e *DeepgramEngine) UnloadModel() {
	e.mu.Lock()
	e.model = ""
	e.mu.Unlock()
}

func (e *DeepgramEngine) IsLoaded() bool {
	return e.ModelName() != ""
}

func (e *DeepgramEngine) ModelName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

func (e *DeepgramEngine) Transcribe(ctx context.Context, samples []float32) (string, error) {
	model := e.ModelName()
	if model == "" {
		return "", ErrModelNotLoaded
	}
	if len(samples) == 0 {
		return "", nil
	}

	collector := newDeepgramCollector()
	cOptions := &interfaces.ClientOptions{EnableKeepAlive: true}
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:       model,
		Language:    e.language,
		Punctuate:   true,
		SmartFormat: true,
		Encoding:    "linear16",
		SampleRate:  pcm.SampleRate,
		Channels:    1,
	}

	dgClient, err := client.NewWSUsingCallback(ctx, e.apiKey, cOptions, tOptions, collector)
	if err != nil {
		return "", fmt.Errorf("create deepgram client: %w", err)
	}
	if ok := dgClient.Connect(); !ok {
		return "", fmt.Errorf("deepgram connect failed")
	}
	defer dgClient.Stop()

	payload := pcm.LittleEndian(samples)
	for start := 0; start < len(payload); start += deepgramChunkBytes {
		end := min(start+deepgramChunkBytes, len(payload))
		if _, err := dgClient.Write(payload[start:end]); err != nil {
			return "", fmt.Errorf("deepgram write: %w", err)
		}
	}

	collector.wait(ctx, e.settle)
	return collector.text(), nil
}

// deepgramCollector implements the live message callback and keeps the
// finalized transcript pieces in arrival order.
type deepgramCollector struct {
	mu       sync.Mutex
	finals   []string
	activity chan struct{}
	closed   chan struct{}
	once     sync.Once
}

func newDeepgramCollector() *deepgramCollector {
	return &deepgramCollector{
		activity: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

func (c *deepgramCollector) Message(mr *api.MessageResponse) error {
	defer c.touch()
	if len(mr.Channel.Alternatives) == 0 || !mr.IsFinal {
		return nil
	}
	sentence := strings.TrimSpace(mr.Channel.Alternatives[0].Transcript)
	if sentence == "" {
		return nil
	}
	c.mu.Lock()
	c.finals = append(c.finals, sentence)
	c.mu.Unlock()
	return nil
}

func (c *deepgramCollector) Open(*api.OpenResponse) error { return nil }

func (c *deepgramCollector) Metadata(*api.MetadataResponse) error { return nil }

func (c *deepgramCollector) SpeechStarted(*api.SpeechStartedResponse) error { return nil }

func (c *deepgramCollector) UtteranceEnd(*api.UtteranceEndResponse) error {
	c.touch()
	return nil
}

func (c *deepgramCollector) Close(*api.CloseResponse) error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *deepgramCollector) Error(er *api.ErrorResponse) error {
	log.Printf("deepgram error %s: %s", er.ErrCode, er.Description)
	return nil
}

func (c *deepgramCollector) UnhandledEvent([]byte) error { return nil }

func (c *deepgramCollector) touch() {
	select {
	case c.activity <- struct{}{}:
	default:
	}
}

// wait returns once no message has arrived for settle, the socket closes,
// or ctx ends.
func (c *deepgramCollector) wait(ctx context.Context, settle time.Duration) {
	timer := time.NewTimer(settle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-timer.C:
			return
		case <-c.activity:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(settle)
		}
	}
}

func (c *deepgramCollector) text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.finals, " ")
}
