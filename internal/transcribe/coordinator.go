package transcribe

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// DefaultPartialInterval is how often live text is refreshed while streaming.
const DefaultPartialInterval = 1500 * time.Millisecond

var ErrAlreadyStreaming = errors.New("coordinator already streaming")

// Coordinator feeds captured chunks into a SampleBuffer, publishes periodic
// partial transcripts as live text, and produces one final transcript when
// streaming stops.
type Coordinator struct {
	engine   Engine
	interval time.Duration
	buffer   *SampleBuffer

	// engineMu keeps partial and final calls from overlapping.
	engineMu sync.Mutex

	mu        sync.Mutex
	streaming bool
	gen       uint64
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	liveText  string
	subs      map[int]func(string)
	nextSub   int
}

// NewCoordinator builds a coordinator. interval <= 0 disables partials.
func NewCoordinator(engine Engine, interval time.Duration) *Coordinator {
	return &Coordinator{
		engine:   engine,
		interval: interval,
		buffer:   NewSampleBuffer(),
		subs:     make(map[int]func(string)),
	}
}

// Subscribe registers fn for live text updates and returns a function that
// removes it.
func (c *Coordinator) Subscribe(fn func(string)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Coordinator) LiveText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveText
}

func (c *Coordinator) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Buffered reports how many samples the current session has accumulated.
func (c *Coordinator) Buffered() int {
	return c.buffer.Len()
}

// Samples returns a copy of the accumulated audio. It survives StopStreaming
// until the next session starts.
func (c *Coordinator) Samples() []float32 {
	return c.buffer.Snapshot()
}

// StartStreaming clears the accumulator and starts consuming samples.
func (c *Coordinator) StartStreaming(ctx context.Context, samples <-chan []float32) error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return ErrAlreadyStreaming
	}
	c.streaming = true
	c.gen++
	gen := c.gen
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.buffer.Reset()
	c.publish(gen, "")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.feed(loopCtx, samples)
	}()

	if c.interval > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.tick(loopCtx, gen)
		}()
	}
	return nil
}

// StopStreaming stops the partial ticker, drains chunks already queued on the
// source, and returns the cleaned final transcript. Engine failures yield "".
func (c *Coordinator) StopStreaming(ctx context.Context) string {
	c.mu.Lock()
	if !c.streaming {
		c.mu.Unlock()
		return ""
	}
	c.streaming = false
	c.gen++
	gen := c.gen
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()

	samples := c.buffer.Snapshot()
	defer c.publish(gen, "")
	if len(samples) == 0 {
		return ""
	}

	c.engineMu.Lock()
	text, err := c.engine.Transcribe(ctx, samples)
	c.engineMu.Unlock()
	if err != nil {
		log.Printf("final transcription failed: %v", err)
		return ""
	}
	return Clean(text)
}

func (c *Coordinator) feed(ctx context.Context, samples <-chan []float32) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case chunk, ok := <-samples:
					if !ok {
						return
					}
					c.buffer.Append(chunk)
				default:
					return
				}
			}
		case chunk, ok := <-samples:
			if !ok {
				return
			}
			c.buffer.Append(chunk)
		}
	}
}

func (c *Coordinator) tick(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.partial(ctx, gen)
		}
	}
}

func (c *Coordinator) partial(ctx context.Context, gen uint64) {
	samples := c.buffer.Snapshot()
	if len(samples) == 0 {
		return
	}

	c.engineMu.Lock()
	text, err := c.engine.Transcribe(ctx, samples)
	c.engineMu.Unlock()
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("partial transcription failed: %v", err)
		}
		return
	}
	c.publish(gen, Clean(text))
}

// publish updates live text only while gen is still the current generation,
// so a partial finishing after stop cannot resurrect stale text.
func (c *Coordinator) publish(gen uint64, text string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.liveText = text
	subs := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(text)
	}
}
