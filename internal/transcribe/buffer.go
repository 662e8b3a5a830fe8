package transcribe

import "sync"

// SampleBuffer accumulates samples for the current session. Appends and reads
// are serialized; reads return copies so callers never observe a partially
// written chunk.
type SampleBuffer struct {
	mu      sync.Mutex
	samples []float32
}

func NewSampleBuffer() *SampleBuffer {
	return &SampleBuffer{}
}

func (b *SampleBuffer) Append(chunk []float32) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	b.samples = append(b.samples, chunk...)
	b.mu.Unlock()
}

// Snapshot returns a copy of everything accumulated so far.
func (b *SampleBuffer) Snapshot() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.samples) == 0 {
		return nil
	}
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	return out
}

func (b *SampleBuffer) Reset() {
	b.mu.Lock()
	b.samples = nil
	b.mu.Unlock()
}

func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}
