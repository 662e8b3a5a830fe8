package dictation

import (
	"sync"
	"time"
)

const (
	DefaultSilenceTimeout   = 2 * time.Second
	DefaultSilenceThreshold = 0.05
)

// SilenceWatch fires once when observed levels stay below the threshold for
// the whole timeout. A loud level disarms the pending timer.
type SilenceWatch struct {
	timeout   time.Duration
	threshold float32

	mu        sync.Mutex
	timer     *time.Timer
	fired     bool
	stopped   bool
	onSilence func()
}

func NewSilenceWatch(timeout time.Duration, threshold float32, onSilence func()) *SilenceWatch {
	if timeout <= 0 {
		timeout = DefaultSilenceTimeout
	}
	if threshold <= 0 {
		threshold = DefaultSilenceThreshold
	}
	return &SilenceWatch{timeout: timeout, threshold: threshold, onSilence: onSilence}
}

func (w *SilenceWatch) Observe(level float32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped || w.fired {
		return
	}
	if level >= w.threshold {
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		return
	}
	if w.timer != nil {
		return
	}

	w.timer = time.AfterFunc(w.timeout, func() {
		w.mu.Lock()
		if w.stopped || w.fired {
			w.mu.Unlock()
			return
		}
		w.fired = true
		w.timer = nil
		callback := w.onSilence
		w.mu.Unlock()

		if callback != nil {
			callback()
		}
	})
}

// Stop disarms the watch permanently.
func (w *SilenceWatch) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *SilenceWatch) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}
