package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/sjawhar/ghost-scribe/internal/dictation"
	"github.com/sjawhar/ghost-scribe/internal/pcm"
)

const DefaultFramesPerBuffer = 1024

// DefaultSampleRates are tried in order until the device accepts one.
var DefaultSampleRates = []int{pcm.SampleRate, 48000, 44100}

var errCaptureRunning = errors.New("capture already running")

// Init brings up PortAudio and returns its teardown.
func Init() (func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return func() { _ = portaudio.Terminate() }, nil
}

type captureStream struct {
	samples chan []float32
	levels  chan float32
}

func (s *captureStream) Samples() <-chan []float32 { return s.samples }
func (s *captureStream) Levels() <-chan float32    { return s.levels }

// Mic captures mono float32 audio from the default input device and delivers
// it resampled to 16 kHz along with a normalized level per buffer.
type Mic struct {
	sampleRates     []int
	framesPerBuffer int

	mu     sync.Mutex
	stream *portaudio.Stream
	out    *captureStream
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewMic(sampleRates []int, framesPerBuffer int) *Mic {
	if len(sampleRates) == 0 {
		sampleRates = DefaultSampleRates
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	return &Mic{sampleRates: sampleRates, framesPerBuffer: framesPerBuffer}
}

func (m *Mic) Start(_ context.Context) (dictation.CaptureStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return nil, errCaptureRunning
	}

	var errs []error
	for _, rate := range m.sampleRates {
		buf := make([]float32, m.framesPerBuffer)
		stream, err := portaudio.OpenDefaultStream(1, 0, float64(rate), m.framesPerBuffer, buf)
		if err != nil {
			errs = append(errs, fmt.Errorf("open at %d Hz: %w", rate, err))
			continue
		}
		if err := stream.Start(); err != nil {
			_ = stream.Close()
			errs = append(errs, fmt.Errorf("start at %d Hz: %w", rate, err))
			continue
		}

		m.stream = stream
		m.out = &captureStream{
			samples: make(chan []float32, 64),
			levels:  make(chan float32, 16),
		}
		m.done = make(chan struct{})
		m.wg.Add(1)
		go m.read(stream, buf, rate, m.out, m.done)
		return m.out, nil
	}

	return nil, fmt.Errorf("no usable sample rate: %w", errors.Join(errs...))
}

func (m *Mic) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}

	close(m.done)
	stopErr := m.stream.Stop()
	m.wg.Wait()
	closeErr := m.stream.Close()
	close(m.out.samples)
	close(m.out.levels)

	m.stream = nil
	m.out = nil
	m.done = nil
	return errors.Join(stopErr, closeErr)
}

func (m *Mic) read(stream *portaudio.Stream, buf []float32, rate int, out *captureStream, done <-chan struct{}) {
	defer m.wg.Done()

	for {
		select {
		case <-done:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			select {
			case <-done:
			default:
				log.Printf("warning: microphone read failed: %v", err)
			}
			return
		}

		chunk := make([]float32, len(buf))
		copy(chunk, buf)
		if rate != pcm.SampleRate {
			chunk = pcm.Resample(chunk, rate, pcm.SampleRate)
		}

		select {
		case out.samples <- chunk:
		case <-done:
			return
		}

		select {
		case out.levels <- pcm.Level(chunk):
		default:
		}
	}
}

// Permission probes whether a usable input device is available.
type Permission struct{}

func (Permission) MicrophoneGranted() bool {
	dev, err := portaudio.DefaultInputDevice()
	return err == nil && dev != nil && dev.MaxInputChannels > 0
}
