// Package pcm holds sample-format helpers shared by capture, archiving and
// the speech engines. Samples are mono float32 in [-1, 1].
package pcm

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate is the rate every engine receives.
const SampleRate = 16000

const (
	bitDepth = 16
	channels = 1
	// wavFormatPCM is the RIFF audio format tag for uncompressed PCM.
	wavFormatPCM = 1
)

// ToInt16 converts float samples to 16-bit PCM values, clamping out of range
// input.
func ToInt16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int(s * math.MaxInt16)
	}
	return out
}

// WriteWAV encodes samples as a 16-bit mono WAV file.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           ToInt16(samples),
		SourceBitDepth: bitDepth,
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, channels, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// Level maps the RMS of a chunk onto [0, 1] using a -50 dBFS floor.
func Level(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms <= 0 {
		return 0
	}
	db := 20 * math.Log10(rms)
	level := (db + 50) / 50
	return float32(math.Max(0, math.Min(1, level)))
}

// Resample converts samples between rates with linear interpolation.
func Resample(samples []float32, from, to int) []float32 {
	if from <= 0 || to <= 0 || from == to || len(samples) == 0 {
		return samples
	}
	ratio := float64(from) / float64(to)
	n := int(float64(len(samples)) / ratio)
	out := make([]float32, n)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx] + (samples[idx+1]-samples[idx])*frac
	}
	return out
}

// Int16ToFloat converts 16-bit PCM to float samples.
func Int16ToFloat(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v) / math.MaxInt16
	}
	return out
}

// LittleEndian packs float samples into 16-bit little-endian PCM bytes.
func LittleEndian(samples []float32) []byte {
	ints := ToInt16(samples)
	out := make([]byte, len(ints)*2)
	for i, v := range ints {
		u := uint16(int16(v))
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out
}
