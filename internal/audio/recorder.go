package audio

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/sjawhar/ghost-scribe/internal/pcm"
)

// Archiver keeps session audio on disk, preferring mp3 when ffmpeg or lame
// is installed and falling back to WAV.
type Archiver struct {
	audioDir   string
	sampleRate int

	encode func(rawPath, id string, samples []float32) (string, error)
}

func NewArchiver(audioDir string) *Archiver {
	if audioDir == "" {
		audioDir = filepath.Join("data", "audio")
	}

	a := &Archiver{audioDir: audioDir, sampleRate: pcm.SampleRate}
	a.encode = a.defaultEncode
	return a
}

func (a *Archiver) Save(id string, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(a.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("create audio directory: %w", err)
	}

	rawPath := filepath.Join(a.audioDir, id+".pcm")
	if err := os.WriteFile(rawPath, pcm.LittleEndian(samples), 0o644); err != nil {
		return "", fmt.Errorf("write raw pcm file: %w", err)
	}
	defer func() { _ = os.Remove(rawPath) }()

	return a.encode(rawPath, id, samples)
}

func (a *Archiver) defaultEncode(rawPath, id string, samples []float32) (string, error) {
	mp3Path := filepath.Join(a.audioDir, id+".mp3")

	if err := encodeWithFFmpeg(rawPath, mp3Path, a.sampleRate); err == nil {
		return mp3Path, nil
	}

	if err := encodeWithLame(rawPath, mp3Path, a.sampleRate); err == nil {
		return mp3Path, nil
	}

	wavPath := filepath.Join(a.audioDir, id+".wav")
	if err := writeWAVFile(wavPath, samples, a.sampleRate); err != nil {
		return "", fmt.Errorf("encode wav fallback: %w", err)
	}

	return wavPath, nil
}

func encodeWithFFmpeg(rawPath, outputPath string, sampleRate int) error {
	cmd := exec.Command(
		"ffmpeg",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-i", rawPath,
		outputPath,
	)
	return cmd.Run()
}

func encodeWithLame(rawPath, outputPath string, sampleRate int) error {
	khz := float64(sampleRate) / 1000.0
	formatted := strconv.FormatFloat(khz, 'f', -1, 64)
	cmd := exec.Command(
		"lame",
		"-r",
		"-s", formatted,
		"--bitwidth", "16",
		"-m", "m",
		rawPath,
		outputPath,
	)
	return cmd.Run()
}

func writeWAVFile(path string, samples []float32, sampleRate int) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open wav output: %w", err)
	}
	if err := pcm.WriteWAV(out, samples, sampleRate); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
