package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/sjawhar/ghost-scribe/internal/pcm"
)

// DefaultWhisperCommand runs whisper.cpp's CLI with plain-text output.
const DefaultWhisperCommand = "whisper-cli --no-timestamps --no-prints"

// WhisperExec shells out to a whisper.cpp style binary. Models live in
// modelsDir as ggml-<name>.bin.
type WhisperExec struct {
	cmd       []string
	modelsDir string
	language  string
	run       func(ctx context.Context, name string, args ...string) ([]byte, error)

	mu        sync.RWMutex
	modelName string
	modelPath string
}

func NewWhisperExec(command, modelsDir, language string) (*WhisperExec, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultWhisperCommand
	}
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse whisper command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("whisper command is empty")
	}
	return &WhisperExec{cmd: args, modelsDir: modelsDir, language: language, run: runCommand}, nil
}

// ModelPath maps a model name such as "tiny.en" to its ggml file.
func (w *WhisperExec) ModelPath(name string) string {
	return filepath.Join(w.modelsDir, "ggml-"+name+".bin")
}

func (w *WhisperExec) LoadModel(_ context.Context, name string) error {
	path := w.ModelPath(name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("load model %s: %w", name, err)
	}
	w.mu.Lock()
	w.modelName = name
	w.modelPath = path
	w.mu.Unlock()
	return nil
}

func (w *WhisperExec) UnloadModel() {
	w.mu.Lock()
	w.modelName = ""
	w.modelPath = ""
	w.mu.Unlock()
}

func (w *WhisperExec) IsLoaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.modelPath != ""
}

func (w *WhisperExec) ModelName() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.modelName
}

func (w *WhisperExec) Transcribe(ctx context.Context, samples []float32) (string, error) {
	w.mu.RLock()
	modelPath := w.modelPath
	w.mu.RUnlock()
	if modelPath == "" {
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

	args := append([]string{}, w.cmd[1:]...)
	args = append(args, "-m", modelPath, "-f", file.Name())
	if w.language != "" {
		args = append(args, "-l", w.language)
	}

	out, err := w.run(ctx, w.cmd[0], args...)
	if err != nil {
		return "", err
	}
	return joinLines(string(out)), nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("whisper command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func joinLines(out string) string {
	lines := strings.Split(out, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
