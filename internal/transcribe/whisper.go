package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"livenotes/internal/domain"
)

const (
	defaultMaxThreads    = 4
	defaultMinInputBytes = 100
)

// Config controls whisper-cli resolution and invocation.
type Config struct {
	// EngineCandidates and ModelCandidates are checked in order; the first
	// existing path wins.
	EngineCandidates []string
	ModelCandidates  []string
	MaxThreads       int
	MinInputBytes    int64
}

// WhisperCLI transcribes audio files with a local whisper.cpp CLI binary.
// It holds no mutable state and is safe for concurrent use.
type WhisperCLI struct {
	cfg Config
}

func NewWhisperCLI(cfg Config) *WhisperCLI {
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = defaultMaxThreads
	}
	if cfg.MinInputBytes <= 0 {
		cfg.MinInputBytes = defaultMinInputBytes
	}
	return &WhisperCLI{cfg: cfg}
}

func (w *WhisperCLI) Transcribe(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: audio file not found: %s", domain.ErrTranscriptionInput, path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrTranscriptionInput, path)
	}
	if info.Size() < w.cfg.MinInputBytes {
		return "", fmt.Errorf("%w: audio file too small (%d bytes), recording may have failed", domain.ErrTranscriptionInput, info.Size())
	}

	engine, ok := firstExisting(w.cfg.EngineCandidates)
	if !ok {
		return "", fmt.Errorf("%w: whisper binary not found in %d known locations", domain.ErrEngineUnavailable, len(w.cfg.EngineCandidates))
	}
	model, ok := firstExisting(w.cfg.ModelCandidates)
	if !ok {
		return "", fmt.Errorf("%w: no model found in %d known locations", domain.ErrModelUnavailable, len(w.cfg.ModelCandidates))
	}

	cmd := exec.CommandContext(ctx, engine,
		"-m", model,
		"-f", path,
		"-t", strconv.Itoa(Threads(w.cfg.MaxThreads)),
		"--no-timestamps",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %s", domain.ErrEngineFailed, failureDetail(stderr.String(), stdout.String(), exitErr.ExitCode()))
		}
		return "", fmt.Errorf("%w: failed to run %s: %v", domain.ErrEngineFailed, engine, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Threads caps the worker thread count at the host parallelism.
func Threads(limit int) int {
	if limit <= 0 {
		limit = defaultMaxThreads
	}
	return max(1, min(runtime.NumCPU(), limit))
}

func failureDetail(stderr string, stdout string, code int) string {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(stdout); msg != "" {
		return msg
	}
	return fmt.Sprintf("unknown error (exit code: %d)", code)
}

func firstExisting(paths []string) (string, bool) {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
