package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"livenotes/internal/domain"
	"livenotes/internal/ports"
)

const (
	segmenterStartupWindow = 250 * time.Millisecond
	segmenterStopGrace     = 1200 * time.Millisecond
)

// FFMPEGSegmenter runs one long-lived ffmpeg process that writes
// sequentially numbered segment files.
type FFMPEGSegmenter struct {
	command string
}

func NewFFMPEGSegmenter(command string) *FFMPEGSegmenter {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGSegmenter{command: command}
}

func (s *FFMPEGSegmenter) Start(ctx context.Context, cfg ports.SegmenterConfig) (ports.SegmentProcess, error) {
	if cfg.Dir == "" {
		return nil, errors.New("segment directory is required")
	}
	cfg.Audio = withAudioDefaults(cfg.Audio)

	cmd := exec.CommandContext(ctx, s.command, segmenterArgs(cfg)...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %v", domain.ErrCaptureFailed, s.command, err)
	}

	proc := &segmentProcess{
		process: cmd.Process,
		stderr:  stderr,
		exited:  make(chan struct{}),
	}
	go func() {
		proc.setErr(normalizeStopErr(cmd.Wait()))
		close(proc.exited)
	}()

	select {
	case <-proc.exited:
		detail := stringsTrimSpaceSafe(stderr.String())
		if err := proc.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s exited before capture started: %v", domain.ErrCaptureFailed, s.command, err)
		}
		return nil, fmt.Errorf("%w: %s exited before capture started: %s", domain.ErrCaptureFailed, s.command, detail)
	case <-time.After(segmenterStartupWindow):
	}

	return proc, nil
}

func segmenterArgs(cfg ports.SegmenterConfig) []string {
	seconds := int(math.Ceil(cfg.SegmentLength.Seconds()))
	if seconds <= 0 {
		seconds = 10
	}
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-f", cfg.Audio.InputFormat,
		"-i", cfg.Audio.InputDevice,
		"-ac", strconv.Itoa(cfg.Audio.Channels),
		"-ar", strconv.Itoa(cfg.Audio.SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "segment",
		"-segment_time", strconv.Itoa(seconds),
		"-reset_timestamps", "1",
		"-segment_start_number", "0",
		filepath.Join(cfg.Dir, ChunkFilePattern),
	}
}

type segmentProcess struct {
	process *os.Process
	stderr  *lockedBuffer
	exited  chan struct{}

	errMu sync.Mutex
	err   error

	terminateOnce sync.Once
	terminateErr  error
}

func (p *segmentProcess) PID() int {
	if p.process == nil {
		return 0
	}
	return p.process.Pid
}

func (p *segmentProcess) Exited() <-chan struct{} {
	return p.exited
}

func (p *segmentProcess) Terminate() error {
	p.terminateOnce.Do(func() {
		if p.process == nil {
			return
		}
		if err := p.process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.terminateErr = err
		}
		go func() {
			select {
			case <-p.exited:
			case <-time.After(segmenterStopGrace):
				_ = p.process.Kill()
			}
		}()
	})
	return p.terminateErr
}

func (p *segmentProcess) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.err != nil && p.stderr.Len() > 0 {
		return fmt.Errorf("%w: %s", p.err, stringsTrimSpaceSafe(p.stderr.String()))
	}
	return p.err
}

func (p *segmentProcess) setErr(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	p.err = err
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return nil
		}
		if exitErr.ExitCode() == 255 {
			// ffmpeg exits 255 after handling SIGTERM.
			return nil
		}
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
