package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"livenotes/internal/audio"
	"livenotes/internal/domain"
	"livenotes/internal/ports"
)

// errSessionStopped ends a watch loop without reporting anything.
var errSessionStopped = errors.New("live session no longer active")

type segment struct {
	index int
	path  string
	size  int64
}

// segmentSource yields segment files for one session. Next returns a
// segment, domain.ErrSegmentTimeout (segment skipped), domain.ErrCaptureFailed
// (fatal) or errSessionStopped.
type segmentSource interface {
	Next(ctx context.Context) (segment, error)
	// Advance is called once the loop has handled seg.
	Advance(seg segment)
	// Concurrent reports whether transcription is dispatched off the loop.
	Concurrent() bool
}

// pollingSource records one fixed-duration file per call.
type pollingSource struct {
	cursor   sessionCursor
	recorder ports.SegmentRecorder
	audio    ports.AudioConfig
	dir      string
	duration time.Duration
}

func (s *pollingSource) Next(ctx context.Context) (segment, error) {
	index, ok := s.cursor.reserve()
	if !ok {
		return segment{}, errSessionStopped
	}
	path := filepath.Join(s.dir, audio.ChunkFileName(index))

	if err := s.recorder.Record(ctx, path, s.duration, s.audio); err != nil {
		if ctx.Err() != nil || !s.cursor.current() {
			return segment{}, errSessionStopped
		}
		if !errors.Is(err, domain.ErrCaptureFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrCaptureFailed, err)
		}
		return segment{}, fmt.Errorf("chunk %d: %w", index, err)
	}

	return segment{index: index, path: path, size: max(fileSize(path), 0)}, nil
}

func (s *pollingSource) Advance(segment) {}

func (s *pollingSource) Concurrent() bool { return true }

// streamingSource watches files written by a self-segmenting process.
type streamingSource struct {
	cursor       sessionCursor
	process      ports.SegmentProcess
	dir          string
	timeout      time.Duration
	pollInterval time.Duration
	minBytes     int64
	// settle is how long a file must stay the same size to count as closed.
	settle time.Duration
}

func (s *streamingSource) Next(ctx context.Context) (segment, error) {
	index, ok := s.cursor.peek()
	if !ok {
		return segment{}, errSessionStopped
	}
	path := filepath.Join(s.dir, audio.ChunkFileName(index))
	successor := filepath.Join(s.dir, audio.ChunkFileName(index+1))

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	deadline := time.Now().Add(s.timeout)
	lastSize := int64(-1)
	changedAt := time.Now()

	for {
		if !s.cursor.current() {
			return segment{}, errSessionStopped
		}

		size := fileSize(path)
		if size != lastSize {
			lastSize = size
			changedAt = time.Now()
		}
		// Settled once the muxer has moved on or the file stopped growing.
		if size > s.minBytes && (fileSize(successor) >= 0 || time.Since(changedAt) >= s.settle) {
			return segment{index: index, path: path, size: size}, nil
		}

		if time.Now().After(deadline) {
			s.cursor.advance(index)
			return segment{index: index, path: path}, fmt.Errorf("chunk %d after %s: %w", index, s.timeout, domain.ErrSegmentTimeout)
		}

		select {
		case <-ctx.Done():
			return segment{}, errSessionStopped
		case <-s.process.Exited():
			if !s.cursor.current() {
				return segment{}, errSessionStopped
			}
			// The last file is complete once its writer is gone.
			if size := fileSize(path); size > s.minBytes {
				return segment{index: index, path: path, size: size}, nil
			}
			cause := s.process.Err()
			if cause == nil {
				cause = errors.New("exited unexpectedly")
			}
			return segment{}, fmt.Errorf("%w: segmenter pid %d: %v", domain.ErrCaptureFailed, s.process.PID(), cause)
		case <-ticker.C:
		}
	}
}

func (s *streamingSource) Advance(seg segment) {
	s.cursor.advance(seg.index)
}

func (s *streamingSource) Concurrent() bool { return false }

// fileSize returns -1 when path does not exist.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return -1
	}
	return info.Size()
}
