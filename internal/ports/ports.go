package ports

import (
	"context"
	"time"

	"livenotes/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// SegmentRecorder captures exactly one segment file per call.
type SegmentRecorder interface {
	Record(ctx context.Context, path string, duration time.Duration, cfg AudioConfig) error
}

// SegmenterConfig describes a self-segmenting capture run.
type SegmenterConfig struct {
	Audio         AudioConfig
	Dir           string
	SegmentLength time.Duration
}

// SegmentProcess is a running self-segmenting capture process.
type SegmentProcess interface {
	PID() int
	// Terminate requests a graceful stop and returns without waiting for exit.
	Terminate() error
	Exited() <-chan struct{}
	Err() error
}

// Segmenter launches self-segmenting capture processes.
type Segmenter interface {
	Start(ctx context.Context, cfg SegmenterConfig) (SegmentProcess, error)
}

// ToolLocator reports whether an external tool is present on the host.
type ToolLocator interface {
	Available(name string) bool
}

// Transcriber converts one audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// TextFilter post-processes transcribed chunk text.
type TextFilter interface {
	Apply(text string) (string, error)
}

// SegmentInspector reads metadata from a finished segment file.
type SegmentInspector interface {
	Duration(path string) (time.Duration, error)
}

// EventSink receives fire-and-forget live session notifications.
type EventSink interface {
	RecorderModeSelected(session domain.SessionInfo)
	ChunkTranscribed(chunk domain.ChunkTranscript)
	RecordingError(code domain.ErrorCode, detail string)
	SessionEnded(session domain.SessionInfo, reason domain.SessionEndReason)
}
