package domain

import "time"

// Backend identifies how segment files are produced for a live session.
type Backend string

const (
	// BackendPolling launches one fixed-duration capture process per segment.
	BackendPolling Backend = "polling"
	// BackendStreaming runs one long-lived capture process that self-segments.
	BackendStreaming Backend = "streaming"
)

// RecorderMode is the externally reported recorder liveness.
type RecorderMode string

const (
	RecorderModeStreaming RecorderMode = "streaming"
	RecorderModePolling   RecorderMode = "polling"
	RecorderModeInactive  RecorderMode = "inactive"
)

// RecorderPreference is the caller's requested recorder tooling.
type RecorderPreference string

const (
	RecorderAuto    RecorderPreference = "auto"
	RecorderFFMPEG  RecorderPreference = "ffmpeg"
	RecorderARecord RecorderPreference = "arecord"
)

// SessionEndReason explains why a live session stopped.
type SessionEndReason string

const (
	SessionEndStopped       SessionEndReason = "stopped"
	SessionEndCaptureFailed SessionEndReason = "capture_failed"
)

// SessionInfo describes one live session.
type SessionInfo struct {
	ID            string        `json:"id"`
	Generation    uint64        `json:"generation"`
	Backend       Backend       `json:"backend"`
	BaseDir       string        `json:"baseDir"`
	SegmentLength time.Duration `json:"segmentLength"`
	StartedAt     time.Time     `json:"startedAt"`
}

// ChunkTranscript is the transcription result for one segment file. Text
// is filtered; Raw is the trimmed engine output before filtering.
type ChunkTranscript struct {
	Session  string        `json:"session"`
	Index    int           `json:"chunk"`
	Text     string        `json:"text"`
	Raw      string        `json:"raw"`
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Duration time.Duration `json:"duration"`
}

// Status summarizes the live session for callers.
type Status struct {
	Mode      RecorderMode `json:"mode"`
	Active    bool         `json:"active"`
	SessionID string       `json:"sessionId,omitempty"`
	BaseDir   string       `json:"baseDir,omitempty"`
	Chunks    int          `json:"chunks"`
	// Stage is the watch loop state of the most recent session.
	Stage string `json:"stage,omitempty"`
}
