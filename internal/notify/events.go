package notify

import (
	"livenotes/internal/domain"
	"livenotes/internal/ports"
)

// Event names shared by every presentation channel.
const (
	EventRecorderMode    = "live-recorder-mode"
	EventTranscriptChunk = "live-transcript-chunk"
	EventRecordingError  = "live-recording-error"
	EventSessionEnded    = "live-session-ended"
)

// ErrorPayload is the body of a recording error notification.
type ErrorPayload struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// SessionEndedPayload is the body of a session ended notification.
type SessionEndedPayload struct {
	Session domain.SessionInfo      `json:"session"`
	Reason  domain.SessionEndReason `json:"reason"`
}

// Fanout delivers every notification to each sink in order.
type Fanout []ports.EventSink

func (f Fanout) RecorderModeSelected(session domain.SessionInfo) {
	for _, sink := range f {
		sink.RecorderModeSelected(session)
	}
}

func (f Fanout) ChunkTranscribed(chunk domain.ChunkTranscript) {
	for _, sink := range f {
		sink.ChunkTranscribed(chunk)
	}
}

func (f Fanout) RecordingError(code domain.ErrorCode, detail string) {
	for _, sink := range f {
		sink.RecordingError(code, detail)
	}
}

func (f Fanout) SessionEnded(session domain.SessionInfo, reason domain.SessionEndReason) {
	for _, sink := range f {
		sink.SessionEnded(session, reason)
	}
}
