package notify

import (
	"livenotes/internal/domain"
	"livenotes/internal/logging"
)

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) LogSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return LogSink{logger: logger.Named("events")}
}

func (s LogSink) RecorderModeSelected(session domain.SessionInfo) {
	s.logger.Infow(EventRecorderMode, "session", session.ID, "backend", session.Backend, "dir", session.BaseDir)
}

func (s LogSink) ChunkTranscribed(chunk domain.ChunkTranscript) {
	s.logger.Infow(EventTranscriptChunk, "session", chunk.Session, "chunk", chunk.Index, "size", chunk.Size, "chars", len(chunk.Text))
}

func (s LogSink) RecordingError(code domain.ErrorCode, detail string) {
	s.logger.Warnw(EventRecordingError, "code", code, "detail", detail)
}

func (s LogSink) SessionEnded(session domain.SessionInfo, reason domain.SessionEndReason) {
	s.logger.Infow(EventSessionEnded, "session", session.ID, "reason", reason)
}
