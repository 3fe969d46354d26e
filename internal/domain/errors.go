package domain

import "errors"

var (
	// ErrSessionDir indicates the session directory could not be reset.
	ErrSessionDir = errors.New("session directory unavailable")
	// ErrCaptureFailed indicates a capture process failed; fatal to the session.
	ErrCaptureFailed = errors.New("capture process failed")
	// ErrSegmentTimeout indicates a streaming segment never became ready.
	ErrSegmentTimeout = errors.New("segment timed out")

	ErrTranscriptionInput = errors.New("transcription input invalid")
	ErrEngineUnavailable  = errors.New("transcription engine unavailable")
	ErrModelUnavailable   = errors.New("transcription model unavailable")
	ErrEngineFailed       = errors.New("transcription engine failed")
)

// ErrorCode identifies the class of a reported recording error.
type ErrorCode string

const (
	ErrorCodeStartup             ErrorCode = "startup"
	ErrorCodeSessionDir          ErrorCode = "session_dir"
	ErrorCodeCaptureFailed       ErrorCode = "capture_failed"
	ErrorCodeSegmentTimeout      ErrorCode = "segment_timeout"
	ErrorCodeTranscriptionInput  ErrorCode = "transcription_input"
	ErrorCodeEngineUnavailable   ErrorCode = "engine_unavailable"
	ErrorCodeModelUnavailable    ErrorCode = "model_unavailable"
	ErrorCodeTranscriptionFailed ErrorCode = "transcription_failed"
	ErrorCodeUnknown             ErrorCode = "unknown"
)

// ErrorCodeFor classifies err into a notification code.
func ErrorCodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return ErrorCodeUnknown
	case errors.Is(err, ErrSessionDir):
		return ErrorCodeSessionDir
	case errors.Is(err, ErrCaptureFailed):
		return ErrorCodeCaptureFailed
	case errors.Is(err, ErrSegmentTimeout):
		return ErrorCodeSegmentTimeout
	case errors.Is(err, ErrTranscriptionInput):
		return ErrorCodeTranscriptionInput
	case errors.Is(err, ErrEngineUnavailable):
		return ErrorCodeEngineUnavailable
	case errors.Is(err, ErrModelUnavailable):
		return ErrorCodeModelUnavailable
	case errors.Is(err, ErrEngineFailed):
		return ErrorCodeTranscriptionFailed
	default:
		return ErrorCodeUnknown
	}
}

// IsTranscriptionError reports whether err is a per-chunk, non-fatal failure.
func IsTranscriptionError(err error) bool {
	return errors.Is(err, ErrTranscriptionInput) ||
		errors.Is(err, ErrEngineUnavailable) ||
		errors.Is(err, ErrModelUnavailable) ||
		errors.Is(err, ErrEngineFailed)
}
