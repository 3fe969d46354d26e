package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodeFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want ErrorCode
	}{
		{err: nil, want: ErrorCodeUnknown},
		{err: errors.New("boom"), want: ErrorCodeUnknown},
		{err: fmt.Errorf("reset: %w", ErrSessionDir), want: ErrorCodeSessionDir},
		{err: fmt.Errorf("chunk 3: %w", ErrCaptureFailed), want: ErrorCodeCaptureFailed},
		{err: fmt.Errorf("chunk 3: %w", ErrSegmentTimeout), want: ErrorCodeSegmentTimeout},
		{err: fmt.Errorf("chunk 3: %w: too small", ErrTranscriptionInput), want: ErrorCodeTranscriptionInput},
		{err: ErrEngineUnavailable, want: ErrorCodeEngineUnavailable},
		{err: ErrModelUnavailable, want: ErrorCodeModelUnavailable},
		{err: fmt.Errorf("%w: exit 1", ErrEngineFailed), want: ErrorCodeTranscriptionFailed},
	}
	for _, tc := range cases {
		if got := ErrorCodeFor(tc.err); got != tc.want {
			t.Fatalf("ErrorCodeFor(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestIsTranscriptionError(t *testing.T) {
	t.Parallel()

	for _, err := range []error{ErrTranscriptionInput, ErrEngineUnavailable, ErrModelUnavailable, fmt.Errorf("x: %w", ErrEngineFailed)} {
		if !IsTranscriptionError(err) {
			t.Fatalf("expected %v to be a transcription error", err)
		}
	}
	for _, err := range []error{nil, ErrCaptureFailed, ErrSegmentTimeout, ErrSessionDir} {
		if IsTranscriptionError(err) {
			t.Fatalf("expected %v not to be a transcription error", err)
		}
	}
}
