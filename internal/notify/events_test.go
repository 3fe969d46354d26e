package notify

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"livenotes/internal/domain"
	"livenotes/internal/logging"
)

type recordingSink struct {
	calls []string
}

func (r *recordingSink) RecorderModeSelected(domain.SessionInfo) {
	r.calls = append(r.calls, "mode")
}

func (r *recordingSink) ChunkTranscribed(domain.ChunkTranscript) {
	r.calls = append(r.calls, "chunk")
}

func (r *recordingSink) RecordingError(domain.ErrorCode, string) {
	r.calls = append(r.calls, "error")
}

func (r *recordingSink) SessionEnded(domain.SessionInfo, domain.SessionEndReason) {
	r.calls = append(r.calls, "ended")
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	t.Parallel()

	first := &recordingSink{}
	second := &recordingSink{}
	fanout := Fanout{first, second}

	fanout.RecorderModeSelected(domain.SessionInfo{})
	fanout.ChunkTranscribed(domain.ChunkTranscript{})
	fanout.RecordingError(domain.ErrorCodeUnknown, "x")
	fanout.SessionEnded(domain.SessionInfo{}, domain.SessionEndStopped)

	for _, sink := range []*recordingSink{first, second} {
		if len(sink.calls) != 4 || sink.calls[0] != "mode" || sink.calls[3] != "ended" {
			t.Fatalf("unexpected calls: %v", sink.calls)
		}
	}
}

func TestLogSinkWritesStructuredEntries(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(&logging.Logger{SugaredLogger: zap.New(core).Sugar()})

	sink.ChunkTranscribed(domain.ChunkTranscript{Session: "s-1", Index: 3, Text: "hi", Size: 10})
	sink.RecordingError(domain.ErrorCodeCaptureFailed, "arecord exited")

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Message != EventTranscriptChunk || entries[0].ContextMap()["chunk"] != int64(3) {
		t.Fatalf("unexpected chunk entry: %+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel || fmt.Sprint(entries[1].ContextMap()["code"]) != "capture_failed" {
		t.Fatalf("unexpected error entry: %+v", entries[1])
	}
}
