package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"livenotes/internal/domain"
	"livenotes/internal/ports"
)

func TestFFMPEGSegmenterStartAndTerminate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := writeScript(t, "segmenter.sh", "#!/usr/bin/env bash\ntrap 'exit 0' TERM\nfor last; do :; done\necho \"$@\" > \"$(dirname \"$last\")/args.txt\"\nwhile true; do sleep 0.05; done\n")
	segmenter := NewFFMPEGSegmenter(script)

	proc, err := segmenter.Start(context.Background(), ports.SegmenterConfig{Dir: dir, SegmentLength: 5 * time.Second})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if proc.PID() <= 0 {
		t.Fatalf("expected pid, got %d", proc.PID())
	}

	args := waitForFile(t, filepath.Join(dir, "args.txt"))
	for _, want := range []string{"-f segment", "-segment_time 5", "-segment_start_number 0", "-reset_timestamps 1", "-ar 16000", "-ac 1", filepath.Join(dir, "chunk-%04d.wav")} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in args %q", want, args)
		}
	}

	if err := proc.Terminate(); err != nil {
		t.Fatalf("terminate failed: %v", err)
	}
	select {
	case <-proc.Exited():
	case <-time.After(3 * time.Second):
		t.Fatalf("segmenter did not exit after terminate")
	}
	if err := proc.Err(); err != nil {
		t.Fatalf("unexpected exit error: %v", err)
	}
}

func TestFFMPEGSegmenterTerminateEscalatesToKill(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "stubborn.sh", "#!/usr/bin/env bash\ntrap '' TERM\nwhile true; do sleep 0.05; done\n")
	proc, err := NewFFMPEGSegmenter(script).Start(context.Background(), ports.SegmenterConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_ = proc.Terminate()
	select {
	case <-proc.Exited():
	case <-time.After(5 * time.Second):
		t.Fatalf("segmenter was not killed after grace period")
	}
}

func TestFFMPEGSegmenterStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")
	segmenter := NewFFMPEGSegmenter(script)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := segmenter.Start(ctx, ports.SegmenterConfig{Dir: t.TempDir()})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !errors.Is(err, domain.ErrCaptureFailed) {
		t.Fatalf("expected capture failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "exited before capture started") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFFMPEGSegmenterRequiresDir(t *testing.T) {
	t.Parallel()

	if _, err := NewFFMPEGSegmenter("ffmpeg").Start(context.Background(), ports.SegmenterConfig{}); err == nil {
		t.Fatalf("expected error without directory")
	}
}

func TestNormalizeStopErrExitErrorIsKept(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeStopErr(err); got == nil {
		t.Fatalf("expected exit status 1 to be reported")
	}

	err = exec.Command("bash", "-c", "exit 255").Run()
	if got := normalizeStopErr(err); got != nil {
		t.Fatalf("expected nil for ffmpeg signal exit, got %v", got)
	}
}

func TestStringsTrimSpaceSafe(t *testing.T) {
	t.Parallel()

	if got := stringsTrimSpaceSafe("  hi\n"); got != "hi" {
		t.Fatalf("unexpected trim result: %q", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			return string(data)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("file %s was not written", path)
	return ""
}
