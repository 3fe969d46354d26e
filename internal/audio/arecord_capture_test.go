package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"livenotes/internal/domain"
	"livenotes/internal/ports"
)

func TestARecordCaptureWritesSegment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := writeScript(t, "arecord.sh", "#!/usr/bin/env bash\nfor last; do :; done\necho \"$@\" > \"$(dirname \"$last\")/args.txt\"\nprintf 'RIFF' > \"$last\"\n")
	capture := NewARecordCapture(script)

	path := filepath.Join(dir, ChunkFileName(3))
	if err := capture.Record(context.Background(), path, 7500*time.Millisecond, ports.AudioConfig{}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected segment file: %v", err)
	}
	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	got := strings.TrimSpace(string(args))
	want := "-q -f S16_LE -r 16000 -c 1 -d 8 " + path
	if got != want {
		t.Fatalf("unexpected args:\n got %q\nwant %q", got, want)
	}
}

func TestARecordCapturePassesExplicitDevice(t *testing.T) {
	t.Parallel()

	args := recordArgs("/tmp/x.wav", 5*time.Second, withAudioDefaults(ports.AudioConfig{InputDevice: "hw:1,0"}))
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-D hw:1,0") {
		t.Fatalf("expected device flag in %q", joined)
	}
}

func TestARecordCaptureFailureIsCaptureError(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'device busy' 1>&2\nexit 1\n")
	err := NewARecordCapture(script).Record(context.Background(), filepath.Join(t.TempDir(), "chunk-0000.wav"), time.Second, ports.AudioConfig{})
	if !errors.Is(err, domain.ErrCaptureFailed) {
		t.Fatalf("expected capture failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "device busy") {
		t.Fatalf("expected stderr detail, got %v", err)
	}
}

func TestChunkFileName(t *testing.T) {
	t.Parallel()

	if got := ChunkFileName(7); got != "chunk-0007.wav" {
		t.Fatalf("unexpected name: %q", got)
	}
	if got := ChunkFileName(12345); got != "chunk-12345.wav" {
		t.Fatalf("unexpected name: %q", got)
	}
}

func TestPathLocator(t *testing.T) {
	t.Parallel()

	tools := PathLocator{}
	if !tools.Available("sh") {
		t.Fatalf("expected sh on PATH")
	}
	if tools.Available("definitely-not-a-real-tool-livenotes") {
		t.Fatalf("unexpected tool detection")
	}
	if tools.Available("") {
		t.Fatalf("empty name must not be available")
	}
}
