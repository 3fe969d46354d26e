package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"livenotes/internal/domain"
)

func TestWhisperCLITranscribeTrimsOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	engine := writeScript(t, dir, "whisper.sh", "#!/usr/bin/env bash\necho \"$@\" > \""+dir+"/args.txt\"\nprintf '\\n  hello world  \\n\\n'\n")
	model := writeFile(t, dir, "ggml-tiny.en.bin", 16)
	audio := writeFile(t, dir, "chunk-0000.wav", 4096)

	w := NewWhisperCLI(Config{
		EngineCandidates: []string{filepath.Join(dir, "missing-cli"), engine},
		ModelCandidates:  []string{filepath.Join(dir, "missing.bin"), model},
	})

	text, err := w.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text: %q", text)
	}

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	for _, want := range []string{"-m " + model, "-f " + audio, "--no-timestamps", "-t "} {
		if !strings.Contains(string(args), want) {
			t.Fatalf("expected %q in %q", want, string(args))
		}
	}
}

func TestWhisperCLIHeaderOnlyFileIsInvalidInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	marker := filepath.Join(dir, "invoked")
	engine := writeScript(t, dir, "whisper.sh", "#!/usr/bin/env bash\ntouch \""+marker+"\"\n")
	model := writeFile(t, dir, "model.bin", 16)
	audio := writeFile(t, dir, "chunk-0000.wav", 44)

	w := NewWhisperCLI(Config{EngineCandidates: []string{engine}, ModelCandidates: []string{model}})
	_, err := w.Transcribe(context.Background(), audio)
	if !errors.Is(err, domain.ErrTranscriptionInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Fatalf("engine must not be invoked for a header-only file")
	}
}

func TestWhisperCLIMissingFile(t *testing.T) {
	t.Parallel()

	w := NewWhisperCLI(Config{})
	_, err := w.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))
	if !errors.Is(err, domain.ErrTranscriptionInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestWhisperCLIResolutionFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audio := writeFile(t, dir, "chunk-0000.wav", 2048)
	engine := writeScript(t, dir, "whisper.sh", "#!/usr/bin/env bash\necho ok\n")

	_, err := NewWhisperCLI(Config{EngineCandidates: []string{filepath.Join(dir, "none")}}).Transcribe(context.Background(), audio)
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected engine unavailable, got %v", err)
	}

	_, err = NewWhisperCLI(Config{
		EngineCandidates: []string{engine},
		ModelCandidates:  []string{filepath.Join(dir, "none.bin"), dir},
	}).Transcribe(context.Background(), audio)
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
}

func TestWhisperCLIEngineFailureDetail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	model := writeFile(t, dir, "model.bin", 16)
	audio := writeFile(t, dir, "chunk-0000.wav", 2048)

	cases := []struct {
		name   string
		script string
		want   string
	}{
		{name: "stderr", script: "#!/usr/bin/env bash\necho out\necho 'bad model' 1>&2\nexit 2\n", want: "bad model"},
		{name: "stdout", script: "#!/usr/bin/env bash\necho 'only stdout'\nexit 2\n", want: "only stdout"},
		{name: "empty", script: "#!/usr/bin/env bash\nexit 3\n", want: "exit code: 3"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			engine := writeScript(t, t.TempDir(), "whisper.sh", tc.script)
			w := NewWhisperCLI(Config{EngineCandidates: []string{engine}, ModelCandidates: []string{model}})
			_, err := w.Transcribe(context.Background(), audio)
			if !errors.Is(err, domain.ErrEngineFailed) {
				t.Fatalf("expected engine failure, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestThreadsIsCapped(t *testing.T) {
	t.Parallel()

	if got := Threads(4); got > 4 || got < 1 {
		t.Fatalf("unexpected thread count: %d", got)
	}
	if got := Threads(1); got != 1 {
		t.Fatalf("expected 1 thread, got %d", got)
	}
	if got := Threads(0); got != min(runtime.NumCPU(), 4) {
		t.Fatalf("expected default cap, got %d", got)
	}
}

func writeScript(t *testing.T, dir string, name string, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func writeFile(t *testing.T, dir string, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}
