package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"livenotes/internal/domain"
	"livenotes/internal/ports"
)

// ARecordCapture records one fixed-duration WAV file per call using arecord.
type ARecordCapture struct {
	command string
}

func NewARecordCapture(command string) *ARecordCapture {
	if command == "" {
		command = "arecord"
	}
	return &ARecordCapture{command: command}
}

// Record blocks until the capture process exits.
func (c *ARecordCapture) Record(ctx context.Context, path string, duration time.Duration, cfg ports.AudioConfig) error {
	cmd := exec.CommandContext(ctx, c.command, recordArgs(path, duration, withAudioDefaults(cfg))...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		detail := stringsTrimSpaceSafe(stderr.String())
		if detail == "" {
			return fmt.Errorf("%w: %s: %v", domain.ErrCaptureFailed, c.command, err)
		}
		return fmt.Errorf("%w: %s: %v: %s", domain.ErrCaptureFailed, c.command, err, detail)
	}
	return nil
}

func recordArgs(path string, duration time.Duration, cfg ports.AudioConfig) []string {
	seconds := int(math.Ceil(duration.Seconds()))
	if seconds <= 0 {
		seconds = 1
	}
	args := []string{
		"-q",
		"-f", "S16_LE",
		"-r", strconv.Itoa(cfg.SampleRate),
		"-c", strconv.Itoa(cfg.Channels),
	}
	if cfg.InputDevice != "" && cfg.InputDevice != "default" {
		args = append(args, "-D", cfg.InputDevice)
	}
	return append(args, "-d", strconv.Itoa(seconds), path)
}

func withAudioDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "alsa"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}
