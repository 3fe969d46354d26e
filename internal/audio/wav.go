package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// WAVInspector reads segment metadata from RIFF headers.
type WAVInspector struct{}

// Duration returns the playback length recorded in the file header.
// Segments still being written by ffmpeg may carry a stale header.
func (WAVInspector) Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return 0, errors.New("not a valid wav file")
	}
	duration, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to read wav duration: %w", err)
	}
	return duration, nil
}
