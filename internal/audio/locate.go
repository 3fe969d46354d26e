package audio

import (
	"fmt"
	"os/exec"
)

// ChunkFilePattern is the printf pattern for segment file names.
const ChunkFilePattern = "chunk-%04d.wav"

// ChunkFileName returns the segment file name for index.
func ChunkFileName(index int) string {
	return fmt.Sprintf(ChunkFilePattern, index)
}

// PathLocator detects tools on PATH.
type PathLocator struct{}

func (PathLocator) Available(name string) bool {
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
