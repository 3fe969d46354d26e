package usecase

import (
	"strings"

	"livenotes/internal/domain"
	"livenotes/internal/ports"
)

const (
	minSegmentSeconds     = 5
	maxSegmentSeconds     = 60
	defaultSegmentSeconds = 10
)

// SelectBackend resolves a recorder preference. Only an explicit ffmpeg
// request with the tool present yields streaming; auto stays on polling.
func SelectBackend(preference string, tools ports.ToolLocator, streamingTool string) domain.Backend {
	switch domain.RecorderPreference(strings.ToLower(strings.TrimSpace(preference))) {
	case domain.RecorderFFMPEG:
		if tools != nil && tools.Available(streamingTool) {
			return domain.BackendStreaming
		}
		return domain.BackendPolling
	default:
		return domain.BackendPolling
	}
}

// ClampSegmentSeconds bounds a requested segment length to [5, 60].
func ClampSegmentSeconds(seconds int) int {
	if seconds < minSegmentSeconds {
		return minSegmentSeconds
	}
	if seconds > maxSegmentSeconds {
		return maxSegmentSeconds
	}
	return seconds
}
