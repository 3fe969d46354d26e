package usecase

import (
	"sort"
	"strings"

	"livenotes/internal/domain"
)

// transcriptLog holds chunk transcripts in append order. It is guarded by
// LiveController.mu.
type transcriptLog struct {
	entries []domain.ChunkTranscript
}

func (l *transcriptLog) reset() {
	l.entries = l.entries[:0]
}

func (l *transcriptLog) add(chunk domain.ChunkTranscript) {
	l.entries = append(l.entries, chunk)
}

func (l *transcriptLog) len() int {
	return len(l.entries)
}

func (l *transcriptLog) texts() []string {
	out := make([]string, len(l.entries))
	for i, entry := range l.entries {
		out[i] = entry.Text
	}
	return out
}

// byIndex returns a copy ordered by chunk index.
func (l *transcriptLog) byIndex() []domain.ChunkTranscript {
	out := make([]domain.ChunkTranscript, len(l.entries))
	copy(out, l.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// joined concatenates non-empty entries in append order.
func (l *transcriptLog) joined() string {
	parts := make([]string, 0, len(l.entries))
	for _, entry := range l.entries {
		if text := strings.TrimSpace(entry.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
