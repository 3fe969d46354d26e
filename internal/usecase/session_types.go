package usecase

import (
	"context"

	"github.com/looplab/fsm"

	"livenotes/internal/domain"
	"livenotes/internal/ports"
)

// liveSession is the per-start portion of the session slot. process is
// guarded by LiveController.mu and cleared on stop; the rest is set once.
type liveSession struct {
	info    domain.SessionInfo
	cancel  context.CancelFunc
	process ports.SegmentProcess
	capture ports.SegmentProcess
	machine *fsm.FSM
	done    chan struct{}
}

// sessionCursor is the view a segment source has of the session slot.
type sessionCursor interface {
	// reserve hands out the next index and advances it.
	reserve() (int, bool)
	// peek returns the next index without advancing it.
	peek() (int, bool)
	// advance moves past index if it is still the next one.
	advance(index int)
	current() bool
}

type sessionHandle struct {
	c       *LiveController
	session *liveSession
}

func (h sessionHandle) reserve() (int, bool) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if !h.c.isCurrentLocked(h.session) {
		return 0, false
	}
	index := h.c.nextIndex
	h.c.nextIndex++
	return index, true
}

func (h sessionHandle) peek() (int, bool) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if !h.c.isCurrentLocked(h.session) {
		return 0, false
	}
	return h.c.nextIndex, true
}

func (h sessionHandle) advance(index int) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.c.isCurrentLocked(h.session) && h.c.nextIndex == index {
		h.c.nextIndex++
	}
}

func (h sessionHandle) current() bool {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.isCurrentLocked(h.session)
}
