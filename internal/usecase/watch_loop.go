package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"livenotes/internal/domain"
)

const (
	stateAwaitingSegment = "awaiting_segment"
	stateTranscribing    = "transcribing"
	stateAppended        = "appended"
	stateStopped         = "stopped"

	eventSegmentReady = "segment_ready"
	eventHandled      = "handled"
	eventHandleFailed = "handle_failed"
	eventResume       = "resume"
	eventStop         = "stop"
)

func newWatchMachine(log *zap.SugaredLogger) *fsm.FSM {
	return fsm.NewFSM(
		stateAwaitingSegment,
		fsm.Events{
			{Name: eventSegmentReady, Src: []string{stateAwaitingSegment}, Dst: stateTranscribing},
			{Name: eventHandled, Src: []string{stateTranscribing}, Dst: stateAppended},
			{Name: eventHandleFailed, Src: []string{stateTranscribing}, Dst: stateAwaitingSegment},
			{Name: eventResume, Src: []string{stateAppended}, Dst: stateAwaitingSegment},
			{Name: eventStop, Src: []string{stateAwaitingSegment, stateTranscribing, stateAppended}, Dst: stateStopped},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debugw("watch loop transition", "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
}

func fire(machine *fsm.FSM, log *zap.SugaredLogger, event string) {
	if err := machine.Event(context.Background(), event); err != nil {
		log.Debugw("watch loop event rejected", "event", event, "state", machine.Current(), "error", err)
	}
}

// watch drives one session until it is stopped or its capture fails.
func (c *LiveController) watch(ctx context.Context, session *liveSession, source segmentSource) {
	defer close(session.done)

	log := c.logger.With("session", session.info.ID, "backend", session.info.Backend)
	machine := session.machine
	defer fire(machine, log, eventStop)

	for {
		seg, err := source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errSessionStopped):
			return
		case errors.Is(err, domain.ErrSegmentTimeout):
			log.Warnw("segment skipped", "chunk", seg.index, "error", err)
			c.reportError(session, err)
			continue
		default:
			c.abort(session, err)
			return
		}

		if !c.isCurrent(session) {
			log.Debugw("dropping segment recorded after stop", "chunk", seg.index)
			return
		}

		fire(machine, log, eventSegmentReady)
		if source.Concurrent() {
			go func() {
				_ = c.handleSegment(context.WithoutCancel(ctx), session, seg)
			}()
			fire(machine, log, eventHandled)
			fire(machine, log, eventResume)
			continue
		}

		if err := c.handleSegment(ctx, session, seg); err != nil {
			fire(machine, log, eventHandleFailed)
		} else {
			fire(machine, log, eventHandled)
			fire(machine, log, eventResume)
		}
		source.Advance(seg)
	}
}

// handleSegment transcribes seg and appends it to the session transcript.
func (c *LiveController) handleSegment(ctx context.Context, session *liveSession, seg segment) error {
	text, err := c.transcriber.Transcribe(ctx, seg.path)
	if err != nil {
		err = fmt.Errorf("chunk %d: %w", seg.index, err)
		if c.isCurrent(session) {
			if domain.IsTranscriptionError(err) {
				c.logger.Warnw("chunk transcription failed", "session", session.info.ID, "chunk", seg.index, "error", err)
			} else {
				c.logger.Errorw("chunk transcription failed with unclassified error", "session", session.info.ID, "chunk", seg.index, "error", err)
			}
			c.reportError(session, err)
		}
		return err
	}

	filtered, err := c.filter.Apply(text)
	if err != nil {
		c.logger.Warnw("chunk filter failed", "session", session.info.ID, "chunk", seg.index, "error", err)
		filtered = text
	}

	chunk := domain.ChunkTranscript{
		Session: session.info.ID,
		Index:   seg.index,
		Text:    filtered,
		Raw:     text,
		Path:    seg.path,
		Size:    seg.size,
	}
	if c.inspector != nil {
		if duration, err := c.inspector.Duration(seg.path); err == nil {
			chunk.Duration = duration
		}
	}

	if !c.appendChunk(session, chunk) {
		c.logger.Debugw("discarded chunk from inactive session", "session", session.info.ID, "chunk", seg.index)
	}
	return nil
}
