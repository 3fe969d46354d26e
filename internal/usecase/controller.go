package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"livenotes/internal/domain"
	"livenotes/internal/logging"
	"livenotes/internal/ports"
)

var (
	ErrAlreadyActive = errors.New("live recording already in progress")
	ErrNotActive     = errors.New("no live recording in progress")
)

// Config controls live session behavior.
type Config struct {
	Audio      ports.AudioConfig
	SessionDir string
	// Recorder is used when StartOptions.Recorder is empty.
	Recorder string
	// StreamingTool is looked up before choosing the streaming backend.
	StreamingTool   string
	SegmentSeconds  int
	Overlap         time.Duration
	StreamingSlack  time.Duration
	PollInterval    time.Duration
	MinSegmentBytes int64
	SettleWindow    time.Duration
	// ExitWait bounds how long a restart waits for the old segmenter to exit.
	ExitWait time.Duration
}

// StartOptions are per-session caller choices. Zero values use Config.
type StartOptions struct {
	Recorder       string
	SegmentSeconds int
}

// LiveController owns the single live session slot.
type LiveController struct {
	recorder    ports.SegmentRecorder
	segmenter   ports.Segmenter
	tools       ports.ToolLocator
	transcriber ports.Transcriber
	filter      ports.TextFilter
	inspector   ports.SegmentInspector
	events      ports.EventSink
	logger      *logging.Logger
	cfg         Config

	startMu sync.Mutex
	// emitMu orders chunk notifications before the session end notification.
	emitMu sync.Mutex

	mu         sync.Mutex
	active     bool
	generation uint64
	nextIndex  int
	session    *liveSession
	transcript transcriptLog
}

func NewLiveController(
	recorder ports.SegmentRecorder,
	segmenter ports.Segmenter,
	tools ports.ToolLocator,
	transcriber ports.Transcriber,
	filter ports.TextFilter,
	inspector ports.SegmentInspector,
	events ports.EventSink,
	logger *logging.Logger,
	cfg Config,
) *LiveController {
	if filter == nil {
		filter = passthroughFilter{}
	}
	if events == nil {
		events = nopSink{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = filepath.Join(os.TempDir(), "livenotes", "live-session")
	}
	if cfg.Recorder == "" {
		cfg.Recorder = string(domain.RecorderAuto)
	}
	if cfg.StreamingTool == "" {
		cfg.StreamingTool = "ffmpeg"
	}
	if cfg.SegmentSeconds <= 0 {
		cfg.SegmentSeconds = defaultSegmentSeconds
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.StreamingSlack <= 0 {
		cfg.StreamingSlack = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.MinSegmentBytes <= 0 {
		cfg.MinSegmentBytes = 1000
	}
	if cfg.SettleWindow <= 0 {
		cfg.SettleWindow = 1500 * time.Millisecond
	}
	if cfg.ExitWait <= 0 {
		cfg.ExitWait = 3 * time.Second
	}
	return &LiveController{
		recorder:    recorder,
		segmenter:   segmenter,
		tools:       tools,
		transcriber: transcriber,
		filter:      filter,
		inspector:   inspector,
		events:      events,
		logger:      logger.Named("live"),
		cfg:         cfg,
	}
}

// Start begins a live session and returns its segment directory.
func (c *LiveController) Start(ctx context.Context, opts StartOptions) (string, error) {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return "", ErrAlreadyActive
	}
	previous := c.session
	c.mu.Unlock()

	c.retire(previous)

	seconds := opts.SegmentSeconds
	if seconds == 0 {
		seconds = c.cfg.SegmentSeconds
	}
	segmentLength := time.Duration(ClampSegmentSeconds(seconds)) * time.Second

	dir := c.cfg.SessionDir
	if err := resetDir(dir); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSessionDir, err)
	}

	preference := opts.Recorder
	if preference == "" {
		preference = c.cfg.Recorder
	}
	backend := SelectBackend(preference, c.tools, c.cfg.StreamingTool)

	// The session outlives the request that started it.
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	var process ports.SegmentProcess
	if backend == domain.BackendStreaming {
		var err error
		process, err = c.segmenter.Start(sessionCtx, ports.SegmenterConfig{
			Audio:         c.cfg.Audio,
			Dir:           dir,
			SegmentLength: segmentLength,
		})
		if err != nil {
			cancel()
			if !errors.Is(err, domain.ErrCaptureFailed) {
				err = fmt.Errorf("%w: %v", domain.ErrCaptureFailed, err)
			}
			return "", err
		}
	}

	c.mu.Lock()
	c.generation++
	session := &liveSession{
		info: domain.SessionInfo{
			ID:            uuid.NewString(),
			Generation:    c.generation,
			Backend:       backend,
			BaseDir:       dir,
			SegmentLength: segmentLength,
			StartedAt:     time.Now(),
		},
		cancel:  cancel,
		process: process,
		capture: process,
		done:    make(chan struct{}),
	}
	session.machine = newWatchMachine(c.logger.With("session", session.info.ID))
	c.session = session
	c.active = true
	c.nextIndex = 0
	c.transcript.reset()
	c.mu.Unlock()

	go c.watch(sessionCtx, session, c.newSource(session, process))

	c.logger.Infow("live session started",
		"session", session.info.ID,
		"backend", backend,
		"segment_seconds", int(segmentLength/time.Second),
		"dir", dir,
	)
	c.events.RecorderModeSelected(session.info)
	return dir, nil
}

// Stop ends the active session and returns the transcript joined with
// spaces. Chunks still being transcribed are discarded.
func (c *LiveController) Stop() (string, error) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return "", ErrNotActive
	}
	c.active = false
	session := c.session
	process := session.process
	session.process = nil
	joined := c.transcript.joined()
	chunks := c.transcript.len()
	c.mu.Unlock()

	if process != nil {
		if err := process.Terminate(); err != nil {
			c.logger.Warnw("failed to signal segmenter", "pid", process.PID(), "error", err)
		}
	}

	c.logger.Infow("live session stopped", "session", session.info.ID, "chunks", chunks)
	c.events.SessionEnded(session.info, domain.SessionEndStopped)
	return joined, nil
}

// Mode reports streaming while a segmenter handle is held, polling while
// otherwise active and inactive after stop or a capture failure.
func (c *LiveController) Mode() domain.RecorderMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modeLocked()
}

// Transcripts returns the chunk texts in append order.
func (c *LiveController) Transcripts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.texts()
}

// Chunks returns the chunk transcripts ordered by chunk index.
func (c *LiveController) Chunks() []domain.ChunkTranscript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.byIndex()
}

func (c *LiveController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.Status{
		Mode:   c.modeLocked(),
		Active: c.active,
		Chunks: c.transcript.len(),
	}
	if c.session != nil {
		status.SessionID = c.session.info.ID
		status.BaseDir = c.session.info.BaseDir
		status.Stage = c.session.machine.Current()
	}
	return status
}

// Cleanup removes leftover segment files while no session is active.
func (c *LiveController) Cleanup() error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	previous := c.session
	c.mu.Unlock()

	c.retire(previous)

	matches, err := filepath.Glob(filepath.Join(c.cfg.SessionDir, "chunk-*.wav"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %v", domain.ErrSessionDir, err)
		}
	}
	c.logger.Infow("removed live segment files", "count", len(matches), "dir", c.cfg.SessionDir)
	return nil
}

// Close stops any active session and cancels its capture processes.
func (c *LiveController) Close() {
	if _, err := c.Stop(); err != nil && !errors.Is(err, ErrNotActive) {
		c.logger.Warnw("stop on close failed", "error", err)
	}
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session != nil {
		session.cancel()
	}
}

// retire cancels an inactive session's capture and waits for its loop and
// segmenter so nothing it still runs can write into the next session directory.
func (c *LiveController) retire(session *liveSession) {
	if session == nil {
		return
	}
	session.cancel()
	<-session.done

	if session.capture == nil {
		return
	}
	select {
	case <-session.capture.Exited():
	case <-time.After(c.cfg.ExitWait):
		c.logger.Warnw("segmenter still running after stop", "session", session.info.ID, "pid", session.capture.PID(), "wait", c.cfg.ExitWait)
	}
}

func (c *LiveController) newSource(session *liveSession, process ports.SegmentProcess) segmentSource {
	cursor := sessionHandle{c: c, session: session}
	if session.info.Backend == domain.BackendStreaming {
		return &streamingSource{
			cursor:       cursor,
			process:      process,
			dir:          session.info.BaseDir,
			timeout:      session.info.SegmentLength + c.cfg.StreamingSlack,
			pollInterval: c.cfg.PollInterval,
			minBytes:     c.cfg.MinSegmentBytes,
			settle:       c.cfg.SettleWindow,
		}
	}
	return &pollingSource{
		cursor:   cursor,
		recorder: c.recorder,
		audio:    c.cfg.Audio,
		dir:      session.info.BaseDir,
		duration: session.info.SegmentLength + c.cfg.Overlap,
	}
}

// abort ends session after a capture failure.
func (c *LiveController) abort(session *liveSession, cause error) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if !c.isCurrentLocked(session) {
		c.mu.Unlock()
		return
	}
	c.active = false
	process := session.process
	session.process = nil
	c.mu.Unlock()

	if process != nil {
		_ = process.Terminate()
	}

	c.logger.Errorw("live session aborted", "session", session.info.ID, "error", cause)
	c.events.RecordingError(domain.ErrorCodeFor(cause), cause.Error())
	c.events.SessionEnded(session.info, domain.SessionEndCaptureFailed)
}

func (c *LiveController) reportError(session *liveSession, err error) {
	if !c.isCurrent(session) {
		return
	}
	c.events.RecordingError(domain.ErrorCodeFor(err), err.Error())
}

// appendChunk records chunk and notifies sinks unless its session has been
// stopped or replaced. The notification precedes any SessionEnded for it.
func (c *LiveController) appendChunk(session *liveSession, chunk domain.ChunkTranscript) bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if !c.isCurrentLocked(session) {
		c.mu.Unlock()
		return false
	}
	c.transcript.add(chunk)
	c.mu.Unlock()

	c.events.ChunkTranscribed(chunk)
	return true
}

func (c *LiveController) isCurrent(session *liveSession) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCurrentLocked(session)
}

func (c *LiveController) isCurrentLocked(session *liveSession) bool {
	return c.active && c.session == session && c.generation == session.info.Generation
}

func (c *LiveController) modeLocked() domain.RecorderMode {
	switch {
	case !c.active:
		return domain.RecorderModeInactive
	case c.session != nil && c.session.process != nil:
		return domain.RecorderModeStreaming
	default:
		return domain.RecorderModePolling
	}
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

type passthroughFilter struct{}

func (passthroughFilter) Apply(text string) (string, error) { return text, nil }

type nopSink struct{}

func (nopSink) RecorderModeSelected(domain.SessionInfo) {}
func (nopSink) ChunkTranscribed(domain.ChunkTranscript) {}
func (nopSink) RecordingError(domain.ErrorCode, string) {}
func (nopSink) SessionEnded(domain.SessionInfo, domain.SessionEndReason) {}
