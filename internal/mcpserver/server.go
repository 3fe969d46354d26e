package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"livenotes/internal/domain"
	"livenotes/internal/journal"
	"livenotes/internal/logging"
	"livenotes/internal/usecase"
)

// LiveRecorder is the live session surface exposed as tools.
type LiveRecorder interface {
	Start(ctx context.Context, opts usecase.StartOptions) (string, error)
	Stop() (string, error)
	Mode() domain.RecorderMode
	Transcripts() []string
	Chunks() []domain.ChunkTranscript
}

// History reads journaled sessions and their chunk transcripts.
type History interface {
	Session(id string) (*journal.Session, error)
	LatestSession() (*journal.Session, error)
	Chunks(sessionID string) ([]domain.ChunkTranscript, error)
}

// Server exposes live recording over the Model Context Protocol.
type Server struct {
	recorder LiveRecorder
	history  History
	logger   *logging.Logger
	mcp      *server.MCPServer
}

// New registers the live recording tools. history may be nil.
func New(recorder LiveRecorder, history History, logger *logging.Logger, version string) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		recorder: recorder,
		history:  history,
		logger:   logger.Named("mcp"),
		mcp:      server.NewMCPServer("livenotes", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("start_live_recording",
		mcp.WithDescription("Start live chunked recording with background transcription. Returns the session directory."),
		mcp.WithString("recorder",
			mcp.Description("Recorder preference; auto uses the per-segment recorder"),
			mcp.Enum(string(domain.RecorderAuto), string(domain.RecorderFFMPEG), string(domain.RecorderARecord)),
		),
		mcp.WithNumber("segment_seconds",
			mcp.Description("Segment length in seconds, clamped to 5-60 (default 10)"),
		),
	), s.handleStart)

	s.mcp.AddTool(mcp.NewTool("stop_live_recording",
		mcp.WithDescription("Stop live recording and return the transcript accumulated so far."),
	), s.handleStop)

	s.mcp.AddTool(mcp.NewTool("get_recorder_mode",
		mcp.WithDescription("Report the live recorder mode: streaming, polling or inactive."),
	), s.handleMode)

	s.mcp.AddTool(mcp.NewTool("get_live_transcripts",
		mcp.WithDescription("Return the chunk transcripts of the current session in arrival order."),
	), s.handleTranscripts)

	s.mcp.AddTool(mcp.NewTool("get_live_chunks",
		mcp.WithDescription("Return chunk transcripts ordered by chunk index, for the current session or a journaled one. With no live session and no session_id, the latest journaled session is read."),
		mcp.WithString("session_id",
			mcp.Description("Journaled session to read instead of the current session"),
		),
	), s.handleChunks)

	s.mcp.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Return a journaled session: backend, directory, start and end times and end reason."),
		mcp.WithString("session_id",
			mcp.Description("Session to read; the latest session when omitted"),
		),
	), s.handleSession)

	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves the tools on stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := usecase.StartOptions{
		Recorder:       req.GetString("recorder", ""),
		SegmentSeconds: int(req.GetFloat("segment_seconds", 0)),
	}

	dir, err := s.recorder.Start(ctx, opts)
	if err != nil {
		s.logger.Warnw("start_live_recording failed", "error", err)
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return mcp.NewToolResultText(dir), nil
}

func (s *Server) handleStop(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transcript, err := s.recorder.Stop()
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return mcp.NewToolResultText(transcript), nil
}

func (s *Server) handleMode(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(string(s.recorder.Mode())), nil
}

func (s *Server) handleTranscripts(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.recorder.Transcripts())
}

func (s *Server) handleChunks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		chunks := s.recorder.Chunks()
		if len(chunks) > 0 || s.recorder.Mode() != domain.RecorderModeInactive || s.history == nil {
			if chunks == nil {
				chunks = []domain.ChunkTranscript{}
			}
			return jsonResult(chunks)
		}
		latest, err := s.history.LatestSession()
		if err != nil {
			s.logger.Warnw("get_live_chunks failed", "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("failed to read latest session: %v", err)), nil
		}
		if latest == nil {
			return jsonResult([]domain.ChunkTranscript{})
		}
		sessionID = latest.ID
	}
	if s.history == nil {
		return mcp.NewToolResultError("session history is disabled"), nil
	}

	chunks, err := s.history.Chunks(sessionID)
	if err != nil {
		s.logger.Warnw("get_live_chunks failed", "session", sessionID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to read session %s: %v", sessionID, err)), nil
	}
	if chunks == nil {
		chunks = []domain.ChunkTranscript{}
	}
	return jsonResult(chunks)
}

func (s *Server) handleSession(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return mcp.NewToolResultError("session history is disabled"), nil
	}

	var (
		session *journal.Session
		err     error
	)
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		session, err = s.history.LatestSession()
	} else {
		session, err = s.history.Session(sessionID)
	}
	if err != nil {
		s.logger.Warnw("get_session failed", "session", sessionID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to read session: %v", err)), nil
	}
	if session == nil {
		return mcp.NewToolResultError("no journaled session found"), nil
	}
	return jsonResult(session)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func toolError(err error) string {
	code := domain.ErrorCodeFor(err)
	switch {
	case errors.Is(err, usecase.ErrAlreadyActive), errors.Is(err, usecase.ErrNotActive), code == domain.ErrorCodeUnknown:
		return err.Error()
	default:
		return fmt.Sprintf("%s: %v", code, err)
	}
}
