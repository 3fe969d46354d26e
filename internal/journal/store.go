package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"livenotes/internal/domain"
	"livenotes/internal/logging"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		backend TEXT NOT NULL,
		baseDir TEXT NOT NULL,
		segmentSeconds INTEGER NOT NULL,
		startedAt REAL NOT NULL,
		endedAt REAL,
		endReason TEXT
	);

	CREATE TABLE IF NOT EXISTS chunks (
		sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		chunkIndex INTEGER NOT NULL,
		text TEXT NOT NULL,
		raw TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		durationMs INTEGER NOT NULL DEFAULT 0,
		createdAt REAL NOT NULL,
		PRIMARY KEY (sessionId, chunkIndex)
	);
`

// Session is a journaled live session.
type Session struct {
	ID             string                  `json:"id"`
	Backend        domain.Backend          `json:"backend"`
	BaseDir        string                  `json:"baseDir"`
	SegmentSeconds int                     `json:"segmentSeconds"`
	StartedAt      time.Time               `json:"startedAt"`
	EndedAt        *time.Time              `json:"endedAt,omitempty"`
	EndReason      domain.SessionEndReason `json:"endReason,omitempty"`
}

// Store persists live sessions and their chunk transcripts to SQLite. It
// satisfies ports.EventSink so it can sit in the notification fanout.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the journal database at path.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return &Store{db: db, logger: logger.Named("journal"), now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSessionStart inserts a session row.
func (s *Store) RecordSessionStart(info domain.SessionInfo) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, backend, baseDir, segmentSeconds, startedAt)
		VALUES (?, ?, ?, ?, ?)
	`, info.ID, string(info.Backend), info.BaseDir, int(info.SegmentLength/time.Second), unixSeconds(info.StartedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// RecordChunk stores a chunk transcript, replacing any earlier row for the
// same session and index.
func (s *Store) RecordChunk(chunk domain.ChunkTranscript) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO chunks (sessionId, chunkIndex, text, raw, path, size, durationMs, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, chunk.Session, chunk.Index, chunk.Text, chunk.Raw, chunk.Path, chunk.Size, chunk.Duration.Milliseconds(), unixSeconds(s.now()))
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

// RecordSessionEnd stamps the end time and reason of a session.
func (s *Store) RecordSessionEnd(info domain.SessionInfo, reason domain.SessionEndReason) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET endedAt = ?, endReason = ? WHERE id = ?
	`, unixSeconds(s.now()), string(reason), info.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// Session returns the session with id, or nil if there is none.
func (s *Store) Session(id string) (*Session, error) {
	return s.scanSession(s.db.QueryRow(`
		SELECT id, backend, baseDir, segmentSeconds, startedAt, endedAt, endReason
		FROM sessions
		WHERE id = ?
	`, id))
}

// LatestSession returns the most recently started session, if any.
func (s *Store) LatestSession() (*Session, error) {
	return s.scanSession(s.db.QueryRow(`
		SELECT id, backend, baseDir, segmentSeconds, startedAt, endedAt, endReason
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT 1
	`))
}

// Chunks returns the chunk transcripts of a session ordered by chunk index.
func (s *Store) Chunks(sessionID string) ([]domain.ChunkTranscript, error) {
	rows, err := s.db.Query(`
		SELECT sessionId, chunkIndex, text, raw, path, size, durationMs
		FROM chunks
		WHERE sessionId = ?
		ORDER BY chunkIndex ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.ChunkTranscript
	for rows.Next() {
		var c domain.ChunkTranscript
		var durationMs int64
		if err := rows.Scan(&c.Session, &c.Index, &c.Text, &c.Raw, &c.Path, &c.Size, &durationMs); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Duration = time.Duration(durationMs) * time.Millisecond
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *Store) scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var backend string
	var startedAt float64
	var endedAt sql.NullFloat64
	var endReason sql.NullString

	if err := row.Scan(&sess.ID, &backend, &sess.BaseDir, &sess.SegmentSeconds,
		&startedAt, &endedAt, &endReason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.Backend = domain.Backend(backend)
	sess.StartedAt = timeFromUnix(startedAt)
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Float64)
		sess.EndedAt = &t
	}
	if endReason.Valid {
		sess.EndReason = domain.SessionEndReason(endReason.String)
	}
	return &sess, nil
}

func (s *Store) RecorderModeSelected(session domain.SessionInfo) {
	if err := s.RecordSessionStart(session); err != nil {
		s.logger.Warnw("journal write failed", "session", session.ID, "error", err)
	}
}

func (s *Store) ChunkTranscribed(chunk domain.ChunkTranscript) {
	if err := s.RecordChunk(chunk); err != nil {
		s.logger.Warnw("journal write failed", "session", chunk.Session, "chunk", chunk.Index, "error", err)
	}
}

// RecordingError is not journaled.
func (s *Store) RecordingError(domain.ErrorCode, string) {}

func (s *Store) SessionEnded(session domain.SessionInfo, reason domain.SessionEndReason) {
	if err := s.RecordSessionEnd(session, reason); err != nil {
		s.logger.Warnw("journal write failed", "session", session.ID, "error", err)
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
