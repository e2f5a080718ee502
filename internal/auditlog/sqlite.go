package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ecamozu/career-agent/internal/agent"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Entry is one completed session as persisted.
type Entry struct {
	SessionID       string    `json:"session_id"`
	CreatedAt       time.Time `json:"created_at"`
	EmployerName    string    `json:"employer_name"`
	EmployerMessage string    `json:"employer_message"`
	FinalReply      string    `json:"final_reply"`
	Outcome         string    `json:"outcome"`
	Score           float64   `json:"score"`
	Revisions       int       `json:"revisions"`
	Flagged         bool      `json:"flagged"`
}

// Store keeps a permanent record of every processed employer message.
// Recording is best-effort from the caller's point of view: the store
// returns errors, but sessions never fail because the audit write did.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL keeps reads from blocking the write path.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		employer_name TEXT NOT NULL,
		employer_message TEXT NOT NULL,
		final_reply TEXT NOT NULL,
		outcome TEXT NOT NULL,
		score REAL NOT NULL,
		revisions INTEGER NOT NULL,
		flagged INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record persists one finished session.
func (s *Store) Record(ctx context.Context, employerMessage, employerName string, result *agent.Result) error {
	var score float64
	if result.Evaluation != nil {
		score = result.Evaluation.Score
	}

	query := `
	INSERT INTO sessions (
		session_id, created_at, employer_name, employer_message,
		final_reply, outcome, score, revisions, flagged
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		result.SessionID, time.Now().Unix(), employerName, employerMessage,
		result.Reply, string(result.Outcome), score, result.Revisions, result.Flagged,
	)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}

	s.logger.Debug("session recorded",
		zap.String("session_id", result.SessionID),
		zap.String("outcome", string(result.Outcome)),
	)
	return nil
}

// Recent returns the newest sessions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT session_id, created_at, employer_name, employer_message,
	       final_reply, outcome, score, revisions, flagged
	FROM sessions ORDER BY created_at DESC, session_id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close session rows", zap.Error(closeErr))
		}
	}()

	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var createdAt int64

		if err := rows.Scan(
			&entry.SessionID, &createdAt, &entry.EmployerName, &entry.EmployerMessage,
			&entry.FinalReply, &entry.Outcome, &entry.Score, &entry.Revisions, &entry.Flagged,
		); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}

		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return entries, nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
