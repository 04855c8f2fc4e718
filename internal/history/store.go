// Package history records pipeline runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go driver

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
)

// Run is one recorded pipeline run. Only run metadata is kept, never page content.
type Run struct {
	ID            string    `json:"id"`
	Query         string    `json:"query"`
	EnhancedQuery string    `json:"enhanced_query"`
	Required      int       `json:"required"`
	Accepted      int       `json:"accepted"`
	Optimized     int       `json:"optimized"`
	CharsUsed     int       `json:"chars_used"`
	RankingPath   string    `json:"ranking_path"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store appends and lists runs.
type Store struct {
	db   *sql.DB
	path string
	lock *fileLock
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, scerrors.New(scerrors.ErrCodeHistoryFailed, "failed to create history directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, scerrors.New(scerrors.ErrCodeHistoryFailed, "failed to open history database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, scerrors.New(scerrors.ErrCodeHistoryFailed, "failed to set pragma", err)
		}
	}

	s := &Store{db: db, path: path, lock: newFileLock(dir)}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		enhanced_query TEXT NOT NULL DEFAULT '',
		required INTEGER NOT NULL,
		accepted INTEGER NOT NULL,
		optimized INTEGER NOT NULL,
		chars_used INTEGER NOT NULL,
		ranking_path TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return scerrors.New(scerrors.ErrCodeHistoryFailed, "create history schema", err)
	}
	return nil
}

// Record appends a run, filling ID and CreatedAt when empty. Writers in other
// processes are excluded by a lock file next to the database.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if err := s.lock.lock(ctx); err != nil {
		return run, scerrors.New(scerrors.ErrCodeHistoryLocked, "history is locked by another process", err)
	}
	defer func() { _ = s.lock.unlock() }()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, query, enhanced_query, required, accepted, optimized,
			chars_used, ranking_path, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Query, run.EnhancedQuery, run.Required, run.Accepted, run.Optimized,
		run.CharsUsed, run.RankingPath, run.DurationMS, run.CreatedAt)
	if err != nil {
		return run, scerrors.New(scerrors.ErrCodeHistoryFailed, "insert run", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, enhanced_query, required, accepted, optimized,
			chars_used, ranking_path, duration_ms, created_at
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, scerrors.New(scerrors.ErrCodeHistoryFailed, "query runs", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Query, &r.EnhancedQuery, &r.Required, &r.Accepted,
			&r.Optimized, &r.CharsUsed, &r.RankingPath, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Count returns the number of recorded runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, scerrors.New(scerrors.ErrCodeHistoryFailed, "count runs", err)
	}
	return n, nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
