// Package history records the outcome of every fetch in a small SQLite
// database so that skipped or failed snapshots can be inspected after the
// fact. It is a log, not an index: snapshot versions are only ever derived
// from file names.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcome of one fetch.
const (
	OutcomeSaved   = "saved"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS fetch_log (
    id            TEXT PRIMARY KEY,
    run_id        TEXT NOT NULL,
    source        TEXT NOT NULL,
    category      TEXT NOT NULL,
    outcome       TEXT NOT NULL,
    version       INTEGER NOT NULL DEFAULT 0,
    path          TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    fetched_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_time ON fetch_log(fetched_at DESC);
CREATE INDEX IF NOT EXISTS idx_fetch_log_category ON fetch_log(category, fetched_at DESC);
`

// Entry is one row of the fetch log.
type Entry struct {
	ID           string    `json:"id"`
	RunID        string    `json:"runId"`
	Source       string    `json:"source"`
	Category     string    `json:"category"`
	Outcome      string    `json:"outcome"`
	Version      int       `json:"version,omitempty"`
	Path         string    `json:"path,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	DurationMs   int64     `json:"durationMs"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// Store is the fetch log.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway log.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// One writer; also keeps ":memory:" to a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// Insert records one fetch attempt. An empty ID is filled in.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO fetch_log (id, run_id, source, category, outcome,
		version, path, error_message, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.Source, e.Category, e.Outcome,
		e.Version, e.Path, e.ErrorMessage, e.DurationMs, e.FetchedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert fetch log: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, run_id, source, category, outcome, version, path,
		error_message, duration_ms, fetched_at
		FROM fetch_log ORDER BY fetched_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var fetchedAt int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Source, &e.Category, &e.Outcome,
			&e.Version, &e.Path, &e.ErrorMessage, &e.DurationMs, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan fetch log: %w", err)
		}
		e.FetchedAt = time.UnixMilli(fetchedAt).UTC()
		result = append(result, e)
	}
	return result, rows.Err()
}
