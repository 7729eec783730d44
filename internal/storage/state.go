package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"clsync/internal/models"
)

const stateSchema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	run_id        TEXT PRIMARY KEY,
	started_at    TIMESTAMP NOT NULL,
	finished_at   TIMESTAMP,
	project_count INTEGER NOT NULL DEFAULT 0,
	file_count    INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);
`

// StateDB records sync runs in SQLite so the status command and staleness
// checks survive process restarts.
type StateDB struct {
	db *sql.DB
}

// OpenState opens or creates the state database at path.
func OpenState(path string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	if _, err := db.Exec(stateSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init state schema: %w", err)
	}
	return &StateDB{db: db}, nil
}

// Close releases the database handle.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// RecordStart inserts a new running sync run.
func (s *StateDB) RecordStart(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (run_id, started_at, status) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), models.SyncStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordResult finalizes a run with its counts and outcome.
func (s *StateDB) RecordResult(ctx context.Context, state models.SyncState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs
		 SET finished_at = ?, project_count = ?, file_count = ?, status = ?, error = ?
		 WHERE run_id = ?`,
		time.Now().UTC(), state.ProjectCount, state.FileCount, state.Status, state.Error, state.RunID)
	if err != nil {
		return fmt.Errorf("failed to record run result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s was never started", state.RunID)
	}
	return nil
}

// Last returns the most recent sync run, or nil when none exist.
func (s *StateDB) Last(ctx context.Context) (*models.SyncState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, project_count, file_count, status, error
		 FROM sync_runs ORDER BY started_at DESC, run_id DESC LIMIT 1`)

	var state models.SyncState
	err := row.Scan(&state.RunID, &state.LastSync, &state.ProjectCount,
		&state.FileCount, &state.Status, &state.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}
	return &state, nil
}
