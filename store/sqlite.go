// ABOUTME: SQLite-backed run history: every pipeline run is persisted with its final state.
// ABOUTME: Provides save, get, list, and prune operations keyed by ULID run identifiers.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/kft-research/queryflow/pipeline"
)

// Run is one persisted pipeline execution.
type Run struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	StepCount int             `json:"step_count"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// RunSummary is a listing row without the full result blob.
type RunSummary struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	StepCount int       `json:"step_count"`
	CreatedAt time.Time `json:"created_at"`
}

// RunStore is a SQLite-backed history of pipeline runs.
type RunStore struct {
	db *sql.DB
}

// Open opens or creates a run store database at the given path.
func Open(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			step_count INTEGER NOT NULL,
			result TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &RunStore{db: db}, nil
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// SaveFinal persists the final state of one pipeline run under a fresh ULID
// and returns the stored record.
func (s *RunStore) SaveFinal(final *pipeline.FinalState) (*Run, error) {
	result, err := json.Marshal(final)
	if err != nil {
		return nil, fmt.Errorf("encode final state: %w", err)
	}

	run := &Run{
		ID:        ulid.Make().String(),
		Query:     final.RawInput,
		Status:    string(final.Status),
		StepCount: final.StepCount,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, query, status, step_count, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Query, run.Status, run.StepCount, string(run.Result),
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Get returns one run by ID, or sql.ErrNoRows when absent.
func (s *RunStore) Get(id string) (*Run, error) {
	var run Run
	var result, createdAt string
	err := s.db.QueryRow(
		"SELECT run_id, query, status, step_count, result, created_at FROM runs WHERE run_id = ?",
		id,
	).Scan(&run.ID, &run.Query, &run.Status, &run.StepCount, &result, &createdAt)
	if err != nil {
		return nil, err
	}

	run.Result = json.RawMessage(result)
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for run %s: %w", id, err)
	}
	return &run, nil
}

// List returns the most recent runs, newest first. A non-positive limit
// defaults to 50.
func (s *RunStore) List(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT run_id, query, status, step_count, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Query, &r.Status, &r.StepCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes runs older than the cutoff and returns how many were removed.
func (s *RunStore) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM runs WHERE created_at < ?",
		olderThan.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
