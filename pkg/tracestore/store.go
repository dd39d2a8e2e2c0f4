// Package tracestore persists StoredRun records to SQLite (§6): two
// tables, runs and results, written inside one transaction per run so a
// partial write never becomes visible, plus the version-addressed lookup
// and diff engine that sit on top of it.
package tracestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fabrik-dev/fabrik/pkg/scenario"
)

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	version TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	meta_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(id),
	scenario TEXT NOT NULL,
	passed INTEGER NOT NULL,
	score REAL NOT NULL,
	data_json TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_scenario ON results(scenario);
CREATE INDEX IF NOT EXISTS idx_runs_version ON runs(version);
`

// Meta is a StoredRun's summary header (§3).
type Meta struct {
	ID            string        `json:"id"`
	Version       string        `json:"version"`
	CreatedAt     time.Time     `json:"createdAt"`
	Counts        Counts        `json:"counts"`
	TotalDuration time.Duration `json:"totalDuration"`
}

// Counts summarizes a run's pass/fail totals.
type Counts struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// StoredRun is one persisted run: its header plus every scenario's result.
type StoredRun struct {
	Meta    Meta                 `json:"meta"`
	Results []scenario.RunResult `json:"results"`
}

// Store owns the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("tracestore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite: one writer at a time avoids "database is locked"

	if _, err := db.Exec(createSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracestore: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists run transactionally: either every row is written, or
// none are (§7 "Trace-store I/O failure").
func (s *Store) SaveRun(ctx context.Context, run StoredRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tracestore: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after a successful Commit

	metaJSON, err := json.Marshal(run.Meta)
	if err != nil {
		return fmt.Errorf("tracestore: marshal run meta: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, version, created_at, meta_json) VALUES (?, ?, ?, ?)`,
		run.Meta.ID, run.Meta.Version, run.Meta.CreatedAt, string(metaJSON),
	); err != nil {
		return fmt.Errorf("tracestore: insert run: %w", err)
	}

	for _, r := range run.Results {
		dataJSON, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("tracestore: marshal result %s: %w", r.Scenario, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results (id, run_id, scenario, passed, score, data_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			resultID(run.Meta.ID, r.Scenario), run.Meta.ID, r.Scenario, boolToInt(r.Passed), r.Score, string(dataJSON), run.Meta.CreatedAt,
		); err != nil {
			return fmt.Errorf("tracestore: insert result %s: %w", r.Scenario, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tracestore: commit: %w", err)
	}
	return nil
}

// LoadByVersion returns the most recent run persisted under version, or
// (nil, nil) if none exists.
func (s *Store) LoadByVersion(ctx context.Context, version string) (*StoredRun, error) {
	var runID string
	var metaJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, meta_json FROM runs WHERE version = ? ORDER BY created_at DESC LIMIT 1`,
		version,
	).Scan(&runID, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracestore: query run by version %s: %w", version, err)
	}
	return s.loadRun(ctx, runID, metaJSON)
}

// LoadByID returns the run with the given opaque id, or (nil, nil) if none
// exists.
func (s *Store) LoadByID(ctx context.Context, id string) (*StoredRun, error) {
	var metaJSON string
	err := s.db.QueryRowContext(ctx, `SELECT meta_json FROM runs WHERE id = ?`, id).Scan(&metaJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracestore: query run by id %s: %w", id, err)
	}
	return s.loadRun(ctx, id, metaJSON)
}

func (s *Store) loadRun(ctx context.Context, runID, metaJSON string) (*StoredRun, error) {
	var meta Meta
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return nil, fmt.Errorf("tracestore: decode run meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT data_json FROM results WHERE run_id = ? ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("tracestore: query results for run %s: %w", runID, err)
	}
	defer rows.Close()

	var results []scenario.RunResult
	for rows.Next() {
		var dataJSON string
		if err := rows.Scan(&dataJSON); err != nil {
			return nil, fmt.Errorf("tracestore: scan result row: %w", err)
		}
		var r scenario.RunResult
		if err := json.Unmarshal([]byte(dataJSON), &r); err != nil {
			return nil, fmt.Errorf("tracestore: decode result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &StoredRun{Meta: meta, Results: results}, nil
}

// BuildMeta computes a Meta header from a completed batch of results.
func BuildMeta(id, version string, createdAt time.Time, results []scenario.RunResult) Meta {
	counts := Counts{Total: len(results)}
	var total time.Duration
	for _, r := range results {
		if r.Passed {
			counts.Passed++
		} else {
			counts.Failed++
		}
		total += r.Duration
	}
	return Meta{ID: id, Version: version, CreatedAt: createdAt, Counts: counts, TotalDuration: total}
}

func resultID(runID, scenarioName string) string {
	return runID + ":" + scenarioName
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
