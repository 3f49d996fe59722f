// Package sqlite is the SQLite-backed Store.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/actlearn/pkg/actlearn/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and the schema
// initialised.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	domain TEXT NOT NULL,
	seed INTEGER NOT NULL,
	started_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
	run_id TEXT NOT NULL,
	step INTEGER NOT NULL,
	counter_examples INTEGER NOT NULL,
	specificity REAL NOT NULL,
	revision_prob REAL NOT NULL,
	revised INTEGER NOT NULL,
	var_dist REAL NOT NULL,
	rule_dist REAL NOT NULL,
	plan_dist REAL NOT NULL,
	PRIMARY KEY(run_id, step),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS rule_snapshots (
	run_id TEXT NOT NULL,
	step INTEGER NOT NULL,
	rules TEXT NOT NULL,
	PRIMARY KEY(run_id, step),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// CreateRun records a run.
func (s *sqliteStore) CreateRun(ctx context.Context, r store.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, domain, seed, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Domain, r.Seed, r.StartedAt.UTC().Format(time.RFC3339))
	return err
}

// GetRun looks a run up.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, seed, started_at FROM runs WHERE id = ?`, id)

	var r store.Run
	var startedAt string
	if err := row.Scan(&r.ID, &r.Domain, &r.Seed, &startedAt); err != nil {
		if err == sql.ErrNoRows {
			return store.Run{}, false, nil
		}
		return store.Run{}, false, err
	}
	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return store.Run{}, false, err
	}
	r.StartedAt = t
	return r, true, nil
}

// ListRuns returns every run ordered by start time.
func (s *sqliteStore) ListRuns(ctx context.Context) ([]store.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain, seed, started_at FROM runs ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		var r store.Run
		var startedAt string
		if err := rows.Scan(&r.ID, &r.Domain, &r.Seed, &startedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, err
		}
		r.StartedAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendStep records one step of a run.
func (s *sqliteStore) AppendStep(ctx context.Context, st store.StepStats) error {
	revised := 0
	if st.Revised {
		revised = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO steps
		 (run_id, step, counter_examples, specificity, revision_prob, revised, var_dist, rule_dist, plan_dist)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.RunID, st.Step, st.CounterExamples, st.Specificity, st.RevisionProb, revised,
		st.VarDist, st.RuleDist, st.PlanDist)
	return err
}

// StepsForRun returns the steps of a run in order.
func (s *sqliteStore) StepsForRun(ctx context.Context, runID string) ([]store.StepStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, step, counter_examples, specificity, revision_prob, revised, var_dist, rule_dist, plan_dist
		 FROM steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.StepStats
	for rows.Next() {
		var st store.StepStats
		var revised int
		if err := rows.Scan(&st.RunID, &st.Step, &st.CounterExamples, &st.Specificity,
			&st.RevisionProb, &revised, &st.VarDist, &st.RuleDist, &st.PlanDist); err != nil {
			return nil, err
		}
		st.Revised = revised != 0
		out = append(out, st)
	}
	return out, rows.Err()
}

// SaveSnapshot records a rule-set snapshot.
func (s *sqliteStore) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rule_snapshots (run_id, step, rules) VALUES (?, ?, ?)`,
		snap.RunID, snap.Step, snap.Rules)
	return err
}

// SnapshotsForRun returns the snapshots of a run in step order.
func (s *sqliteStore) SnapshotsForRun(ctx context.Context, runID string) ([]store.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, step, rules FROM rule_snapshots WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Snapshot
	for rows.Next() {
		var snap store.Snapshot
		if err := rows.Scan(&snap.RunID, &snap.Step, &snap.Rules); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
