// Package checkpoint provides SQLite-backed persistence for learner
// state. The learner periodically saves its parameter snapshot and
// training metrics here, and restores the newest checkpoint on
// startup so a restarted run resumes instead of starting over.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sfneuman.com/stampede/agent"
)

// Checkpoint is one saved learner state
type Checkpoint struct {
	ID        string
	RunID     string
	Agent     string
	Version   int64
	Frames    int64
	Params    agent.Params
	CreatedAt time.Time
}

// Metric is one recorded training measurement
type Metric struct {
	RunID     string
	Step      int64
	Frames    int64
	Name      string
	Value     float64
	CreatedAt time.Time
}

// Store provides access to the checkpoint database.
type Store struct {
	db *sql.DB
}

// New creates a new Store at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		agent TEXT NOT NULL,
		version INTEGER NOT NULL,
		frames INTEGER NOT NULL,
		params BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metrics (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		frames INTEGER NOT NULL,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoints_run_id
		ON checkpoints(run_id, version);
	CREATE INDEX IF NOT EXISTS idx_metrics_run_id
		ON metrics(run_id, name, step);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveCheckpoint persists a parameter snapshot for a run.
func (s *Store) SaveCheckpoint(runID, agentType string, params agent.Params,
	frames int64) (*Checkpoint, error) {
	blob, err := json.Marshal(params.Marshal())
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	ckpt := &Checkpoint{
		ID:        uuid.New().String(),
		RunID:     runID,
		Agent:     agentType,
		Version:   params.Version,
		Frames:    frames,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.Exec(
		`INSERT INTO checkpoints (id, run_id, agent, version, frames, params, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ckpt.ID, ckpt.RunID, ckpt.Agent, ckpt.Version, ckpt.Frames, blob,
		ckpt.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert checkpoint: %w", err)
	}
	return ckpt, nil
}

// LatestCheckpoint returns the newest checkpoint for a run and agent
// type, or nil if none exists.
func (s *Store) LatestCheckpoint(runID, agentType string) (*Checkpoint,
	error) {
	ckpt := &Checkpoint{}
	var blob []byte

	err := s.db.QueryRow(
		`SELECT id, run_id, agent, version, frames, params, created_at FROM checkpoints WHERE run_id = ? AND agent = ? ORDER BY version DESC LIMIT 1`,
		runID, agentType,
	).Scan(&ckpt.ID, &ckpt.RunID, &ckpt.Agent, &ckpt.Version, &ckpt.Frames,
		&blob, &ckpt.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query checkpoint: %w", err)
	}

	var snap agent.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if ckpt.Params, err = agent.Unmarshal(snap); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return ckpt, nil
}

// LatestForAgent returns the newest checkpoint of an agent type across
// all runs, or nil if none exists. Used to resume training after a
// learner restart, when the new process has a fresh run ID.
func (s *Store) LatestForAgent(agentType string) (*Checkpoint, error) {
	ckpt := &Checkpoint{}
	var blob []byte

	err := s.db.QueryRow(
		`SELECT id, run_id, agent, version, frames, params, created_at FROM checkpoints WHERE agent = ? ORDER BY created_at DESC, version DESC LIMIT 1`,
		agentType,
	).Scan(&ckpt.ID, &ckpt.RunID, &ckpt.Agent, &ckpt.Version, &ckpt.Frames,
		&blob, &ckpt.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query checkpoint: %w", err)
	}

	var snap agent.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if ckpt.Params, err = agent.Unmarshal(snap); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return ckpt, nil
}

// PruneCheckpoints deletes all but the newest keep checkpoints of a
// run, bounding database growth over long runs.
func (s *Store) PruneCheckpoints(runID string, keep int) error {
	if keep < 1 {
		return fmt.Errorf("prune checkpoints: keep must be positive")
	}
	_, err := s.db.Exec(
		`DELETE FROM checkpoints WHERE run_id = ? AND id NOT IN (SELECT id FROM checkpoints WHERE run_id = ? ORDER BY version DESC LIMIT ?)`,
		runID, runID, keep,
	)
	return err
}

// RecordMetric appends one training measurement.
func (s *Store) RecordMetric(runID string, step, frames int64, name string,
	value float64) error {
	_, err := s.db.Exec(
		`INSERT INTO metrics (run_id, step, frames, name, value, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, step, frames, name, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

// Metrics returns all measurements of one metric for a run, in step
// order.
func (s *Store) Metrics(runID, name string) ([]Metric, error) {
	rows, err := s.db.Query(
		`SELECT run_id, step, frames, name, value, created_at FROM metrics WHERE run_id = ? AND name = ? ORDER BY step ASC`,
		runID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.RunID, &m.Step, &m.Frames, &m.Name, &m.Value,
			&m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MetricNames returns the distinct metric names recorded for a run.
func (s *Store) MetricNames(runID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT name FROM metrics WHERE run_id = ? ORDER BY name`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query metric names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan metric name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Runs returns the distinct run IDs present in the database, newest
// first.
func (s *Store) Runs() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT run_id, MAX(created_at) AS newest FROM metrics GROUP BY run_id ORDER BY newest DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		var newest time.Time
		if err := rows.Scan(&id, &newest); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}
