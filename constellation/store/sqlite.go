package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[R].
//
// It keeps runs in a single-file database, suited for:
//   - Development and testing with zero setup
//   - Single-process deployments that need runs to survive restarts
//   - Prototyping before moving to MySQL
//
// The store auto-migrates its schema on open and enables WAL mode so
// status queries do not block checkpoint writes.
//
// Schema: constellation_runs(run_id PRIMARY KEY, constellation_id, status,
// data JSON, created_at, updated_at).
type SQLiteStore[R any] struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
	path   string
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed store at
// path. Use ":memory:" for an ephemeral database.
func NewSQLiteStore[R any](path string) (*SQLiteStore[R], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore[R]{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore[R]) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS constellation_runs (
			run_id TEXT PRIMARY KEY,
			constellation_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create constellation_runs table: %w", err)
	}
	index := `CREATE INDEX IF NOT EXISTS idx_runs_status ON constellation_runs(status)`
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("create status index: %w", err)
	}
	return nil
}

// UpsertRun inserts or replaces the run record.
func (s *SQLiteStore[R]) UpsertRun(ctx context.Context, runID string, run R) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("serialize run %s: %w", runID, err)
	}
	constellationID, status := recordSummary(data)
	query := `
		INSERT INTO constellation_runs (run_id, constellation_id, status, data, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(run_id) DO UPDATE SET
			constellation_id = excluded.constellation_id,
			status = excluded.status,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, runID, constellationID, status, string(data)); err != nil {
		return fmt.Errorf("upsert run %s: %w", runID, err)
	}
	return nil
}

// GetRun retrieves a run record by ID.
func (s *SQLiteStore[R]) GetRun(ctx context.Context, runID string) (R, error) {
	var run R
	if err := s.checkOpen(); err != nil {
		return run, err
	}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM constellation_runs WHERE run_id = ?`, runID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	if err != nil {
		return run, fmt.Errorf("query run %s: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return run, fmt.Errorf("deserialize run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns run IDs, most recently updated first.
func (s *SQLiteStore[R]) ListRuns(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM constellation_runs ORDER BY updated_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return ids, nil
}

// DeleteRun removes the run record if present.
func (s *SQLiteStore[R]) DeleteRun(ctx context.Context, runID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM constellation_runs WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// Close releases the database connection. Further calls return an error.
func (s *SQLiteStore[R]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore[R]) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// recordSummary pulls the indexed columns out of the serialized record so
// the store can filter without deserializing full runs. Missing fields
// yield empty strings, which is fine for non-run record types.
func recordSummary(data []byte) (constellationID, status string) {
	var summary struct {
		ConstellationID string `json:"constellation_id"`
		Status          string `json:"status"`
	}
	_ = json.Unmarshal(data, &summary)
	return summary.ConstellationID, summary.Status
}
