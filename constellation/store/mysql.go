package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[R].
//
// Designed for:
//   - Production deployments requiring durable runs
//   - Multiple runner processes sharing one run store
//   - Audit trails over completed runs
//
// Uses connection pooling; upserts go through ON DUPLICATE KEY UPDATE so
// checkpointing is a single round trip.
//
// Never hardcode credentials; read the DSN from the environment:
//
//	dsn := os.Getenv("MYSQL_DSN")
//	st, err := store.NewMySQLStore[*constellation.Run](dsn)
type MySQLStore[R any] struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLStore opens a MySQL-backed store and migrates its schema.
//
// DSN format: user:password@tcp(host:3306)/dbname?parseTime=true
func NewMySQLStore[R any](dsn string) (*MySQLStore[R], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	s := &MySQLStore[R]{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore[R]) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS constellation_runs (
			run_id VARCHAR(255) PRIMARY KEY,
			constellation_id VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(64) NOT NULL DEFAULT '',
			data JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_runs_status (status),
			INDEX idx_runs_constellation (constellation_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create constellation_runs table: %w", err)
	}
	return nil
}

// UpsertRun inserts or replaces the run record.
func (s *MySQLStore[R]) UpsertRun(ctx context.Context, runID string, run R) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("serialize run %s: %w", runID, err)
	}
	constellationID, status := recordSummary(data)
	query := `
		INSERT INTO constellation_runs (run_id, constellation_id, status, data)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			constellation_id = VALUES(constellation_id),
			status = VALUES(status),
			data = VALUES(data)
	`
	if _, err := s.db.ExecContext(ctx, query, runID, constellationID, status, string(data)); err != nil {
		return fmt.Errorf("upsert run %s: %w", runID, err)
	}
	return nil
}

// GetRun retrieves a run record by ID.
func (s *MySQLStore[R]) GetRun(ctx context.Context, runID string) (R, error) {
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
func (s *MySQLStore[R]) ListRuns(ctx context.Context) ([]string, error) {
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
func (s *MySQLStore[R]) DeleteRun(ctx context.Context, runID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM constellation_runs WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *MySQLStore[R]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *MySQLStore[R]) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
