// Package store provides persistence backends for constellation runs.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested run ID does not exist.
var ErrNotFound = errors.New("not found")

// Store persists run records keyed by run ID.
//
// It supports:
//   - Checkpoint persistence during execution (upsert is idempotent)
//   - Run retrieval for resume, cancel, and status queries
//   - Listing for operational tooling
//
// Implementations include in-memory (testing, see memory.go), SQLite
// (single-process deployments, see sqlite.go), and MySQL (shared
// deployments, see mysql.go).
//
// Type parameter R is the run record type; it must be JSON-serializable.
// The generic parameter keeps this package free of a dependency on the
// engine's types.
type Store[R any] interface {
	// UpsertRun inserts the record or overwrites the existing one. The
	// engine calls this on every checkpoint, so repeated upserts of the
	// same run ID are the common case.
	UpsertRun(ctx context.Context, runID string, run R) error

	// GetRun retrieves a record by run ID. Returns ErrNotFound when the
	// run does not exist.
	GetRun(ctx context.Context, runID string) (R, error)

	// ListRuns returns the IDs of all persisted runs, most recently
	// updated first.
	ListRuns(ctx context.Context) ([]string, error)

	// DeleteRun removes a record. Deleting an unknown run ID is a no-op.
	DeleteRun(ctx context.Context, runID string) error
}
