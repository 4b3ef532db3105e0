package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Store[R].
//
// Designed for testing and single-process deployments where persistence
// across restarts is not required. Thread-safe.
//
// Records are isolated by a JSON round-trip on both write and read, so a
// caller mutating a run after upsert cannot corrupt the stored copy. This
// also makes MemStore honest about serializability: anything that would
// fail against SQLite or MySQL fails here too.
type MemStore[R any] struct {
	mu   sync.RWMutex
	runs map[string]memRecord
	seq  int64
}

type memRecord struct {
	data []byte
	seq  int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore[R any]() *MemStore[R] {
	return &MemStore[R]{runs: make(map[string]memRecord)}
}

// UpsertRun stores a serialized copy of the record.
func (m *MemStore[R]) UpsertRun(_ context.Context, runID string, run R) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("serialize run %s: %w", runID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.runs[runID] = memRecord{data: data, seq: m.seq}
	return nil
}

// GetRun returns a fresh copy of the stored record.
func (m *MemStore[R]) GetRun(_ context.Context, runID string) (R, error) {
	m.mu.RLock()
	rec, ok := m.runs[runID]
	m.mu.RUnlock()

	var run R
	if !ok {
		return run, ErrNotFound
	}
	if err := json.Unmarshal(rec.data, &run); err != nil {
		return run, fmt.Errorf("deserialize run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns run IDs ordered by most recent upsert.
func (m *MemStore[R]) ListRuns(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.runs[ids[i]].seq > m.runs[ids[j]].seq
	})
	return ids, nil
}

// DeleteRun removes the record if present.
func (m *MemStore[R]) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	return nil
}
