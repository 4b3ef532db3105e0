package store

import (
	"context"
	"errors"
	"testing"
)

type record struct {
	ConstellationID string         `json:"constellation_id"`
	Status          string         `json:"status"`
	Notes           []string       `json:"notes,omitempty"`
	Meta            map[string]any `json:"meta,omitempty"`
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore[*record]()

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := st.GetRun(ctx, "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("upsert and get", func(t *testing.T) {
		if err := st.UpsertRun(ctx, "r1", &record{ConstellationID: "c1", Status: "running"}); err != nil {
			t.Fatalf("UpsertRun failed: %v", err)
		}
		got, err := st.GetRun(ctx, "r1")
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if got.ConstellationID != "c1" || got.Status != "running" {
			t.Errorf("expected (c1, running), got (%s, %s)", got.ConstellationID, got.Status)
		}
	})

	t.Run("stored copy is isolated from the caller", func(t *testing.T) {
		r := &record{Status: "running", Notes: []string{"a"}}
		if err := st.UpsertRun(ctx, "r2", r); err != nil {
			t.Fatalf("UpsertRun failed: %v", err)
		}
		r.Status = "mutated"
		r.Notes[0] = "mutated"

		got, err := st.GetRun(ctx, "r2")
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if got.Status != "running" || got.Notes[0] != "a" {
			t.Errorf("expected stored copy untouched, got %+v", got)
		}

		// Reads are isolated from each other too.
		got.Status = "mutated again"
		again, _ := st.GetRun(ctx, "r2")
		if again.Status != "running" {
			t.Error("mutating one read must not affect the next")
		}
	})

	t.Run("upsert replaces", func(t *testing.T) {
		if err := st.UpsertRun(ctx, "r1", &record{Status: "completed"}); err != nil {
			t.Fatalf("UpsertRun failed: %v", err)
		}
		got, _ := st.GetRun(ctx, "r1")
		if got.Status != "completed" {
			t.Errorf("expected completed, got %s", got.Status)
		}
	})

	t.Run("list most recent first", func(t *testing.T) {
		ids, err := st.ListRuns(ctx)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "r1" || ids[1] != "r2" {
			t.Errorf("expected [r1 r2] by recency, got %v", ids)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := st.DeleteRun(ctx, "r1"); err != nil {
			t.Fatalf("DeleteRun failed: %v", err)
		}
		if _, err := st.GetRun(ctx, "r1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		// Deleting an absent run is not an error.
		if err := st.DeleteRun(ctx, "r1"); err != nil {
			t.Errorf("expected delete of missing run to succeed, got %v", err)
		}
	})
}
