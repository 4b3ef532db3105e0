package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newSQLiteStore(t *testing.T) *SQLiteStore[*record] {
	t.Helper()
	st, err := NewSQLiteStore[*record](filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := st.GetRun(ctx, "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("upsert and get round-trips", func(t *testing.T) {
		in := &record{
			ConstellationID: "c1",
			Status:          "running",
			Notes:           []string{"first", "second"},
			Meta:            map[string]any{"key": "value"},
		}
		if err := st.UpsertRun(ctx, "r1", in); err != nil {
			t.Fatalf("UpsertRun failed: %v", err)
		}
		got, err := st.GetRun(ctx, "r1")
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if got.ConstellationID != "c1" || got.Status != "running" {
			t.Errorf("expected (c1, running), got (%s, %s)", got.ConstellationID, got.Status)
		}
		if len(got.Notes) != 2 || got.Notes[1] != "second" {
			t.Errorf("expected notes to round-trip, got %v", got.Notes)
		}
		if got.Meta["key"] != "value" {
			t.Errorf("expected meta to round-trip, got %v", got.Meta)
		}
	})

	t.Run("upsert replaces existing", func(t *testing.T) {
		if err := st.UpsertRun(ctx, "r1", &record{ConstellationID: "c1", Status: "completed"}); err != nil {
			t.Fatalf("UpsertRun failed: %v", err)
		}
		got, _ := st.GetRun(ctx, "r1")
		if got.Status != "completed" {
			t.Errorf("expected completed, got %s", got.Status)
		}
	})

	t.Run("list returns all runs", func(t *testing.T) {
		if err := st.UpsertRun(ctx, "r2", &record{Status: "running"}); err != nil {
			t.Fatalf("UpsertRun failed: %v", err)
		}
		ids, err := st.ListRuns(ctx)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		found := map[string]bool{}
		for _, id := range ids {
			found[id] = true
		}
		if len(ids) != 2 || !found["r1"] || !found["r2"] {
			t.Errorf("expected [r1 r2], got %v", ids)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := st.DeleteRun(ctx, "r1"); err != nil {
			t.Fatalf("DeleteRun failed: %v", err)
		}
		if _, err := st.GetRun(ctx, "r1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := st.DeleteRun(ctx, "r1"); err != nil {
			t.Errorf("expected delete of missing run to succeed, got %v", err)
		}
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	st, err := NewSQLiteStore[*record](path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := st.UpsertRun(ctx, "r1", &record{ConstellationID: "c1", Status: "completed"}); err != nil {
		t.Fatalf("UpsertRun failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore[*record](path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, err := reopened.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun after reopen failed: %v", err)
	}
	if got.Status != "completed" {
		t.Errorf("expected completed, got %s", got.Status)
	}
}

func TestSQLiteStore_Closed(t *testing.T) {
	st := newSQLiteStore(t)
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Repeat close is a no-op.
	if err := st.Close(); err != nil {
		t.Errorf("second Close must succeed, got %v", err)
	}
	if err := st.UpsertRun(context.Background(), "r1", &record{}); err == nil {
		t.Error("expected error after close")
	}
	if _, err := st.GetRun(context.Background(), "r1"); err == nil {
		t.Error("expected error after close")
	}
}
