package probe

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&MockProbe{ProbeName: "search", Desc: "search the web"})
		p, ok := r.Get("search")
		if !ok || p.Name() != "search" {
			t.Fatalf("expected registered probe, got %v (%v)", p, ok)
		}
		if _, ok := r.Get("missing"); ok {
			t.Error("expected missing probe to be absent")
		}
	})

	t.Run("register replaces", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&MockProbe{ProbeName: "search", Desc: "old"})
		r.Register(&MockProbe{ProbeName: "search", Desc: "new"})
		p, _ := r.Get("search")
		if p.Description() != "new" {
			t.Errorf("expected replacement, got %q", p.Description())
		}
		if len(r.Names()) != 1 {
			t.Errorf("expected 1 name, got %v", r.Names())
		}
	})

	t.Run("call dispatches with input", func(t *testing.T) {
		r := NewRegistry()
		mock := &MockProbe{ProbeName: "search", Result: map[string]any{"hits": 3}}
		r.Register(mock)
		out, err := r.Call(ctx, "search", map[string]any{"q": "golang"})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if out["hits"] != 3 {
			t.Errorf("expected hits=3, got %v", out)
		}
		calls := mock.Calls()
		if len(calls) != 1 || calls[0]["q"] != "golang" {
			t.Errorf("expected input recorded, got %v", calls)
		}
	})

	t.Run("call unknown probe fails", func(t *testing.T) {
		_, err := NewRegistry().Call(ctx, "ghost", nil)
		if err == nil || !strings.Contains(err.Error(), "probe not registered: ghost") {
			t.Errorf("expected not-registered error, got %v", err)
		}
	})

	t.Run("probe errors propagate", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&MockProbe{ProbeName: "flaky", Err: errors.New("backend down")})
		if _, err := r.Call(ctx, "flaky", nil); err == nil {
			t.Error("expected probe error propagated")
		}
	})
}
