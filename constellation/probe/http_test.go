package probe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("X-Custom", "yes")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("get response"))
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("echo:" + string(body)))
		}
	}))
	defer srv.Close()

	p := NewHTTPProbe()
	ctx := context.Background()

	t.Run("GET by default", func(t *testing.T) {
		out, err := p.Call(ctx, map[string]any{"url": srv.URL})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if out["status_code"] != http.StatusOK {
			t.Errorf("expected 200, got %v", out["status_code"])
		}
		if out["body"] != "get response" {
			t.Errorf("expected body, got %v", out["body"])
		}
		headers, ok := out["headers"].(map[string]any)
		if !ok || headers["X-Custom"] != "yes" {
			t.Errorf("expected X-Custom header, got %v", out["headers"])
		}
	})

	t.Run("POST with body", func(t *testing.T) {
		out, err := p.Call(ctx, map[string]any{
			"url":     srv.URL,
			"method":  "post",
			"body":    "payload",
			"headers": map[string]any{"Content-Type": "text/plain"},
		})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if out["status_code"] != http.StatusCreated {
			t.Errorf("expected 201, got %v", out["status_code"])
		}
		if out["body"] != "echo:payload" {
			t.Errorf("expected echoed body, got %v", out["body"])
		}
	})

	t.Run("missing url", func(t *testing.T) {
		if _, err := p.Call(ctx, map[string]any{}); err == nil {
			t.Error("expected error for missing url")
		}
	})

	t.Run("unsupported method", func(t *testing.T) {
		_, err := p.Call(ctx, map[string]any{"url": srv.URL, "method": "DELETE"})
		if err == nil || !strings.Contains(err.Error(), "unsupported HTTP method") {
			t.Errorf("expected unsupported-method error, got %v", err)
		}
	})

	t.Run("name and description", func(t *testing.T) {
		if p.Name() != "http_request" {
			t.Errorf("expected http_request, got %q", p.Name())
		}
		if p.Description() == "" {
			t.Error("expected non-empty description")
		}
	})
}
