package star

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/astrolabs/astro/constellation"
	"github.com/astrolabs/astro/constellation/model"
	"github.com/astrolabs/astro/constellation/probe"
)

func starContext(t *testing.T, vars map[string]any) *constellation.Context {
	t.Helper()
	c := &constellation.Constellation{
		ID:          "c",
		Description: "research pipeline",
		Start:       constellation.StartNode("start"),
		End:         constellation.EndNode("end"),
	}
	return constellation.NewContext("run_1", c, vars, "the user query", nil)
}

func TestWorker_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("plain response without probes", func(t *testing.T) {
		chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "the answer"}}}
		w := NewWorker(chat, &constellation.Directive{ID: "d", Content: "do the thing"}, nil)

		out, err := w.Execute(ctx, starContext(t, nil))
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		wo, ok := out.(constellation.WorkerOutput)
		if !ok {
			t.Fatalf("expected WorkerOutput, got %T", out)
		}
		if wo.Result != "the answer" || len(wo.ToolCalls) != 0 {
			t.Errorf("expected plain answer, got %+v", wo)
		}
		if chat.CallCount() != 1 {
			t.Errorf("expected single model call, got %d", chat.CallCount())
		}
	})

	t.Run("probe round then final answer", func(t *testing.T) {
		registry := probe.NewRegistry()
		mock := &probe.MockProbe{
			ProbeName: "lookup",
			Desc:      "look things up",
			Result:    map[string]any{"value": "42"},
		}
		registry.Register(mock)

		chat := &model.MockChatModel{Responses: []model.ChatOut{
			{Text: "let me check", ToolCalls: []model.ToolCall{
				{Name: "lookup", Input: map[string]any{"key": "answer"}},
			}},
			{Text: "the value is 42"},
		}}
		d := &constellation.Directive{ID: "d", Content: "find it", ProbeIDs: []string{"lookup"}}
		w := NewWorker(chat, d, registry)

		out, err := w.Execute(ctx, starContext(t, nil))
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		wo := out.(constellation.WorkerOutput)
		if wo.Result != "the value is 42" {
			t.Errorf("expected final answer, got %q", wo.Result)
		}
		if len(wo.ToolCalls) != 1 || wo.ToolCalls[0].Name != "lookup" {
			t.Fatalf("expected one recorded tool call, got %v", wo.ToolCalls)
		}
		if !strings.Contains(wo.ToolCalls[0].Result, `"value":"42"`) {
			t.Errorf("expected JSON-encoded probe result, got %q", wo.ToolCalls[0].Result)
		}

		// First call carries the tool specs, the follow-up carries results.
		if chat.CallCount() != 2 {
			t.Fatalf("expected 2 model calls, got %d", chat.CallCount())
		}
		if len(chat.Calls[0].Tools) != 1 || chat.Calls[0].Tools[0].Name != "lookup" {
			t.Errorf("expected tool spec on first call, got %v", chat.Calls[0].Tools)
		}
		last := chat.Calls[1].Messages
		if !strings.Contains(last[len(last)-1].Content, "Tool results:") {
			t.Errorf("expected tool results appended, got %q", last[len(last)-1].Content)
		}
		if calls := mock.Calls(); len(calls) != 1 || calls[0]["key"] != "answer" {
			t.Errorf("expected probe invoked with model input, got %v", calls)
		}
	})

	t.Run("probe failure fails the star", func(t *testing.T) {
		registry := probe.NewRegistry()
		registry.Register(&probe.MockProbe{ProbeName: "broken", Err: errors.New("backend down")})
		chat := &model.MockChatModel{Responses: []model.ChatOut{
			{ToolCalls: []model.ToolCall{{Name: "broken"}}},
		}}
		w := NewWorker(chat, &constellation.Directive{ID: "d"}, registry)

		_, err := w.Execute(ctx, starContext(t, nil))
		if err == nil || !strings.Contains(err.Error(), "probe broken") {
			t.Errorf("expected probe failure, got %v", err)
		}
	})

	t.Run("tool calls without a registry fail", func(t *testing.T) {
		chat := &model.MockChatModel{Responses: []model.ChatOut{
			{ToolCalls: []model.ToolCall{{Name: "anything"}}},
		}}
		w := NewWorker(chat, &constellation.Directive{ID: "d"}, nil)
		if _, err := w.Execute(ctx, starContext(t, nil)); err == nil {
			t.Error("expected error when model requests probes with no registry")
		}
	})

	t.Run("model error propagates", func(t *testing.T) {
		chat := &model.MockChatModel{Err: errors.New("overloaded")}
		w := NewWorker(chat, nil, nil)
		if _, err := w.Execute(ctx, starContext(t, nil)); err == nil {
			t.Error("expected model error propagated")
		}
	})
}

func TestWorker_Identity(t *testing.T) {
	w := NewWorker(&model.MockChatModel{}, &constellation.Directive{ID: "d1"}, nil)
	if w.Type() != constellation.StarTypeWorker {
		t.Errorf("expected worker type, got %s", w.Type())
	}
	if w.DirectiveID() != "d1" {
		t.Errorf("expected directive d1, got %q", w.DirectiveID())
	}
	if NewWorker(&model.MockChatModel{}, nil, nil).DirectiveID() != "" {
		t.Error("expected empty directive ID for nil directive")
	}
}
