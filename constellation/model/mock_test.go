package model

import (
	"context"
	"errors"
	"testing"
)

func TestMockChatModel(t *testing.T) {
	ctx := context.Background()

	t.Run("sequential responses, last repeats", func(t *testing.T) {
		m := &MockChatModel{Responses: []ChatOut{{Text: "first"}, {Text: "second"}}}
		for i, want := range []string{"first", "second", "second"} {
			out, err := m.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}}, nil)
			if err != nil {
				t.Fatalf("call %d failed: %v", i, err)
			}
			if out.Text != want {
				t.Errorf("call %d: expected %q, got %q", i, want, out.Text)
			}
		}
		if m.CallCount() != 3 {
			t.Errorf("expected 3 calls recorded, got %d", m.CallCount())
		}
	})

	t.Run("error injection", func(t *testing.T) {
		m := &MockChatModel{Err: errors.New("rate limited")}
		if _, err := m.Chat(ctx, nil, nil); err == nil || err.Error() != "rate limited" {
			t.Errorf("expected injected error, got %v", err)
		}
	})

	t.Run("records messages and tools", func(t *testing.T) {
		m := &MockChatModel{}
		msgs := []Message{{Role: RoleSystem, Content: "be terse"}}
		tools := []ToolSpec{{Name: "http_request"}}
		if _, err := m.Chat(ctx, msgs, tools); err != nil {
			t.Fatalf("Chat failed: %v", err)
		}
		if len(m.Calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(m.Calls))
		}
		if m.Calls[0].Messages[0].Content != "be terse" || m.Calls[0].Tools[0].Name != "http_request" {
			t.Errorf("expected call recorded, got %+v", m.Calls[0])
		}
	})

	t.Run("honors cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		m := &MockChatModel{Responses: []ChatOut{{Text: "never"}}}
		if _, err := m.Chat(cancelled, nil, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if m.CallCount() != 0 {
			t.Error("cancelled call must not be recorded")
		}
	})
}
