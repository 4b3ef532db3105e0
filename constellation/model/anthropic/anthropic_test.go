package anthropic

import (
	"context"
	"errors"
	"testing"

	"github.com/astrolabs/astro/constellation/model"
)

type fakeMessagesClient struct {
	text string
	err  error

	gotSystem   string
	gotMessages []model.Message
}

func (f *fakeMessagesClient) createMessage(_ context.Context, systemPrompt string, messages []model.Message) (string, error) {
	f.gotSystem = systemPrompt
	f.gotMessages = messages
	return f.text, f.err
}

func TestChatModel_Chat(t *testing.T) {
	t.Run("separates system prompt from conversation", func(t *testing.T) {
		fake := &fakeMessagesClient{text: "response"}
		m := &ChatModel{modelName: DefaultModel, client: fake}

		out, err := m.Chat(context.Background(), []model.Message{
			{Role: model.RoleSystem, Content: "you are terse"},
			{Role: model.RoleUser, Content: "question"},
			{Role: model.RoleAssistant, Content: "partial"},
		}, nil)
		if err != nil {
			t.Fatalf("Chat failed: %v", err)
		}
		if out.Text != "response" {
			t.Errorf("expected response, got %q", out.Text)
		}
		if fake.gotSystem != "you are terse" {
			t.Errorf("expected system prompt extracted, got %q", fake.gotSystem)
		}
		if len(fake.gotMessages) != 2 {
			t.Errorf("expected system message removed from conversation, got %d messages", len(fake.gotMessages))
		}
	})

	t.Run("propagates client errors", func(t *testing.T) {
		m := &ChatModel{client: &fakeMessagesClient{err: errors.New("overloaded")}}
		if _, err := m.Chat(context.Background(), nil, nil); err == nil {
			t.Error("expected error propagated")
		}
	})

	t.Run("honors cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := &ChatModel{client: &fakeMessagesClient{text: "never"}}
		if _, err := m.Chat(ctx, nil, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestExtractSystemPrompt(t *testing.T) {
	t.Run("joins multiple system messages", func(t *testing.T) {
		system, convo := extractSystemPrompt([]model.Message{
			{Role: model.RoleSystem, Content: "first"},
			{Role: model.RoleUser, Content: "hi"},
			{Role: model.RoleSystem, Content: "second"},
		})
		if system != "first\n\nsecond" {
			t.Errorf("expected joined system prompt, got %q", system)
		}
		if len(convo) != 1 || convo[0].Content != "hi" {
			t.Errorf("expected conversation [hi], got %v", convo)
		}
	})

	t.Run("no system messages", func(t *testing.T) {
		system, convo := extractSystemPrompt([]model.Message{
			{Role: model.RoleUser, Content: "hi"},
		})
		if system != "" || len(convo) != 1 {
			t.Errorf("expected empty system, got %q with %d messages", system, len(convo))
		}
	})
}

func TestNewChatModel_Defaults(t *testing.T) {
	m := NewChatModel("key", "")
	if m.modelName != DefaultModel {
		t.Errorf("expected default model, got %q", m.modelName)
	}
	m = NewChatModel("key", "claude-opus-4-20250514")
	if m.modelName != "claude-opus-4-20250514" {
		t.Errorf("expected explicit model preserved, got %q", m.modelName)
	}
}
