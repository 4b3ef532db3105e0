package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/astrolabs/astro/constellation/model"
)

type fakeCompletionsClient struct {
	text string
	err  error

	gotMessages []model.Message
}

func (f *fakeCompletionsClient) createCompletion(_ context.Context, messages []model.Message) (string, error) {
	f.gotMessages = messages
	return f.text, f.err
}

func TestChatModel_Chat(t *testing.T) {
	t.Run("passes conversation through", func(t *testing.T) {
		fake := &fakeCompletionsClient{text: "completion"}
		m := &ChatModel{modelName: DefaultModel, client: fake}

		out, err := m.Chat(context.Background(), []model.Message{
			{Role: model.RoleSystem, Content: "terse"},
			{Role: model.RoleUser, Content: "question"},
		}, nil)
		if err != nil {
			t.Fatalf("Chat failed: %v", err)
		}
		if out.Text != "completion" {
			t.Errorf("expected completion, got %q", out.Text)
		}
		if len(fake.gotMessages) != 2 {
			t.Errorf("expected all roles forwarded, got %d messages", len(fake.gotMessages))
		}
	})

	t.Run("propagates client errors", func(t *testing.T) {
		m := &ChatModel{client: &fakeCompletionsClient{err: errors.New("bad gateway")}}
		if _, err := m.Chat(context.Background(), nil, nil); err == nil {
			t.Error("expected error propagated")
		}
	})

	t.Run("honors cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := &ChatModel{client: &fakeCompletionsClient{text: "never"}}
		if _, err := m.Chat(ctx, nil, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestNewChatModel_Defaults(t *testing.T) {
	if m := NewChatModel("key", ""); m.modelName != DefaultModel {
		t.Errorf("expected default model, got %q", m.modelName)
	}
	if m := NewChatModel("key", "gpt-4o-mini"); m.modelName != "gpt-4o-mini" {
		t.Errorf("expected explicit model preserved, got %q", m.modelName)
	}
}
