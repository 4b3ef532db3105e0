package google

import (
	"context"
	"errors"
	"testing"

	"github.com/astrolabs/astro/constellation/model"
)

type fakeGenerateClient struct {
	text string
	err  error

	gotSystem string
	gotPrompt string
}

func (f *fakeGenerateClient) generate(_ context.Context, systemPrompt, prompt string) (string, error) {
	f.gotSystem = systemPrompt
	f.gotPrompt = prompt
	return f.text, f.err
}

func TestChatModel_Chat(t *testing.T) {
	t.Run("flattens conversation", func(t *testing.T) {
		fake := &fakeGenerateClient{text: "answer"}
		m := &ChatModel{modelName: DefaultModel, client: fake}

		out, err := m.Chat(context.Background(), []model.Message{
			{Role: model.RoleSystem, Content: "be helpful"},
			{Role: model.RoleUser, Content: "first question"},
			{Role: model.RoleAssistant, Content: "first answer"},
			{Role: model.RoleUser, Content: "follow up"},
		}, nil)
		if err != nil {
			t.Fatalf("Chat failed: %v", err)
		}
		if out.Text != "answer" {
			t.Errorf("expected answer, got %q", out.Text)
		}
		if fake.gotSystem != "be helpful" {
			t.Errorf("expected system instruction, got %q", fake.gotSystem)
		}
		want := "first question\n\nAssistant: first answer\n\nfollow up"
		if fake.gotPrompt != want {
			t.Errorf("expected prompt %q, got %q", want, fake.gotPrompt)
		}
	})

	t.Run("propagates client errors", func(t *testing.T) {
		m := &ChatModel{client: &fakeGenerateClient{err: errors.New("quota exceeded")}}
		if _, err := m.Chat(context.Background(), nil, nil); err == nil {
			t.Error("expected error propagated")
		}
	})
}

func TestFlattenConversation(t *testing.T) {
	t.Run("multiple system messages join", func(t *testing.T) {
		system, prompt := flattenConversation([]model.Message{
			{Role: model.RoleSystem, Content: "a"},
			{Role: model.RoleSystem, Content: "b"},
			{Role: model.RoleUser, Content: "q"},
		})
		if system != "a\n\nb" {
			t.Errorf("expected a\\n\\nb, got %q", system)
		}
		if prompt != "q" {
			t.Errorf("expected q, got %q", prompt)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		system, prompt := flattenConversation(nil)
		if system != "" || prompt != "" {
			t.Errorf("expected empty strings, got %q %q", system, prompt)
		}
	})
}

func TestNewChatModel_Defaults(t *testing.T) {
	if m := NewChatModel("key", ""); m.modelName != DefaultModel {
		t.Errorf("expected default model, got %q", m.modelName)
	}
}
