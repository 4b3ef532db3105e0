// Package google implements model.ChatModel against the Gemini API.
package google

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/astrolabs/astro/constellation/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gemini-1.5-pro"

// ChatModel calls the Gemini API.
//
// The genai client is bound to a context at construction, so a fresh client
// is opened per call and closed before returning. Gemini has no assistant
// role in single-shot generation; prior turns are folded into one prompt.
type ChatModel struct {
	modelName string
	client    generateClient
}

type generateClient interface {
	generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// NewChatModel creates a Gemini-backed ChatModel. An empty modelName selects
// DefaultModel.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &ChatModel{
		modelName: modelName,
		client:    &sdkClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements model.ChatModel. Tool specs are accepted for interface
// compatibility but not forwarded; probe orchestration happens in the star
// layer.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, _ []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}
	systemPrompt, prompt := flattenConversation(messages)
	text, err := m.client.generate(ctx, systemPrompt, prompt)
	if err != nil {
		return model.ChatOut{}, err
	}
	return model.ChatOut{Text: text}, nil
}

// flattenConversation folds the conversation into a system instruction plus
// a single prompt, labeling prior assistant turns.
func flattenConversation(messages []model.Message) (systemPrompt, prompt string) {
	var system, convo []string
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)
		case model.RoleAssistant:
			convo = append(convo, "Assistant: "+msg.Content)
		default:
			convo = append(convo, msg.Content)
		}
	}
	return strings.Join(system, "\n\n"), strings.Join(convo, "\n\n")
}

type sdkClient struct {
	apiKey    string
	modelName string
}

func (c *sdkClient) generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("google API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Close() }()

	gm := client.GenerativeModel(c.modelName)
	if systemPrompt != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	if text.Len() == 0 {
		return "", errors.New("gemini returned no text candidates")
	}
	return text.String(), nil
}
