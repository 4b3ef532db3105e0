// Package openai implements model.ChatModel against the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"errors"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/astrolabs/astro/constellation/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gpt-4o"

// ChatModel calls the OpenAI Chat Completions API. The official SDK retries
// transient errors itself, so no extra retry layer is added here.
type ChatModel struct {
	modelName string
	client    completionsClient
}

type completionsClient interface {
	createCompletion(ctx context.Context, messages []model.Message) (string, error)
}

// NewChatModel creates an OpenAI-backed ChatModel. An empty modelName
// selects DefaultModel.
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
	text, err := m.client.createCompletion(ctx, messages)
	if err != nil {
		return model.ChatOut{}, err
	}
	return model.ChatOut{Text: text}, nil
}

type sdkClient struct {
	apiKey    string
	modelName string
}

func (c *sdkClient) createCompletion(ctx context.Context, messages []model.Message) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("openai API key is required")
	}
	client := sdk.NewClient(option.WithAPIKey(c.apiKey))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.modelName),
		Messages: convertMessages(messages),
	}
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func convertMessages(messages []model.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, sdk.SystemMessage(msg.Content))
		case model.RoleAssistant:
			out = append(out, sdk.AssistantMessage(msg.Content))
		default:
			out = append(out, sdk.UserMessage(msg.Content))
		}
	}
	return out
}
