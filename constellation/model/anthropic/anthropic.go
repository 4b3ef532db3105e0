// Package anthropic implements model.ChatModel against the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/astrolabs/astro/constellation/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "claude-sonnet-4-20250514"

const defaultMaxTokens = 4096

// ChatModel calls the Anthropic Messages API.
//
// Anthropic takes the system prompt as a dedicated request field rather than
// a conversation turn, so system messages are extracted and concatenated
// before the call.
type ChatModel struct {
	modelName string
	client    messagesClient
}

// messagesClient is the seam for tests; the default implementation wraps the
// official SDK.
type messagesClient interface {
	createMessage(ctx context.Context, systemPrompt string, messages []model.Message) (string, error)
}

// NewChatModel creates an Anthropic-backed ChatModel. An empty modelName
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
	systemPrompt, conversation := extractSystemPrompt(messages)
	text, err := m.client.createMessage(ctx, systemPrompt, conversation)
	if err != nil {
		return model.ChatOut{}, err
	}
	return model.ChatOut{Text: text}, nil
}

// extractSystemPrompt splits system messages out of the conversation,
// joining multiple system messages with blank lines.
func extractSystemPrompt(messages []model.Message) (string, []model.Message) {
	var systemPrompt string
	var conversation []model.Message
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
			continue
		}
		conversation = append(conversation, msg)
	}
	return systemPrompt, conversation
}

type sdkClient struct {
	apiKey    string
	modelName string
}

func (c *sdkClient) createMessage(ctx context.Context, systemPrompt string, messages []model.Message) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("anthropic API key is required")
	}
	client := sdk.NewClient(option.WithAPIKey(c.apiKey))

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.modelName),
		MaxTokens: defaultMaxTokens,
		Messages:  convertMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func convertMessages(messages []model.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(sdk.NewTextBlock(msg.Content)))
		default:
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		}
	}
	return out
}
