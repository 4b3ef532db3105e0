// Package model provides LLM chat adapters for star implementations.
package model

import "context"

// ChatModel abstracts an LLM chat provider (OpenAI, Anthropic, Google,
// local models) behind one call.
//
// Implementations handle provider authentication, convert Message values to
// the provider's wire format, and respect context cancellation. Tool
// orchestration is the caller's concern: providers surface the model's tool
// requests in ChatOut.ToolCalls but never execute anything.
//
// Example:
//
//	m := anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), "")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleSystem, Content: "You are a financial analyst."},
//	    {Role: model.RoleUser, Content: "Summarize Tesla's latest 10-K."},
//	}, nil)
type ChatModel interface {
	// Chat sends the conversation and optional tool specs, returning the
	// model's text and any tool calls it requested.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn of an LLM conversation.
type Message struct {
	// Role is one of the Role* constants.
	Role string

	// Content is the message text.
	Content string
}

// Standard conversation roles, matching the conventions of the major
// providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the model may request. Schema follows JSON
// Schema and describes the tool's input parameters.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ChatOut is a model response: generated text, tool requests, or both.
type ChatOut struct {
	// Text is the generated response. May be empty when the model only
	// requested tools.
	Text string

	// ToolCalls are the tools the model asked to invoke.
	ToolCalls []ToolCall
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	Name  string
	Input map[string]any
}
