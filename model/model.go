// Package model defines the normalized interface between planning strategies
// and LLM providers: a vendor-neutral Request/Response pair with tool calling
// support, adapted to concrete SDKs in the subpackages.
package model

import (
	"context"
	"fmt"
)

// ToolCall represents a function call request surfaced by a model provider,
// unified across vendors so downstream logic does not need per-provider
// branching. Arguments is the raw JSON argument string.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResponse carries the result of an executed tool call back to the model
// on the next request.
type ToolResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a minimal JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Message is one turn of normalized conversation input. Role is "system",
// "user", "assistant" or "tool". Assistant messages may carry tool calls;
// tool messages carry the matching responses.
type Message struct {
	Role          string         `json:"role"`
	Text          string         `json:"text,omitempty"`
	ToolCalls     []ToolCall     `json:"tool_calls,omitempty"`
	ToolResponses []ToolResponse `json:"tool_responses,omitempty"`
}

// Request captures the normalized model input produced by strategies.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"`
	Text         string      `json:"text,omitempty"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by strategies to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// Canned responses are keyed by the text of the last message; unknown prompts
// get a generic echo.
type MockModel struct {
	info      Info
	responses map[string]Response
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]Response),
	}
}

// AddResponse registers a deterministic text completion for a prompt.
func (m *MockModel) AddResponse(prompt, text string) {
	m.responses[prompt] = Response{Text: text, FinishReason: "stop"}
}

// AddToolCalls registers a tool calling completion for a prompt.
func (m *MockModel) AddToolCalls(prompt string, calls ...ToolCall) {
	m.responses[prompt] = Response{ToolCalls: calls, FinishReason: "tool_calls"}
}

// Generate implements Model; emits optional streaming char chunks then the
// final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		input := req.Messages[len(req.Messages)-1].Text
		final, ok := m.responses[input]
		if !ok {
			final = Response{Text: fmt.Sprintf("Mock response to: %s", input), FinishReason: "stop"}
		}
		if req.Stream && final.Text != "" {
			for _, r := range final.Text {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		respCh <- final
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
