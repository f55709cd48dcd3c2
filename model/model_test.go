package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(t *testing.T, respCh <-chan Response, errCh <-chan error) []Response {
	t.Helper()
	var out []Response
	for r := range respCh {
		out = append(out, r)
	}
	assert.NoError(t, <-errCh)
	return out
}

func TestMockModelCannedResponse(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("hello", "world")

	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Text: "hello"}},
	})

	responses := collect(t, respCh, errCh)
	assert.Len(t, responses, 1)
	assert.Equal(t, "world", responses[0].Text)
	assert.Equal(t, "stop", responses[0].FinishReason)
}

func TestMockModelToolCalls(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddToolCalls("search for go", ToolCall{ID: "c1", Name: "search", Arguments: `{"q":"go"}`})

	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Text: "search for go"}},
	})

	responses := collect(t, respCh, errCh)
	assert.Len(t, responses, 1)
	assert.Equal(t, "tool_calls", responses[0].FinishReason)
	assert.Equal(t, "search", responses[0].ToolCalls[0].Name)
}

func TestMockModelStreaming(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("hi", "ok")

	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Text: "hi"}},
		Stream:   true,
	})

	responses := collect(t, respCh, errCh)
	assert.Len(t, responses, 3) // two char chunks plus the final
	assert.True(t, responses[0].Partial)
	assert.False(t, responses[len(responses)-1].Partial)
	assert.Equal(t, "ok", responses[len(responses)-1].Text)
}

func TestMockModelRequiresMessages(t *testing.T) {
	m := NewMockModel("mock", "test")

	respCh, errCh := m.Generate(context.Background(), Request{})
	for range respCh {
	}
	assert.Error(t, <-errCh)
}
