package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/rolemesh/rolemesh/core"
	"github.com/rolemesh/rolemesh/model"
)

// ModelStrategy plans with an LLM. Each planning step converts the role's
// history view into normalized messages, exposes the capabilities as tool
// definitions and maps the model's reply back to a Decision: tool calls
// become actions, plain text becomes a terminal display-message result.
type ModelStrategy struct {
	model        model.Model
	instructions string
}

// ModelOptions configure a ModelStrategy.
type ModelOptions struct {
	// Instructions is the system prompt prepended to every planning request.
	Instructions string
}

// NewModelStrategy wraps a model as a planning strategy.
func NewModelStrategy(m model.Model, optFns ...func(o *ModelOptions)) *ModelStrategy {
	opts := ModelOptions{
		Instructions: "You are a task execution agent. Use the available tools to make progress; reply with plain text only when the task is complete.",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelStrategy{model: m, instructions: opts.Instructions}
}

// Decide implements Strategy.
func (s *ModelStrategy) Decide(tc *core.TaskContext, req Request) (core.Decision, error) {
	mreq := model.Request{
		Instructions: s.instructions,
		Messages:     viewToMessages(req),
		Tools:        specsToTools(req.Capabilities),
	}

	tc.Logger.Debug("strategy.model.request", "role", tc.Role.Key, "messages", len(mreq.Messages))

	respCh, errCh := s.model.Generate(tc.Context, mreq)

	var final *model.Response
	for resp := range respCh {
		if !resp.Partial {
			r := resp
			final = &r
		}
	}
	if err := <-errCh; err != nil {
		return core.Decision{}, fmt.Errorf("model generation: %w", err)
	}
	if final == nil {
		return core.Decision{}, fmt.Errorf("model produced no final response")
	}

	if len(final.ToolCalls) > 0 {
		actions := make([]core.Action, 0, len(final.ToolCalls))
		for _, tcall := range final.ToolCalls {
			args := map[string]any{}
			if tcall.Arguments != "" {
				if err := json.Unmarshal([]byte(tcall.Arguments), &args); err != nil {
					return core.Decision{}, fmt.Errorf("tool call arguments for %s: %w", tcall.Name, err)
				}
			}
			action := core.Action{ID: tcall.ID, Capability: tcall.Name, Arguments: args}
			if action.ID == "" {
				action.ID = core.NewID()
			}
			actions = append(actions, action)
		}
		return core.DecideActions(actions...), nil
	}

	return core.DecideFinal(&core.FinalResult{
		Operation:    core.OperationDisplayMessage,
		Payload:      map[string]any{"message": final.Text},
		HumanSummary: final.Text,
	}), nil
}

// viewToMessages renders the history view as a normalized conversation. The
// task opens the dialogue; actions replay as assistant tool calls and
// observations as the matching tool responses, so the model sees its own
// prior steps in the form it produced them.
func viewToMessages(req Request) []model.Message {
	messages := []model.Message{{Role: "user", Text: req.Task}}

	for _, e := range req.View {
		switch e.Kind {
		case core.KindAction:
			if e.Action == nil {
				continue
			}
			raw, err := json.Marshal(e.Action.Arguments)
			if err != nil {
				raw = []byte("{}")
			}
			messages = append(messages, model.Message{
				Role: "assistant",
				ToolCalls: []model.ToolCall{{
					ID:        e.Action.ID,
					Name:      e.Action.Capability,
					Arguments: string(raw),
				}},
			})
		case core.KindObservation:
			if e.Result == nil {
				continue
			}
			messages = append(messages, model.Message{
				Role: "tool",
				ToolResponses: []model.ToolResponse{{
					ID:      e.Result.CallID,
					Content: fmt.Sprintf("%v", e.Result.Value),
				}},
			})
		case core.KindError:
			if e.Result == nil {
				continue
			}
			messages = append(messages, model.Message{
				Role: "tool",
				ToolResponses: []model.ToolResponse{{
					ID:      e.Result.CallID,
					Content: "error: " + e.Result.Err,
				}},
			})
		case core.KindBroadcast, core.KindContextInjection:
			messages = append(messages, model.Message{Role: "user", Text: e.Message})
		}
	}

	return messages
}

func specsToTools(specs []CapabilitySpec) []model.ToolDefinition {
	tools := make([]model.ToolDefinition, len(specs))
	for i, spec := range specs {
		tools[i] = model.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.Parameters,
		}
	}
	return tools
}
