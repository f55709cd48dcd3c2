package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Action is a single capability call: a capability name plus an arguments
// map. Immutable once issued. A planning step may yield one action or a batch
// of actions; a batch signals parallel execution intent.
type Action struct {
	ID         string         `json:"id"`
	Capability string         `json:"capability_name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
}

// NewAction constructs an action with a generated call id.
func NewAction(capability string, args map[string]any) Action {
	return Action{ID: NewID(), Capability: capability, Arguments: args}
}

// Signature returns a stable fingerprint of capability name plus canonically
// ordered arguments. Two actions with equal signatures are "the same action"
// for stagnation detection regardless of call id or map iteration order.
func (a Action) Signature() string {
	keys := make([]string, 0, len(a.Arguments))
	for k := range a.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(a.Capability)
	for _, k := range keys {
		raw, err := json.Marshal(a.Arguments[k])
		if err != nil {
			raw = []byte(fmt.Sprintf("%v", a.Arguments[k]))
		}
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.Write(raw)
	}
	return b.String()
}

// FinalResult is the uniform terminal value of a role execution: a
// machine-readable operation label, a structured payload, and a short human
// readable summary. Terminal errors are also delivered in this shape so
// callers always receive the same contract.
type FinalResult struct {
	Operation    string `json:"operation"`
	Payload      any    `json:"payload,omitempty"`
	HumanSummary string `json:"human_summary,omitempty"`
}

// Error result kinds used for Final-Result-shaped terminal errors.
const (
	// ErrKindStagnation marks termination by loop prevention.
	ErrKindStagnation = "stagnation"
	// ErrKindExhausted marks termination at the iteration limit.
	ErrKindExhausted = "termination-exhaustion"
	// ErrKindApprovalDenied marks a role ended by a denied approval.
	ErrKindApprovalDenied = "approval-denied"
	// ErrKindPlanIntegrity marks a plan referencing an unknown subordinate.
	ErrKindPlanIntegrity = "plan-integrity"
	// ErrKindStrategy marks a decision strategy failure.
	ErrKindStrategy = "strategy"
)

// Well-known operation labels of final results.
const (
	// OperationError marks error-shaped final results.
	OperationError = "error"
	// OperationDisplayMessage marks a plain answer for the caller.
	OperationDisplayMessage = "display-message"
	// OperationPartialResults marks results returned on iteration exhaustion
	// under the return-partial behavior.
	OperationPartialResults = "partial-results"
)

// NewErrorResult wraps a terminal failure in the FinalResult contract so a
// caller never sees a raw stack trace.
func NewErrorResult(kind, message string) *FinalResult {
	return &FinalResult{
		Operation:    OperationError,
		Payload:      map[string]any{"kind": kind, "message": message},
		HumanSummary: message,
	}
}

// IsError reports whether the result carries a terminal error.
func (r *FinalResult) IsError() bool { return r != nil && r.Operation == OperationError }

// ErrorKind returns the error kind of an error-shaped result, or "".
func (r *FinalResult) ErrorKind() string {
	if !r.IsError() {
		return ""
	}
	if m, ok := r.Payload.(map[string]any); ok {
		if k, ok := m["kind"].(string); ok {
			return k
		}
	}
	return ""
}

// Decision is the output of one planning step: either a terminal result or
// one or more actions to execute. Exactly one of the two is populated.
type Decision struct {
	Actions []Action
	Final   *FinalResult
}

// DecideActions wraps one or more actions as a planning decision.
func DecideActions(actions ...Action) Decision { return Decision{Actions: actions} }

// DecideFinal wraps a terminal result as a planning decision.
func DecideFinal(result *FinalResult) Decision { return Decision{Final: result} }

// IsFinal reports whether the decision terminates the role.
func (d Decision) IsFinal() bool { return d.Final != nil }
