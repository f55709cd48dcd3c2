package testutil

import (
	"github.com/rolemesh/rolemesh/core"
)

// EntryBuilder provides a fluent helper for constructing log entries in
// tests.
// Example:
//
//	e := NewEntryBuilder().Role("researcher").Turn("t1").Observation("search", "3 results").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EntryBuilder struct {
	kind    core.Kind
	roleKey string
	turnID  string
	id      string
	message string
	action  *core.Action
	result  *core.CallOutcome
	final   *core.FinalResult
	plan    *core.Plan
	meta    map[string]string
}

// NewEntryBuilder creates a builder defaulting to an action entry authored
// by "worker".
func NewEntryBuilder() *EntryBuilder {
	return &EntryBuilder{kind: core.KindAction, roleKey: "worker"}
}

// Role sets the authoring role key (chainable).
func (b *EntryBuilder) Role(key string) *EntryBuilder { b.roleKey = key; return b }

// Turn sets the turn id (chainable).
func (b *EntryBuilder) Turn(id string) *EntryBuilder { b.turnID = id; return b }

// ID overrides the auto-generated entry id (chainable).
func (b *EntryBuilder) ID(id string) *EntryBuilder { b.id = id; return b }

// TurnStart marks the entry as a turn-start carrying the task text.
func (b *EntryBuilder) TurnStart(task string) *EntryBuilder {
	b.kind = core.KindTurnStart
	b.message = task
	return b
}

// Action marks the entry as a capability call.
func (b *EntryBuilder) Action(capability string, args map[string]any) *EntryBuilder {
	b.kind = core.KindAction
	a := core.NewAction(capability, args)
	b.action = &a
	return b
}

// Observation marks the entry as a successful capability result.
func (b *EntryBuilder) Observation(capability string, value any) *EntryBuilder {
	b.kind = core.KindObservation
	b.result = &core.CallOutcome{Capability: capability, Value: value}
	return b
}

// Error marks the entry as a structured failure.
func (b *EntryBuilder) Error(capability, errText string) *EntryBuilder {
	b.kind = core.KindError
	b.result = &core.CallOutcome{Capability: capability, Err: errText}
	return b
}

// Final marks the entry as a terminal result.
func (b *EntryBuilder) Final(result *core.FinalResult) *EntryBuilder {
	b.kind = core.KindFinal
	b.final = result
	return b
}

// Plan marks the entry as a delegation plan.
func (b *EntryBuilder) Plan(plan *core.Plan) *EntryBuilder {
	b.kind = core.KindPlan
	b.plan = plan
	return b
}

// Broadcast marks the entry as a global broadcast.
func (b *EntryBuilder) Broadcast(message string) *EntryBuilder {
	b.kind = core.KindBroadcast
	b.message = message
	b.turnID = ""
	return b
}

// Meta sets one metadata key (chainable).
func (b *EntryBuilder) Meta(key, value string) *EntryBuilder {
	if b.meta == nil {
		b.meta = map[string]string{}
	}
	b.meta[key] = value
	return b
}

// Build constructs the core.Entry value.
func (b *EntryBuilder) Build() core.Entry {
	turn := b.turnID
	if turn == "" && b.kind != core.KindBroadcast {
		turn = core.NewID()
	}
	e := core.NewEntry(b.kind, b.roleKey, turn)
	if b.id != "" {
		e.ID = b.id
	}
	e.Message = b.message
	e.Action = b.action
	e.Result = b.result
	e.Final = b.final
	e.Plan = b.plan
	e.Meta = b.meta
	return e
}
