package core

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies an event log entry. The set is closed; history views and
// policies switch on it.
type Kind string

const (
	// KindConversationIn is a user-facing request entering the system.
	KindConversationIn Kind = "conversation-in"
	// KindConversationOut is the response returned to the caller.
	KindConversationOut Kind = "conversation-out"
	// KindTurnStart marks the beginning of one top-level task execution for a
	// role. Everything a role appends afterwards belongs to that turn until
	// the next turn-start with the same role key.
	KindTurnStart Kind = "turn-start"
	// KindAction records a capability call issued by a role.
	KindAction Kind = "action"
	// KindObservation records the successful result of a capability call or a
	// collected delegation result.
	KindObservation Kind = "observation"
	// KindError records a structured, non-fatal failure (capability errors,
	// delegation failures).
	KindError Kind = "error"
	// KindFinal records a terminal result ending a role's turn.
	KindFinal Kind = "final"
	// KindSynthesis records a final result produced by rewriting aggregated
	// subordinate output.
	KindSynthesis Kind = "synthesis"
	// KindPlan records a multi-phase delegation plan.
	KindPlan Kind = "plan"
	// KindDelegation records a coordinator handing a phase goal to a
	// subordinate.
	KindDelegation Kind = "delegation"
	// KindBroadcast is visible to every role of the request regardless of
	// turn boundaries.
	KindBroadcast Kind = "global-broadcast"
	// KindContextInjection carries externally injected context (for example a
	// parent plan made readable to descendants).
	KindContextInjection Kind = "context-injection"
)

// Entry is the immutable unit of the event log. Once appended it is never
// mutated or deleted; ordering is append order. Exactly one of the payload
// pointers is set depending on Kind; Message carries text for conversation,
// broadcast and injection kinds.
type Entry struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	RoleKey   string            `json:"role_key"`
	TurnID    string            `json:"turn_id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    *Action           `json:"action,omitempty"`
	Result    *CallOutcome      `json:"result,omitempty"`
	Final     *FinalResult      `json:"final,omitempty"`
	Plan      *Plan             `json:"plan,omitempty"`
	Message   string            `json:"message,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// CallOutcome is the payload of observation and error entries: the capability
// (or subordinate role) that produced it plus the raw result or the error
// text. Error entries carry Err and leave Value nil.
type CallOutcome struct {
	Capability string `json:"capability,omitempty"`
	CallID     string `json:"call_id,omitempty"`
	Value      any    `json:"value,omitempty"`
	Err        string `json:"error,omitempty"`
}

// NewID returns a fresh UUID string used for entries, turns, requests,
// calls and approvals.
func NewID() string { return uuid.NewString() }

// NewEntry creates a bare entry authored by roleKey within a turn.
// Prefer the kind-specific constructors below.
func NewEntry(kind Kind, roleKey, turnID string) Entry {
	return Entry{
		ID:        NewID(),
		Kind:      kind,
		RoleKey:   roleKey,
		TurnID:    turnID,
		Timestamp: time.Now().UTC(),
	}
}

// NewTurnStartEntry marks the start of a new turn for a role.
func NewTurnStartEntry(roleKey, turnID, task string) Entry {
	e := NewEntry(KindTurnStart, roleKey, turnID)
	e.Message = task
	return e
}

// NewConversationInEntry records the caller's task text entering the system.
func NewConversationInEntry(turnID, task string) Entry {
	e := NewEntry(KindConversationIn, "caller", turnID)
	e.Message = task
	return e
}

// NewConversationOutEntry records the response handed back to the caller.
func NewConversationOutEntry(turnID string, result *FinalResult) Entry {
	e := NewEntry(KindConversationOut, "caller", turnID)
	e.Final = result
	e.Message = result.HumanSummary
	return e
}

// NewActionEntry records a capability call about to execute.
func NewActionEntry(roleKey, turnID string, action Action) Entry {
	e := NewEntry(KindAction, roleKey, turnID)
	a := action
	e.Action = &a
	return e
}

// NewObservationEntry records a successful capability result.
func NewObservationEntry(roleKey, turnID string, action Action, value any) Entry {
	e := NewEntry(KindObservation, roleKey, turnID)
	e.Result = &CallOutcome{Capability: action.Capability, CallID: action.ID, Value: value}
	return e
}

// NewErrorEntry records a structured capability or delegation failure. The
// failure stays in the log as an observation-like fact so the next planning
// step can see and react to it.
func NewErrorEntry(roleKey, turnID string, action Action, err error) Entry {
	e := NewEntry(KindError, roleKey, turnID)
	e.Result = &CallOutcome{Capability: action.Capability, CallID: action.ID, Err: err.Error()}
	return e
}

// NewFinalEntry records a terminal result for the turn.
func NewFinalEntry(roleKey, turnID string, result *FinalResult) Entry {
	e := NewEntry(KindFinal, roleKey, turnID)
	e.Final = result
	return e
}

// NewSynthesisEntry records a final result synthesized from subordinate
// output.
func NewSynthesisEntry(roleKey, turnID string, result *FinalResult) Entry {
	e := NewEntry(KindSynthesis, roleKey, turnID)
	e.Final = result
	return e
}

// NewPlanEntry persists a delegation plan so descendants can read it.
func NewPlanEntry(roleKey, turnID string, plan *Plan) Entry {
	e := NewEntry(KindPlan, roleKey, turnID)
	p := *plan
	e.Plan = &p
	return e
}

// NewDelegationEntry records a phase goal handed to a subordinate role.
func NewDelegationEntry(roleKey, turnID, target, goal string) Entry {
	e := NewEntry(KindDelegation, roleKey, turnID)
	e.Message = goal
	e.Meta = map[string]string{"target": target}
	return e
}

// NewDelegationResultEntry records a collected subordinate result as an
// observation attributed to the delegating coordinator.
func NewDelegationResultEntry(roleKey, turnID, target string, result *FinalResult) Entry {
	e := NewEntry(KindObservation, roleKey, turnID)
	e.Result = &CallOutcome{Capability: target, Value: result}
	return e
}

// NewBroadcastEntry creates an entry visible to all roles of the request.
func NewBroadcastEntry(roleKey, message string) Entry {
	e := NewEntry(KindBroadcast, roleKey, "")
	e.Message = message
	return e
}

// NewContextInjectionEntry carries externally supplied context into the log.
func NewContextInjectionEntry(roleKey, turnID, message string) Entry {
	e := NewEntry(KindContextInjection, roleKey, turnID)
	e.Message = message
	return e
}

// IsTerminal reports whether the entry ends its turn.
func (e Entry) IsTerminal() bool { return e.Kind == KindFinal || e.Kind == KindSynthesis }
