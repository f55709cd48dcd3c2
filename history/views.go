package history

import "github.com/rolemesh/rolemesh/core"

// DefaultMaxConversationTurns bounds the orchestrator view when the caller
// does not set an explicit limit.
const DefaultMaxConversationTurns = 8

// Context carries the parameters a view needs to scope the log to one role.
type Context struct {
	// RoleKey identifies the role the view is derived for.
	RoleKey string

	// Subordinates lists the role keys a coordinator supervises. Ignored by
	// worker and orchestrator views.
	Subordinates []string

	// MaxConversationTurns caps how many distinct turns the orchestrator
	// view retains. Zero means DefaultMaxConversationTurns.
	MaxConversationTurns int
}

// View derives a role-scoped subset of entries. Implementations must be pure:
// same input, same output, no side effects.
type View func(entries []core.Entry, vc Context) []core.Entry

// WorkerView scopes a worker to its active turn: every entry the role
// authored at or after its most recent turn-start, plus all global
// broadcasts. Entries from earlier turns of the same role are excluded, so a
// completion marker emitted two tasks ago can never satisfy the current task.
func WorkerView(entries []core.Entry, vc Context) []core.Entry {
	start := turnBoundary(entries, vc.RoleKey)
	var out []core.Entry
	for i, e := range entries {
		switch {
		case e.Kind == core.KindBroadcast:
			out = append(out, e)
		case e.RoleKey == vc.RoleKey && start >= 0 && i >= start:
			out = append(out, e)
		}
	}
	return out
}

// CoordinatorView scopes a coordinator to its planning state: its own plan,
// delegation, observation and turn entries since its most recent turn-start,
// the current-turn entries of each subordinate, and global broadcasts.
// Conversation entries are excluded; the coordinator reasons over outcomes,
// not the caller dialogue.
func CoordinatorView(entries []core.Entry, vc Context) []core.Entry {
	start := turnBoundary(entries, vc.RoleKey)
	subStart := make(map[string]int, len(vc.Subordinates))
	for _, key := range vc.Subordinates {
		subStart[key] = turnBoundary(entries, key)
	}

	var out []core.Entry
	for i, e := range entries {
		switch {
		case e.Kind == core.KindBroadcast:
			out = append(out, e)
		case e.Kind == core.KindConversationIn || e.Kind == core.KindConversationOut:
			// excluded for coordinators
		case e.RoleKey == vc.RoleKey && start >= 0 && i >= start:
			out = append(out, e)
		default:
			if begin, ok := subStart[e.RoleKey]; ok && begin >= 0 && i >= begin {
				out = append(out, e)
			}
		}
	}
	return out
}

// OrchestratorView returns the conversation entries of the most recent
// MaxConversationTurns turns, plus global broadcasts, in log order. Turns are
// grouped by TurnID; a turn is counted once regardless of how many entries it
// holds.
func OrchestratorView(entries []core.Entry, vc Context) []core.Entry {
	limit := vc.MaxConversationTurns
	if limit <= 0 {
		limit = DefaultMaxConversationTurns
	}

	// Walk backwards collecting the newest turn ids until the limit is hit.
	keep := make(map[string]bool, limit)
	for i := len(entries) - 1; i >= 0 && len(keep) < limit; i-- {
		e := entries[i]
		if e.Kind != core.KindConversationIn && e.Kind != core.KindConversationOut {
			continue
		}
		keep[e.TurnID] = true
	}

	var out []core.Entry
	for _, e := range entries {
		switch e.Kind {
		case core.KindBroadcast:
			out = append(out, e)
		case core.KindConversationIn, core.KindConversationOut:
			if keep[e.TurnID] {
				out = append(out, e)
			}
		}
	}
	return out
}

// ForRole selects the view matching a role kind, defaulting to WorkerView
// for unknown kinds.
func ForRole(kind string) View {
	switch kind {
	case "coordinator":
		return CoordinatorView
	case "orchestrator":
		return OrchestratorView
	default:
		return WorkerView
	}
}

// turnBoundary returns the index of the most recent turn-start entry authored
// by roleKey, or -1 when the role has not started a turn.
func turnBoundary(entries []core.Entry, roleKey string) int {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == core.KindTurnStart && entries[i].RoleKey == roleKey {
			return i
		}
	}
	return -1
}
