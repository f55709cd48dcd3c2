// Package history derives role-scoped views over the shared event log.
//
// A view is a pure function from the full entry slice of a namespace to the
// subset a given role is allowed to see while planning its next step. Views
// are recomputed from the log on every planning step rather than cached, so
// entries appended concurrently by sibling roles become visible at the next
// derivation.
//
// Three built-in perspectives cover the standard topology: WorkerView limits
// a worker to its own current turn plus global broadcasts, CoordinatorView
// adds the current-turn entries of its subordinates, and OrchestratorView
// sees the recent conversation across turns.
package history
