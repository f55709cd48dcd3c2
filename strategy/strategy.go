// Package strategy defines how a role decides its next step. A strategy sees
// the task, the role-scoped history view and the available capabilities, and
// yields a Decision: either actions to execute or a terminal result. The
// execution loop around it (iteration bounds, policies, logging) belongs to
// the role; the strategy is pure planning.
package strategy

import (
	"github.com/rolemesh/rolemesh/core"
)

// CapabilitySpec describes one invokable capability to a strategy without
// coupling the strategy to the execution subsystem.
type CapabilitySpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request carries everything a strategy may consult for one planning step.
type Request struct {
	// Task is the goal text for the current turn.
	Task string
	// View is the role-scoped history slice, freshly derived.
	View []core.Entry
	// Capabilities lists what the role can invoke.
	Capabilities []CapabilitySpec
	// Iteration counts planning steps within the turn, starting at zero.
	Iteration int
}

// Strategy yields the next decision for a role. Implementations must be safe
// for concurrent use; one strategy instance may serve many requests.
type Strategy interface {
	Decide(tc *core.TaskContext, req Request) (core.Decision, error)
}

// Func adapts a plain function to the Strategy interface.
type Func func(tc *core.TaskContext, req Request) (core.Decision, error)

// Decide implements Strategy.
func (f Func) Decide(tc *core.TaskContext, req Request) (core.Decision, error) {
	return f(tc, req)
}
