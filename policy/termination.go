package policy

import "github.com/rolemesh/rolemesh/core"

// OnMaxBehavior selects what a worker does when it exhausts its iteration
// budget without completing.
type OnMaxBehavior string

const (
	// OnMaxError ends the turn with an error-shaped final result.
	OnMaxError OnMaxBehavior = "error"
	// OnMaxReturnPartial ends the turn with whatever has been gathered so
	// far, marked as partial.
	OnMaxReturnPartial OnMaxBehavior = "partial"
)

// DefaultMaxIterations bounds the worker loop when no limit is configured.
const DefaultMaxIterations = 10

// Outcome summarizes the state a termination decision is made against.
type Outcome struct {
	// Complete is the completion detector's verdict for this iteration.
	Complete bool
	// TerminalCapabilityCalled reports whether the last executed batch
	// contained a capability from the terminal set.
	TerminalCapabilityCalled bool
	// LastObservation is the newest observation value, if any.
	LastObservation any
}

// StopDecision tells the worker loop whether and how to stop.
type StopDecision struct {
	Stop bool
	// Partial asks the worker to return gathered results instead of an
	// exhaustion error. Only meaningful with Stop.
	Partial bool
	// Reason labels the stop for logs and error results.
	Reason string
}

// TerminationPolicy decides after each iteration whether the worker loop
// stops. Errors from a termination policy are fatal to the turn.
type TerminationPolicy interface {
	Decide(iteration int, outcome Outcome, view []core.Entry) (StopDecision, error)
}

// BoundedTermination stops on completion, on a terminal capability call, or
// at the iteration limit with the configured on-max behavior.
type BoundedTermination struct {
	MaxIterations        int
	OnMax                OnMaxBehavior
	TerminalCapabilities map[string]bool
}

// NewBoundedTermination returns the default termination policy.
func NewBoundedTermination(optFns ...func(o *BoundedTermination)) *BoundedTermination {
	p := &BoundedTermination{
		MaxIterations: DefaultMaxIterations,
		OnMax:         OnMaxError,
	}
	for _, fn := range optFns {
		fn(p)
	}
	return p
}

// Decide implements TerminationPolicy.
func (p *BoundedTermination) Decide(iteration int, outcome Outcome, _ []core.Entry) (StopDecision, error) {
	if outcome.Complete {
		return StopDecision{Stop: true, Reason: "complete"}, nil
	}
	if outcome.TerminalCapabilityCalled {
		return StopDecision{Stop: true, Reason: "terminal-capability"}, nil
	}
	if iteration+1 >= p.MaxIterations {
		return StopDecision{
			Stop:    true,
			Partial: p.OnMax == OnMaxReturnPartial,
			Reason:  core.ErrKindExhausted,
		}, nil
	}
	return StopDecision{}, nil
}

// IsTerminal reports whether a capability name belongs to the terminal set.
func (p *BoundedTermination) IsTerminal(capability string) bool {
	return p.TerminalCapabilities[capability]
}
