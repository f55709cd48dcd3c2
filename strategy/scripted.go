package strategy

import (
	"sync"

	"github.com/rolemesh/rolemesh/core"
)

// Scripted replays a fixed sequence of decisions, one per planning step.
// Useful for tests and deterministic pipelines. When the script is exhausted
// it returns a terminal display-message result so the role always ends.
type Scripted struct {
	mu        sync.Mutex
	decisions []core.Decision
	next      int
}

// NewScripted builds a scripted strategy from the given decisions.
func NewScripted(decisions ...core.Decision) *Scripted {
	return &Scripted{decisions: decisions}
}

// Decide implements Strategy.
func (s *Scripted) Decide(_ *core.TaskContext, _ Request) (core.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.decisions) {
		return core.DecideFinal(&core.FinalResult{
			Operation:    core.OperationDisplayMessage,
			HumanSummary: "script exhausted",
		}), nil
	}
	d := s.decisions[s.next]
	s.next++
	return d, nil
}
