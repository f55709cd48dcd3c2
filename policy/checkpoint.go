package policy

import "github.com/rolemesh/rolemesh/core"

// DefaultCheckpointInterval is the iteration period of the default policy.
const DefaultCheckpointInterval = 5

// CheckpointPolicy decides when a worker snapshots its recoverable state.
// Advisory: a panic inside an implementation is recovered and logged, and a
// failed save never fails the turn.
type CheckpointPolicy interface {
	ShouldCheckpoint(iteration int, action core.Action, result any) bool
}

// IntervalCheckpoint checkpoints every Interval iterations.
type IntervalCheckpoint struct {
	Interval int
}

// NewIntervalCheckpoint returns the default interval-based policy.
func NewIntervalCheckpoint(optFns ...func(o *IntervalCheckpoint)) *IntervalCheckpoint {
	p := &IntervalCheckpoint{Interval: DefaultCheckpointInterval}
	for _, fn := range optFns {
		fn(p)
	}
	return p
}

// ShouldCheckpoint implements CheckpointPolicy.
func (p *IntervalCheckpoint) ShouldCheckpoint(iteration int, _ core.Action, _ any) bool {
	if p.Interval <= 0 {
		return false
	}
	return (iteration+1)%p.Interval == 0
}
