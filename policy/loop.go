package policy

import "github.com/rolemesh/rolemesh/core"

const (
	defaultStagnationThreshold = 3
	defaultStagnationWindow    = 5
)

// LoopPreventionPolicy detects stagnation: a role issuing the same action and
// receiving the same observation over and over. Advisory by contract; a panic
// inside an implementation is recovered by the role and logged, never fatal.
type LoopPreventionPolicy interface {
	IsStagnant(current core.Action, recentActions []core.Action, recentObservations []string) bool
}

// RepeatDetector flags stagnation when the current action's signature has
// appeared at least Threshold times within the sliding window AND the latest
// observation has recurred at least Threshold times within the same window.
// Repeating an action against changing observations is legitimate polling;
// identical observations against varying actions is normal exploration. Only
// the combination counts as a loop.
type RepeatDetector struct {
	Threshold int
	Window    int
}

// NewRepeatDetector returns the default loop prevention policy.
func NewRepeatDetector(optFns ...func(o *RepeatDetector)) *RepeatDetector {
	d := &RepeatDetector{Threshold: defaultStagnationThreshold, Window: defaultStagnationWindow}
	for _, fn := range optFns {
		fn(d)
	}
	return d
}

// IsStagnant implements LoopPreventionPolicy.
func (d *RepeatDetector) IsStagnant(current core.Action, recentActions []core.Action, recentObservations []string) bool {
	if len(recentActions) < d.Threshold-1 || len(recentObservations) < d.Threshold {
		return false
	}

	sig := current.Signature()
	repeats := 1 // the current action itself
	start := len(recentActions) - d.Window
	if start < 0 {
		start = 0
	}
	for _, a := range recentActions[start:] {
		if a.Signature() == sig {
			repeats++
		}
	}
	if repeats < d.Threshold {
		return false
	}

	obsStart := len(recentObservations) - d.Window
	if obsStart < 0 {
		obsStart = 0
	}
	window := recentObservations[obsStart:]
	latest := window[len(window)-1]
	obsRepeats := 0
	for _, o := range window {
		if o == latest {
			obsRepeats++
		}
	}
	return obsRepeats >= d.Threshold
}
