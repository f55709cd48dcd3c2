package policy

import "github.com/rolemesh/rolemesh/core"

// DefaultMaxPhases bounds coordinator follow-up rounds.
const DefaultMaxPhases = 5

// FollowUpPolicy lets a coordinator decide, after collecting phase results,
// whether another delegation round is warranted and what it should pursue.
type FollowUpPolicy interface {
	ShouldContinue(results []core.PhaseResult, phaseIndex int) (bool, string)
}

// BoundedFollowUp continues while any phase failed and the phase budget
// allows, asking the next round to retry the failed goals.
type BoundedFollowUp struct {
	MaxPhases int
}

// NewBoundedFollowUp returns the default follow-up policy.
func NewBoundedFollowUp(optFns ...func(o *BoundedFollowUp)) *BoundedFollowUp {
	p := &BoundedFollowUp{MaxPhases: DefaultMaxPhases}
	for _, fn := range optFns {
		fn(p)
	}
	return p
}

// ShouldContinue implements FollowUpPolicy.
func (p *BoundedFollowUp) ShouldContinue(results []core.PhaseResult, phaseIndex int) (bool, string) {
	if phaseIndex+1 >= p.MaxPhases {
		return false, ""
	}
	for _, r := range results {
		if r.Err != "" {
			return true, "retry failed phase: " + r.Phase.Name
		}
	}
	return false, ""
}
