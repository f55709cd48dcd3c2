package core

import "fmt"

// Phase is one unit of a Plan, mapping to one subordinate delegation.
type Phase struct {
	Name       string `json:"name"`
	TargetRole string `json:"target_role"`
	Goal       string `json:"goal"`
	Notes      string `json:"notes,omitempty"`
}

// Plan is the structured delegation output of a coordinator's decision
// strategy. Created once per delegation decision and never mutated;
// descendants may re-read it from the log for context.
type Plan struct {
	Phases        []Phase  `json:"phases"`
	PrimaryRole   string   `json:"primary_role"`
	ParallelRoles []string `json:"parallel_roles,omitempty"`
	Rationale     string   `json:"rationale,omitempty"`
}

// PlanIntegrityError reports a plan referencing a role that is not a declared
// subordinate. It is fatal and raised before any delegation executes.
type PlanIntegrityError struct {
	Role string
}

func (e *PlanIntegrityError) Error() string {
	return fmt.Sprintf("plan references unknown subordinate role %q", e.Role)
}

// Validate checks that the primary role and every phase target are known
// subordinates. known maps role key to presence.
func (p *Plan) Validate(known map[string]bool) error {
	if p.PrimaryRole != "" && !known[p.PrimaryRole] {
		return &PlanIntegrityError{Role: p.PrimaryRole}
	}
	for _, ph := range p.Phases {
		if !known[ph.TargetRole] {
			return &PlanIntegrityError{Role: ph.TargetRole}
		}
	}
	for _, r := range p.ParallelRoles {
		if !known[r] {
			return &PlanIntegrityError{Role: r}
		}
	}
	return nil
}

// IsParallel reports whether the phase's target is marked for concurrent
// execution in this plan.
func (p *Plan) IsParallel(phase Phase) bool {
	for _, r := range p.ParallelRoles {
		if r == phase.TargetRole || r == phase.Name {
			return true
		}
	}
	return false
}

// PhaseResult couples a phase with the result its delegation produced.
// Err carries the failure text when the subordinate ended in error; the
// result pointer is still populated with the error-shaped final result.
type PhaseResult struct {
	Phase   Phase        `json:"phase"`
	RoleKey string       `json:"role_key"`
	Result  *FinalResult `json:"result,omitempty"`
	Err     string       `json:"error,omitempty"`
}
