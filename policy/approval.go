package policy

import (
	"fmt"

	"github.com/rolemesh/rolemesh/core"
)

// ApprovalScope selects which capability calls require human sign-off.
type ApprovalScope string

const (
	// ScopeNone gates nothing.
	ScopeNone ApprovalScope = "none"
	// ScopeWrites gates capabilities registered in the write set.
	ScopeWrites ApprovalScope = "writes"
	// ScopeAll gates every capability call.
	ScopeAll ApprovalScope = "all"
)

// ApprovalPolicy decides whether a capability call needs human approval
// before it executes. The returned reason is shown to the operator. Errors
// from an approval policy are fatal to the turn; executing an ungated call
// after a failed check would defeat the gate.
type ApprovalPolicy interface {
	RequiresApproval(action core.Action, tc *core.TaskContext) (bool, string, error)
}

// ScopedApproval gates calls by scope. With ScopeWrites, only capabilities
// present in WriteSet are gated.
type ScopedApproval struct {
	Scope    ApprovalScope
	WriteSet map[string]bool
}

// NewScopedApproval returns an approval policy with the given scope. The
// default scope is ScopeNone.
func NewScopedApproval(optFns ...func(o *ScopedApproval)) *ScopedApproval {
	p := &ScopedApproval{Scope: ScopeNone}
	for _, fn := range optFns {
		fn(p)
	}
	return p
}

// RequiresApproval implements ApprovalPolicy.
func (p *ScopedApproval) RequiresApproval(action core.Action, _ *core.TaskContext) (bool, string, error) {
	switch p.Scope {
	case ScopeAll:
		return true, fmt.Sprintf("capability %q requires approval (all calls gated)", action.Capability), nil
	case ScopeWrites:
		if p.WriteSet[action.Capability] {
			return true, fmt.Sprintf("capability %q performs writes", action.Capability), nil
		}
		return false, "", nil
	default:
		return false, "", nil
	}
}
