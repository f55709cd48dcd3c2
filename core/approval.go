package core

import (
	"context"
	"time"
)

// PendingApproval is created when an approval policy blocks a capability
// call. It is owned by the approval store until resolved: approved means the
// call executes, denied means the role ends without executing it.
type PendingApproval struct {
	ID         string         `json:"id"`
	Namespace  string         `json:"namespace"`
	RoleKey    string         `json:"role_key"`
	Capability string         `json:"capability_name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Reason     string         `json:"reason"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewPendingApproval constructs a pending approval for a gated action.
func NewPendingApproval(namespace, roleKey string, action Action, reason string) PendingApproval {
	return PendingApproval{
		ID:         NewID(),
		Namespace:  namespace,
		RoleKey:    roleKey,
		Capability: action.Capability,
		Arguments:  action.Arguments,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
}

// ApprovalStore is the pending-approval persistence port. Await is the
// suspension point of a paused role: it blocks until Resolve is called for
// the approval id or the context is cancelled.
type ApprovalStore interface {
	Create(p PendingApproval) error
	Resolve(namespace, id string, approved bool) error
	Await(ctx context.Context, namespace, id string) (approved bool, err error)
	Pending(namespace string) ([]PendingApproval, error)
	Clear(namespace string) error
}
