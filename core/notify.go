package core

import "time"

// NotificationKind enumerates the lifecycle points published to the
// observability sink.
type NotificationKind string

const (
	// NotifyRoleStart is published when a role begins executing a task.
	NotifyRoleStart NotificationKind = "role_start"
	// NotifyRoleEnd is published when a role reaches a terminal state.
	NotifyRoleEnd NotificationKind = "role_end"
	// NotifyPlanCreated is published when a coordinator persists a plan.
	NotifyPlanCreated NotificationKind = "plan_created"
	// NotifyCapabilityCalled is published just before a capability executes.
	NotifyCapabilityCalled NotificationKind = "capability_called"
	// NotifyCallCompleted is published when a capability call returns.
	NotifyCallCompleted NotificationKind = "call_completed"
	// NotifyError is published for structured execution errors.
	NotifyError NotificationKind = "error"
	// NotifyApprovalRequired is published when a call is gated for approval.
	NotifyApprovalRequired NotificationKind = "approval_required"
	// NotifyCheckpoint is published when the checkpoint policy asks the
	// engine to persist recoverable state.
	NotifyCheckpoint NotificationKind = "checkpoint"
)

// Notification is a lifecycle event published to the observability port. It
// is purely an output: nothing in the engine consults notifications to make
// decisions.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Namespace string           `json:"namespace"`
	RoleKey   string           `json:"role_key,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Detail    map[string]any   `json:"detail,omitempty"`
}

// NewNotification constructs a timestamped notification.
func NewNotification(kind NotificationKind, namespace, roleKey string, detail map[string]any) Notification {
	return Notification{
		Kind:      kind,
		Namespace: namespace,
		RoleKey:   roleKey,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	}
}

// Notifier is the publish side of the observability port. Publish must never
// block role execution; implementations drop rather than stall.
type Notifier interface {
	Publish(n Notification)
}

// NoOpNotifier discards all notifications. Useful default for tests.
type NoOpNotifier struct{}

// Publish implements Notifier.
func (NoOpNotifier) Publish(Notification) {}
