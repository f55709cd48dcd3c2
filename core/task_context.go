package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rolemesh/rolemesh/logging"
)

// TaskContext carries the per-request execution scope through every nested
// role run. It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (Namespace = request id, TurnID, Role info)
//   - Backing ports (event log, approval store, checkpoint store, notifier)
//   - A key/value bag scoped to the logical request
//
// Exactly one bag exists per in-flight request: Fork derives contexts for
// subordinate roles that share the same bag, while two different requests
// never share anything even when their goroutines interleave on the same
// threads. State travels only through this explicit struct; nothing in
// rolemesh reads ambient or thread-local storage.
type TaskContext struct {
	Context     context.Context
	Namespace   string
	TurnID      string
	Role        RoleInfo
	Log         Log
	Approvals   ApprovalStore
	Checkpoints CheckpointStore
	Notifier    Notifier
	Logger      logging.Logger

	bag *requestBag
}

// requestBag is the mutable key/value state shared by all roles of one
// logical request.
type requestBag struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewTaskContext constructs the root context for one logical request.
// Nil notifier or logger default to no-op implementations.
func NewTaskContext(
	ctx context.Context,
	namespace string,
	role RoleInfo,
	log Log,
	approvals ApprovalStore,
	checkpoints CheckpointStore,
	notifier Notifier,
	logger logging.Logger,
) *TaskContext {
	if notifier == nil {
		notifier = NoOpNotifier{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &TaskContext{
		Context:     ctx,
		Namespace:   namespace,
		TurnID:      NewID(),
		Role:        role,
		Log:         log,
		Approvals:   approvals,
		Checkpoints: checkpoints,
		Notifier:    notifier,
		Logger:      logger,
		bag:         &requestBag{values: map[string]any{}},
	}
}

// Done mirrors context.Context's Done.
func (tc *TaskContext) Done() <-chan struct{} { return tc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (tc *TaskContext) Err() error { return tc.Context.Err() }

// Value returns a request-scoped value and an existence flag.
func (tc *TaskContext) Value(key string) (any, bool) {
	tc.bag.mu.RLock()
	defer tc.bag.mu.RUnlock()
	v, ok := tc.bag.values[key]
	return v, ok
}

// SetValue stores a request-scoped value visible to every role of this
// request, including roles already forked.
func (tc *TaskContext) SetValue(key string, value any) {
	tc.bag.mu.Lock()
	defer tc.bag.mu.Unlock()
	tc.bag.values[key] = value
}

// Values returns a defensive copy of the request bag.
func (tc *TaskContext) Values() map[string]any {
	tc.bag.mu.RLock()
	defer tc.bag.mu.RUnlock()
	out := make(map[string]any, len(tc.bag.values))
	for k, v := range tc.bag.values {
		out[k] = v
	}
	return out
}

// Fork derives a context for a subordinate role run within the same logical
// request: fresh turn id, same namespace, same ports, shared bag.
func (tc *TaskContext) Fork(role RoleInfo) *TaskContext {
	return &TaskContext{
		Context:     tc.Context,
		Namespace:   tc.Namespace,
		TurnID:      NewID(),
		Role:        role,
		Log:         tc.Log,
		Approvals:   tc.Approvals,
		Checkpoints: tc.Checkpoints,
		Notifier:    tc.Notifier,
		Logger:      tc.Logger,
		bag:         tc.bag,
	}
}

// Append writes an entry to the request's event log partition.
func (tc *TaskContext) Append(e Entry) error {
	if tc.Log == nil {
		return fmt.Errorf("event log not configured")
	}
	return tc.Log.Append(tc.Namespace, e)
}

// Notify publishes a lifecycle notification attributed to this context's
// role.
func (tc *TaskContext) Notify(kind NotificationKind, detail map[string]any) {
	tc.Notifier.Publish(NewNotification(kind, tc.Namespace, tc.Role.Key, detail))
}
