// Package rolemesh provides a high-level façade over the core engine and
// service ports (event log, approvals, checkpoints, notifications & logging)
// enabling rapid construction of hierarchical task execution systems. Most
// applications interact with this package by:
//  1. Creating a Mesh via New() (optionally overriding default in-memory stores)
//  2. Registering one or more roles (workers, coordinators, custom)
//  3. Submitting tasks asynchronously (Submit) or synchronously (SubmitSync)
//
// The façade delegates execution to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply durable store
// implementations and a structured logger.
package rolemesh

import (
	"context"

	"github.com/rolemesh/rolemesh/approval"
	"github.com/rolemesh/rolemesh/checkpoint"
	"github.com/rolemesh/rolemesh/core"
	"github.com/rolemesh/rolemesh/engine"
	"github.com/rolemesh/rolemesh/eventlog"
	"github.com/rolemesh/rolemesh/logging"
)

// Options configures the Mesh instance.
type Options struct {
	// MaxConcurrentRequests limits the number of requests executing
	// simultaneously, providing backpressure. Zero selects the engine
	// default.
	MaxConcurrentRequests int

	// Stores (default to in-memory implementations if not provided)
	Log         core.Log
	Approvals   core.ApprovalStore
	Checkpoints core.CheckpointStore

	// Notifier receives lifecycle notifications (defaults to no-op).
	Notifier core.Notifier

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Mesh is the high-level façade aggregating the underlying engine and stores.
type Mesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new Mesh instance with optional overrides. Any unset store is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		Log:         eventlog.NewInMemoryLog(),
		Approvals:   approval.NewInMemoryStore(),
		Checkpoints: checkpoint.NewInMemoryStore(),
		Notifier:    core.NoOpNotifier{},
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Log = opts.Log
		o.Approvals = opts.Approvals
		o.Checkpoints = opts.Checkpoints
		o.Notifier = opts.Notifier
		o.Logger = opts.Logger
		o.MaxConcurrentRequests = opts.MaxConcurrentRequests
	})

	return &Mesh{opts: opts, engine: e}
}

// RegisterRole adds a root role to the underlying engine.
func (m *Mesh) RegisterRole(r core.Role) error { return m.engine.RegisterRole(r) }

// Submit starts an asynchronous request returning a result channel.
func (m *Mesh) Submit(ctx context.Context, requestID, roleName, task string) (<-chan engine.Result, error) {
	return m.engine.Submit(ctx, requestID, roleName, task)
}

// SubmitSync runs a request to completion and returns its final result.
func (m *Mesh) SubmitSync(ctx context.Context, requestID, roleName, task string) (*core.FinalResult, error) {
	return m.engine.SubmitSync(ctx, requestID, roleName, task)
}

// Broadcast appends a message visible to every role of the request.
func (m *Mesh) Broadcast(requestID, from, message string) error {
	return m.engine.Broadcast(requestID, from, message)
}

// InjectContext appends externally supplied context for one role of the
// request.
func (m *Mesh) InjectContext(requestID, roleKey, message string) error {
	return m.engine.InjectContext(requestID, roleKey, message)
}

// PendingApprovals lists unresolved approvals for a request.
func (m *Mesh) PendingApprovals(requestID string) ([]core.PendingApproval, error) {
	return m.engine.PendingApprovals(requestID)
}

// ResolveApproval approves or denies a pending approval, resuming the parked
// role.
func (m *Mesh) ResolveApproval(requestID, approvalID string, approved bool) error {
	return m.engine.ResolveApproval(requestID, approvalID, approved)
}

// Conversation returns the caller-visible dialogue of a request.
func (m *Mesh) Conversation(requestID string) ([]core.Entry, error) {
	return m.engine.Conversation(requestID)
}

// Entries returns the full event log of a request.
func (m *Mesh) Entries(requestID string) ([]core.Entry, error) {
	return m.engine.Entries(requestID)
}
