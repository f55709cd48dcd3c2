// Package engine wires the pieces together: it owns the shared ports (event
// log, approval store, checkpoint store, notifier, logger), keeps the role
// registry and executes caller requests. Each request runs in its own
// namespace; concurrent requests never share mutable state beyond the ports,
// which isolate by namespace internally.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rolemesh/rolemesh/approval"
	"github.com/rolemesh/rolemesh/checkpoint"
	"github.com/rolemesh/rolemesh/core"
	"github.com/rolemesh/rolemesh/eventlog"
	"github.com/rolemesh/rolemesh/logging"
	"github.com/rolemesh/rolemesh/role"
)

// defaultMaxConcurrentRequests bounds simultaneously executing requests.
const defaultMaxConcurrentRequests = 8

// Options configure an Engine. Zero fields get in-memory defaults.
type Options struct {
	Log                   core.Log
	Approvals             core.ApprovalStore
	Checkpoints           core.CheckpointStore
	Notifier              core.Notifier
	Logger                logging.Logger
	MaxConcurrentRequests int
}

// Result delivers the outcome of an asynchronous Submit.
type Result struct {
	RequestID string
	Final     *core.FinalResult
	Err       error
}

// Engine executes tasks against registered roles.
type Engine struct {
	mu    sync.RWMutex
	roles map[string]core.Role

	log         core.Log
	approvals   core.ApprovalStore
	checkpoints core.CheckpointStore
	notifier    core.Notifier
	logger      logging.Logger
	sem         chan struct{}
}

// New constructs an engine. Without options everything is in-memory: volatile
// event log, approval store and checkpoint store, no-op notifier and logger.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{MaxConcurrentRequests: defaultMaxConcurrentRequests}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Log == nil {
		opts.Log = eventlog.NewInMemoryLog()
	}
	if opts.Approvals == nil {
		opts.Approvals = approval.NewInMemoryStore()
	}
	if opts.Checkpoints == nil {
		opts.Checkpoints = checkpoint.NewInMemoryStore()
	}
	if opts.Notifier == nil {
		opts.Notifier = core.NoOpNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxConcurrentRequests <= 0 {
		opts.MaxConcurrentRequests = defaultMaxConcurrentRequests
	}

	return &Engine{
		roles:       make(map[string]core.Role),
		log:         opts.Log,
		approvals:   opts.Approvals,
		checkpoints: opts.Checkpoints,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		sem:         make(chan struct{}, opts.MaxConcurrentRequests),
	}
}

// RegisterRole adds a root role to the registry. Submitting a task to any
// role in its subtree goes through the root's name plus FindRole.
func (e *Engine) RegisterRole(r core.Role) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.roles[r.Name()]; exists {
		return fmt.Errorf("role %q already registered", r.Name())
	}
	e.roles[r.Name()] = r
	e.logger.Info("engine.role.registered", "role", r.Name())
	return nil
}

// Role looks a registered root role up by name.
func (e *Engine) Role(name string) (core.Role, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.roles[name]
	return r, ok
}

// Submit starts a task asynchronously and returns a channel delivering the
// single Result. An empty requestID gets a generated one; reusing a
// requestID continues the same namespace (same log, same request bag scope
// per submission). Unknown roles fail immediately.
func (e *Engine) Submit(ctx context.Context, requestID, roleName, task string) (<-chan Result, error) {
	r, ok := e.Role(roleName)
	if !ok {
		return nil, fmt.Errorf("role %q not registered", roleName)
	}
	if requestID == "" {
		requestID = core.NewID()
	}

	out := make(chan Result, 1)
	go func() {
		defer close(out)

		select {
		case e.sem <- struct{}{}:
			defer func() { <-e.sem }()
		case <-ctx.Done():
			out <- Result{RequestID: requestID, Err: ctx.Err()}
			return
		}

		final, err := e.run(ctx, requestID, r, task)
		out <- Result{RequestID: requestID, Final: final, Err: err}
	}()
	return out, nil
}

// SubmitSync runs a task to completion and returns its final result.
func (e *Engine) SubmitSync(ctx context.Context, requestID, roleName, task string) (*core.FinalResult, error) {
	out, err := e.Submit(ctx, requestID, roleName, task)
	if err != nil {
		return nil, err
	}
	res := <-out
	return res.Final, res.Err
}

// run executes one request turn: conversation-in, the role run, and
// conversation-out with whatever final result came back, error-shaped
// included.
func (e *Engine) run(ctx context.Context, requestID string, r core.Role, task string) (*core.FinalResult, error) {
	info := core.RoleInfo{Key: r.Name(), Kind: roleKind(r)}
	tc := core.NewTaskContext(ctx, requestID, info, e.log, e.approvals, e.checkpoints, e.notifier, e.logger)

	e.logger.Info("engine.request.start", "namespace", requestID, "role", r.Name())

	if err := tc.Append(core.NewConversationInEntry(tc.TurnID, task)); err != nil {
		return nil, fmt.Errorf("append conversation-in: %w", err)
	}

	final, err := r.Run(tc, task)
	if err != nil {
		e.logger.Error("engine.request.failed", "namespace", requestID, "role", r.Name(), "error", err.Error())
		return nil, err
	}

	if err := tc.Append(core.NewConversationOutEntry(tc.TurnID, final)); err != nil {
		return nil, fmt.Errorf("append conversation-out: %w", err)
	}

	e.logger.Info("engine.request.end", "namespace", requestID, "operation", final.Operation)
	return final, nil
}

// Broadcast appends a global-broadcast entry visible to every role of the
// request.
func (e *Engine) Broadcast(requestID, from, message string) error {
	return e.log.Append(requestID, core.NewBroadcastEntry(from, message))
}

// InjectContext appends externally supplied context addressed to one role of
// the request.
func (e *Engine) InjectContext(requestID, roleKey, message string) error {
	return e.log.Append(requestID, core.NewContextInjectionEntry(roleKey, "", message))
}

// PendingApprovals lists unresolved approvals for a request.
func (e *Engine) PendingApprovals(requestID string) ([]core.PendingApproval, error) {
	return e.approvals.Pending(requestID)
}

// ResolveApproval approves or denies a pending approval, resuming the parked
// role.
func (e *Engine) ResolveApproval(requestID, approvalID string, approved bool) error {
	e.logger.Info("engine.approval.resolved", "namespace", requestID, "approval_id", approvalID, "approved", approved)
	return e.approvals.Resolve(requestID, approvalID, approved)
}

// Conversation returns the caller-visible dialogue of a request.
func (e *Engine) Conversation(requestID string) ([]core.Entry, error) {
	return e.log.Conversation(requestID)
}

// Entries returns the full event log of a request.
func (e *Engine) Entries(requestID string) ([]core.Entry, error) {
	return e.log.Entries(requestID)
}

func roleKind(r core.Role) string {
	if _, ok := r.(*role.Coordinator); ok {
		return "coordinator"
	}
	return "worker"
}
