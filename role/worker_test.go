package role

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolemesh/rolemesh/approval"
	"github.com/rolemesh/rolemesh/capability"
	"github.com/rolemesh/rolemesh/checkpoint"
	"github.com/rolemesh/rolemesh/core"
	"github.com/rolemesh/rolemesh/eventlog"
	"github.com/rolemesh/rolemesh/policy"
	"github.com/rolemesh/rolemesh/strategy"
)

// kindRecorder collects published notification kinds for assertions.
type kindRecorder struct {
	mu    sync.Mutex
	kinds []core.NotificationKind
}

func (r *kindRecorder) Publish(n core.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, n.Kind)
}

func (r *kindRecorder) counts() map[core.NotificationKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[core.NotificationKind]int)
	for _, k := range r.kinds {
		out[k]++
	}
	return out
}

func newTestContext(log *eventlog.InMemoryLog, approvals core.ApprovalStore) *core.TaskContext {
	return core.NewTaskContext(
		context.Background(),
		"req-1",
		core.RoleInfo{Key: "assistant", Kind: "worker"},
		log,
		approvals,
		nil, nil, nil,
	)
}

func listRecords() capability.Capability {
	return capability.NewFunction("list_records", "List stored records",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			return []any{"rec-1", "rec-2"}, nil
		})
}

func TestWorkerRunToFinal(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	strat := strategy.NewScripted(
		core.DecideActions(core.NewAction("list_records", nil)),
		core.DecideFinal(&core.FinalResult{
			Operation:    core.OperationDisplayMessage,
			HumanSummary: "2 records found",
		}),
	)
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{listRecords()}
	})

	result, err := w.Run(newTestContext(log, nil), "list the records")

	require.NoError(t, err)
	assert.Equal(t, core.OperationDisplayMessage, result.Operation)
	assert.Equal(t, "2 records found", result.HumanSummary)

	entries, err := log.Entries("req-1")
	require.NoError(t, err)
	assert.Equal(t, core.KindTurnStart, entries[0].Kind)
	kinds := make([]core.Kind, len(entries))
	for i, e := range entries {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []core.Kind{core.KindTurnStart, core.KindAction, core.KindObservation, core.KindFinal}, kinds)
}

func TestWorkerFinalEndsTurn(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	strat := strategy.NewScripted(
		core.DecideFinal(&core.FinalResult{Operation: core.OperationDisplayMessage, HumanSummary: "done"}),
		core.DecideActions(core.NewAction("list_records", nil)), // must never run
	)
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{listRecords()}
	})

	_, err := w.Run(newTestContext(log, nil), "task")

	require.NoError(t, err)
	entries, _ := log.Entries("req-1")
	assert.Equal(t, core.KindFinal, entries[len(entries)-1].Kind)
	for _, e := range entries {
		assert.NotEqual(t, core.KindAction, e.Kind)
	}
}

func TestWorkerBatchPartialFailure(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	flaky := capability.NewFunction("fetch", "Fetch a url",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			if args["url"] == "bad" {
				return nil, errors.New("connection refused")
			}
			return "body of " + args["url"].(string), nil
		})
	strat := strategy.NewScripted(
		core.DecideActions(
			core.NewAction("fetch", map[string]any{"url": "a"}),
			core.NewAction("fetch", map[string]any{"url": "bad"}),
			core.NewAction("fetch", map[string]any{"url": "b"}),
		),
		core.DecideFinal(&core.FinalResult{Operation: core.OperationDisplayMessage, HumanSummary: "done"}),
	)
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{flaky}
	})

	result, err := w.Run(newTestContext(log, nil), "fetch all")

	require.NoError(t, err)
	assert.False(t, result.IsError())

	entries, _ := log.Entries("req-1")
	var observations, errorEntries int
	for _, e := range entries {
		switch e.Kind {
		case core.KindObservation:
			observations++
		case core.KindError:
			errorEntries++
		}
	}
	assert.Equal(t, 2, observations)
	assert.Equal(t, 1, errorEntries)
}

func TestWorkerStagnationFatal(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	same := map[string]any{"q": "go"}
	var decisions []core.Decision
	for i := 0; i < 6; i++ {
		decisions = append(decisions, core.DecideActions(core.NewAction("search", same)))
	}
	static := capability.NewFunction("search", "Search",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			return "no results", nil
		})
	w := NewWorker("assistant", strategy.NewScripted(decisions...), func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{static}
	})

	result, err := w.Run(newTestContext(log, nil), "find it")

	require.NoError(t, err)
	assert.True(t, result.IsError())
	assert.Equal(t, core.ErrKindStagnation, result.ErrorKind())
}

func TestWorkerStagnationWarnOnly(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	same := map[string]any{"q": "go"}
	var decisions []core.Decision
	for i := 0; i < 4; i++ {
		decisions = append(decisions, core.DecideActions(core.NewAction("search", same)))
	}
	decisions = append(decisions, core.DecideFinal(&core.FinalResult{
		Operation: core.OperationDisplayMessage, HumanSummary: "done anyway",
	}))
	static := capability.NewFunction("search", "Search",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			return "no results", nil
		})
	w := NewWorker("assistant", strategy.NewScripted(decisions...), func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{static}
		o.StagnationFatal = false
	})

	result, err := w.Run(newTestContext(log, nil), "find it")

	require.NoError(t, err)
	assert.False(t, result.IsError())
	assert.Equal(t, "done anyway", result.HumanSummary)
}

func TestWorkerExhaustionError(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	counter := 0
	probe := capability.NewFunction("probe", "Probe",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			counter++
			return counter, nil
		})
	// Varying arguments keep loop prevention quiet.
	strat := strategy.Func(func(tc *core.TaskContext, req strategy.Request) (core.Decision, error) {
		return core.DecideActions(core.NewAction("probe", map[string]any{"n": req.Iteration})), nil
	})
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{probe}
		o.Policies = policy.Set{
			Termination: policy.NewBoundedTermination(func(o *policy.BoundedTermination) {
				o.MaxIterations = 3
			}),
		}
	})

	result, err := w.Run(newTestContext(log, nil), "probe forever")

	require.NoError(t, err)
	assert.True(t, result.IsError())
	assert.Equal(t, core.ErrKindExhausted, result.ErrorKind())
	assert.Equal(t, 3, counter)
}

func TestWorkerExhaustionPartial(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	probe := capability.NewFunction("probe", "Probe",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			return "sample", nil
		})
	strat := strategy.Func(func(tc *core.TaskContext, req strategy.Request) (core.Decision, error) {
		return core.DecideActions(core.NewAction("probe", map[string]any{"n": req.Iteration})), nil
	})
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{probe}
		o.Policies = policy.Set{
			Termination: policy.NewBoundedTermination(func(o *policy.BoundedTermination) {
				o.MaxIterations = 2
				o.OnMax = policy.OnMaxReturnPartial
			}),
		}
	})

	result, err := w.Run(newTestContext(log, nil), "probe")

	require.NoError(t, err)
	assert.Equal(t, core.OperationPartialResults, result.Operation)
	gathered, ok := result.Payload.([]any)
	assert.True(t, ok)
	assert.NotEmpty(t, gathered)
}

func TestWorkerCompletionMarkerStops(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	finisher := capability.NewFunction("check", "Check state",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			return "all items processed, task complete", nil
		})
	strat := strategy.Func(func(tc *core.TaskContext, req strategy.Request) (core.Decision, error) {
		return core.DecideActions(core.NewAction("check", map[string]any{"n": req.Iteration})), nil
	})
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{finisher}
	})

	result, err := w.Run(newTestContext(log, nil), "process items")

	require.NoError(t, err)
	assert.Equal(t, core.OperationDisplayMessage, result.Operation)
	assert.Equal(t, "task complete", result.HumanSummary)
}

func TestWorkerIgnoresEarlierTurnCompletionMarkers(t *testing.T) {
	log := eventlog.NewInMemoryLog()

	// A finished earlier turn of the same role ends with a completion marker.
	prior := core.NewID()
	require.NoError(t, log.Append("req-1", core.NewTurnStartEntry("assistant", prior, "earlier task")))
	require.NoError(t, log.Append("req-1", core.NewObservationEntry("assistant", prior,
		core.NewAction("check", nil), "all items processed, task complete")))
	require.NoError(t, log.Append("req-1", core.NewFinalEntry("assistant", prior, &core.FinalResult{
		Operation:    core.OperationDisplayMessage,
		HumanSummary: "task complete",
	})))

	calls := 0
	probe := capability.NewFunction("probe", "Probe",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			calls++
			return "still working", nil
		})
	strat := strategy.NewScripted(
		core.DecideActions(core.NewAction("probe", map[string]any{"n": 1})),
		core.DecideActions(core.NewAction("probe", map[string]any{"n": 2})),
		core.DecideFinal(&core.FinalResult{Operation: core.OperationDisplayMessage, HumanSummary: "wrapped up"}),
	)
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{probe}
	})

	result, err := w.Run(newTestContext(log, nil), "new task")

	// The old turn's marker must not complete the new turn at iteration 0.
	require.NoError(t, err)
	assert.Equal(t, "wrapped up", result.HumanSummary)
	assert.Equal(t, 2, calls)
}

func TestWorkerFinishKeepsSiblingCheckpoints(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	checkpoints := checkpoint.NewInMemoryStore()
	require.NoError(t, checkpoints.Save(core.Checkpoint{
		Namespace: "req-1",
		RoleKey:   "sibling",
		Iteration: 3,
		Results:   []any{"partial"},
	}))

	strat := strategy.NewScripted(
		core.DecideFinal(&core.FinalResult{Operation: core.OperationDisplayMessage, HumanSummary: "done"}),
	)
	w := NewWorker("finisher", strat)

	tc := core.NewTaskContext(context.Background(), "req-1",
		core.RoleInfo{Key: "finisher", Kind: "worker"}, log, nil, checkpoints, nil, nil)
	_, err := w.Run(tc, "wrap up")
	require.NoError(t, err)

	// Finishing one role leaves the sibling's recoverable state intact.
	loaded, ok, err := checkpoints.Load("req-1", "sibling")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, loaded.Iteration)
}

func TestWorkerPublishesErrorNotifications(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	rec := &kindRecorder{}
	flaky := capability.NewFunction("fetch", "Fetch a url",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			if args["url"] == "bad" {
				return nil, errors.New("connection refused")
			}
			return "ok", nil
		})
	strat := strategy.NewScripted(
		core.DecideActions(
			core.NewAction("fetch", map[string]any{"url": "good"}),
			core.NewAction("fetch", map[string]any{"url": "bad"}),
		),
		core.DecideFinal(&core.FinalResult{Operation: core.OperationDisplayMessage, HumanSummary: "done"}),
	)
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{flaky}
	})

	tc := core.NewTaskContext(context.Background(), "req-1",
		core.RoleInfo{Key: "assistant", Kind: "worker"}, log, nil, nil, rec, nil)
	_, err := w.Run(tc, "fetch both")
	require.NoError(t, err)

	counts := rec.counts()
	assert.Equal(t, 1, counts[core.NotifyError])
	assert.Equal(t, 1, counts[core.NotifyCallCompleted])
	assert.Equal(t, 2, counts[core.NotifyCapabilityCalled])
}

func TestWorkerApprovalDenied(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	approvals := approval.NewInMemoryStore()
	executed := false
	deleter := capability.NewFunction("delete_record", "Delete a record",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			executed = true
			return "deleted", nil
		})
	strat := strategy.NewScripted(
		core.DecideActions(core.NewAction("delete_record", map[string]any{"id": "1"})),
	)
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{deleter}
		o.Policies = policy.Set{
			Approval: policy.NewScopedApproval(func(o *policy.ScopedApproval) {
				o.Scope = policy.ScopeAll
			}),
		}
	})

	done := make(chan *core.FinalResult, 1)
	go func() {
		result, err := w.Run(newTestContext(log, approvals), "delete record 1")
		assert.NoError(t, err)
		done <- result
	}()

	// Wait for the pending approval to appear, then deny it.
	var pendingID string
	assert.Eventually(t, func() bool {
		pending, err := approvals.Pending("req-1")
		if err != nil || len(pending) == 0 {
			return false
		}
		pendingID = pending[0].ID
		return true
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, approvals.Resolve("req-1", pendingID, false))

	result := <-done
	assert.True(t, result.IsError())
	assert.Equal(t, core.ErrKindApprovalDenied, result.ErrorKind())
	assert.False(t, executed)
}

func TestWorkerApprovalGranted(t *testing.T) {
	log := eventlog.NewInMemoryLog()
	approvals := approval.NewInMemoryStore()
	deleter := capability.NewFunction("delete_record", "Delete a record",
		map[string]any{"type": "object"},
		func(tc *core.TaskContext, args map[string]any) (any, error) {
			return "deleted", nil
		})
	strat := strategy.NewScripted(
		core.DecideActions(core.NewAction("delete_record", map[string]any{"id": "1"})),
		core.DecideFinal(&core.FinalResult{Operation: core.OperationDisplayMessage, HumanSummary: "record removed"}),
	)
	w := NewWorker("assistant", strat, func(o *WorkerOptions) {
		o.Capabilities = []capability.Capability{deleter}
		o.Policies = policy.Set{
			Approval: policy.NewScopedApproval(func(o *policy.ScopedApproval) {
				o.Scope = policy.ScopeWrites
				o.WriteSet = map[string]bool{"delete_record": true}
			}),
		}
	})

	done := make(chan *core.FinalResult, 1)
	go func() {
		result, err := w.Run(newTestContext(log, approvals), "delete record 1")
		assert.NoError(t, err)
		done <- result
	}()

	var pendingID string
	assert.Eventually(t, func() bool {
		pending, err := approvals.Pending("req-1")
		if err != nil || len(pending) == 0 {
			return false
		}
		pendingID = pending[0].ID
		return true
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, approvals.Resolve("req-1", pendingID, true))

	result := <-done
	assert.False(t, result.IsError())
	assert.Equal(t, "record removed", result.HumanSummary)
}
