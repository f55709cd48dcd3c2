package role

import (
	"fmt"
	"sync"
	"time"

	"github.com/rolemesh/rolemesh/capability"
	"github.com/rolemesh/rolemesh/core"
	"github.com/rolemesh/rolemesh/history"
	"github.com/rolemesh/rolemesh/policy"
	"github.com/rolemesh/rolemesh/strategy"
)

// slidingWindow is the number of recent actions / observations a worker keeps
// for stagnation detection.
const slidingWindow = 5

// defaultMaxConcurrent bounds parallel capability execution within a batch.
const defaultMaxConcurrent = 4

// WorkerOptions configure a Worker.
type WorkerOptions struct {
	Description  string
	Capabilities []capability.Capability
	Policies     policy.Set
	// MaxConcurrent bounds how many calls of one batch run at once.
	MaxConcurrent int
	// StagnationFatal selects whether detected stagnation ends the turn with
	// an error-shaped result (true, the default) or only logs a warning.
	StagnationFatal bool
}

// Worker is the leaf role variant: a bounded plan/execute/observe loop driven
// by a strategy. Each iteration derives a fresh history view, asks the
// strategy for a decision, executes proposed actions (concurrently for
// batches), records observations and consults the policy set.
type Worker struct {
	BaseRole
	strategy        strategy.Strategy
	capabilities    []capability.Capability
	byName          map[string]capability.Capability
	policies        policy.Set
	maxConcurrent   int
	stagnationFatal bool
}

// NewWorker constructs a worker with the given planning strategy.
func NewWorker(name string, strat strategy.Strategy, optFns ...func(o *WorkerOptions)) *Worker {
	opts := WorkerOptions{
		MaxConcurrent:   defaultMaxConcurrent,
		StagnationFatal: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	w := &Worker{
		BaseRole:        NewBaseRole(name),
		strategy:        strat,
		capabilities:    opts.Capabilities,
		byName:          make(map[string]capability.Capability, len(opts.Capabilities)),
		policies:        opts.Policies.Normalize(),
		maxConcurrent:   opts.MaxConcurrent,
		stagnationFatal: opts.StagnationFatal,
	}
	if w.maxConcurrent <= 0 {
		w.maxConcurrent = defaultMaxConcurrent
	}
	if opts.Description != "" {
		w.SetDescription(opts.Description)
	}
	for _, c := range opts.Capabilities {
		w.byName[c.Name()] = c
	}
	return w
}

// terminalSet is implemented by termination policies that know which
// capabilities end a turn when called.
type terminalSet interface{ IsTerminal(capability string) bool }

// Run executes the worker loop until a policy or the strategy ends the turn.
// Terminal domain failures come back as error-shaped final results with a
// nil error; the Go error is reserved for infrastructure failures.
func (w *Worker) Run(tc *core.TaskContext, task string) (*core.FinalResult, error) {
	start := time.Now()
	tc.Logger.Info("role.run.start", "role", w.Name(), "kind", "worker", "namespace", tc.Namespace)
	tc.Notify(core.NotifyRoleStart, map[string]any{"role": w.Name(), "task": task})

	if err := tc.Append(core.NewTurnStartEntry(w.Name(), tc.TurnID, task)); err != nil {
		return nil, fmt.Errorf("append turn-start: %w", err)
	}

	var (
		recentActions      []core.Action
		recentObservations []string
		gathered           []any
	)

	// Resume from a prior checkpoint of this role, if one exists.
	if tc.Checkpoints != nil {
		if cp, ok, err := tc.Checkpoints.Load(tc.Namespace, w.Name()); err == nil && ok {
			gathered = append(gathered, cp.Results...)
			tc.Logger.Info("role.checkpoint.resumed", "role", w.Name(), "results", len(cp.Results))
		}
	}

	for iteration := 0; ; iteration++ {
		if err := tc.Err(); err != nil {
			return nil, err
		}

		view, err := w.view(tc)
		if err != nil {
			return nil, fmt.Errorf("derive view: %w", err)
		}

		decision, err := w.strategy.Decide(tc, strategy.Request{
			Task:         task,
			View:         view,
			Capabilities: w.specs(),
			Iteration:    iteration,
		})
		if err != nil {
			tc.Logger.Error("role.strategy.error", "role", w.Name(), "error", err.Error())
			return w.finish(tc, start, core.NewErrorResult(core.ErrKindStrategy, err.Error()))
		}

		if decision.IsFinal() {
			return w.finish(tc, start, decision.Final)
		}

		// Stagnation check before execution, against the sliding windows.
		if stagnant := w.anyStagnant(tc, decision.Actions, recentActions, recentObservations); stagnant {
			if w.stagnationFatal {
				msg := fmt.Sprintf("stagnation detected: action %q repeated without new observations", decision.Actions[0].Capability)
				return w.finish(tc, start, core.NewErrorResult(core.ErrKindStagnation, msg))
			}
			tc.Logger.Warn("role.stagnation.detected", "role", w.Name(), "action", decision.Actions[0].Capability)
		}

		// Human approval gating happens before any call of the batch runs.
		for _, action := range decision.Actions {
			approved, result, err := w.gate(tc, action)
			if err != nil {
				return nil, err
			}
			if !approved {
				return w.finish(tc, start, result)
			}
		}

		results := w.executeBatch(tc, decision.Actions)

		terminalCalled := false
		if ts, ok := w.policies.Termination.(terminalSet); ok {
			for _, r := range results {
				if ts.IsTerminal(r.Action.Capability) {
					terminalCalled = true
					break
				}
			}
		}

		var lastObservation any
		for _, r := range results {
			recentActions = trimActions(append(recentActions, r.Action))
			if r.Failed() {
				recentObservations = trimStrings(append(recentObservations, "error: "+r.Err.Error()))
				continue
			}
			recentObservations = trimStrings(append(recentObservations, fmt.Sprintf("%v", r.Value)))
			lastObservation = r.Value
		}
		if batchValue := Aggregate(results); batchValue != nil {
			gathered = append(gathered, batchValue)
		}

		w.maybeCheckpoint(tc, iteration, results, gathered)

		view, err = w.view(tc)
		if err != nil {
			return nil, fmt.Errorf("derive view: %w", err)
		}
		outcome := policy.Outcome{
			Complete:                 w.policies.Completion.IsComplete(view),
			TerminalCapabilityCalled: terminalCalled,
			LastObservation:          lastObservation,
		}

		stop, err := w.policies.Termination.Decide(iteration, outcome, view)
		if err != nil {
			return nil, fmt.Errorf("termination policy: %w", err)
		}
		if !stop.Stop {
			continue
		}

		switch {
		case stop.Reason == core.ErrKindExhausted && !stop.Partial:
			msg := fmt.Sprintf("no completion after %d iterations", iteration+1)
			return w.finish(tc, start, core.NewErrorResult(core.ErrKindExhausted, msg))
		case stop.Reason == core.ErrKindExhausted && stop.Partial:
			return w.finish(tc, start, &core.FinalResult{
				Operation:    core.OperationPartialResults,
				Payload:      gathered,
				HumanSummary: fmt.Sprintf("iteration limit reached after %d iterations; returning partial results", iteration+1),
			})
		default:
			return w.finish(tc, start, &core.FinalResult{
				Operation:    core.OperationDisplayMessage,
				Payload:      gathered,
				HumanSummary: "task complete",
			})
		}
	}
}

// view derives the worker-scoped history slice from the full log.
func (w *Worker) view(tc *core.TaskContext) ([]core.Entry, error) {
	entries, err := tc.Log.Entries(tc.Namespace)
	if err != nil {
		return nil, err
	}
	return history.WorkerView(entries, history.Context{RoleKey: w.Name()}), nil
}

func (w *Worker) specs() []strategy.CapabilitySpec {
	specs := make([]strategy.CapabilitySpec, len(w.capabilities))
	for i, c := range w.capabilities {
		specs[i] = strategy.CapabilitySpec{
			Name:        c.Name(),
			Description: c.Description(),
			Parameters:  c.Parameters(),
		}
	}
	return specs
}

// anyStagnant consults the loop prevention policy for each proposed action.
// The policy is advisory: a panic inside it is recovered and treated as "not
// stagnant".
func (w *Worker) anyStagnant(tc *core.TaskContext, actions, recent []core.Action, observations []string) (verdict bool) {
	defer func() {
		if r := recover(); r != nil {
			tc.Logger.Warn("policy.loop_prevention.panic", "role", w.Name(), "error", fmt.Sprintf("%v", r))
			verdict = false
		}
	}()
	for _, action := range actions {
		if w.policies.LoopPrevention.IsStagnant(action, recent, observations) {
			return true
		}
	}
	return false
}

// gate applies the approval policy to one action. When gating is required the
// worker parks on the approval store until an operator resolves it. A denial
// ends the turn with an error-shaped result; cancellation while parked is an
// infrastructure error.
func (w *Worker) gate(tc *core.TaskContext, action core.Action) (bool, *core.FinalResult, error) {
	required, reason, err := w.policies.Approval.RequiresApproval(action, tc)
	if err != nil {
		return false, nil, fmt.Errorf("approval policy: %w", err)
	}
	if !required {
		return true, nil, nil
	}
	if tc.Approvals == nil {
		return false, nil, fmt.Errorf("approval required for %q but no approval store configured", action.Capability)
	}

	pending := core.NewPendingApproval(tc.Namespace, w.Name(), action, reason)
	if err := tc.Approvals.Create(pending); err != nil {
		return false, nil, fmt.Errorf("create approval: %w", err)
	}

	tc.Logger.Info("role.approval.pending", "role", w.Name(), "capability", action.Capability, "approval_id", pending.ID)
	tc.Notify(core.NotifyApprovalRequired, map[string]any{
		"approval_id": pending.ID,
		"capability":  action.Capability,
		"reason":      reason,
	})

	approved, err := tc.Approvals.Await(tc.Context, tc.Namespace, pending.ID)
	if err != nil {
		return false, nil, fmt.Errorf("await approval: %w", err)
	}
	if !approved {
		msg := fmt.Sprintf("approval denied for capability %q", action.Capability)
		return false, core.NewErrorResult(core.ErrKindApprovalDenied, msg), nil
	}
	return true, nil, nil
}

// executeBatch runs the batch's calls concurrently, bounded by maxConcurrent.
// Each call appends its action entry before executing and its observation or
// error entry when it completes, so log order reflects completion order and
// a failed call never hides its siblings' results.
func (w *Worker) executeBatch(tc *core.TaskContext, actions []core.Action) []CallResult {
	results := make([]CallResult, len(actions))
	sem := make(chan struct{}, w.maxConcurrent)
	var wg sync.WaitGroup

	for i, action := range actions {
		wg.Add(1)
		go func(i int, action core.Action) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = w.executeCall(tc, action)
		}(i, action)
	}
	wg.Wait()
	return results
}

func (w *Worker) executeCall(tc *core.TaskContext, action core.Action) CallResult {
	if err := tc.Append(core.NewActionEntry(w.Name(), tc.TurnID, action)); err != nil {
		return CallResult{Action: action, Err: err, CompletedAt: time.Now().UTC()}
	}
	tc.Notify(core.NotifyCapabilityCalled, map[string]any{"capability": action.Capability, "call_id": action.ID})

	c, ok := w.byName[action.Capability]
	if !ok {
		err := capability.NewError(action.Capability, "unknown capability", capability.CodeExecution)
		_ = tc.Append(core.NewErrorEntry(w.Name(), tc.TurnID, action, err))
		tc.Notify(core.NotifyError, map[string]any{"capability": action.Capability, "error": err.Error()})
		return CallResult{Action: action, Err: err, CompletedAt: time.Now().UTC()}
	}

	value, err := c.Invoke(tc, action.Arguments)
	completed := time.Now().UTC()
	if err != nil {
		_ = tc.Append(core.NewErrorEntry(w.Name(), tc.TurnID, action, err))
		tc.Notify(core.NotifyError, map[string]any{"capability": action.Capability, "error": err.Error()})
		return CallResult{Action: action, Err: err, CompletedAt: completed}
	}

	_ = tc.Append(core.NewObservationEntry(w.Name(), tc.TurnID, action, value))
	tc.Notify(core.NotifyCallCompleted, map[string]any{"capability": action.Capability})
	return CallResult{Action: action, Value: value, CompletedAt: completed}
}

// maybeCheckpoint consults the checkpoint policy and saves a snapshot when it
// fires. Advisory: panics and save failures are logged, never fatal.
func (w *Worker) maybeCheckpoint(tc *core.TaskContext, iteration int, results []CallResult, gathered []any) {
	defer func() {
		if r := recover(); r != nil {
			tc.Logger.Warn("policy.checkpoint.panic", "role", w.Name(), "error", fmt.Sprintf("%v", r))
		}
	}()
	if tc.Checkpoints == nil || len(results) == 0 {
		return
	}
	if !w.policies.Checkpoint.ShouldCheckpoint(iteration, results[0].Action, results[0].Value) {
		return
	}

	cp := core.Checkpoint{
		Namespace: tc.Namespace,
		RoleKey:   w.Name(),
		TurnID:    tc.TurnID,
		Iteration: iteration,
		Results:   append([]any(nil), gathered...),
		SavedAt:   time.Now().UTC(),
	}
	if err := tc.Checkpoints.Save(cp); err != nil {
		tc.Logger.Warn("role.checkpoint.save_failed", "role", w.Name(), "error", err.Error())
		return
	}
	tc.Notify(core.NotifyCheckpoint, map[string]any{"iteration": iteration})
}

// finish appends the final entry, clears checkpoints and returns the result.
func (w *Worker) finish(tc *core.TaskContext, start time.Time, result *core.FinalResult) (*core.FinalResult, error) {
	if err := tc.Append(core.NewFinalEntry(w.Name(), tc.TurnID, result)); err != nil {
		return nil, fmt.Errorf("append final: %w", err)
	}
	if tc.Checkpoints != nil {
		_ = tc.Checkpoints.Clear(tc.Namespace, w.Name())
	}

	tc.Logger.Info("role.run.end",
		"role", w.Name(),
		"operation", result.Operation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	tc.Notify(core.NotifyRoleEnd, map[string]any{"role": w.Name(), "operation": result.Operation})
	return result, nil
}

func trimActions(s []core.Action) []core.Action {
	if len(s) > slidingWindow {
		return s[len(s)-slidingWindow:]
	}
	return s
}

func trimStrings(s []string) []string {
	if len(s) > slidingWindow {
		return s[len(s)-slidingWindow:]
	}
	return s
}
