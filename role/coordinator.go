package role

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rolemesh/rolemesh/core"
	"github.com/rolemesh/rolemesh/history"
	"github.com/rolemesh/rolemesh/policy"
	"github.com/rolemesh/rolemesh/strategy"
)

// DelegateCapability is the reserved capability name a coordinator strategy
// uses to propose a delegation plan. Its arguments carry the plan structure.
const DelegateCapability = "delegate"

// Synthesizer rewrites collected phase results into the final answer a
// coordinator returns. Optional; without one the coordinator returns the raw
// phase results.
type Synthesizer interface {
	Synthesize(tc *core.TaskContext, task string, results []core.PhaseResult) (*core.FinalResult, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(tc *core.TaskContext, task string, results []core.PhaseResult) (*core.FinalResult, error)

// Synthesize implements Synthesizer.
func (f SynthesizerFunc) Synthesize(tc *core.TaskContext, task string, results []core.PhaseResult) (*core.FinalResult, error) {
	return f(tc, task, results)
}

// CoordinatorOptions configure a Coordinator.
type CoordinatorOptions struct {
	Description string
	Policies    policy.Set
	Synthesizer Synthesizer
	// Orchestrator selects the top-level planning view: the most recent
	// conversation turns instead of subordinate execution traces. Set it on
	// the root coordinator of a request hierarchy.
	Orchestrator bool
	// MaxConversationTurns caps how many turns the orchestrator view keeps.
	// Zero means the history default. Ignored unless Orchestrator is set.
	MaxConversationTurns int
}

// Coordinator is the supervising role variant. Its strategy proposes
// delegation plans rather than capability calls; the coordinator validates
// each plan against its declared subordinates, executes the phases
// (concurrently where the plan marks them parallel), collects results and
// synthesizes the final answer. Follow-up rounds re-plan against the updated
// view until the follow-up policy declines or a final decision arrives.
type Coordinator struct {
	BaseRole
	strategy     strategy.Strategy
	policies     policy.Set
	synthesizer  Synthesizer
	orchestrator bool
	maxTurns     int
}

// NewCoordinator constructs a coordinator with the given planning strategy.
// Subordinates are attached afterwards via SetSubordinates.
func NewCoordinator(name string, strat strategy.Strategy, optFns ...func(o *CoordinatorOptions)) *Coordinator {
	opts := CoordinatorOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Coordinator{
		BaseRole:     NewBaseRole(name),
		strategy:     strat,
		policies:     opts.Policies.Normalize(),
		synthesizer:  opts.Synthesizer,
		orchestrator: opts.Orchestrator,
		maxTurns:     opts.MaxConversationTurns,
	}
	if opts.Description != "" {
		c.SetDescription(opts.Description)
	}
	return c
}

// Run executes the coordinator's plan/delegate/collect cycle.
func (c *Coordinator) Run(tc *core.TaskContext, task string) (*core.FinalResult, error) {
	start := time.Now()
	tc.Logger.Info("role.run.start", "role", c.Name(), "kind", "coordinator", "namespace", tc.Namespace)
	tc.Notify(core.NotifyRoleStart, map[string]any{"role": c.Name(), "task": task})

	if err := tc.Append(core.NewTurnStartEntry(c.Name(), tc.TurnID, task)); err != nil {
		return nil, fmt.Errorf("append turn-start: %w", err)
	}

	known := make(map[string]bool)
	for _, key := range c.subordinateKeys() {
		known[key] = true
	}

	var allResults []core.PhaseResult
	goal := task

	for phaseIndex := 0; ; phaseIndex++ {
		if err := tc.Err(); err != nil {
			return nil, err
		}

		view, err := c.view(tc)
		if err != nil {
			return nil, fmt.Errorf("derive view: %w", err)
		}

		decision, err := c.strategy.Decide(tc, strategy.Request{
			Task:         goal,
			View:         view,
			Capabilities: c.delegateSpec(),
			Iteration:    phaseIndex,
		})
		if err != nil {
			tc.Logger.Error("role.strategy.error", "role", c.Name(), "error", err.Error())
			return c.finish(tc, start, core.NewErrorResult(core.ErrKindStrategy, err.Error()), false)
		}

		if decision.IsFinal() {
			return c.finish(tc, start, decision.Final, false)
		}

		plan, err := planFromDecision(decision)
		if err != nil {
			return c.finish(tc, start, core.NewErrorResult(core.ErrKindStrategy, err.Error()), false)
		}

		// Plan integrity is fatal before any delegation runs.
		if err := plan.Validate(known); err != nil {
			tc.Logger.Error("role.plan.invalid", "role", c.Name(), "error", err.Error())
			return c.finish(tc, start, core.NewErrorResult(core.ErrKindPlanIntegrity, err.Error()), false)
		}

		if err := tc.Append(core.NewPlanEntry(c.Name(), tc.TurnID, plan)); err != nil {
			return nil, fmt.Errorf("append plan: %w", err)
		}
		tc.Notify(core.NotifyPlanCreated, map[string]any{"phases": len(plan.Phases)})

		results, err := c.executePlan(tc, plan)
		if err != nil {
			return nil, err
		}
		allResults = append(allResults, results...)

		cont, nextGoal := c.shouldContinue(tc, allResults, phaseIndex)
		if !cont {
			break
		}
		goal = nextGoal
		tc.Logger.Info("role.followup.continue", "role", c.Name(), "round", phaseIndex+1, "goal", nextGoal)
	}

	return c.synthesize(tc, start, task, allResults)
}

// executePlan runs the plan's phases in order. Consecutive phases marked
// parallel in the plan form one concurrent group; everything else runs
// sequentially. Collected results append to the log in completion order.
func (c *Coordinator) executePlan(tc *core.TaskContext, plan *core.Plan) ([]core.PhaseResult, error) {
	var results []core.PhaseResult
	phases := plan.Phases

	for i := 0; i < len(phases); {
		if !plan.IsParallel(phases[i]) {
			r, err := c.delegate(tc, phases[i])
			if err != nil {
				return nil, err
			}
			results = append(results, r)
			i++
			continue
		}

		// Gather the run of consecutive parallel phases.
		j := i
		for j < len(phases) && plan.IsParallel(phases[j]) {
			j++
		}
		group := phases[i:j]

		groupResults := make([]core.PhaseResult, len(group))
		errs := make([]error, len(group))
		var wg sync.WaitGroup
		for k, phase := range group {
			wg.Add(1)
			go func(k int, phase core.Phase) {
				defer wg.Done()
				groupResults[k], errs[k] = c.delegate(tc, phase)
			}(k, phase)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		results = append(results, groupResults...)
		i = j
	}
	return results, nil
}

// delegate hands one phase goal to its subordinate: fork the context for the
// subordinate role, record the delegation, run it and record the collected
// result. Subordinate failures become phase results, not coordinator
// failures; only infrastructure errors propagate.
func (c *Coordinator) delegate(tc *core.TaskContext, phase core.Phase) (core.PhaseResult, error) {
	sub := c.FindRole(phase.TargetRole)
	if sub == nil {
		// Validate should have caught this; treat as integrity failure.
		return core.PhaseResult{}, fmt.Errorf("subordinate %q not found", phase.TargetRole)
	}

	if err := tc.Append(core.NewDelegationEntry(c.Name(), tc.TurnID, phase.TargetRole, phase.Goal)); err != nil {
		return core.PhaseResult{}, fmt.Errorf("append delegation: %w", err)
	}
	tc.Logger.Info("role.delegation.start", "role", c.Name(), "target", phase.TargetRole, "phase", phase.Name)

	subCtx := tc.Fork(core.RoleInfo{Key: phase.TargetRole, Kind: roleKind(sub)})
	result, err := sub.Run(subCtx, phase.Goal)
	if err != nil {
		return core.PhaseResult{}, fmt.Errorf("delegation to %q: %w", phase.TargetRole, err)
	}

	pr := core.PhaseResult{Phase: phase, RoleKey: phase.TargetRole, Result: result}
	if result.IsError() {
		pr.Err = result.HumanSummary
		tc.Logger.Warn("role.delegation.failed", "role", c.Name(), "target", phase.TargetRole, "error", pr.Err)
	}

	if err := tc.Append(core.NewDelegationResultEntry(c.Name(), tc.TurnID, phase.TargetRole, result)); err != nil {
		return core.PhaseResult{}, fmt.Errorf("append delegation result: %w", err)
	}
	return pr, nil
}

// shouldContinue consults the follow-up policy, recovering panics so an
// advisory policy cannot crash the turn.
func (c *Coordinator) shouldContinue(tc *core.TaskContext, results []core.PhaseResult, phaseIndex int) (cont bool, goal string) {
	defer func() {
		if r := recover(); r != nil {
			tc.Logger.Warn("policy.followup.panic", "role", c.Name(), "error", fmt.Sprintf("%v", r))
			cont, goal = false, ""
		}
	}()
	return c.policies.FollowUp.ShouldContinue(results, phaseIndex)
}

// synthesize produces the coordinator's final result from the collected phase
// results, through the configured synthesizer when present.
func (c *Coordinator) synthesize(tc *core.TaskContext, start time.Time, task string, results []core.PhaseResult) (*core.FinalResult, error) {
	if c.synthesizer != nil {
		result, err := c.synthesizer.Synthesize(tc, task, results)
		if err != nil {
			tc.Logger.Error("role.synthesis.error", "role", c.Name(), "error", err.Error())
			return c.finish(tc, start, core.NewErrorResult(core.ErrKindStrategy, err.Error()), false)
		}
		return c.finish(tc, start, result, true)
	}

	summary := fmt.Sprintf("collected %d phase results", len(results))
	return c.finish(tc, start, &core.FinalResult{
		Operation:    core.OperationDisplayMessage,
		Payload:      results,
		HumanSummary: summary,
	}, true)
}

func (c *Coordinator) finish(tc *core.TaskContext, start time.Time, result *core.FinalResult, synthesized bool) (*core.FinalResult, error) {
	entry := core.NewFinalEntry(c.Name(), tc.TurnID, result)
	if synthesized {
		entry = core.NewSynthesisEntry(c.Name(), tc.TurnID, result)
	}
	if err := tc.Append(entry); err != nil {
		return nil, fmt.Errorf("append final: %w", err)
	}

	tc.Logger.Info("role.run.end",
		"role", c.Name(),
		"operation", result.Operation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	tc.Notify(core.NotifyRoleEnd, map[string]any{"role": c.Name(), "operation": result.Operation})
	return result, nil
}

// view derives the coordinator-scoped history slice. A root coordinator
// configured as orchestrator plans over the recent caller dialogue instead
// of subordinate execution traces.
func (c *Coordinator) view(tc *core.TaskContext) ([]core.Entry, error) {
	entries, err := tc.Log.Entries(tc.Namespace)
	if err != nil {
		return nil, err
	}
	if c.orchestrator {
		return history.OrchestratorView(entries, history.Context{
			RoleKey:              c.Name(),
			MaxConversationTurns: c.maxTurns,
		}), nil
	}
	return history.CoordinatorView(entries, history.Context{
		RoleKey:      c.Name(),
		Subordinates: c.subordinateKeys(),
	}), nil
}

// delegateSpec advertises the delegate pseudo-capability, listing the
// subordinates a plan may target.
func (c *Coordinator) delegateSpec() []strategy.CapabilitySpec {
	subs := c.Subordinates()
	targets := make([]string, len(subs))
	descriptions := ""
	for i, s := range subs {
		targets[i] = s.Name()
		descriptions += fmt.Sprintf("%s: %s\n", s.Name(), s.Description())
	}

	return []strategy.CapabilitySpec{{
		Name:        DelegateCapability,
		Description: "Delegate phase goals to subordinate roles.\nAvailable roles:\n" + descriptions,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phases": map[string]any{
					"type":        "array",
					"description": "Ordered phases, each with name, target_role and goal",
				},
				"primary_role":   map[string]any{"type": "string"},
				"parallel_roles": map[string]any{"type": "array"},
				"rationale":      map[string]any{"type": "string"},
			},
			"required": []string{"phases"},
		},
	}}
}

// roleKind categorizes a role variant for context and notification metadata.
func roleKind(r core.Role) string {
	switch r.(type) {
	case *Coordinator:
		return "coordinator"
	default:
		return "worker"
	}
}

// planFromDecision extracts the plan carried by a delegate action's
// arguments.
func planFromDecision(d core.Decision) (*core.Plan, error) {
	for _, action := range d.Actions {
		if action.Capability != DelegateCapability {
			continue
		}
		raw, err := json.Marshal(action.Arguments)
		if err != nil {
			return nil, fmt.Errorf("marshal plan arguments: %w", err)
		}
		var plan core.Plan
		if err := json.Unmarshal(raw, &plan); err != nil {
			return nil, fmt.Errorf("parse plan: %w", err)
		}
		if len(plan.Phases) == 0 {
			return nil, fmt.Errorf("plan has no phases")
		}
		return &plan, nil
	}
	return nil, fmt.Errorf("coordinator decision contains no %s action", DelegateCapability)
}
