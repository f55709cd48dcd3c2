package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolemesh/rolemesh/policy"
)

const sampleYAML = `
logging:
  level: debug
  format: text
engine:
  max_concurrent_requests: 16
policies:
  completion:
    markers: ["mission accomplished"]
    window: 3
  termination:
    max_iterations: 20
    on_max: partial
    terminal_capabilities: ["submit_report"]
  loop_prevention:
    threshold: 4
  approval:
    scope: writes
    write_set: ["delete_record"]
  checkpoint:
    interval: 10
  follow_up:
    max_phases: 3
`

func TestParseFullConfig(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 16, cfg.Engine.MaxConcurrentRequests)

	set := cfg.PolicySet()

	completion := set.Completion.(*policy.MarkerCompletion)
	assert.Equal(t, []string{"mission accomplished"}, completion.Markers)
	assert.Equal(t, 3, completion.Window)

	termination := set.Termination.(*policy.BoundedTermination)
	assert.Equal(t, 20, termination.MaxIterations)
	assert.Equal(t, policy.OnMaxReturnPartial, termination.OnMax)
	assert.True(t, termination.IsTerminal("submit_report"))

	loop := set.LoopPrevention.(*policy.RepeatDetector)
	assert.Equal(t, 4, loop.Threshold)

	approval := set.Approval.(*policy.ScopedApproval)
	assert.Equal(t, policy.ScopeWrites, approval.Scope)
	assert.True(t, approval.WriteSet["delete_record"])

	assert.Equal(t, 10, set.Checkpoint.(*policy.IntervalCheckpoint).Interval)
	assert.Equal(t, 3, set.FollowUp.(*policy.BoundedFollowUp).MaxPhases)
}

func TestParseEmptyConfigYieldsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)

	set := cfg.PolicySet()
	assert.Equal(t, policy.DefaultMaxIterations, set.Termination.(*policy.BoundedTermination).MaxIterations)
	assert.Equal(t, policy.ScopeNone, set.Approval.(*policy.ScopedApproval).Scope)
}

func TestParseRejectsBadValues(t *testing.T) {
	_, err := Parse([]byte("policies:\n  termination:\n    on_max: explode\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("policies:\n  approval:\n    scope: sometimes\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("logging:\n  level: loud\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("\t not yaml"))
	assert.Error(t, err)
}
