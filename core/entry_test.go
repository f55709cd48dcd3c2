package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryConstructors(t *testing.T) {
	turnStart := NewTurnStartEntry("worker", "t1", "do the task")
	assert.Equal(t, KindTurnStart, turnStart.Kind)
	assert.Equal(t, "worker", turnStart.RoleKey)
	assert.Equal(t, "t1", turnStart.TurnID)
	assert.Equal(t, "do the task", turnStart.Message)
	assert.NotEmpty(t, turnStart.ID)
	assert.False(t, turnStart.Timestamp.IsZero())

	action := NewAction("search", map[string]any{"q": "go"})
	actionEntry := NewActionEntry("worker", "t1", action)
	require.NotNil(t, actionEntry.Action)
	assert.Equal(t, "search", actionEntry.Action.Capability)

	obs := NewObservationEntry("worker", "t1", action, "3 results")
	require.NotNil(t, obs.Result)
	assert.Equal(t, action.ID, obs.Result.CallID)
	assert.Equal(t, "3 results", obs.Result.Value)
	assert.Empty(t, obs.Result.Err)

	errEntry := NewErrorEntry("worker", "t1", action, errors.New("timeout"))
	require.NotNil(t, errEntry.Result)
	assert.Equal(t, KindError, errEntry.Kind)
	assert.Equal(t, "timeout", errEntry.Result.Err)
	assert.Nil(t, errEntry.Result.Value)
}

func TestEntryConstructors_Delegation(t *testing.T) {
	delegation := NewDelegationEntry("lead", "t1", "researcher", "gather facts")
	assert.Equal(t, KindDelegation, delegation.Kind)
	assert.Equal(t, "gather facts", delegation.Message)
	assert.Equal(t, "researcher", delegation.Meta["target"])

	result := &FinalResult{Operation: OperationDisplayMessage, HumanSummary: "facts found"}
	collected := NewDelegationResultEntry("lead", "t1", "researcher", result)
	assert.Equal(t, KindObservation, collected.Kind)
	require.NotNil(t, collected.Result)
	assert.Equal(t, "researcher", collected.Result.Capability)
	assert.Equal(t, result, collected.Result.Value)
}

func TestEntryConstructors_Conversation(t *testing.T) {
	in := NewConversationInEntry("t1", "hello")
	assert.Equal(t, KindConversationIn, in.Kind)
	assert.Equal(t, "caller", in.RoleKey)
	assert.Equal(t, "hello", in.Message)

	out := NewConversationOutEntry("t1", &FinalResult{Operation: OperationDisplayMessage, HumanSummary: "hi"})
	assert.Equal(t, KindConversationOut, out.Kind)
	assert.Equal(t, "t1", out.TurnID)
	assert.Equal(t, "hi", out.Message)
	require.NotNil(t, out.Final)
}

func TestEntryIsTerminal(t *testing.T) {
	result := &FinalResult{Operation: OperationDisplayMessage}

	assert.True(t, NewFinalEntry("worker", "t1", result).IsTerminal())
	assert.True(t, NewSynthesisEntry("lead", "t1", result).IsTerminal())
	assert.False(t, NewTurnStartEntry("worker", "t1", "task").IsTerminal())
	assert.False(t, NewBroadcastEntry("operator", "news").IsTerminal())
}

func TestBroadcastEntryHasNoTurn(t *testing.T) {
	b := NewBroadcastEntry("operator", "deadline moved")
	assert.Equal(t, KindBroadcast, b.Kind)
	assert.Empty(t, b.TurnID)
	assert.Equal(t, "deadline moved", b.Message)
}
