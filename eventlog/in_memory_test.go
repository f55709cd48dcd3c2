package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolemesh/rolemesh/core"
	"github.com/rolemesh/rolemesh/internal/testutil"
)

func TestInMemoryLog_AppendAndEntries(t *testing.T) {
	log := NewInMemoryLog()

	first := testutil.NewEntryBuilder().Role("worker").Turn("t1").TurnStart("do the task").Build()
	second := testutil.NewEntryBuilder().Role("worker").Turn("t1").Action("search", map[string]any{"q": "go"}).Build()

	require.NoError(t, log.Append("ns", first))
	require.NoError(t, log.Append("ns", second))

	entries, err := log.Entries("ns")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, second.ID, entries[1].ID)
	assert.Equal(t, 2, log.Len("ns"))
}

func TestInMemoryLog_NamespaceIsolation(t *testing.T) {
	log := NewInMemoryLog()

	require.NoError(t, log.Append("ns-a", testutil.NewEntryBuilder().Role("worker").Observation("search", "a").Build()))
	require.NoError(t, log.Append("ns-b", testutil.NewEntryBuilder().Role("worker").Observation("search", "b").Build()))

	aEntries, err := log.Entries("ns-a")
	require.NoError(t, err)
	require.Len(t, aEntries, 1)
	assert.Equal(t, "a", aEntries[0].Result.Value)

	bEntries, err := log.Entries("ns-b")
	require.NoError(t, err)
	require.Len(t, bEntries, 1)
	assert.Equal(t, "b", bEntries[0].Result.Value)

	empty, err := log.Entries("ns-unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInMemoryLog_Conversation(t *testing.T) {
	log := NewInMemoryLog()

	require.NoError(t, log.Append("ns", core.NewConversationInEntry("t1", "hello")))
	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("worker").Turn("t1").Action("search", nil).Build()))
	require.NoError(t, log.Append("ns", core.NewConversationOutEntry("t1", &core.FinalResult{
		Operation:    core.OperationDisplayMessage,
		HumanSummary: "hi",
	})))

	conv, err := log.Conversation("ns")
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, core.KindConversationIn, conv[0].Kind)
	assert.Equal(t, core.KindConversationOut, conv[1].Kind)
	assert.Equal(t, "hi", conv[1].Message)
}

func TestInMemoryLog_RoleEntries(t *testing.T) {
	log := NewInMemoryLog()

	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("researcher").Observation("search", 1).Build()))
	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("analyst").Observation("fetch", 2).Build()))
	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("researcher").Observation("search", 3).Build()))

	entries, err := log.RoleEntries("ns", "researcher")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "researcher", e.RoleKey)
	}
}

func TestInMemoryLog_Broadcasts(t *testing.T) {
	log := NewInMemoryLog()

	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("worker").Action("search", nil).Build()))
	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("operator").Broadcast("deadline moved").Build()))

	broadcasts, err := log.Broadcasts("ns")
	require.NoError(t, err)
	require.Len(t, broadcasts, 1)
	assert.Equal(t, core.KindBroadcast, broadcasts[0].Kind)
	assert.Equal(t, "deadline moved", broadcasts[0].Message)
}

func TestInMemoryLog_TeamEntries(t *testing.T) {
	log := NewInMemoryLog()

	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("lead").Turn("t1").TurnStart("plan").Build()))
	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("researcher").Observation("search", 1).Build()))
	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("outsider").Observation("other", 2).Build()))
	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("analyst").Observation("fetch", 3).Build()))

	entries, err := log.TeamEntries("ns", []string{"lead", "researcher", "analyst"})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "lead", entries[0].RoleKey)
	assert.Equal(t, "researcher", entries[1].RoleKey)
	assert.Equal(t, "analyst", entries[2].RoleKey)
}

func TestInMemoryLog_ReadsReturnCopies(t *testing.T) {
	log := NewInMemoryLog()
	require.NoError(t, log.Append("ns", testutil.NewEntryBuilder().Role("worker").Observation("search", "v").Build()))

	entries, err := log.Entries("ns")
	require.NoError(t, err)
	entries[0].RoleKey = "mutated"

	again, err := log.Entries("ns")
	require.NoError(t, err)
	assert.Equal(t, "worker", again[0].RoleKey)
}
