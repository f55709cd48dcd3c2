package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolemesh/rolemesh/core"
)

func TestInMemoryStore_SaveAndLoad(t *testing.T) {
	store := NewInMemoryStore()

	cp := core.Checkpoint{
		Namespace: "ns",
		RoleKey:   "worker",
		TurnID:    "t1",
		Iteration: 4,
		Results:   []any{"partial"},
		SavedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.Save(cp))

	loaded, ok, err := store.Load("ns", "worker")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, loaded.Iteration)
	assert.Equal(t, []any{"partial"}, loaded.Results)
}

func TestInMemoryStore_SaveOverwrites(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.Save(core.Checkpoint{Namespace: "ns", RoleKey: "worker", Iteration: 1}))
	require.NoError(t, store.Save(core.Checkpoint{Namespace: "ns", RoleKey: "worker", Iteration: 7}))

	loaded, ok, err := store.Load("ns", "worker")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, loaded.Iteration)
}

func TestInMemoryStore_LoadMissing(t *testing.T) {
	store := NewInMemoryStore()

	_, ok, err := store.Load("ns", "worker")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryStore_Clear(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.Save(core.Checkpoint{Namespace: "ns-a", RoleKey: "worker", Iteration: 2}))
	require.NoError(t, store.Save(core.Checkpoint{Namespace: "ns-b", RoleKey: "worker", Iteration: 3}))

	require.NoError(t, store.Clear("ns-a", "worker"))

	_, ok, err := store.Load("ns-a", "worker")
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, ok, err := store.Load("ns-b", "worker")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, loaded.Iteration)
}

func TestInMemoryStore_ClearKeepsSiblingRoles(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.Save(core.Checkpoint{Namespace: "ns", RoleKey: "researcher", Iteration: 1}))
	require.NoError(t, store.Save(core.Checkpoint{Namespace: "ns", RoleKey: "writer", Iteration: 2}))

	require.NoError(t, store.Clear("ns", "researcher"))

	_, ok, err := store.Load("ns", "researcher")
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, ok, err := store.Load("ns", "writer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, loaded.Iteration)

	// Clearing an unknown namespace or role is a no-op.
	require.NoError(t, store.Clear("ghost", "worker"))
}
