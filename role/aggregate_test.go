package role

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rolemesh/rolemesh/core"
)

func TestAggregateMergesSameCapability(t *testing.T) {
	results := []CallResult{
		{Action: core.NewAction("search", map[string]any{"q": "a"}), Value: []any{"r1", "r2"}},
		{Action: core.NewAction("search", map[string]any{"q": "b"}), Value: []any{"r2", "r3"}},
	}

	merged := Aggregate(results)

	assert.Equal(t, []any{"r1", "r2", "r3"}, merged)
}

func TestAggregateSectionsMixedCapabilities(t *testing.T) {
	results := []CallResult{
		{Action: core.NewAction("search", nil), Value: "x"},
		{Action: core.NewAction("fetch", nil), Value: "y"},
		{Action: core.NewAction("search", nil), Value: "z"},
	}

	sections, ok := Aggregate(results).([]Section)
	assert.True(t, ok)
	assert.Len(t, sections, 2)
	assert.Equal(t, "search", sections[0].Capability)
	assert.Equal(t, []any{"x", "z"}, sections[0].Values)
	assert.Equal(t, "fetch", sections[1].Capability)
	assert.Equal(t, []any{"y"}, sections[1].Values)
}

func TestAggregateSkipsFailures(t *testing.T) {
	results := []CallResult{
		{Action: core.NewAction("search", nil), Value: "x"},
		{Action: core.NewAction("search", nil), Err: errors.New("boom")},
	}

	assert.Equal(t, []any{"x"}, Aggregate(results))
}

func TestAggregateAllFailed(t *testing.T) {
	results := []CallResult{
		{Action: core.NewAction("search", nil), Err: errors.New("boom")},
	}

	assert.Nil(t, Aggregate(results))
}

func TestAggregateScalarValues(t *testing.T) {
	results := []CallResult{
		{Action: core.NewAction("count", nil), Value: 3},
		{Action: core.NewAction("count", nil), Value: 3},
		{Action: core.NewAction("count", nil), Value: 5},
	}

	assert.Equal(t, []any{3, 5}, Aggregate(results))
}
