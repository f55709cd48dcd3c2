package role

import (
	"fmt"
	"time"

	"github.com/rolemesh/rolemesh/core"
)

// CallResult captures the outcome of one capability call within a batch,
// stamped with its completion time. Batches append observations in
// completion order, so when two concurrent calls write conflicting values
// the later completion wins.
type CallResult struct {
	Action      core.Action
	Value       any
	Err         error
	CompletedAt time.Time
}

// Failed reports whether the call errored.
func (r CallResult) Failed() bool { return r.Err != nil }

// Section is one capability's slice of a mixed aggregation.
type Section struct {
	Capability string `json:"capability"`
	Values     []any  `json:"values"`
}

// Aggregate combines the successful results of a batch into one value.
//
// Homogeneous batches (every call hit the same capability) merge into a
// single deduplicated list; element slices are flattened first so two
// searches returning overlapping hits yield each hit once. Heterogeneous
// batches keep results apart as per-capability sections in first-seen
// capability order. Failed calls contribute nothing; their errors already
// live in the event log.
func Aggregate(results []CallResult) any {
	ok := results[:0:0]
	for _, r := range results {
		if !r.Failed() {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return nil
	}

	homogeneous := true
	for _, r := range ok[1:] {
		if r.Action.Capability != ok[0].Action.Capability {
			homogeneous = false
			break
		}
	}

	if homogeneous {
		return mergeValues(ok)
	}
	return sectionValues(ok)
}

// mergeValues flattens and deduplicates same-capability results.
func mergeValues(results []CallResult) []any {
	seen := make(map[string]bool)
	var out []any
	for _, r := range results {
		for _, v := range flatten(r.Value) {
			key := fingerprint(v)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

// sectionValues groups mixed-capability results, preserving first-seen
// capability order.
func sectionValues(results []CallResult) []Section {
	index := make(map[string]int)
	var sections []Section
	for _, r := range results {
		i, ok := index[r.Action.Capability]
		if !ok {
			i = len(sections)
			index[r.Action.Capability] = i
			sections = append(sections, Section{Capability: r.Action.Capability})
		}
		sections[i].Values = append(sections[i].Values, flatten(r.Value)...)
	}
	return sections
}

func flatten(v any) []any {
	switch vv := v.(type) {
	case nil:
		return nil
	case []any:
		return vv
	default:
		return []any{v}
	}
}

// fingerprint renders a value for dedup comparison. Formatting is stable for
// the JSON-ish values capabilities return in practice; collisions only cost
// a dropped duplicate.
func fingerprint(v any) string { return fmt.Sprintf("%#v", v) }
