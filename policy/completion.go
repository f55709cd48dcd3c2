package policy

import (
	"fmt"
	"strings"

	"github.com/rolemesh/rolemesh/core"
)

// CompletionDetector decides whether the role's current turn shows the task
// is done. Implementations only see the role-scoped view, which starts at the
// current turn-start, so stale completion signals from earlier tasks are out
// of reach by construction.
type CompletionDetector interface {
	IsComplete(view []core.Entry) bool
}

// Default number of most recent entries the marker detector scans.
const defaultCompletionWindow = 5

var defaultCompletionMarkers = []string{"task complete", "done", "finished"}

// MarkerCompletion detects completion by scanning the last Window entries of
// the view for any of the configured phrases, case-insensitively, in
// observation values and message text.
type MarkerCompletion struct {
	Markers []string
	Window  int
}

// NewMarkerCompletion returns the default marker-based detector.
func NewMarkerCompletion(optFns ...func(o *MarkerCompletion)) *MarkerCompletion {
	d := &MarkerCompletion{Markers: defaultCompletionMarkers, Window: defaultCompletionWindow}
	for _, fn := range optFns {
		fn(d)
	}
	return d
}

// IsComplete implements CompletionDetector.
func (d *MarkerCompletion) IsComplete(view []core.Entry) bool {
	start := len(view) - d.Window
	if start < 0 {
		start = 0
	}
	for _, e := range view[start:] {
		if d.matches(entryText(e)) {
			return true
		}
	}
	return false
}

func (d *MarkerCompletion) matches(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, m := range d.Markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func entryText(e core.Entry) string {
	if e.Message != "" {
		return e.Message
	}
	if e.Result != nil && e.Result.Value != nil {
		return fmt.Sprintf("%v", e.Result.Value)
	}
	return ""
}
