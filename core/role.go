package core

// Role is the single polymorphic abstraction executing one logical
// participant in the hierarchy. Workers and coordinators are the two
// variants; they differ only in what happens inside a planning step, so a
// coordinator can delegate to nested coordinators at arbitrary depth through
// this one interface.
//
// Implementations must:
//   - Respect cancellation via the TaskContext's ambient context
//   - Record everything they do as event log entries through the TaskContext
//   - Return terminal errors as error-shaped FinalResults, reserving the Go
//     error for infrastructure failures (log append, cancellation)
type Role interface {
	Name() string
	Description() string
	Run(tc *TaskContext, task string) (*FinalResult, error)
	SetSubordinates(children ...Role) error
	Subordinates() []Role
	Parent() Role
	FindRole(name string) Role
}

// RoleInfo carries identifying details about a role used in contexts,
// entries and notifications. Kind categorizes the variant ("worker",
// "coordinator", "orchestrator").
type RoleInfo struct{ Key, Kind string }
