package core

import "time"

// Checkpoint is the recoverable state of a long-running role execution:
// the iteration counter plus results accumulated so far. The engine writes
// one whenever the checkpoint policy signals; restoring is the caller's
// concern.
type Checkpoint struct {
	Namespace string    `json:"namespace"`
	RoleKey   string    `json:"role_key"`
	TurnID    string    `json:"turn_id"`
	Iteration int       `json:"iteration"`
	Results   []any     `json:"results,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// CheckpointStore persists recoverable role state. The engine only ever
// overwrites the latest checkpoint per namespace and role. Clear is scoped
// the same way: a role finishing its turn must not disturb checkpoints of
// sibling roles still running in the namespace.
type CheckpointStore interface {
	Save(cp Checkpoint) error
	Load(namespace, roleKey string) (Checkpoint, bool, error)
	Clear(namespace, roleKey string) error
}
