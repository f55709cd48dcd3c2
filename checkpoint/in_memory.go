package checkpoint

import (
	"sync"

	"github.com/rolemesh/rolemesh/core"
)

// InMemoryStore keeps the latest checkpoint per namespace and role in a
// nested map guarded by an RWMutex. Saving overwrites; loading returns a
// copy.
type InMemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]map[string]core.Checkpoint // namespace -> roleKey -> checkpoint
}

// NewInMemoryStore returns an empty in-memory checkpoint store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{checkpoints: make(map[string]map[string]core.Checkpoint)}
}

// Save stores (or overwrites) the checkpoint for its namespace and role.
func (s *InMemoryStore) Save(cp core.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.checkpoints[cp.Namespace]
	if !ok {
		ns = make(map[string]core.Checkpoint)
		s.checkpoints[cp.Namespace] = ns
	}
	ns[cp.RoleKey] = cp
	return nil
}

// Load returns the latest checkpoint for a namespace and role, if any.
func (s *InMemoryStore) Load(namespace, roleKey string) (core.Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[namespace][roleKey]
	return cp, ok, nil
}

// Clear drops the checkpoint one role holds in a namespace. Checkpoints of
// other roles in the same namespace are untouched.
func (s *InMemoryStore) Clear(namespace, roleKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.checkpoints[namespace]
	if !ok {
		return nil
	}
	delete(ns, roleKey)
	if len(ns) == 0 {
		delete(s.checkpoints, namespace)
	}
	return nil
}
