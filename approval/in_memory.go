package approval

import (
	"context"
	"fmt"
	"sync"

	"github.com/rolemesh/rolemesh/core"
)

// InMemoryStore is a process-local core.ApprovalStore. Pending approvals and
// their resolution channels live in nested maps guarded by a mutex:
// namespace -> approval id -> record. Resolution is delivered exactly once
// per approval; late Await calls on an already resolved approval return the
// recorded outcome immediately.
type InMemoryStore struct {
	mu      sync.Mutex
	pending map[string]map[string]*record
}

type record struct {
	approval core.PendingApproval
	resolved bool
	approved bool
	done     chan struct{}
}

// NewInMemoryStore returns an empty in-memory approval store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{pending: make(map[string]map[string]*record)}
}

// Create registers a pending approval awaiting resolution.
func (s *InMemoryStore) Create(p core.PendingApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.pending[p.Namespace]
	if !ok {
		ns = make(map[string]*record)
		s.pending[p.Namespace] = ns
	}
	if _, exists := ns[p.ID]; exists {
		return fmt.Errorf("approval %s already exists", p.ID)
	}
	ns[p.ID] = &record{approval: p, done: make(chan struct{})}
	return nil
}

// Resolve marks a pending approval approved or denied and wakes any waiter.
func (s *InMemoryStore) Resolve(namespace, id string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.lookupLocked(namespace, id)
	if err != nil {
		return err
	}
	if rec.resolved {
		return fmt.Errorf("approval %s already resolved", id)
	}
	rec.resolved = true
	rec.approved = approved
	close(rec.done)
	return nil
}

// Await blocks until the approval is resolved or ctx is cancelled, returning
// the approve/deny outcome.
func (s *InMemoryStore) Await(ctx context.Context, namespace, id string) (bool, error) {
	s.mu.Lock()
	rec, err := s.lookupLocked(namespace, id)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	select {
	case <-rec.done:
		return rec.approved, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Pending lists unresolved approvals for a namespace.
func (s *InMemoryStore) Pending(namespace string) ([]core.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PendingApproval
	for _, rec := range s.pending[namespace] {
		if !rec.resolved {
			out = append(out, rec.approval)
		}
	}
	return out, nil
}

// Clear drops all approvals for a namespace, waking waiters with a denial.
func (s *InMemoryStore) Clear(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.pending[namespace] {
		if !rec.resolved {
			rec.resolved = true
			close(rec.done)
		}
	}
	delete(s.pending, namespace)
	return nil
}

func (s *InMemoryStore) lookupLocked(namespace, id string) (*record, error) {
	ns, ok := s.pending[namespace]
	if !ok {
		return nil, fmt.Errorf("approval %s not found", id)
	}
	rec, ok := ns[id]
	if !ok {
		return nil, fmt.Errorf("approval %s not found", id)
	}
	return rec, nil
}
