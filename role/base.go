package role

import (
	"fmt"
	"sync"

	"github.com/rolemesh/rolemesh/core"
)

// BaseRole bundles identity and hierarchy management shared by all role
// variants. Embed it and supply a Run method to satisfy core.Role. All
// exported methods are goroutine-safe unless otherwise documented.
type BaseRole struct {
	name         string
	description  string
	mu           sync.Mutex
	parent       core.Role
	subordinates []core.Role
}

// NewBaseRole constructs a BaseRole with a generated description
// (customizable via SetDescription).
func NewBaseRole(name string) BaseRole {
	return BaseRole{
		name:        name,
		description: fmt.Sprintf("Role %s", name),
	}
}

// Name returns the unique role name.
func (b *BaseRole) Name() string { return b.name }

// Description returns the role's purpose description, used by coordinators
// when deciding where to delegate.
func (b *BaseRole) Description() string { return b.description }

// SetDescription updates the role's description.
func (b *BaseRole) SetDescription(desc string) { b.description = desc }

// SetSubordinates atomically replaces the subordinate set, clearing previous
// parent links then assigning this role as parent of each new child. A role
// has at most one parent.
func (b *BaseRole) SetSubordinates(children ...core.Role) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, child := range b.subordinates {
		if setter, ok := child.(interface{ setParent(core.Role) }); ok {
			setter.setParent(nil)
		}
	}
	b.subordinates = nil

	for _, child := range children {
		if setter, ok := child.(interface{ setParent(core.Role) }); ok {
			// Wrap so the bare base satisfies core.Role for parent references.
			setter.setParent(&roleWrapper{b})
		}
		b.subordinates = append(b.subordinates, child)
	}

	return nil
}

// setParent sets the internal parent reference.
func (b *BaseRole) setParent(p core.Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = p
}

// Parent returns the parent role, or nil for a root role.
func (b *BaseRole) Parent() core.Role {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// Subordinates returns a shallow copy of the current subordinate set for
// safe iteration.
func (b *BaseRole) Subordinates() []core.Role {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]core.Role, len(b.subordinates))
	copy(result, b.subordinates)
	return result
}

// FindRole performs a depth-first search over the subtree rooted at this
// role (including itself), returning the first role whose Name matches or
// nil when there is no match.
func (b *BaseRole) FindRole(name string) core.Role {
	if b.name == name {
		return &roleWrapper{b}
	}

	for _, child := range b.Subordinates() {
		if child.Name() == name {
			return child
		}
		if found := child.FindRole(name); found != nil {
			return found
		}
	}
	return nil
}

// subordinateKeys returns the subordinate names, used for scoping history
// views.
func (b *BaseRole) subordinateKeys() []string {
	subs := b.Subordinates()
	keys := make([]string, len(subs))
	for i, s := range subs {
		keys[i] = s.Name()
	}
	return keys
}

// roleWrapper wraps BaseRole to satisfy core.Role for hierarchy references.
type roleWrapper struct{ *BaseRole }

// Run on a bare BaseRole is an error; embed it in a concrete role instead.
func (w *roleWrapper) Run(_ *core.TaskContext, _ string) (*core.FinalResult, error) {
	return nil, fmt.Errorf("cannot execute BaseRole directly - embed it in a concrete role with a Run implementation")
}
