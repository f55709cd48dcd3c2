package eventlog

import (
	"sync"

	"github.com/rolemesh/rolemesh/core"
)

// InMemoryLog is a volatile core.Log implementation storing entries in a
// process local map keyed by namespace. Appends are atomic per entry and
// reads return defensive copies in append order, so no caller can mutate the
// log or observe entries out of order.
type InMemoryLog struct {
	mu      sync.RWMutex
	entries map[string][]core.Entry
}

// NewInMemoryLog constructs an empty in-memory event log.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{entries: make(map[string][]core.Entry)}
}

// Append adds one entry to the namespace's partition.
func (l *InMemoryLog) Append(namespace string, e core.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[namespace] = append(l.entries[namespace], e)
	return nil
}

// Conversation returns conversation-in and conversation-out entries only.
func (l *InMemoryLog) Conversation(namespace string) ([]core.Entry, error) {
	return l.filter(namespace, func(e core.Entry) bool {
		return e.Kind == core.KindConversationIn || e.Kind == core.KindConversationOut
	})
}

// RoleEntries returns every entry authored by roleKey.
func (l *InMemoryLog) RoleEntries(namespace, roleKey string) ([]core.Entry, error) {
	return l.filter(namespace, func(e core.Entry) bool {
		return e.RoleKey == roleKey
	})
}

// Broadcasts returns global-broadcast entries only.
func (l *InMemoryLog) Broadcasts(namespace string) ([]core.Entry, error) {
	return l.filter(namespace, func(e core.Entry) bool {
		return e.Kind == core.KindBroadcast
	})
}

// TeamEntries returns entries authored by any of the given roles in global
// append order.
func (l *InMemoryLog) TeamEntries(namespace string, roleKeys []string) ([]core.Entry, error) {
	keys := make(map[string]bool, len(roleKeys))
	for _, k := range roleKeys {
		keys[k] = true
	}
	return l.filter(namespace, func(e core.Entry) bool {
		return keys[e.RoleKey]
	})
}

// Entries returns a copy of every entry in the namespace in append order.
func (l *InMemoryLog) Entries(namespace string) ([]core.Entry, error) {
	return l.filter(namespace, func(core.Entry) bool { return true })
}

// Len reports the number of entries in a namespace. Intended for tests and
// introspection.
func (l *InMemoryLog) Len(namespace string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries[namespace])
}

func (l *InMemoryLog) filter(namespace string, keep func(core.Entry) bool) ([]core.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []core.Entry
	for _, e := range l.entries[namespace] {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
