package core

// Log is the append-only event log port. Append is the only mutator.
// Implementations must return entries in chronological (append) order, never
// duplicated, and must apply each append atomically: a failed append leaves
// the log unchanged.
//
// Logs are namespaced by request identifier; nothing written under one
// namespace is ever visible under another.
type Log interface {
	// Append adds one immutable entry to the namespace's log.
	Append(namespace string, e Entry) error

	// Entries returns every entry of the namespace in append order. History
	// views derive role-scoped subsets from this.
	Entries(namespace string) ([]Entry, error)

	// Conversation returns only conversation-in / conversation-out entries.
	Conversation(namespace string) ([]Entry, error)

	// RoleEntries returns every entry authored by one role, plus turn-start
	// markers for that role.
	RoleEntries(namespace, roleKey string) ([]Entry, error)

	// Broadcasts returns only global-broadcast entries.
	Broadcasts(namespace string) ([]Entry, error)

	// TeamEntries returns entries authored by any of the given roles,
	// preserving global append order across roles.
	TeamEntries(namespace string, roleKeys []string) ([]Entry, error)
}
