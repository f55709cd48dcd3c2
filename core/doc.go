// Package core contains the shared data model and service ports of rolemesh:
// event log entries, actions and final results, delegation plans, the Role
// abstraction, the request-scoped TaskContext, and the interfaces roles and
// the engine depend on (event log, approval store, checkpoint store,
// observability notifier). Concrete implementations live in sibling packages
// (eventlog, approval, checkpoint, observe); core itself holds no policy or
// execution logic.
package core
