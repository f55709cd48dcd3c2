// Package eventlog provides the built-in core.Log implementation: a
// process-local, append-only store of event entries partitioned by request
// namespace. It is safe for concurrent access and suited for tests, demos
// and single-process deployments; durable deployments supply their own
// core.Log implementation.
package eventlog
