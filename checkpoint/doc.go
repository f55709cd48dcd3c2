// Package checkpoint provides the built-in core.CheckpointStore: a
// process-local snapshot store for recoverable role state written when the
// checkpoint policy fires during long-running tasks. Durable deployments
// supply their own core.CheckpointStore implementation.
package checkpoint
