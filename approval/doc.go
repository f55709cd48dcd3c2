// Package approval provides the built-in core.ApprovalStore implementation
// used to park roles whose capability calls were gated by the approval
// policy. Await blocks the paused role until an operator resolves the
// pending approval or the request context is cancelled.
package approval
