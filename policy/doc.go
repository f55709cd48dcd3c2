// Package policy defines the pluggable decision points that shape role
// execution: completion detection, termination, loop prevention, human
// approval gating, checkpointing and coordinator follow-up. Each concern is a
// small interface with a default implementation; Set bundles one of each so a
// role carries a single value.
//
// Policies are consulted, never trusted with control flow: a role calls a
// policy, receives a verdict and acts on it. Advisory policies (loop
// prevention, checkpoint) must not be able to crash a role; roles recover
// panics from them and log a warning. Gating policies (termination, approval)
// propagate their errors because proceeding on a failed gate would bypass it.
package policy
