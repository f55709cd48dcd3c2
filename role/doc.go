// Package role implements the two execution variants of the hierarchy.
//
// Worker runs a bounded plan/execute/observe loop: a strategy proposes
// actions, the worker executes them (concurrently when a batch is proposed),
// records observations and consults its policies after each iteration.
//
// Coordinator decomposes a task into a delegation plan, hands phase goals to
// subordinate roles (sequentially or in parallel), aggregates their results
// and synthesizes the final answer. Both satisfy core.Role, so coordinators
// nest to arbitrary depth.
package role
