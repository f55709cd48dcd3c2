// Package testutil provides shared helpers for constructing event log
// entries and fixtures in tests across the repository.
package testutil
