// Package logging provides a minimal logging interface and adapters for
// rolemesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the engine, roles and capabilities use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - MeshLogger with contextual helpers (namespace, role, component) and
//     domain helpers for capability and model calls
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(func(o *engine.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
