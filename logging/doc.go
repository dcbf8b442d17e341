// Package logging provides a minimal logging interface and adapters for supportmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the synchronizer, the escalation pipeline and the collaborators use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - SupportLogger with team/session scoped helpers
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	sync := teamstate.NewSynchronizer(func(o *teamstate.Options) { o.Logger = logger })
package logging
