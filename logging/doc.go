// Package logging provides a minimal logging interface and adapters for the
// Literary Finder.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the engine, the state store and the workers use for
// observability. Messages are printf style: args are formatted into msg.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping a *slog.Logger
//   - LiteraryLogger with request/component scoping and domain helpers
//     (worker runs, model calls, analysis totals)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(func(o *engine.Options) { o.Logger = logger })
package logging
