// Package helper provides test helpers and test doubles for catalog tests.
//
// It contains spies for the observability interfaces of the query engine:
//   - LogHandlerSpy: a slog.Handler capturing records and their attributes
//   - ContextualLoggerSpy: captures context-aware logging calls
//   - MetricsCollectorSpy: captures metrics recording calls for verification
//   - TracingCollectorSpy: captures started and finished spans
//
// and small functions to inspect catalog.Rows independent of driver value types.
package helper
