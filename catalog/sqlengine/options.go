package sqlengine

import (
	"github.com/AntonStoeckl/movie-catalog/catalog"
)

// Option defines a functional option for configuring QueryEngine.
type Option func(*QueryEngine) error

// WithDialect sets the goqu SQL dialect used to render statements.
func WithDialect(dialect string) Option {
	return func(qe *QueryEngine) error {
		switch dialect {
		case DialectPostgres, DialectMySQL, DialectSQLite:
			qe.dialect = dialect
			return nil
		default:
			return catalog.ErrUnsupportedDialect
		}
	}
}

// WithFilmListView sets the name of the film list view which movie searches and ratings are read from.
func WithFilmListView(viewName string) Option {
	return func(qe *QueryEngine) error {
		if viewName == "" {
			return catalog.ErrEmptyViewName
		}

		qe.filmListView = viewName

		return nil
	}
}

// WithOrderedResults adds a deterministic ORDER BY to all queries.
// Without it, rows come back in whatever order the database chooses.
func WithOrderedResults() Option {
	return func(qe *QueryEngine) error {
		qe.orderedResults = true
		return nil
	}
}

// WithLogger sets the logger for the QueryEngine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Row counts, durations, filter refreshes (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger catalog.Logger) Option {
	return func(qe *QueryEngine) error {
		qe.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the QueryEngine.
// It receives the same messages as the Logger, together with the context of the operation.
func WithContextualLogger(logger catalog.ContextualLogger) Option {
	return func(qe *QueryEngine) error {
		qe.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the QueryEngine.
// The collector receives query durations, returned row counts, database errors, and filter refreshes.
func WithMetrics(collector catalog.MetricsCollector) Option {
	return func(qe *QueryEngine) error {
		qe.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the QueryEngine.
// Every database round trip and every filter refresh gets its own span.
func WithTracing(collector catalog.TracingCollector) Option {
	return func(qe *QueryEngine) error {
		qe.tracingCollector = collector
		return nil
	}
}

// WithCircuitBreaker protects database calls with a circuit breaker.
// While the circuit is open, queries fail fast with catalog.ErrBackendUnavailable.
func WithCircuitBreaker(settings BreakerSettings) Option {
	return func(qe *QueryEngine) error {
		qe.breaker = newCircuitBreaker(settings, qe)
		return nil
	}
}
