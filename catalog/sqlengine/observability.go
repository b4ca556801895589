package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/movie-catalog/catalog"
)

const (
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgLoadFiltersFailed      = "failed to load filter options"
	logMsgQueryCompleted         = "query completed"
	logMsgFiltersLoaded          = "filter options loaded"
	logMsgSkippedInvalidID       = "skipped query for missing or invalid film id"
	logMsgBreakerStateChanged    = "circuit breaker state changed"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "catalog operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrAction                = "action"
	logAttrRowCount              = "row_count"
	logAttrDurationMS            = "duration_ms"
	logAttrFilmID                = "film_id"
	logAttrSnapshotID            = "snapshot_id"
	logAttrCategoryCount         = "category_count"
	logAttrRatingCount           = "rating_count"
	logAttrBreaker               = "breaker"
	logAttrFrom                  = "from"
	logAttrTo                    = "to"
)

// Metric names and label values reported to the MetricsCollector.
const (
	MetricQueryDuration   = "catalog_query_duration_seconds"
	MetricRowsReturned    = "catalog_rows_returned"
	MetricDatabaseErrors  = "catalog_database_errors_total"
	MetricFilterRefreshes = "catalog_filter_refreshes_total"
	LabelOperation        = "operation"
	LabelStatus           = "status"
	LabelErrorType        = "error_type"
)

const (
	spanNamePrefix     = "catalog."
	spanAttrOperation  = "operation"
	spanAttrDBSystem   = "db.system"
	spanAttrRowCount   = "row_count"
	spanAttrErrorType  = "error_type"
	spanAttrDurationMS = "duration_ms"
	spanAttrSnapshotID = "snapshot_id"
)

const (
	statusSuccess           = "success"
	statusError             = "error"
	errorTypeBuildQuery     = "build_query"
	errorTypeBackend        = "backend_unavailable"
	errorTypeScanRow        = "scan_row"
	errorTypeContextTimeout = "context_timeout"
	errorTypeOther          = "other"
)

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (qe *QueryEngine) logQueryWithDuration(
	ctx context.Context,
	sqlQuery string,
	action string,
	duration time.Duration,
) {

	if qe.logger != nil {
		qe.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, qe.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}

	if qe.contextualLogger != nil {
		qe.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, qe.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (qe *QueryEngine) logOperation(ctx context.Context, action string, args ...any) {
	if qe.logger != nil {
		qe.logger.Info(logMsgOperation+action, args...)
	}

	if qe.contextualLogger != nil {
		qe.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical issues at warn level if a logger is configured.
func (qe *QueryEngine) logWarn(ctx context.Context, message string, args ...any) {
	if qe.logger != nil {
		qe.logger.Warn(message, args...)
	}

	if qe.contextualLogger != nil {
		qe.contextualLogger.WarnContext(ctx, message, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (qe *QueryEngine) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if qe.logger != nil {
		qe.logger.Error(message, allArgs...)
	}

	if qe.contextualLogger != nil {
		qe.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

func (qe *QueryEngine) logFilterSnapshot(ctx context.Context, snapshot *catalog.FilterSnapshot) {
	qe.logOperation(
		ctx,
		logMsgFiltersLoaded,
		logAttrSnapshotID, snapshot.ID().String(),
		logAttrCategoryCount, len(snapshot.CategoryFilter().Options()),
		logAttrRatingCount, len(snapshot.RatingFilter().Options()))
}

func (qe *QueryEngine) logBreakerStateChange(name, from, to string) {
	qe.logWarn(context.Background(), logMsgBreakerStateChanged, logAttrBreaker, name, logAttrFrom, from, logAttrTo, to)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (qe *QueryEngine) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordErrorMetrics records database error metrics if a metrics collector is configured.
func (qe *QueryEngine) recordErrorMetrics(operation, errorType string) {
	if qe.metricsCollector != nil {
		labels := map[string]string{
			LabelOperation: operation,
			LabelStatus:    statusError,
			LabelErrorType: errorType,
		}
		qe.metricsCollector.IncrementCounter(MetricDatabaseErrors, labels)
	}
}

func (qe *QueryEngine) recordCounter(metricName, operation, status string) {
	if qe.metricsCollector != nil {
		qe.metricsCollector.IncrementCounter(metricName, map[string]string{
			LabelOperation: operation,
			LabelStatus:    status,
		})
	}
}

func (qe *QueryEngine) recordDuration(metricName string, duration time.Duration, operation, status string) {
	if qe.metricsCollector != nil {
		qe.metricsCollector.RecordDuration(metricName, duration, map[string]string{
			LabelOperation: operation,
			LabelStatus:    status,
		})
	}
}

func (qe *QueryEngine) recordValue(metricName string, value float64, operation, status string) {
	if qe.metricsCollector != nil {
		qe.metricsCollector.RecordValue(metricName, value, map[string]string{
			LabelOperation: operation,
			LabelStatus:    status,
		})
	}
}

// errorType classifies an error for the error_type metric label.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errorTypeContextTimeout
	case errors.Is(err, catalog.ErrScanningDBRowFailed):
		return errorTypeScanRow
	case errors.Is(err, catalog.ErrBackendUnavailable):
		return errorTypeBackend
	default:
		return errorTypeOther
	}
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (qe *QueryEngine) startTraceSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, catalog.SpanContext) {
	if qe.tracingCollector != nil {
		return qe.tracingCollector.StartSpan(ctx, name, attrs)
	}

	return ctx, nil
}

// finishTraceSpan finishes a tracing span if the tracing collector is configured.
func (qe *QueryEngine) finishTraceSpan(
	spanCtx catalog.SpanContext,
	status string,
	attrs map[string]string,
) {
	if qe.tracingCollector != nil && spanCtx != nil {
		qe.tracingCollector.FinishSpan(spanCtx, status, attrs)
	}
}

func (qe *QueryEngine) spanAttributes(action string) map[string]string {
	return map[string]string{
		spanAttrOperation: action,
		spanAttrDBSystem:  qe.dialect,
	}
}

// startQuerySpan starts a tracing span for one database round trip.
func (qe *QueryEngine) startQuerySpan(ctx context.Context, action string) (context.Context, catalog.SpanContext) {
	return qe.startTraceSpan(ctx, spanNamePrefix+action, qe.spanAttributes(action))
}

// finishQuerySpanSuccess finishes a successful query span with the row count.
func (qe *QueryEngine) finishQuerySpanSuccess(span catalog.SpanContext, rowCount int, duration time.Duration) {
	if span != nil {
		span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", qe.toMilliseconds(duration)))
	}

	qe.finishTraceSpan(span, statusSuccess, map[string]string{spanAttrRowCount: strconv.Itoa(rowCount)})
}

// finishQuerySpanError finishes a query span with error details.
func (qe *QueryEngine) finishQuerySpanError(span catalog.SpanContext, errorType string, duration time.Duration) {
	if span != nil && duration > 0 {
		span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", qe.toMilliseconds(duration)))
	}

	qe.finishTraceSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})
}
