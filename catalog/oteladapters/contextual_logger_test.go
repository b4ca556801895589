package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/movie-catalog/catalog/oteladapters"
)

func Test_SlogBridgeLogger_AllLevels(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler("catalog", handler)
	ctx := context.Background()

	logger.DebugContext(ctx, "executed sql for: query_movies", "duration_ms", 1.5)
	logger.InfoContext(ctx, "catalog operation: query completed", "row_count", 1)
	logger.WarnContext(ctx, "circuit breaker state changed", "from", "closed", "to", "open")
	logger.ErrorContext(ctx, "database query execution failed", "error", "boom")

	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG"`)
	assert.Contains(t, output, `"level":"INFO"`)
	assert.Contains(t, output, `"level":"WARN"`)
	assert.Contains(t, output, `"level":"ERROR"`)
	assert.Contains(t, output, `"logger":"catalog"`)
	assert.Contains(t, output, `"duration_ms":1.5`)
	assert.Contains(t, output, `"row_count":1`)
	assert.Contains(t, output, `"to":"open"`)
	assert.Contains(t, output, `"error":"boom"`)
}

func Test_SlogBridgeLogger_WithTheGlobalProvider(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("catalog")

	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "catalog operation: filter options loaded", "category_count", 16)
	})
}

func Test_OTelLogger_ArgumentHandling(t *testing.T) {
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("catalog"))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "executed sql for: query_actors", "duration_ms", 0.25, "query", "SELECT 1")
		logger.InfoContext(ctx, "catalog operation: query completed", "row_count", 2, "ok", true)
		logger.WarnContext(ctx, "failed to close database rows", "error", struct{ Code int }{Code: 1})
		logger.ErrorContext(ctx, "database query execution failed", "error")
		logger.InfoContext(ctx, "no attributes")
		logger.InfoContext(ctx, "non-string key", 42, "value")
	})
}
