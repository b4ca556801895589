package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/AntonStoeckl/movie-catalog/catalog"
)

// CatalogLogger lets the query engine log through zap.
// It implements catalog.Logger and catalog.ContextualLogger. The context variants prefer the
// request logger stored with ContextWithLogger, so engine lines carry the request_id.
type CatalogLogger struct {
	base *zap.SugaredLogger
}

// NewCatalogLogger wraps a sugared zap logger. Engine args are alternating key/value pairs.
func NewCatalogLogger(base *zap.SugaredLogger) *CatalogLogger {
	return &CatalogLogger{base: base}
}

func (l *CatalogLogger) Debug(msg string, args ...any) {
	l.base.Debugw(msg, args...)
}

func (l *CatalogLogger) Info(msg string, args ...any) {
	l.base.Infow(msg, args...)
}

func (l *CatalogLogger) Warn(msg string, args ...any) {
	l.base.Warnw(msg, args...)
}

func (l *CatalogLogger) Error(msg string, args ...any) {
	l.base.Errorw(msg, args...)
}

func (l *CatalogLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.forContext(ctx).Debugw(msg, args...)
}

func (l *CatalogLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.forContext(ctx).Infow(msg, args...)
}

func (l *CatalogLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.forContext(ctx).Warnw(msg, args...)
}

func (l *CatalogLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.forContext(ctx).Errorw(msg, args...)
}

func (l *CatalogLogger) forContext(ctx context.Context) *zap.SugaredLogger {
	if reqLogger, ok := loggerFromContext(ctx); ok {
		return reqLogger.Sugar()
	}
	return l.base
}

var (
	_ catalog.Logger           = (*CatalogLogger)(nil)
	_ catalog.ContextualLogger = (*CatalogLogger)(nil)
)
