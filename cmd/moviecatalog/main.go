package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/AntonStoeckl/movie-catalog/catalog/sqlengine"
	"github.com/AntonStoeckl/movie-catalog/httpapi"
	"github.com/AntonStoeckl/movie-catalog/internal/config"
	logpkg "github.com/AntonStoeckl/movie-catalog/internal/logger"
	"github.com/AntonStoeckl/movie-catalog/internal/metrics"
	"github.com/AntonStoeckl/movie-catalog/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting movie catalog API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("build_date", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_adapter", cfg.Database.Adapter),
		zap.String("db_dialect", cfg.Database.Dialect),
		zap.Bool("breaker_enabled", cfg.Breaker.Enabled),
	)

	// Register metrics explicitly (no init())
	if err = metrics.RegisterHTTPMetrics(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}
	collector, err := metrics.NewCatalogCollector(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register catalog metrics", zap.Error(err))
	}

	ctx := context.Background()
	engine, closeDB, err := openEngine(ctx, cfg.Database, logger, engineOptions(cfg, logger, collector)...)
	if err != nil {
		logger.Fatal("Failed to start the query engine", zap.Error(err))
	}
	defer closeDB()

	snapshot := engine.Filters().Snapshot()
	logger.Info("Connected to database",
		zap.String("filter_snapshot", snapshot.ID().String()),
		zap.Int("categories", len(snapshot.CategoryFilter().Options())),
		zap.Int("ratings", len(snapshot.RatingFilter().Options())),
	)

	server := httpapi.NewServer(
		engine,
		logger,
		httpapi.WithQueryTimeout(time.Duration(cfg.Catalog.QueryTimeoutSec)*time.Second),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpapi.NewRouter(server),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// engineOptions translates the catalog config into query engine options.
// Only the contextual logger is set, so every engine line is written once and carries the request_id.
func engineOptions(cfg config.Config, logger *zap.Logger, collector *metrics.CatalogCollector) []sqlengine.Option {
	options := []sqlengine.Option{
		sqlengine.WithDialect(cfg.Database.Dialect),
		sqlengine.WithFilmListView(cfg.Catalog.FilmListView),
		sqlengine.WithContextualLogger(logpkg.NewCatalogLogger(logger.Sugar())),
		sqlengine.WithMetrics(collector),
	}

	if cfg.Catalog.OrderedResults {
		options = append(options, sqlengine.WithOrderedResults())
	}

	if cfg.Breaker.Enabled {
		options = append(options, sqlengine.WithCircuitBreaker(sqlengine.BreakerSettings{
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         time.Duration(cfg.Breaker.IntervalSec) * time.Second,
			Timeout:          time.Duration(cfg.Breaker.TimeoutSec) * time.Second,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		}))
	}

	return options
}
