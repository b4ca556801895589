package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"go.uber.org/zap"

	"github.com/AntonStoeckl/movie-catalog/catalog/sqlengine"
	"github.com/AntonStoeckl/movie-catalog/internal/config"
)

const (
	readinessPollInterval = 500 * time.Millisecond
	pgxMinConnections     = int32(1)
	pgxMaxConnIdleTime    = 5 * time.Minute
	pgxConnectTimeout     = 5 * time.Second
)

// openEngine connects to the database with the configured adapter, waits until it answers,
// and creates the query engine. The returned func closes all connections.
func openEngine(
	ctx context.Context,
	cfg config.DatabaseConfig,
	logger *zap.Logger,
	options ...sqlengine.Option,
) (*sqlengine.QueryEngine, func(), error) {
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second

	switch cfg.Adapter {
	case config.AdapterPGXPool:
		return openPGXPoolEngine(ctx, cfg, readiness, logger, options...)

	case config.AdapterSQLDB:
		db, err := sql.Open(driverName(cfg.Dialect), cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		configureSQLPool(db, cfg)

		if err = waitForReady(ctx, readiness, db.PingContext); err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		engine, err := sqlengine.NewQueryEngineFromSQLDB(ctx, db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create query engine: %w", err)
		}

		return engine, func() { _ = db.Close() }, nil

	case config.AdapterSQLXDB:
		db, err := sqlx.Open(driverName(cfg.Dialect), cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		configureSQLPool(db.DB, cfg)

		if err = waitForReady(ctx, readiness, db.PingContext); err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		engine, err := sqlengine.NewQueryEngineFromSQLX(ctx, db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create query engine: %w", err)
		}

		return engine, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown database adapter %q", cfg.Adapter)
	}
}

func openPGXPoolEngine(
	ctx context.Context,
	cfg config.DatabaseConfig,
	readiness time.Duration,
	logger *zap.Logger,
	options ...sqlengine.Option,
) (*sqlengine.QueryEngine, func(), error) {
	primary, err := openPGXPool(ctx, cfg.DSN, cfg, readiness)
	if err != nil {
		return nil, nil, err
	}

	if cfg.ReplicaDSN == "" {
		engine, engineErr := sqlengine.NewQueryEngineFromPGXPool(ctx, primary, options...)
		if engineErr != nil {
			primary.Close()
			return nil, nil, fmt.Errorf("create query engine: %w", engineErr)
		}

		return engine, primary.Close, nil
	}

	replica, err := openPGXPool(ctx, cfg.ReplicaDSN, cfg, readiness)
	if err != nil {
		primary.Close()
		return nil, nil, fmt.Errorf("replica: %w", err)
	}
	logger.Info("Reading from replica")

	engine, err := sqlengine.NewQueryEngineFromPGXPoolWithReplica(ctx, primary, replica, options...)
	if err != nil {
		replica.Close()
		primary.Close()
		return nil, nil, fmt.Errorf("create query engine: %w", err)
	}

	return engine, func() {
		replica.Close()
		primary.Close()
	}, nil
}

func openPGXPool(ctx context.Context, dsn string, cfg config.DatabaseConfig, readiness time.Duration) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns) //nolint:gosec // validated config value
	poolConfig.MinConns = pgxMinConnections
	poolConfig.MaxConnLifetime = time.Duration(cfg.ConnMaxLifetimeSec) * time.Second
	poolConfig.MaxConnIdleTime = pgxMaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = pgxConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err = waitForReady(ctx, readiness, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func configureSQLPool(db *sql.DB, cfg config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSec) * time.Second)
}

// driverName maps a goqu dialect to the registered database/sql driver.
func driverName(dialect string) string {
	if dialect == sqlengine.DialectSQLite {
		return "sqlite3"
	}
	return "postgres"
}

// waitForReady pings until the database answers or the timeout expires.
func waitForReady(ctx context.Context, timeout time.Duration, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(readinessPollInterval)
	defer ticker.Stop()

	for {
		err := ping(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, err)
		case <-ticker.C:
		}
	}
}
