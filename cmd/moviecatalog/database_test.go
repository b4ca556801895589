package main

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AntonStoeckl/movie-catalog/catalog/sqlengine"
	"github.com/AntonStoeckl/movie-catalog/internal/config"
	"github.com/AntonStoeckl/movie-catalog/internal/metrics"
	"github.com/AntonStoeckl/movie-catalog/testutil/sakila"
)

func givenSakilaFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sakila.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, sakila.Load(context.Background(), db))
	require.NoError(t, db.Close())

	return path
}

func givenDatabaseConfig(adapter, dsn string) config.DatabaseConfig {
	return config.DatabaseConfig{
		Adapter:            adapter,
		Dialect:            sqlengine.DialectSQLite,
		DSN:                dsn,
		MaxOpenConns:       1,
		MaxIdleConns:       1,
		ConnMaxLifetimeSec: 60,
		ReadinessTimeout:   1,
	}
}

func Test_OpenEngine_WithSQLiteAdapters(t *testing.T) {
	path := givenSakilaFile(t)

	for _, adapter := range []string{config.AdapterSQLDB, config.AdapterSQLXDB} {
		t.Run(adapter, func(t *testing.T) {
			engine, closeDB, err := openEngine(
				context.Background(),
				givenDatabaseConfig(adapter, path),
				zap.NewNop(),
				sqlengine.WithDialect(sqlengine.DialectSQLite))
			require.NoError(t, err)
			defer closeDB()

			rows, err := engine.QueryMovies(context.Background(), "brother", "documentary", "r")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "BROTHERHOOD BLANKET", rows[0]["title"])
		})
	}
}

func Test_OpenEngine_WithUnknownAdapter(t *testing.T) {
	_, _, err := openEngine(context.Background(), givenDatabaseConfig("mongo", "irrelevant"), zap.NewNop())

	assert.ErrorContains(t, err, `unknown database adapter "mongo"`)
}

func Test_OpenEngine_WhenTheSchemaIsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")

	_, _, err := openEngine(
		context.Background(),
		givenDatabaseConfig(config.AdapterSQLDB, path),
		zap.NewNop(),
		sqlengine.WithDialect(sqlengine.DialectSQLite))

	assert.ErrorContains(t, err, "create query engine")
}

func Test_WaitForReady(t *testing.T) {
	t.Run("ready at once", func(t *testing.T) {
		calls := 0
		err := waitForReady(context.Background(), time.Second, func(context.Context) error {
			calls++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("ready after retries", func(t *testing.T) {
		calls := 0
		err := waitForReady(context.Background(), 5*time.Second, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("never ready", func(t *testing.T) {
		pingErr := errors.New("connection refused")
		err := waitForReady(context.Background(), 50*time.Millisecond, func(context.Context) error {
			return pingErr
		})

		assert.ErrorIs(t, err, pingErr)
		assert.ErrorContains(t, err, "database not ready")
	})
}

func Test_DriverName(t *testing.T) {
	assert.Equal(t, "sqlite3", driverName(sqlengine.DialectSQLite))
	assert.Equal(t, "postgres", driverName(sqlengine.DialectPostgres))
}

func Test_EngineOptions(t *testing.T) {
	collector, err := metrics.NewCatalogCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	cfg := config.Config{
		Database: givenDatabaseConfig(config.AdapterSQLDB, "irrelevant"),
		Catalog:  config.CatalogConfig{FilmListView: "film_list", QueryTimeoutSec: 5},
	}
	cfg.ApplyDefaults()

	assert.Len(t, engineOptions(cfg, zap.NewNop(), collector), 4)

	cfg.Catalog.OrderedResults = true
	cfg.Breaker.Enabled = true
	assert.Len(t, engineOptions(cfg, zap.NewNop(), collector), 6)
}
