package sqlengine_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/movie-catalog/catalog"
	"github.com/AntonStoeckl/movie-catalog/catalog/sqlengine"
	"github.com/AntonStoeckl/movie-catalog/testutil/helper"
	"github.com/AntonStoeckl/movie-catalog/testutil/sakila"
)

// The tests in this file need direct access to the database and always run against the SQLite fixture.

func givenSQLiteEngine(t *testing.T, db *sql.DB, options ...sqlengine.Option) *sqlengine.QueryEngine {
	qe, err := sqlengine.NewQueryEngineFromSQLDB(
		context.Background(),
		db,
		append([]sqlengine.Option{sqlengine.WithDialect(sqlengine.DialectSQLite)}, options...)...)
	require.NoError(t, err, "error creating the query engine in test setup")

	return qe
}

func Test_NewQueryEngine_WithNilDatabaseConnection(t *testing.T) {
	ctx := context.Background()

	_, err := sqlengine.NewQueryEngineFromSQLDB(ctx, (*sql.DB)(nil))
	assert.ErrorIs(t, err, catalog.ErrNilDatabaseConnection)

	_, err = sqlengine.NewQueryEngineFromSQLX(ctx, (*sqlx.DB)(nil))
	assert.ErrorIs(t, err, catalog.ErrNilDatabaseConnection)

	_, err = sqlengine.NewQueryEngineFromPGXPool(ctx, (*pgxpool.Pool)(nil))
	assert.ErrorIs(t, err, catalog.ErrNilDatabaseConnection)

	_, err = sqlengine.NewQueryEngineFromPGXPoolWithReplica(ctx, (*pgxpool.Pool)(nil), (*pgxpool.Pool)(nil))
	assert.ErrorIs(t, err, catalog.ErrNilDatabaseConnection)
}

func Test_NewQueryEngine_WithInvalidOptions(t *testing.T) {
	db := sakila.OpenSQLite(t)
	ctx := context.Background()

	_, err := sqlengine.NewQueryEngineFromSQLDB(ctx, db, sqlengine.WithDialect("oracle"))
	assert.ErrorIs(t, err, catalog.ErrUnsupportedDialect)

	_, err = sqlengine.NewQueryEngineFromSQLDB(ctx, db, sqlengine.WithDialect(sqlengine.DialectSQLite), sqlengine.WithFilmListView(""))
	assert.ErrorIs(t, err, catalog.ErrEmptyViewName)
}

func Test_NewQueryEngine_WhenTheWhitelistsCannotBeLoaded(t *testing.T) {
	db := sakila.OpenSQLite(t)
	sakila.Exec(t, db, "DROP TABLE film_category")

	_, err := sqlengine.NewQueryEngineFromSQLDB(context.Background(), db, sqlengine.WithDialect(sqlengine.DialectSQLite))

	assert.ErrorIs(t, err, catalog.ErrLoadingFilterOptionsFailed)
	assert.ErrorIs(t, err, catalog.ErrBackendUnavailable)
}

func Test_QueryEngine_WithFilmListView(t *testing.T) {
	db := sakila.OpenSQLite(t)
	sakila.Exec(t, db, `CREATE VIEW documentaries AS SELECT * FROM film_list WHERE category = 'Documentary'`)
	qe := givenSQLiteEngine(t, db, sqlengine.WithFilmListView("documentaries"), sqlengine.WithOrderedResults())

	rows, err := qe.QueryMovies(context.Background(), "", "", "")

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "101", "436"}, helper.FilmIDs(rows))
	assert.Len(t, qe.Filters().RatingFilter().Options(), 3, "ratings come from the configured view")
}

func Test_RefreshFilters_PicksUpNewValues(t *testing.T) {
	ctx := context.Background()
	db := sakila.OpenSQLite(t)
	qe := givenSQLiteEngine(t, db, sqlengine.WithOrderedResults())

	sakila.Exec(t, db,
		`INSERT INTO category (category_id, name) VALUES (17, 'Western')`,
		`INSERT INTO film_category (film_id, category_id) VALUES (142, 17)`)

	rows, err := qe.QueryMovies(ctx, "", "western", "")
	require.NoError(t, err)
	assert.Len(t, rows, 11, "an unknown category is ignored until the whitelists are refreshed")

	require.NoError(t, qe.RefreshFilters(ctx))

	rows, err = qe.QueryMovies(ctx, "", "western", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CHINATOWN GLADIATOR"}, helper.Titles(rows))
}

func Test_QueryEngine_WhenTheDatabaseIsGone(t *testing.T) {
	ctx := context.Background()
	db := sakila.OpenSQLite(t)
	metricsSpy := helper.NewMetricsCollectorSpy(true)
	qe := givenSQLiteEngine(t, db, sqlengine.WithMetrics(metricsSpy))
	require.NoError(t, db.Close())

	_, err := qe.QueryMovies(ctx, "BROTHER", "", "")
	assert.ErrorIs(t, err, catalog.ErrBackendUnavailable)

	_, err = qe.QueryDetailsByFilmID(ctx, "1")
	assert.ErrorIs(t, err, catalog.ErrBackendUnavailable)

	_, err = qe.QueryActorsByFilmID(ctx, "1")
	assert.ErrorIs(t, err, catalog.ErrBackendUnavailable)

	assert.ErrorIs(t, qe.Ping(ctx), catalog.ErrBackendUnavailable)

	err = qe.RefreshFilters(ctx)
	assert.ErrorIs(t, err, catalog.ErrLoadingFilterOptionsFailed)
	assert.ErrorIs(t, err, catalog.ErrBackendUnavailable)
	assert.Len(t, qe.Filters().CategoryFilter().Options(), 16, "the previous whitelists stay active")

	assert.True(t, metricsSpy.HasCounterRecordForMetric(sqlengine.MetricDatabaseErrors).
		WithOperation("query_movies").
		WithStatus("error").
		WithErrorType("backend_unavailable").
		Assert())
	assert.True(t, metricsSpy.HasCounterRecordForMetric(sqlengine.MetricFilterRefreshes).
		WithStatus("error").
		Assert())
}

func Test_QueryEngine_WithCircuitBreaker_FailsFastWhenOpen(t *testing.T) {
	ctx := context.Background()
	db := sakila.OpenSQLite(t)
	logHandler := helper.NewLogHandlerSpy(false)
	settings := sqlengine.DefaultBreakerSettings()
	settings.FailureThreshold = 2
	qe := givenSQLiteEngine(t, db, sqlengine.WithCircuitBreaker(settings), sqlengine.WithLogger(slog.New(logHandler)))

	rows, err := qe.QueryMovies(ctx, "BROTHER", "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, db.Close())
	for i := 0; i < 3; i++ {
		_, err = qe.QueryMovies(ctx, "BROTHER", "", "")
		assert.ErrorIs(t, err, catalog.ErrBackendUnavailable)
	}

	assert.True(t, logHandler.HasWarnLogWithMessage("circuit breaker state changed").
		WithAttr("from", "closed").
		WithAttr("to", "open").
		Assert())
}

func Test_QueryEngine_WithSQLX(t *testing.T) {
	db := sqlx.NewDb(sakila.OpenSQLite(t), "sqlite3")
	qe, err := sqlengine.NewQueryEngineFromSQLX(context.Background(), db, sqlengine.WithDialect(sqlengine.DialectSQLite))
	require.NoError(t, err)

	rows, err := qe.QueryMovies(context.Background(), "BROTHER", "Documentary", "r")

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BROTHERHOOD BLANKET", rows[0]["title"])
}
