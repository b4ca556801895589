package enginewrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/movie-catalog/catalog/sqlengine"
	"github.com/AntonStoeckl/movie-catalog/testutil/config"
	"github.com/AntonStoeckl/movie-catalog/testutil/sakila"
)

// Adapter type constants
const (
	typeSQLite     = "sqlite"
	typeSQLiteSQLX = "sqlite.sqlx"
	typePGXPool    = "pgx.pool"
	typeSQLDB      = "sql.db"
	typeSQLXDB     = "sqlx.db"
)

// Wrapper interface to abstract over different adapter types
type Wrapper interface {
	GetEngine() *sqlengine.QueryEngine
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool *pgxpool.Pool
	qe   *sqlengine.QueryEngine
}

func (w *PGXPoolWrapper) GetEngine() *sqlengine.QueryEngine {
	return w.qe
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing, for PostgreSQL and the SQLite fixture
type SQLDBWrapper struct {
	db *sql.DB
	qe *sqlengine.QueryEngine
}

func (w *SQLDBWrapper) GetEngine() *sqlengine.QueryEngine {
	return w.qe
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing, for PostgreSQL and the SQLite fixture
type SQLXWrapper struct {
	db *sqlx.DB
	qe *sqlengine.QueryEngine
}

func (w *SQLXWrapper) GetEngine() *sqlengine.QueryEngine {
	return w.qe
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// AdapterTypeFromEnv returns the normalized ADAPTER_TYPE.
func AdapterTypeFromEnv() string {
	adapterType := strings.ToLower(os.Getenv("ADAPTER_TYPE"))
	if adapterType == "" {
		return typeSQLite
	}

	return adapterType
}

// UsesSQLiteFixture reports whether the wrapper runs against the in-memory sakila fixture.
func UsesSQLiteFixture() bool {
	adapterType := AdapterTypeFromEnv()

	return adapterType == typeSQLite || adapterType == typeSQLiteSQLX
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the environment variable.
// The dialect matching the database is set first, the given options are applied after it.
func CreateWrapperWithTestConfig(t testing.TB, options ...sqlengine.Option) Wrapper {
	ctx := context.Background()
	adapterType := AdapterTypeFromEnv()

	switch adapterType {
	case typeSQLite:
		db := sakila.OpenSQLite(t)
		qe, err := sqlengine.NewQueryEngineFromSQLDB(ctx, db, withDialect(sqlengine.DialectSQLite, options)...)
		require.NoError(t, err, "error creating the query engine in test setup")

		return &SQLDBWrapper{db: db, qe: qe}

	case typeSQLiteSQLX:
		db := sqlx.NewDb(sakila.OpenSQLite(t), "sqlite3")
		qe, err := sqlengine.NewQueryEngineFromSQLX(ctx, db, withDialect(sqlengine.DialectSQLite, options)...)
		require.NoError(t, err, "error creating the query engine in test setup")

		return &SQLXWrapper{db: db, qe: qe}

	case typePGXPool:
		connPool, err := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolSingleConfig())
		require.NoError(t, err, "error connecting to DB pool in test setup")
		qe, err := sqlengine.NewQueryEngineFromPGXPool(ctx, connPool, withDialect(sqlengine.DialectPostgres, options)...)
		require.NoError(t, err, "error creating the query engine in test setup")

		return &PGXPoolWrapper{pool: connPool, qe: qe}

	case typeSQLDB:
		db := config.PostgresSQLDBSingleConfig()
		qe, err := sqlengine.NewQueryEngineFromSQLDB(ctx, db, withDialect(sqlengine.DialectPostgres, options)...)
		require.NoError(t, err, "error creating the query engine in test setup")

		return &SQLDBWrapper{db: db, qe: qe}

	case typeSQLXDB:
		db := config.PostgresSQLXSingleConfig()
		qe, err := sqlengine.NewQueryEngineFromSQLX(ctx, db, withDialect(sqlengine.DialectPostgres, options)...)
		require.NoError(t, err, "error creating the query engine in test setup")

		return &SQLXWrapper{db: db, qe: qe}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterType))
	}
}

func withDialect(dialect string, options []sqlengine.Option) []sqlengine.Option {
	return append([]sqlengine.Option{sqlengine.WithDialect(dialect)}, options...)
}
