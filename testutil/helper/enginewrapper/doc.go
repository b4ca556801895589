// Package enginewrapper creates QueryEngines for tests over every supported database adapter.
//
// The adapter is chosen with the ADAPTER_TYPE environment variable:
//   - "" or "sqlite": in-memory sakila fixture via database/sql (default, needs no server)
//   - "sqlite.sqlx": in-memory sakila fixture via sqlx
//   - "pgx.pool", "sql.db", "sqlx.db": a pagila PostgreSQL database, see testutil/config
package enginewrapper
