// Package config provides PostgreSQL database configuration for catalog testing.
//
// This package contains factory functions for creating database connections
// using the query engine's supported adapters (pgx.Pool, sql.DB, sqlx.DB)
// against a pagila database, the PostgreSQL port of the sakila sample data.
//
// Primary and replica configurations exist for testing the replica read path.
package config
