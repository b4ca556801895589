// Package sqlengine provides the SQL implementation of the movie catalog query engine.
//
// The QueryEngine composes SELECT statements with goqu, delegates category/rating
// filter construction to a catalog.FilterFactory, binds all user-derived values as
// parameters, and returns result rows keyed by column name.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - goqu dialects for Postgres (default), MySQL, and SQLite
//   - Whitelisted, fully parameterized category and rating filters
//   - Refreshable whitelist snapshot
//   - Optional circuit breaker, dual logging, and metrics
//
// Usage examples:
//
//	// Basic usage
//	db, _ := pgxpool.New(ctx, dsn)
//	engine, _ := sqlengine.NewQueryEngineFromPGXPool(ctx, db)
//
//	// With operational logging and a circuit breaker
//	engine, _ := sqlengine.NewQueryEngineFromSQLDB(
//		ctx,
//		sqlDB,
//		sqlengine.WithDialect(sqlengine.DialectMySQL),
//		sqlengine.WithLogger(logger),
//		sqlengine.WithCircuitBreaker(sqlengine.DefaultBreakerSettings()),
//	)
//
//	movies, _ := engine.QueryMovies(ctx, "brother", "documentary", "r")
//	actors, _ := engine.QueryActorsByFilmID(ctx, "101")
package sqlengine
