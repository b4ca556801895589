// Command sakilaimport writes the sakila fixture into a sqlite database file,
// so the movie catalog can run locally without a Postgres server:
//
//	go run ./cmd/sakilaimport -path sakila.db
//	ENV=sqlite go run ./cmd/moviecatalog
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"go.uber.org/zap"

	logpkg "github.com/AntonStoeckl/movie-catalog/internal/logger"
	"github.com/AntonStoeckl/movie-catalog/testutil/sakila"
)

// ErrDatabaseExists is returned when the target file exists and overwriting was not requested.
var ErrDatabaseExists = errors.New("database file already exists")

func main() {
	path := flag.String("path", "sakila.db", "sqlite database file to create")
	force := flag.Bool("force", false, "replace an existing database file")
	flag.Parse()

	logger, err := logpkg.NewLogger("local")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting sakila import", zap.String("path", *path))

	if err := ImportFixture(context.Background(), *path, *force); err != nil {
		logger.Fatal("sakila import failed", zap.Error(err))
	}

	logger.Info("sakila import completed", zap.String("path", *path))
}

// ImportFixture creates the sqlite file at path and loads the sakila schema and rows into it.
func ImportFixture(ctx context.Context, path string, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%w: %s", ErrDatabaseExists, path)
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close() // makes no sense to handle this
	}()

	if err := sakila.Load(ctx, db); err != nil {
		return err
	}

	return nil
}
