package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFilms(t *testing.T, path string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT count(*) FROM film_list").Scan(&count))

	return count
}

func Test_ImportFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sakila.db")

	require.NoError(t, ImportFixture(context.Background(), path, false))

	assert.Positive(t, countFilms(t, path))
}

func Test_ImportFixture_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sakila.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0o600))

	err := ImportFixture(context.Background(), path, false)
	assert.ErrorIs(t, err, ErrDatabaseExists)

	require.NoError(t, ImportFixture(context.Background(), path, true))
	assert.Positive(t, countFilms(t, path))
}
