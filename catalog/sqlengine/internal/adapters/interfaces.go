package adapters

import "context"

// DBAdapter defines the interface for database operations needed by the query engine.
type DBAdapter interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Ping(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Columns() ([]string, error)
	Scan(dest ...any) error
	Err() error
	Close() error
}

// MapScanner is implemented by rows which can scan a row into a map on their own.
type MapScanner interface {
	MapScan(dest map[string]any) error
}
