package adapters

import (
	"database/sql"
	"errors"

	"github.com/AntonStoeckl/movie-catalog/catalog"
)

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows *sql.Rows
}

// Next advances to the next row.
func (s *stdRows) Next() bool {
	return s.rows.Next()
}

// Columns returns the column names of the result.
func (s *stdRows) Columns() ([]string, error) {
	return s.rows.Columns()
}

// Scan copies row values into provided destinations.
func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

// Err returns the error, if any, that was encountered during iteration.
func (s *stdRows) Err() error {
	return s.rows.Err()
}

// Close closes the rows iterator.
func (s *stdRows) Close() error {
	return s.rows.Close()
}

// FetchAll collects all remaining rows keyed by column name.
// Byte slices are converted to strings, drivers return text columns that way.
func FetchAll(rows DBRows) (catalog.Rows, error) {
	result := make(catalog.Rows, 0)

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Join(catalog.ErrScanningDBRowFailed, err)
	}

	mapScanner, canMapScan := rows.(MapScanner)

	for rows.Next() {
		row := make(catalog.Row, len(columns))

		if canMapScan {
			if scanErr := mapScanner.MapScan(row); scanErr != nil {
				return nil, errors.Join(catalog.ErrScanningDBRowFailed, scanErr)
			}
		} else {
			values := make([]any, len(columns))
			pointers := make([]any, len(columns))
			for i := range values {
				pointers[i] = &values[i]
			}

			if scanErr := rows.Scan(pointers...); scanErr != nil {
				return nil, errors.Join(catalog.ErrScanningDBRowFailed, scanErr)
			}

			for i, column := range columns {
				row[column] = values[i]
			}
		}

		for column, value := range row {
			if b, ok := value.([]byte); ok {
				row[column] = string(b)
			}
		}

		result = append(result, row)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
