package helper

import (
	"fmt"

	"github.com/AntonStoeckl/movie-catalog/catalog"
)

// Titles returns the title column of all rows.
func Titles(rows catalog.Rows) []string {
	return Column(rows, "title")
}

// FilmIDs returns the FID column of all rows.
func FilmIDs(rows catalog.Rows) []string {
	return Column(rows, "FID")
}

// Column returns the values of one column as strings.
// Drivers differ in the Go types they return for integers, so comparing the printed form is portable.
func Column(rows catalog.Rows, column string) []string {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		values = append(values, fmt.Sprint(row[column]))
	}

	return values
}
