package catalog

import (
	"errors"
	"math"
	"strconv"
)

var (
	ErrNilDatabaseConnection      = errors.New("database connection must not be nil")
	ErrEmptyDimensionLabel        = errors.New("filter dimension label must not be empty")
	ErrEmptyViewName              = errors.New("empty film list view name supplied")
	ErrUnsupportedDialect         = errors.New("unsupported sql dialect")
	ErrBuildingQueryFailed        = errors.New("building query failed")
	ErrScanningDBRowFailed        = errors.New("scanning db row failed")
	ErrLoadingFilterOptionsFailed = errors.New("loading filter options failed")
)

// ErrBackendUnavailable signals that the database could not serve a query.
// There is no retry or fallback in the query layer, callers receive it as is.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Row is a single result row keyed by column name.
type Row map[string]any

// Rows is the collected result of a query.
// The order is whatever the database returns unless ordered results are configured.
type Rows []Row

// FilmIDString is the raw, unvalidated film id as it arrives from a caller.
type FilmIDString = string

// FilmID is a validated film id.
type FilmID uint64

// ParseFilmID parses a raw film id.
// An empty, non-numeric or out of range input is reported as not ok, callers must treat it like "no match".
// film_id is a 32-bit signed integer column, larger values could never match.
func ParseFilmID(raw FilmIDString) (FilmID, bool) {
	if raw == "" {
		return 0, false
	}

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 || id > math.MaxInt32 {
		return 0, false
	}

	return FilmID(id), true
}
