package httpapi_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AntonStoeckl/movie-catalog/catalog"
	"github.com/AntonStoeckl/movie-catalog/catalog/sqlengine"
	"github.com/AntonStoeckl/movie-catalog/httpapi"
	"github.com/AntonStoeckl/movie-catalog/internal/logger"
	"github.com/AntonStoeckl/movie-catalog/internal/metrics"
	"github.com/AntonStoeckl/movie-catalog/testutil/sakila"
)

type rowsBody []map[string]any

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type filtersBody struct {
	SnapshotID string `json:"snapshot_id"`
	LoadedAt   string `json:"loaded_at"`
	Category   []struct {
		ID    int    `json:"id"`
		Value string `json:"value"`
	} `json:"category"`
	Rating []struct {
		ID    int    `json:"id"`
		Value string `json:"value"`
	} `json:"rating"`
}

// failingCatalog serves everything from the engine except the calls given an error.
type failingCatalog struct {
	*sqlengine.QueryEngine
	moviesErr error
}

func (c failingCatalog) QueryMovies(ctx context.Context, title, category, rating string) (catalog.Rows, error) {
	if c.moviesErr != nil {
		return nil, c.moviesErr
	}

	return c.QueryEngine.QueryMovies(ctx, title, category, rating)
}

func givenEngine(t *testing.T, db *sql.DB, options ...sqlengine.Option) *sqlengine.QueryEngine {
	qe, err := sqlengine.NewQueryEngineFromSQLDB(
		context.Background(),
		db,
		append([]sqlengine.Option{sqlengine.WithDialect(sqlengine.DialectSQLite), sqlengine.WithOrderedResults()}, options...)...)
	require.NoError(t, err, "error creating the query engine in test setup")

	return qe
}

func givenRouter(c httpapi.Catalog, log *zap.Logger, options ...httpapi.ServerOption) http.Handler {
	return httpapi.NewRouter(httpapi.NewServer(c, log, options...))
}

func serve(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var body T
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(rr.Body.Bytes(), &body), "body: %s", rr.Body.String())

	return body
}

func column(rows rowsBody, name string) []string {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		values = append(values, fmt.Sprint(row[name]))
	}

	return values
}

//nolint:funlen
func Test_ListMovies(t *testing.T) {
	router := givenRouter(givenEngine(t, sakila.OpenSQLite(t)), zap.NewNop())

	tests := []struct {
		name        string
		target      string
		expectedIDs []string
	}{
		{
			name:        "all filters",
			target:      "/movies?title=BROTHER&category=Documentary&rating=r",
			expectedIDs: []string{"101"},
		},
		{
			name:        "unknown category is ignored",
			target:      "/movies?title=BROTHER&category=Westerns",
			expectedIDs: []string{"101"},
		},
		{
			name:        "category only",
			target:      "/movies?category=foreign",
			expectedIDs: []string{"11", "133"},
		},
		{
			name:        "rating only",
			target:      "/movies?rating=NC-17",
			expectedIDs: []string{"3", "133"},
		},
		{
			name:        "no match",
			target:      "/movies?title=zzzzzz",
			expectedIDs: []string{},
		},
		{
			name:        "no parameters",
			target:      "/movies",
			expectedIDs: []string{"1", "2", "3", "7", "11", "101", "133", "142", "436", "980"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(t, router, http.MethodGet, tc.target)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, tc.expectedIDs, column(decode[rowsBody](t, rr), "FID"))
		})
	}
}

func Test_ListMovies_ReturnsTheFilmListColumns(t *testing.T) {
	router := givenRouter(givenEngine(t, sakila.OpenSQLite(t)), zap.NewNop())

	rr := serve(t, router, http.MethodGet, "/movies?title=brother")

	require.Equal(t, http.StatusOK, rr.Code)
	rows := decode[rowsBody](t, rr)
	require.Len(t, rows, 1)
	assert.Equal(t, "BROTHERHOOD BLANKET", rows[0]["title"])
	assert.Equal(t, "Documentary", rows[0]["category"])
	assert.Equal(t, "R", rows[0]["rating"])
	assert.Len(t, rows[0], 4)
}

func Test_GetMovieDetails(t *testing.T) {
	router := givenRouter(givenEngine(t, sakila.OpenSQLite(t)), zap.NewNop())

	rr := serve(t, router, http.MethodGet, fmt.Sprintf("/movies/details?film_id=%d", sakila.FilmAlamoVideotape))

	require.Equal(t, http.StatusOK, rr.Code)
	rows := decode[rowsBody](t, rr)
	require.Len(t, rows, 1)
	assert.Equal(t, "ALAMO VIDEOTAPE", rows[0]["title"])
	assert.Equal(t, "Italian", rows[0]["original_language"])
}

func Test_FilmIDRoutes_WithoutUsableFilmID_ReturnEmptyArray(t *testing.T) {
	router := givenRouter(givenEngine(t, sakila.OpenSQLite(t)), zap.NewNop())

	for _, target := range []string{
		"/movies/details",
		"/movies/details?film_id=",
		"/movies/details?film_id=abc",
		"/movies/details?film_id=99999",
		"/actors",
		"/actors?film_id=1%20OR%201=1",
	} {
		t.Run(target, func(t *testing.T) {
			rr := serve(t, router, http.MethodGet, target)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, "[]", rr.Body.String())
		})
	}
}

func Test_ListActors(t *testing.T) {
	router := givenRouter(givenEngine(t, sakila.OpenSQLite(t)), zap.NewNop())

	rr := serve(t, router, http.MethodGet, fmt.Sprintf("/actors?film_id=%d", sakila.FilmAlamoVideotape))

	require.Equal(t, http.StatusOK, rr.Code)
	rows := decode[rowsBody](t, rr)
	assert.Equal(t, []string{"81", "168"}, column(rows, "actor_id"))
	assert.Equal(t, []string{"11", "11"}, column(rows, "film_id"))
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "first_name")
	assert.Contains(t, rows[0], "last_name")
}

func Test_GetFilters(t *testing.T) {
	qe := givenEngine(t, sakila.OpenSQLite(t))
	router := givenRouter(qe, zap.NewNop())

	rr := serve(t, router, http.MethodGet, "/filters")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[filtersBody](t, rr)
	assert.Equal(t, qe.Filters().Snapshot().ID().String(), body.SnapshotID)
	assert.NotEmpty(t, body.LoadedAt)
	assert.Len(t, body.Category, 16)
	assert.Len(t, body.Rating, 5)
	assert.Equal(t, 1, body.Category[0].ID)
	assert.Equal(t, "Action", body.Category[0].Value)
}

func Test_RefreshFilters(t *testing.T) {
	db := sakila.OpenSQLite(t)
	qe := givenEngine(t, db)
	router := givenRouter(qe, zap.NewNop())
	before := qe.Filters().Snapshot().ID().String()

	sakila.Exec(t, db, "INSERT INTO category (category_id, name) VALUES (17, 'Western')")

	rr := serve(t, router, http.MethodGet, "/filters/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = serve(t, router, http.MethodPost, "/filters/refresh")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[filtersBody](t, rr)
	assert.NotEqual(t, before, body.SnapshotID)
	assert.Len(t, body.Category, 17)
	assert.Equal(t, "Western", body.Category[16].Value)
}

func Test_RefreshFilters_WhenTheBackendFails_KeepsTheSnapshot(t *testing.T) {
	db := sakila.OpenSQLite(t)
	qe := givenEngine(t, db)
	router := givenRouter(qe, zap.NewNop())
	before := qe.Filters().Snapshot().ID()

	require.NoError(t, db.Close())

	rr := serve(t, router, http.MethodPost, "/filters/refresh")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "backend_unavailable", decode[errorBody](t, rr).Code)
	assert.Equal(t, before, qe.Filters().Snapshot().ID())
}

func Test_Errors_AreMappedToStatusCodes(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedCode    string
		expectedMessage string
	}{
		{
			name:            "backend unavailable",
			err:             errors.Join(catalog.ErrBackendUnavailable, errors.New("dial tcp: connection refused")),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedCode:    "backend_unavailable",
			expectedMessage: catalog.ErrBackendUnavailable.Error(),
		},
		{
			name:            "anything else",
			err:             errors.New("boom"),
			expectedStatus:  http.StatusInternalServerError,
			expectedCode:    "internal_error",
			expectedMessage: "internal error",
		},
	}

	qe := givenEngine(t, sakila.OpenSQLite(t))

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := givenRouter(failingCatalog{QueryEngine: qe, moviesErr: tc.err}, zap.NewNop())

			rr := serve(t, router, http.MethodGet, "/movies")

			assert.Equal(t, tc.expectedStatus, rr.Code)
			body := decode[errorBody](t, rr)
			assert.Equal(t, tc.expectedCode, body.Code)
			assert.Equal(t, tc.expectedMessage, body.Message)
			assert.NotContains(t, rr.Body.String(), "connection refused")
		})
	}
}

func Test_ClosedDatabase_ReturnsServiceUnavailable(t *testing.T) {
	db := sakila.OpenSQLite(t)
	router := givenRouter(givenEngine(t, db), zap.NewNop())
	require.NoError(t, db.Close())

	rr := serve(t, router, http.MethodGet, "/movies?title=brother")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "backend_unavailable", decode[errorBody](t, rr).Code)
}

func Test_HealthCheck(t *testing.T) {
	db := sakila.OpenSQLite(t)
	router := givenRouter(givenEngine(t, db), zap.NewNop(), httpapi.WithQueryTimeout(time.Second))

	rr := serve(t, router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	require.NoError(t, db.Close())

	rr = serve(t, router, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rr.Body.String())
}

func Test_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCatalogCollector(reg)
	require.NoError(t, err)

	qe := givenEngine(t, sakila.OpenSQLite(t), sqlengine.WithMetrics(collector))
	router := givenRouter(qe, zap.NewNop(), httpapi.WithMetricsGatherer(reg))

	serve(t, router, http.MethodGet, "/movies?title=brother")
	rr := serve(t, router, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `movie_catalog_catalog_query_duration_seconds_count{operation="query_movies",status="success"} 1`)
}

func Test_UnknownRoute_ReturnsJSONError(t *testing.T) {
	router := givenRouter(givenEngine(t, sakila.OpenSQLite(t)), zap.NewNop())

	rr := serve(t, router, http.MethodGet, "/test/dataloader")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rr).Code)
}

func Test_RequestLogging_CarriesTheRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	qe := givenEngine(t, sakila.OpenSQLite(t), sqlengine.WithContextualLogger(logger.NewCatalogLogger(log.Sugar())))
	router := givenRouter(qe, log)

	req := httptest.NewRequest(http.MethodGet, "/movies?title=brother", http.NoBody)
	req.Header.Set("X-Request-Id", "req-4711")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "req-4711", rr.Header().Get("X-Request-ID"))

	requestLines := logs.FilterMessage("http_request").All()
	require.Len(t, requestLines, 1)
	assert.Equal(t, "req-4711", requestLines[0].ContextMap()["request_id"])
	assert.EqualValues(t, http.StatusOK, requestLines[0].ContextMap()["status"])

	engineLines := logs.FilterMessage("catalog operation: query completed").
		FilterField(zap.String("request_id", "req-4711")).All()
	require.Len(t, engineLines, 1)
	assert.Equal(t, "req-4711", engineLines[0].ContextMap()["request_id"])
}

func Test_PanicsAreRecoveredAsJSON(t *testing.T) {
	router := givenRouter(failingCatalog{}, zap.NewNop())

	rr := serve(t, router, http.MethodGet, "/filters")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal_error", decode[errorBody](t, rr).Code)
}
