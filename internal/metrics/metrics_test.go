package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/movie-catalog/catalog/sqlengine"
	"github.com/AntonStoeckl/movie-catalog/internal/metrics"
)

func Test_CatalogCollector_RecordsEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCatalogCollector(reg)
	require.NoError(t, err)

	labels := map[string]string{sqlengine.LabelOperation: "query_movies", sqlengine.LabelStatus: "success"}
	collector.RecordDuration(sqlengine.MetricQueryDuration, 12*time.Millisecond, labels)
	collector.RecordValue(sqlengine.MetricRowsReturned, 3, labels)
	collector.IncrementCounter(sqlengine.MetricDatabaseErrors, map[string]string{
		sqlengine.LabelOperation: "query_movies",
		sqlengine.LabelStatus:    "error",
		sqlengine.LabelErrorType: "backend_unavailable",
	})
	collector.IncrementCounter(sqlengine.MetricFilterRefreshes, labels)
	collector.IncrementCounter("unknown_metric", labels)

	expected := `
# HELP movie_catalog_catalog_database_errors_total Total number of failed catalog database operations
# TYPE movie_catalog_catalog_database_errors_total counter
movie_catalog_catalog_database_errors_total{error_type="backend_unavailable",operation="query_movies",status="error"} 1
# HELP movie_catalog_catalog_filter_refreshes_total Total number of filter whitelist refreshes
# TYPE movie_catalog_catalog_filter_refreshes_total counter
movie_catalog_catalog_filter_refreshes_total{operation="query_movies",status="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"movie_catalog_catalog_database_errors_total",
		"movie_catalog_catalog_filter_refreshes_total"))

	count, err := testutil.GatherAndCount(reg,
		"movie_catalog_catalog_query_duration_seconds",
		"movie_catalog_catalog_rows_returned")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func Test_NewCatalogCollector_RegistersOnlyOnce(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := metrics.NewCatalogCollector(reg)
	require.NoError(t, err)

	_, err = metrics.NewCatalogCollector(reg)
	assert.Error(t, err)
}

func Test_Middleware_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.RegisterHTTPMetrics(reg))

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/movies", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies?title=HI", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)

	expected := `
# HELP movie_catalog_http_requests_total Total number of HTTP requests
# TYPE movie_catalog_http_requests_total counter
movie_catalog_http_requests_total{method="GET",path="/movies",status="418"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "movie_catalog_http_requests_total"))
}
