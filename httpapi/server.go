package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AntonStoeckl/movie-catalog/catalog"
	logpkg "github.com/AntonStoeckl/movie-catalog/internal/logger"
)

const (
	paramTitle    = "title"
	paramCategory = "category"
	paramRating   = "rating"
	paramFilmID   = "film_id"

	statusOK          = "ok"
	statusUnavailable = "unavailable"
)

// Catalog is the read side the handlers serve from.
// *sqlengine.QueryEngine implements it.
type Catalog interface {
	QueryMovies(ctx context.Context, title, category, rating string) (catalog.Rows, error)
	QueryDetailsByFilmID(ctx context.Context, filmID catalog.FilmIDString) (catalog.Rows, error)
	QueryActorsByFilmID(ctx context.Context, filmID catalog.FilmIDString) (catalog.Rows, error)
	Filters() *catalog.FilterFactory
	RefreshFilters(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Server holds the HTTP handlers of the movie catalog API.
type Server struct {
	catalog        Catalog
	logger         *zap.Logger
	queryTimeout   time.Duration
	metricsHandler http.Handler
	errorHandlers  []errorHandler
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithQueryTimeout bounds every catalog call made by a handler. Zero means no bound.
func WithQueryTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.queryTimeout = timeout
	}
}

// WithMetricsGatherer serves GET /metrics from the gatherer instead of the default registry.
func WithMetricsGatherer(gatherer prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
}

// NewServer creates an HTTP API server.
func NewServer(c Catalog, logger *zap.Logger, options ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		catalog:        c,
		logger:         logger,
		metricsHandler: promhttp.Handler(),
	}

	for _, option := range options {
		option(s)
	}

	s.errorHandlers = []errorHandler{
		sentinelHandler(catalog.ErrBackendUnavailable, http.StatusServiceUnavailable, codeBackendUnavailable),
	}

	return s
}

// ListMovies handles GET /movies.
// Unknown category or rating values are ignored, they never cause an error.
func (s *Server) ListMovies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	q := r.URL.Query()
	rows, err := s.catalog.QueryMovies(ctx, q.Get(paramTitle), q.Get(paramCategory), q.Get(paramRating))
	if err != nil {
		s.handleCatalogError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// GetMovieDetails handles GET /movies/details.
func (s *Server) GetMovieDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	rows, err := s.catalog.QueryDetailsByFilmID(ctx, r.URL.Query().Get(paramFilmID))
	if err != nil {
		s.handleCatalogError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// ListActors handles GET /actors.
func (s *Server) ListActors(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	rows, err := s.catalog.QueryActorsByFilmID(ctx, r.URL.Query().Get(paramFilmID))
	if err != nil {
		s.handleCatalogError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// GetFilters handles GET /filters.
func (s *Server) GetFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, filtersToResponse(s.catalog.Filters().Snapshot()))
}

// RefreshFilters handles POST /filters/refresh.
// A failed refresh keeps the previous whitelists active.
func (s *Server) RefreshFilters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	if err := s.catalog.RefreshFilters(ctx); err != nil {
		s.handleCatalogError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, filtersToResponse(s.catalog.Filters().Snapshot()))
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	if err := s.catalog.Ping(ctx); err != nil {
		s.requestLogger(r).Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: statusUnavailable})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: statusOK})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metricsHandler.ServeHTTP(w, r)
}

func (s *Server) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(r.Context())
	}

	return context.WithTimeout(r.Context(), s.queryTimeout)
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}

type healthResponse struct {
	Status string `json:"status"`
}

type filterOptionResponse struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

type filtersResponse struct {
	SnapshotID string                 `json:"snapshot_id"`
	LoadedAt   time.Time              `json:"loaded_at"`
	Category   []filterOptionResponse `json:"category"`
	Rating     []filterOptionResponse `json:"rating"`
}

func filtersToResponse(snapshot *catalog.FilterSnapshot) filtersResponse {
	return filtersResponse{
		SnapshotID: snapshot.ID().String(),
		LoadedAt:   snapshot.LoadedAt().UTC(),
		Category:   optionsToResponse(snapshot.CategoryFilter().Options()),
		Rating:     optionsToResponse(snapshot.RatingFilter().Options()),
	}
}

func optionsToResponse(options []catalog.FilterOption) []filterOptionResponse {
	items := make([]filterOptionResponse, len(options))
	for i, o := range options {
		items[i] = filterOptionResponse{ID: o.ID, Value: o.Value}
	}

	return items
}
