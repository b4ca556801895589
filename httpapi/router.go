package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/AntonStoeckl/movie-catalog/internal/metrics"
)

// NewRouter mounts the server's handlers on a chi router with recovery, request ids,
// per-request logging, and HTTP metrics.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/movies", s.ListMovies)
	r.Get("/movies/details", s.GetMovieDetails)
	r.Get("/actors", s.ListActors)
	r.Get("/filters", s.GetFilters)
	r.Post("/filters/refresh", s.RefreshFilters)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	return r
}
