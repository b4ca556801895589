// Package httpapi serves the movie catalog over HTTP as JSON.
//
// Routes:
//   - GET /movies?title=&category=&rating=
//   - GET /movies/details?film_id=
//   - GET /actors?film_id=
//   - GET /filters and POST /filters/refresh
//   - GET /healthz and GET /metrics
//
// Errors are returned as {"code": ..., "message": ...}. An unreachable database maps to
// 503 backend_unavailable, anything else to 500 internal_error.
package httpapi
