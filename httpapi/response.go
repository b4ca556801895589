package httpapi

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/AntonStoeckl/movie-catalog/catalog"
)

const (
	codeBackendUnavailable = "backend_unavailable"
	codeInternalError      = "internal_error"
	msgInternalError       = "internal error"
)

// errorHandler tries to handle a catalog error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeCatalogMessage returns a sentinel error message for the client without exposing internals.
func safeCatalogMessage(err error) string {
	sentinels := []error{
		catalog.ErrBackendUnavailable,
		catalog.ErrLoadingFilterOptionsFailed,
		catalog.ErrBuildingQueryFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return msgInternalError
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	reqLogger := s.requestLogger(r)
	msg := safeCatalogMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			reqLogger.Warn("catalog error", zap.Error(err))
			return
		}
	}
	reqLogger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, msgInternalError)
}
