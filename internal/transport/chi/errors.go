package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/locusmap/internal/domain"
	"github.com/kailas-cloud/locusmap/internal/logger"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeInvalidConfig    = "invalid_config"
	CodeRecordNotFound   = "record_not_found"
	CodeNodeNotFound     = "node_not_found"
	CodeIndexNotReady    = "index_not_ready"
	CodeUnauthorized     = "unauthorized"
	CodeInternalError    = "internal_error"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// defaultErrorHandlers maps sentinels to responses, first match wins.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		configErrorHandler,
		sentinelHandler(domain.ErrRecordNotFound, http.StatusNotFound, CodeRecordNotFound),
		sentinelHandler(domain.ErrNodeNotFound, http.StatusNotFound, CodeNodeNotFound),
		sentinelHandler(domain.ErrIndexNotReady, http.StatusServiceUnavailable, CodeIndexNotReady),
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// configErrorHandler reports the offending field of a ConfigError.
func configErrorHandler(w http.ResponseWriter, err error) bool {
	var ce *domain.ConfigError
	if !errors.As(err, &ce) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"code":    CodeInvalidConfig,
		"message": ce.Error(),
		"field":   ce.Field,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
