package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/farmwatch-core/internal/dashboard"
	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/monitor"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnavailable = "unavailable"
	ErrCodeStoreWrite  = "store_write_failed"
	ErrCodeStoreRead   = "store_read_failed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps a package sentinel error to a response. message
// replaces the error text for store failures, which are shown to users.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, monitor.ErrNotConnected), errors.Is(err, monitor.ErrNotReady):
		msg := s.monitor.Status().Message
		if msg == "" {
			msg = "service is starting"
		}
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, msg)
	case errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, pump.ErrPumpNotFound),
		errors.Is(err, dashboard.ErrUnknownMetric):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, device.ErrInvalidPlace),
		errors.Is(err, pump.ErrInvalidDevice),
		errors.Is(err, settings.ErrInvalidThreshold):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, pump.ErrNotManual), errors.Is(err, pump.ErrNotAuto):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, device.ErrWriteFailed),
		errors.Is(err, pump.ErrWriteFailed),
		errors.Is(err, settings.ErrSaveFailed):
		s.logger.Warn("store write failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeStoreWrite, orDefault(message, err.Error()))
	case errors.Is(err, dashboard.ErrFetchFailed):
		s.logger.Warn("store read failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeStoreRead, orDefault(message, err.Error()))
	default:
		s.logger.Error("request failed", "error", err)
		writeInternalError(w, orDefault(message, "internal server error"))
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
