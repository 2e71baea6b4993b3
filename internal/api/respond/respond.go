// Package respond centralizes JSON response envelopes and domain error
// translation for the HTTP layer.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/citewatch/citewatch/internal/model"
)

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteError writes a standardized error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteDomainError maps sentinel errors onto HTTP statuses. Unrecognized
// errors become 500s with a generic body so internals never leak.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "invalid or missing credentials")
	case errors.Is(err, model.ErrNotFound):
		WriteError(w, http.StatusNotFound, "monitor not found")
	case errors.Is(err, model.ErrRateLimited):
		WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, model.ErrProvider):
		WriteError(w, http.StatusBadGateway, "search provider unavailable")
	default:
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
