package handler

// RESPONSE HELPERS:
// Every JSON route answers through writeJSON/writeError, every HTML route
// through renderPage/renderError. Errors always have the same JSON shape:
//
//	{"error": "not_found", "message": "category \"Curling\" not found"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/item-catalog/internal/apperror"
)

// ErrorResponse is the error body of every JSON endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable type, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// MessageResponse is the body of JSON endpoints that only report a result.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data as JSON. Headers and status go out before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all that is left is to log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// classify maps a domain error to an HTTP status, an error type and the
// message that may be shown to the client.
//
// errors.Is walks the whole chain, so a service error such as
// fmt.Errorf("creating item: %w", apperror.NotFound(...)) still maps to 404.
func classify(err error) (int, string, string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Unknown errors may carry SQL or file paths; never echo them.
		return http.StatusInternalServerError, "internal_error", "An internal error occurred"
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr.Message
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", appErr.Message
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", appErr.Message
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden", appErr.Message
	case errors.Is(err, apperror.ErrUpstream):
		// Provider failures are reported verbatim.
		return http.StatusInternalServerError, "upstream_error", appErr.Message
	default:
		return http.StatusInternalServerError, "internal_error", appErr.Message
	}
}

// writeError maps a domain error to its status and sends the JSON body.
func writeError(w http.ResponseWriter, err error) {
	status, errType, msg := classify(err)
	writeJSON(w, status, ErrorResponse{Error: errType, Message: msg})
}
