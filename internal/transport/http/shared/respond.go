// Package shared holds the JSON response helpers used by every handler so
// error envelopes stay identical across the API surface.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "adresboek/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its HTTP status and envelope.
// Errors without a code become opaque 500s so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	var de dErrors.Error
	if !errors.As(err, &de) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: string(dErrors.CodeInternal),
		})
		return
	}
	WriteJSON(w, dErrors.ToHTTPStatus(de.Code), ErrorResponse{
		Error:   string(de.Code),
		Message: de.Message,
	})
}
