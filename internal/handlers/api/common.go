// Package api exposes the calculation and product services as a thin JSON
// HTTP layer. Monetary values serialize as strings, never floats.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// errorJSON is the error response format.
type errorJSON struct {
	Error string `json:"error"`
}

// writeJSON marshals v as JSON and writes it to the response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// At this point headers are already sent; just log the error.
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// pathID parses the {id} path segment as a UUID. On failure it writes the
// 400 response itself and reports false.
func pathID(w http.ResponseWriter, r *http.Request, segment string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(segment))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid " + segment})
		return uuid.Nil, false
	}
	return id, true
}
