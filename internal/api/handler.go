// Package api provides HTTP handlers for the ProcureBot negotiation API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/procurebot/backend/internal/pdf"
	"github.com/procurebot/backend/internal/store"
)

// maxRequestBodySize caps request bodies (1MB). Transcripts are text; anything
// larger is a client bug.
const maxRequestBodySize = 1 << 20

// Handler serves the negotiation REST surface.
type Handler struct {
	repo        store.Repository
	exporter    pdf.Exporter
	environment string
}

// NewHandler creates a new Handler with its dependencies.
func NewHandler(repo store.Repository, exporter pdf.Exporter, environment string) *Handler {
	return &Handler{
		repo:        repo,
		exporter:    exporter,
		environment: environment,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a size-capped JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}
