// Package api provides HTTP handlers for the dashboard backend.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/futuro/convai-dashboard/internal/auth"
	"github.com/futuro/convai-dashboard/internal/config"
	"github.com/futuro/convai-dashboard/internal/upstream"
)

// Handler provides common handler dependencies.
type Handler struct {
	guard *auth.Service
	up    upstream.API
	cfg   *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(guard *auth.Service, up upstream.API, cfg *config.Config) *Handler {
	return &Handler{
		guard: guard,
		up:    up,
		cfg:   cfg,
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
