package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/futuro/convai-dashboard/internal/auth"
	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	AgentID  string `json:"agent_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Agent   interface{} `json:"agent,omitempty"`
}

// RegisterAuthRoutes registers the login/logout/session endpoints. These
// are public: /api/session reports unauthenticated state instead of
// rejecting it.
func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.Post("/api/login", h.Login)
	r.Post("/api/logout", h.Logout)
	r.Get("/api/session", h.GetSession)
}

// Login authenticates the shared password plus an upstream-verified agent
// ID and establishes a session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		loginError(w, http.StatusBadRequest, "No data provided")
		return
	}

	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" || req.Password == "" {
		loginError(w, http.StatusBadRequest, "Agent ID and password are required")
		return
	}
	if len(agentID) < 3 {
		loginError(w, http.StatusBadRequest, "Invalid Agent ID format")
		return
	}

	session, err := h.guard.Login(r.Context(), agentID, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		loginError(w, http.StatusUnauthorized, "Invalid password")
		return
	case errors.Is(err, auth.ErrUnknownAgent):
		loginError(w, http.StatusUnauthorized, "Agent ID not found or invalid")
		return
	case err != nil:
		slog.Error("Login failed", "error", err, "agent_id", agentID)
		loginError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	h.guard.SetCookie(w, session.Token)
	slog.Info("Operator logged in", "agent_id", agentID)

	JSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "Authentication successful",
		Agent:   session.Agent(),
	})
}

// Logout destroys the session unconditionally.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		if err := h.guard.Logout(r.Context(), cookie.Value); err != nil {
			slog.Warn("Failed to delete session on logout", "error", err)
		}
	}
	h.guard.ClearCookie(w)

	JSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// GetSession reports the current session state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.guard.SessionFromRequest(w, r)
	if err != nil || session == nil {
		JSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"authenticated":     true,
		"agent_id":          session.AgentID,
		"agent_name":        session.AgentName,
		"agent_type":        session.AgentType,
		"agent_description": session.AgentDescription,
		"login_time":        session.CreatedAt.Format(time.RFC3339),
	})
}

func loginError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, loginResponse{Success: false, Message: message})
}
