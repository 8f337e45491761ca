package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/futuro/convai-dashboard/internal/domain"
)

type contextKey int

const sessionKey contextKey = iota

// SessionFromContext extracts the authenticated session injected by
// Middleware. Returns nil outside an authenticated request.
func SessionFromContext(ctx context.Context) *domain.Session {
	if s, ok := ctx.Value(sessionKey).(*domain.Session); ok {
		return s
	}
	return nil
}

// Middleware rejects requests without a live session, refreshes the
// session's activity timestamp, and injects the session into the request
// context. Expired sessions are destroyed and reported distinctly so the
// frontend can prompt for a fresh login.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.SessionFromRequest(w, r)
		switch {
		case errors.Is(err, ErrSessionExpired):
			writeJSONError(w, http.StatusUnauthorized, "Session expired")
			return
		case err != nil:
			writeJSONError(w, http.StatusInternalServerError, "Session lookup failed")
			return
		case session == nil:
			writeJSONError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
