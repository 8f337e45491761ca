// Package auth implements the session-gated authorization layer: login
// against a shared secret plus an upstream-verified agent ID, per-request
// session loading with idle expiry, and the per-agent scoping rule that
// prevents cross-tenant data access.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/futuro/convai-dashboard/internal/config"
	"github.com/futuro/convai-dashboard/internal/domain"
	"github.com/futuro/convai-dashboard/internal/store"
	"github.com/futuro/convai-dashboard/internal/upstream"
)

// CookieName is the session cookie carried by the browser client.
const CookieName = "convai_session"

// Service validates logins, loads sessions, and enforces agent scoping.
type Service struct {
	repo     store.Repository
	up       upstream.API
	password string
	ttl      time.Duration
	isDev    bool
	now      func() time.Time
}

// NewService creates the auth service from application configuration.
func NewService(repo store.Repository, up upstream.API, cfg *config.Config) *Service {
	return NewServiceWithClock(repo, up, cfg, time.Now)
}

// NewServiceWithClock creates the auth service with an injectable clock,
// used by tests to exercise idle expiry.
func NewServiceWithClock(repo store.Repository, up upstream.API, cfg *config.Config, now func() time.Time) *Service {
	return &Service{
		repo:     repo,
		up:       up,
		password: cfg.Password,
		ttl:      cfg.SessionTTL,
		isDev:    cfg.IsDevelopment(),
		now:      now,
	}
}

// TTL returns the configured idle timeout.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Login validates the shared password and verifies the agent ID against
// the upstream provider, then establishes a session. The returned session
// carries the opaque token for the cookie and the fetched agent info.
func (s *Service) Login(ctx context.Context, agentID, password string) (*domain.Session, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return nil, ErrInvalidCredentials
	}

	// Lightweight probe: a one-item conversation list succeeds only for
	// agent IDs the provider recognizes.
	if _, err := s.up.ListConversations(ctx, agentID, 1, false); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	info := s.agentInfo(ctx, agentID)

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	session := &domain.Session{
		Token:            token,
		AgentID:          agentID,
		AgentName:        info.Name,
		AgentType:        info.Type,
		AgentDescription: info.Description,
		CreatedAt:        now,
		LastActivity:     now,
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return session, nil
}

// Authorize enforces the per-agent scoping rule: a session may only
// access data belonging to its own agent.
func (s *Service) Authorize(session *domain.Session, requestedAgentID string) error {
	if session == nil || session.AgentID != requestedAgentID {
		return ErrForbidden
	}
	return nil
}

// Logout destroys the session unconditionally. A missing session is not
// an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SessionFromRequest loads the session referenced by the request cookie.
// Returns (nil, nil) when no session exists, (nil, ErrSessionExpired)
// after destroying an idle-expired session, and otherwise refreshes the
// session's last-activity timestamp.
func (s *Service) SessionFromRequest(w http.ResponseWriter, r *http.Request) (*domain.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	session, err := s.repo.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		s.ClearCookie(w)
		return nil, nil
	}

	now := s.now()
	if session.IdleExpired(now, s.ttl) {
		if err := s.repo.DeleteSession(r.Context(), session.Token); err != nil {
			return nil, fmt.Errorf("destroy expired session: %w", err)
		}
		s.ClearCookie(w)
		return nil, ErrSessionExpired
	}

	if err := s.repo.TouchSession(r.Context(), session.Token, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	session.LastActivity = now

	return session, nil
}

// Authenticated reports whether the request carries a live session,
// without touching activity. Used by the static-file handler to gate the
// dashboard behind the login page.
func (s *Service) Authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	session, err := s.repo.GetSession(r.Context(), cookie.Value)
	if err != nil || session == nil {
		return false
	}
	return !session.IdleExpired(s.now(), s.ttl)
}

// SetCookie attaches the session cookie to the response.
func (s *Service) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		Expires:  s.now().Add(s.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.isDev,
	})
}

// ClearCookie removes the session cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.isDev,
	})
}

// agentInfo resolves display info for an agent from the upstream roster,
// falling back to generic info derived from the agent ID.
func (s *Service) agentInfo(ctx context.Context, agentID string) domain.AgentInfo {
	fallback := domain.AgentInfo{
		Name:        "Agent " + shortID(agentID),
		Type:        "AI Agent",
		Description: "Conversational AI agent",
	}

	payload, err := s.up.ListAgents(ctx)
	if err != nil {
		return fallback
	}

	agents, _ := payload["agents"].([]interface{})
	for _, a := range agents {
		agent, _ := a.(map[string]interface{})
		if agent == nil {
			continue
		}
		if id, _ := agent["agent_id"].(string); id != agentID {
			continue
		}
		name, _ := agent["name"].(string)
		if name == "" {
			name = "Unknown Agent"
		}
		return domain.AgentInfo{
			Name:        name,
			Type:        "Conversational AI",
			Description: "Conversational AI agent",
		}
	}

	return fallback
}

func shortID(agentID string) string {
	if len(agentID) > 8 {
		return agentID[len(agentID)-8:]
	}
	return agentID
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
