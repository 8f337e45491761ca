package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/futuro/convai-dashboard/internal/config"
	"github.com/futuro/convai-dashboard/internal/domain"
	"github.com/futuro/convai-dashboard/internal/upstream"
)

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*domain.Session)}
}

func (f *fakeRepo) CreateSession(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.Token] = &copied
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, token string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session := f.sessions[token]
	if session == nil {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (f *fakeRepo) TouchSession(_ context.Context, token string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session := f.sessions[token]; session != nil {
		session.LastActivity = at
	}
	return nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

func (f *fakeRepo) DeleteExpiredSessions(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for token, session := range f.sessions {
		if session.LastActivity.Before(cutoff) {
			delete(f.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

type fakeUpstream struct {
	mu            sync.Mutex
	listCalls     int
	agentsCalls   int
	knownAgents   []string
	rosterEntries []map[string]interface{}
	agentsErr     error
}

func (f *fakeUpstream) ListConversations(_ context.Context, agentID string, _ int, _ bool) (map[string]interface{}, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	for _, known := range f.knownAgents {
		if known == agentID {
			return map[string]interface{}{"conversations": []interface{}{}}, nil
		}
	}
	return nil, upstream.ErrUnavailable
}

func (f *fakeUpstream) GetConversation(_ context.Context, _ string) (map[string]interface{}, error) {
	return nil, upstream.ErrNotFound
}

func (f *fakeUpstream) ListAgents(_ context.Context) (map[string]interface{}, error) {
	f.mu.Lock()
	f.agentsCalls++
	f.mu.Unlock()
	if f.agentsErr != nil {
		return nil, f.agentsErr
	}
	entries := make([]interface{}, 0, len(f.rosterEntries))
	for _, e := range f.rosterEntries {
		entries = append(entries, map[string]interface{}(e))
	}
	return map[string]interface{}{"agents": entries}, nil
}

func (f *fakeUpstream) GetAudio(_ context.Context, _ string) ([]byte, string, error) {
	return nil, "", upstream.ErrNotFound
}

func (f *fakeUpstream) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func testConfig() *config.Config {
	return &config.Config{
		Password:   "correct-password",
		SessionTTL: 4 * time.Hour,
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	up := &fakeUpstream{knownAgents: []string{"agent_1"}}
	svc := NewService(newFakeRepo(), up, testConfig())

	_, err := svc.Login(context.Background(), "agent_1", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
	}
	if up.calls() != 0 {
		t.Errorf("Expected no upstream probe on bad password, got %d calls", up.calls())
	}
}

func TestLoginRejectsUnknownAgent(t *testing.T) {
	up := &fakeUpstream{knownAgents: []string{"agent_1"}}
	svc := NewService(newFakeRepo(), up, testConfig())

	_, err := svc.Login(context.Background(), "agent_unknown", "correct-password")
	if !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("Expected ErrUnknownAgent, got %v", err)
	}
}

func TestLoginCreatesSessionWithRosterInfo(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUpstream{
		knownAgents: []string{"agent_1"},
		rosterEntries: []map[string]interface{}{
			{"agent_id": "agent_other", "name": "Other Bot"},
			{"agent_id": "agent_1", "name": "Support Bot"},
		},
	}
	svc := NewService(repo, up, testConfig())

	session, err := svc.Login(context.Background(), "agent_1", "correct-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.AgentID != "agent_1" {
		t.Errorf("AgentID = %q", session.AgentID)
	}
	if session.AgentName != "Support Bot" || session.AgentType != "Conversational AI" {
		t.Errorf("Unexpected agent info: %q / %q", session.AgentName, session.AgentType)
	}
	if session.Token == "" {
		t.Error("Expected a non-empty session token")
	}

	stored, _ := repo.GetSession(context.Background(), session.Token)
	if stored == nil || stored.AgentID != "agent_1" {
		t.Fatalf("Session not persisted: %+v", stored)
	}
}

func TestLoginAgentInfoFallback(t *testing.T) {
	up := &fakeUpstream{
		knownAgents: []string{"agent_12345678"},
		agentsErr:   upstream.ErrUnavailable,
	}
	svc := NewService(newFakeRepo(), up, testConfig())

	session, err := svc.Login(context.Background(), "agent_12345678", "correct-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.AgentName != "Agent 12345678" {
		t.Errorf("Expected fallback name from last 8 chars, got %q", session.AgentName)
	}
	if session.AgentType != "AI Agent" {
		t.Errorf("Expected fallback type, got %q", session.AgentType)
	}
}

func TestAuthorize(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeUpstream{}, testConfig())
	session := &domain.Session{AgentID: "agent_1"}

	if err := svc.Authorize(session, "agent_1"); err != nil {
		t.Errorf("Expected matching agent to be authorized, got %v", err)
	}
	if err := svc.Authorize(session, "agent_2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for mismatched agent, got %v", err)
	}
	if err := svc.Authorize(nil, "agent_1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for nil session, got %v", err)
	}
}

func loginAndCookie(t *testing.T, svc *Service) *http.Cookie {
	t.Helper()
	session, err := svc.Login(context.Background(), "agent_1", "correct-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return &http.Cookie{Name: CookieName, Value: session.Token}
}

func TestSessionFromRequestTouchesActivity(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUpstream{knownAgents: []string{"agent_1"}}

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(repo, up, testConfig(), func() time.Time { return current })

	cookie := loginAndCookie(t, svc)

	current = current.Add(time.Hour)
	r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	r.AddCookie(cookie)
	session, err := svc.SessionFromRequest(httptest.NewRecorder(), r)
	if err != nil || session == nil {
		t.Fatalf("Expected live session, got (%+v, %v)", session, err)
	}

	stored, _ := repo.GetSession(context.Background(), cookie.Value)
	if !stored.LastActivity.Equal(current) {
		t.Errorf("Expected last_activity refreshed to %v, got %v", current, stored.LastActivity)
	}
}

func TestSessionFromRequestExpiresIdleSession(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUpstream{knownAgents: []string{"agent_1"}}

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(repo, up, testConfig(), func() time.Time { return current })

	cookie := loginAndCookie(t, svc)

	// One second past the 4 hour idle timeout.
	current = current.Add(4*time.Hour + time.Second)
	r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	r.AddCookie(cookie)
	session, err := svc.SessionFromRequest(httptest.NewRecorder(), r)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Expected ErrSessionExpired, got (%+v, %v)", session, err)
	}

	if stored, _ := repo.GetSession(context.Background(), cookie.Value); stored != nil {
		t.Error("Expected expired session to be destroyed")
	}
}

func TestSessionFromRequestExactTTLStillLive(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUpstream{knownAgents: []string{"agent_1"}}

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(repo, up, testConfig(), func() time.Time { return current })

	cookie := loginAndCookie(t, svc)

	// Exactly at the timeout boundary the session survives; expiry
	// requires strictly exceeding the idle window.
	current = current.Add(4 * time.Hour)
	r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	r.AddCookie(cookie)
	session, err := svc.SessionFromRequest(httptest.NewRecorder(), r)
	if err != nil || session == nil {
		t.Fatalf("Expected live session at boundary, got (%+v, %v)", session, err)
	}
}

func TestMiddleware(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUpstream{knownAgents: []string{"agent_1"}}
	svc := NewService(repo, up, testConfig())

	var seen *domain.Session
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No cookie: 401, handler not reached.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conversations/agent_1", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without cookie, got %d", w.Code)
	}
	if seen != nil {
		t.Fatal("Handler should not run without a session")
	}

	// Valid cookie: session injected into context.
	cookie := loginAndCookie(t, svc)
	r := httptest.NewRequest(http.MethodGet, "/conversations/agent_1", nil)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid session, got %d", w.Code)
	}
	if seen == nil || seen.AgentID != "agent_1" {
		t.Fatalf("Expected session in context, got %+v", seen)
	}
}
