// Package domain contains core domain types for the dashboard backend.
package domain

import (
	"time"
)

// AgentInfo describes an upstream conversational agent. It is fetched on
// demand from the provider at login and never refreshed afterwards.
type AgentInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Session holds the authenticated operator state for one browser client.
// AgentID is set at login and never changes for the session's lifetime.
type Session struct {
	Token            string
	AgentID          string
	AgentName        string
	AgentType        string
	AgentDescription string
	CreatedAt        time.Time
	LastActivity     time.Time
}

// Agent returns the agent info captured at login.
func (s *Session) Agent() AgentInfo {
	return AgentInfo{
		Name:        s.AgentName,
		Type:        s.AgentType,
		Description: s.AgentDescription,
	}
}

// IdleExpired reports whether the session has been idle longer than ttl as
// of now.
func (s *Session) IdleExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastActivity) > ttl
}
