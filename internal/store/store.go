// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/futuro/convai-dashboard/internal/domain"
)

// Repository defines the interface for persisting operator sessions. The
// session store is the only persistent state in the system.
type Repository interface {
	// CreateSession inserts a new session record.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by its opaque token. Returns
	// (nil, nil) when no session exists.
	GetSession(ctx context.Context, token string) (*domain.Session, error)

	// TouchSession refreshes the last_activity timestamp for a session.
	TouchSession(ctx context.Context, token string, at time.Time) error

	// DeleteSession removes a session unconditionally.
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpiredSessions removes sessions whose last_activity is
	// before cutoff and returns the number of rows removed.
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
