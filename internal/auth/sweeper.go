package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/futuro/convai-dashboard/internal/shared"
	"github.com/futuro/convai-dashboard/internal/store"
)

const sweepInterval = 5 * time.Minute

// StartSweeper runs a background goroutine that periodically deletes
// idle-expired session rows. Expiry is still enforced per request; the
// sweeper only keeps the table from accumulating dead rows.
func StartSweeper(ctx context.Context, repo store.Repository, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepExpiredSessions(ctx, repo, ttl)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// sweepExpiredSessions deletes expired rows with exponential backoff to
// handle SQLITE_BUSY errors.
func sweepExpiredSessions(ctx context.Context, repo store.Repository, ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		deleted, err := repo.DeleteExpiredSessions(ctx, cutoff)
		if err == nil {
			if deleted > 0 {
				slog.Info("Session sweeper removed expired sessions", "count", deleted)
			}
			return
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Session sweep hit locked database, retrying",
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		slog.Error("Session sweeper failed to delete expired sessions", "error", err)
		return
	}
}
