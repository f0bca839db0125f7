package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionPurger exposes expired-session removal.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int, error)
}

// CleanupService periodically removes expired sessions. Resolution already
// rejects expired sessions, so this only reclaims storage.
type CleanupService struct {
	purger   SessionPurger
	interval time.Duration
	logger   *slog.Logger
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup errors.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a CleanupService with the required purger and options applied.
func New(purger SessionPurger, opts ...CleanupOption) (*CleanupService, error) {
	if purger == nil {
		return nil, fmt.Errorf("purger is required")
	}
	svc := &CleanupService{
		purger:   purger,
		interval: 15 * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "session cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single cleanup pass and returns the number of sessions
// removed.
func (s *CleanupService) RunOnce(ctx context.Context) (int, error) {
	removed, err := s.purger.PurgeExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "purged expired sessions", "count", removed)
	}
	return removed, nil
}
