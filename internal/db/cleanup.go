package db

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultCleanupInterval = 1 * time.Hour
)

// CleanupService periodically removes expired refresh tokens.
type CleanupService struct {
	refreshTokens *RefreshTokenRepository
	interval      time.Duration
}

func NewCleanupService(refreshTokens *RefreshTokenRepository) *CleanupService {
	return &CleanupService{
		refreshTokens: refreshTokens,
		interval:      DefaultCleanupInterval,
	}
}

func (s *CleanupService) Start(ctx context.Context) {
	slog.Info("starting token cleanup service", "component", "cleanup", "interval", s.interval)

	s.runCleanup()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping token cleanup service", "component", "cleanup")
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *CleanupService) runCleanup() {
	deleted, err := s.refreshTokens.DeleteExpired()
	if err != nil {
		slog.Error("error deleting expired refresh tokens", "component", "cleanup", "error", err)
	} else if deleted > 0 {
		slog.Info("deleted expired refresh tokens", "component", "cleanup", "count", deleted)
	}
}
