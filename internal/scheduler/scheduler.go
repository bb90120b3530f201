package scheduler

import (
	"context"
	"log/slog"
	"time"

	"gamedex/internal/domain"
)

// Refresher runs one background refresh pass.
type Refresher interface {
	Refresh(ctx context.Context) (*domain.RefreshStats, error)
}

type Scheduler struct {
	refresher  Refresher
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(refresher Refresher, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &Scheduler{
		refresher:  refresher,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start runs a refresh immediately and then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	s.runRefresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if _, err := s.refresher.Refresh(runCtx); err != nil {
		s.logger.Error("refresh failed", "error", err)
	}
}
