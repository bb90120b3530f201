package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gamedex/internal/domain"
)

type RefreshConfig struct {
	// Contexts are the preset listings refreshed on every run.
	Contexts []string
	// Prefetch is the number of thumbnails per context warmed into the asset cache.
	Prefetch int
}

// RefreshService re-fetches preset listings in the background and warms the
// asset cache with their thumbnails.
type RefreshService struct {
	listings *ListingRepository
	assets   AssetCache
	config   RefreshConfig
	logger   *slog.Logger
}

// NewRefreshService creates the service. assets may be nil, which disables prefetching.
func NewRefreshService(listings *ListingRepository, assets AssetCache, cfg RefreshConfig, logger *slog.Logger) *RefreshService {
	if len(cfg.Contexts) == 0 {
		cfg.Contexts = []string{ContextTrending, ContextLastThirtyDays, ContextBestOfYear}
	}
	return &RefreshService{
		listings: listings,
		assets:   assets,
		config:   cfg,
		logger:   logger.With("component", "refresh"),
	}
}

// Refresh runs one pass over the configured contexts. It fails only when
// every context failed.
func (s *RefreshService) Refresh(ctx context.Context) (*domain.RefreshStats, error) {
	startTime := time.Now()
	s.logger.Info("starting refresh", "contexts", len(s.config.Contexts), "prefetch", s.config.Prefetch)

	stats := &domain.RefreshStats{Contexts: len(s.config.Contexts)}
	var errs []error

	for _, name := range s.config.Contexts {
		state, err := s.listings.RefreshPreset(ctx, name)
		if err != nil {
			stats.Failed++
			errs = append(errs, err)
			s.logger.Warn("context refresh failed", "context", name, "error", err)
			continue
		}
		stats.Fetched += len(state.Games)

		if ctx.Err() != nil {
			break
		}
		s.prefetch(ctx, state.Games, stats)
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("refresh completed",
		"fetched", stats.Fetched,
		"failed", stats.Failed,
		"prefetched", stats.Prefetched,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	if stats.Contexts > 0 && stats.Failed == stats.Contexts {
		return stats, fmt.Errorf("refresh listings: %w", errors.Join(errs...))
	}
	return stats, nil
}

func (s *RefreshService) prefetch(ctx context.Context, games []domain.GameSummary, stats *domain.RefreshStats) {
	if s.assets == nil || s.config.Prefetch <= 0 {
		return
	}

	n := 0
	for _, game := range games {
		if n >= s.config.Prefetch || ctx.Err() != nil {
			return
		}
		if game.BackgroundImage == nil || *game.BackgroundImage == "" {
			continue
		}
		n++

		if _, err := s.assets.Get(ctx, *game.BackgroundImage); err != nil {
			stats.Errors++
			s.logger.Debug("prefetch failed", "slug", game.Slug, "error", err)
			continue
		}
		stats.Prefetched++
	}
}
