package service

import (
	"context"
	"log/slog"
	"sync"

	"gamedex/internal/domain"
)

type fetchPageFunc func(ctx context.Context, page int, params domain.ListingParams) (*domain.GamePage, error)

// pager owns the state of one listing context.
//
// Every refresh bumps generation. A fetch captures the generation it started
// under and its result is dropped if a newer refresh began meanwhile. The
// Loading status doubles as the in-flight gate for loadMore.
type pager struct {
	mu         sync.Mutex
	fetch      fetchPageFunc
	state      domain.ListingState
	generation uint64
	logger     *slog.Logger
}

func newPager(name string, fetch fetchPageFunc, logger *slog.Logger) *pager {
	return &pager{
		fetch: fetch,
		state: domain.ListingState{
			Context: name,
			Status:  domain.StatusIdle,
			Cursor:  domain.PageCursor{Page: 1},
		},
		logger: logger.With("context", name),
	}
}

func (p *pager) snapshot() domain.ListingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

func (p *pager) refresh(ctx context.Context, params domain.ListingParams) (domain.ListingState, error) {
	params = params.Clone()

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.state.Status = domain.StatusLoading
	p.mu.Unlock()

	page, err := p.fetch(ctx, 1, params)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		p.logger.Debug("dropping stale refresh result", "generation", gen)
		return p.state.Clone(), nil
	}

	if err != nil {
		p.state.Status = domain.StatusFailed
		p.state.ErrorMessage = err.Error()
		return p.state.Clone(), err
	}

	p.state.Games = append([]domain.GameSummary(nil), page.Results...)
	p.state.Cursor = domain.PageCursor{
		Page:        1,
		CanLoadMore: len(page.Results) > 0,
		Ordering:    params.Ordering,
		Search:      params.Search,
		Filters:     params.Filters,
	}
	p.state.Status = domain.StatusLoaded
	p.state.ErrorMessage = ""

	p.logger.Debug("refreshed", "count", len(page.Results))
	return p.state.Clone(), nil
}

// loadMore returns the current state without fetching when the cursor is
// exhausted or a fetch is in flight.
func (p *pager) loadMore(ctx context.Context) (domain.ListingState, error) {
	p.mu.Lock()
	if !p.state.Cursor.CanLoadMore || p.state.Status == domain.StatusLoading {
		defer p.mu.Unlock()
		return p.state.Clone(), nil
	}
	gen := p.generation
	next := p.state.Cursor.Page + 1
	params := p.state.Cursor.Params()
	p.state.Status = domain.StatusLoading
	p.mu.Unlock()

	page, err := p.fetch(ctx, next, params)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		p.logger.Debug("dropping stale page", "page", next, "generation", gen)
		return p.state.Clone(), nil
	}

	if err != nil {
		p.state.Status = domain.StatusFailed
		p.state.ErrorMessage = err.Error()
		return p.state.Clone(), err
	}

	n := len(page.Results)
	if n > 0 {
		p.state.Games = append(p.state.Games, page.Results...)
		p.state.Cursor.Page = next
	}
	p.state.Cursor.CanLoadMore = n > 0
	p.state.Status = domain.StatusLoaded
	p.state.ErrorMessage = ""

	p.logger.Debug("loaded page", "page", next, "count", n)
	return p.state.Clone(), nil
}
