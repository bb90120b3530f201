package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gamedex/internal/domain"
)

// Preset listing contexts.
const (
	ContextTrending       = "trending"
	ContextLastThirtyDays = "last-30-days"
	ContextBestOfYear     = "best-of-year"

	platformContextPrefix = "platform:"
)

const dateLayout = "2006-01-02"

// ListingRepository keeps one independently paginated result set per
// listing context. It is safe for concurrent use.
type ListingRepository struct {
	source GameSource
	clock  Clock
	logger *slog.Logger

	mu     sync.Mutex
	pagers map[string]*pager
}

func NewListingRepository(source GameSource, clock Clock, logger *slog.Logger) *ListingRepository {
	return &ListingRepository{
		source: source,
		clock:  clock,
		logger: logger.With("component", "listing"),
		pagers: make(map[string]*pager),
	}
}

func (r *ListingRepository) pager(name string) *pager {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pagers[name]
	if !ok {
		p = newPager(name, r.source.ListGames, r.logger)
		r.pagers[name] = p
	}
	return p
}

// Refresh fetches the first page of the context and replaces its games.
// On failure the previous games and cursor are kept.
func (r *ListingRepository) Refresh(ctx context.Context, name string, params domain.ListingParams) (domain.ListingState, error) {
	state, err := r.pager(name).refresh(ctx, params)
	if err != nil {
		return state, fmt.Errorf("refresh %s: %w", name, err)
	}
	return state, nil
}

// LoadMore appends the next page of the context.
func (r *ListingRepository) LoadMore(ctx context.Context, name string) (domain.ListingState, error) {
	state, err := r.pager(name).loadMore(ctx)
	if err != nil {
		return state, fmt.Errorf("load more %s: %w", name, err)
	}
	return state, nil
}

// SwitchOrdering refreshes the context with its current filters and a new ordering.
func (r *ListingRepository) SwitchOrdering(ctx context.Context, name, ordering string) (domain.ListingState, error) {
	params := r.State(name).Cursor.Params()
	// A preset context that never loaded successfully has no committed filters.
	if preset, ok := r.Preset(name); ok && len(params.Filters) == 0 {
		params = preset
	}
	params.Ordering = ordering
	return r.Refresh(ctx, name, params)
}

func (r *ListingRepository) State(name string) domain.ListingState {
	return r.pager(name).snapshot()
}

// Contexts returns the names of every context touched so far, sorted.
func (r *ListingRepository) Contexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.pagers))
	for name := range r.pagers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RefreshPreset refreshes a preset context with its default parameters.
func (r *ListingRepository) RefreshPreset(ctx context.Context, name string) (domain.ListingState, error) {
	params, ok := r.Preset(name)
	if !ok {
		return domain.ListingState{}, fmt.Errorf("unknown listing %q", name)
	}
	return r.Refresh(ctx, name, params)
}

// Preset returns the default parameters of a preset context.
func (r *ListingRepository) Preset(name string) (domain.ListingParams, bool) {
	switch name {
	case ContextTrending:
		return TrendingParams(), true
	case ContextLastThirtyDays:
		return LastThirtyDaysParams(r.clock.Now()), true
	case ContextBestOfYear:
		return BestOfYearParams(r.clock.Now()), true
	}

	if id, ok := strings.CutPrefix(name, platformContextPrefix); ok {
		platformID, err := strconv.ParseInt(id, 10, 64)
		if err != nil || platformID <= 0 {
			return domain.ListingParams{}, false
		}
		return ByPlatformParams(platformID), true
	}

	return domain.ListingParams{}, false
}

func TrendingParams() domain.ListingParams {
	return domain.ListingParams{
		Ordering: "-relevance",
		Filters:  map[string]string{"discover": "true"},
	}
}

func LastThirtyDaysParams(now time.Time) domain.ListingParams {
	from := now.AddDate(0, 0, -30)
	return domain.ListingParams{
		Ordering: "-added",
		Filters:  map[string]string{"dates": from.Format(dateLayout) + "," + now.Format(dateLayout)},
	}
}

func BestOfYearParams(now time.Time) domain.ListingParams {
	year := now.Year()
	return domain.ListingParams{
		Ordering: "-rating",
		Filters:  map[string]string{"dates": fmt.Sprintf("%d-01-01,%d-12-31", year, year)},
	}
}

func ByPlatformParams(platformID int64) domain.ListingParams {
	return domain.ListingParams{
		Filters: map[string]string{"platforms": strconv.FormatInt(platformID, 10)},
	}
}

// PlatformContext names the listing context of one platform.
func PlatformContext(platformID int64) string {
	return platformContextPrefix + strconv.FormatInt(platformID, 10)
}
