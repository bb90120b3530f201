package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gamedex/internal/domain"
)

const ContextSearch = "search"

var ErrEmptyQuery = errors.New("search query is empty")

// SearchRepository runs free-text searches and manages saved searches.
// Running a search never saves it.
type SearchRepository struct {
	pager     *pager
	searches  SavedSearchStore
	publisher Publisher
	ids       IDGenerator
	clock     Clock
	logger    *slog.Logger
}

// NewSearchRepository creates the repository. publisher may be nil.
func NewSearchRepository(
	source GameSource,
	searches SavedSearchStore,
	publisher Publisher,
	ids IDGenerator,
	clock Clock,
	logger *slog.Logger,
) *SearchRepository {
	logger = logger.With("component", "search")
	return &SearchRepository{
		pager:     newPager(ContextSearch, source.ListGames, logger),
		searches:  searches,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		logger:    logger,
	}
}

func SearchParams(query string) domain.ListingParams {
	return domain.ListingParams{
		Ordering: "-relevance",
		Search:   query,
		Filters:  map[string]string{"search_precise": "true"},
	}
}

// Search replaces the search results with the first page for query.
func (r *SearchRepository) Search(ctx context.Context, query string) (domain.ListingState, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.pager.snapshot(), ErrEmptyQuery
	}

	state, err := r.pager.refresh(ctx, SearchParams(query))
	if err != nil {
		return state, fmt.Errorf("search %q: %w", query, err)
	}
	return state, nil
}

func (r *SearchRepository) LoadMore(ctx context.Context) (domain.ListingState, error) {
	state, err := r.pager.loadMore(ctx)
	if err != nil {
		return state, fmt.Errorf("load more search results: %w", err)
	}
	return state, nil
}

func (r *SearchRepository) State() domain.ListingState {
	return r.pager.snapshot()
}

func (r *SearchRepository) SaveSearch(ctx context.Context, query string) (*domain.SavedSearchRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	rec := domain.SavedSearchRecord{
		ID:        r.ids.NewUUID(),
		Query:     query,
		CreatedAt: r.clock.Now(),
	}
	if err := r.searches.Save(ctx, &rec); err != nil {
		return nil, fmt.Errorf("save search: %w", err)
	}

	r.logger.Info("search saved", "id", rec.ID, "query", rec.Query)
	publishChange(ctx, r.publisher, r.clock, r.logger, &domain.ChangeEvent{
		Action: domain.ActionSearchSaved,
		Search: &rec,
	})

	return &rec, nil
}

// SavedSearches returns the stored searches in insertion order. A read
// failure yields an empty list alongside the error.
func (r *SearchRepository) SavedSearches(ctx context.Context) ([]domain.SavedSearchRecord, error) {
	records, err := r.searches.GetAll(ctx)
	if err != nil {
		return []domain.SavedSearchRecord{}, fmt.Errorf("load saved searches: %w", err)
	}
	return records, nil
}

func (r *SearchRepository) DeleteSavedSearch(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("delete saved search: empty id")
	}
	if err := r.searches.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete saved search %s: %w", id, err)
	}

	r.logger.Info("saved search deleted", "id", id)
	publishChange(ctx, r.publisher, r.clock, r.logger, &domain.ChangeEvent{
		Action: domain.ActionSearchDeleted,
		Search: &domain.SavedSearchRecord{ID: id},
	})

	return nil
}
