package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"gamedex/internal/domain"
)

var ErrNotFavorite = errors.New("game is not a favorite")

// FavoritesRepository owns the in-memory favorites collection and keeps it
// in step with the local store.
type FavoritesRepository struct {
	store     FavoriteStore
	txManager TransactionManager
	publisher Publisher
	ids       IDGenerator
	clock     Clock
	logger    *slog.Logger

	// addMu serializes the existence check and insert of Add.
	addMu sync.Mutex

	mu           sync.RWMutex
	favorites    []domain.FavoriteRecord
	errorMessage string
	reloadGen    uint64
}

// NewFavoritesRepository creates the repository. publisher may be nil.
func NewFavoritesRepository(
	store FavoriteStore,
	txManager TransactionManager,
	publisher Publisher,
	ids IDGenerator,
	clock Clock,
	logger *slog.Logger,
) *FavoritesRepository {
	return &FavoritesRepository{
		store:     store,
		txManager: txManager,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		logger:    logger.With("component", "favorites"),
	}
}

// Favorites returns a copy of the in-memory collection.
func (r *FavoritesRepository) Favorites() []domain.FavoriteRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.favorites)
}

// ErrorMessage returns the message of the last failed reload, if any.
func (r *FavoritesRepository) ErrorMessage() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errorMessage
}

// Reload replaces the in-memory collection with the stored records.
// A read failure leaves the collection empty. A read that completes after a
// newer reload started is discarded and the current collection is returned.
func (r *FavoritesRepository) Reload(ctx context.Context) ([]domain.FavoriteRecord, error) {
	r.mu.Lock()
	r.reloadGen++
	gen := r.reloadGen
	r.mu.Unlock()

	records, err := r.store.GetAll(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.reloadGen {
		r.logger.Debug("dropping stale favorites reload", "generation", gen)
		return slices.Clone(r.favorites), nil
	}

	if err != nil {
		r.favorites = nil
		r.errorMessage = err.Error()
		r.logger.Warn("failed to load favorites", "error", err)
		return nil, fmt.Errorf("load favorites: %w", err)
	}

	r.favorites = records
	r.errorMessage = ""
	return slices.Clone(records), nil
}

func (r *FavoritesRepository) IsFavorite(ctx context.Context, game domain.GameSummary) (bool, error) {
	_, err := r.Find(ctx, game)
	if errors.Is(err, ErrNotFavorite) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Find returns the stored record for game or ErrNotFavorite.
func (r *FavoritesRepository) Find(ctx context.Context, game domain.GameSummary) (*domain.FavoriteRecord, error) {
	records, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	if rec := findMatch(records, game); rec != nil {
		return rec, nil
	}
	return nil, ErrNotFavorite
}

// Add stores a snapshot of game unless it is already a favorite, in which
// case the existing record is returned.
func (r *FavoritesRepository) Add(ctx context.Context, game domain.GameSummary) (*domain.FavoriteRecord, error) {
	rec := r.snapshot(game)

	r.addMu.Lock()
	var existing *domain.FavoriteRecord
	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		records, err := r.store.GetAll(txCtx)
		if err != nil {
			return fmt.Errorf("load favorites: %w", err)
		}
		if existing = findMatch(records, game); existing != nil {
			return nil
		}
		if err := r.store.Save(txCtx, &rec); err != nil {
			return fmt.Errorf("save favorite: %w", err)
		}
		return nil
	})
	r.addMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("add favorite %s: %w", game.Slug, err)
	}

	if existing != nil {
		r.logger.Debug("already a favorite", "slug", game.Slug, "id", existing.ID)
		return existing, nil
	}

	r.logger.Info("favorite added", "slug", rec.Slug, "id", rec.ID)
	r.publish(ctx, &domain.ChangeEvent{Action: domain.ActionFavoriteAdded, Favorite: &rec})
	r.reloadQuietly(ctx)

	return &rec, nil
}

// Remove deletes the record by its own id.
func (r *FavoritesRepository) Remove(ctx context.Context, rec domain.FavoriteRecord) error {
	if rec.ID == "" {
		return errors.New("remove favorite: record has no id")
	}

	if err := r.store.Delete(ctx, rec.ID); err != nil {
		return fmt.Errorf("remove favorite %s: %w", rec.ID, err)
	}

	r.logger.Info("favorite removed", "slug", rec.Slug, "id", rec.ID)
	r.publish(ctx, &domain.ChangeEvent{Action: domain.ActionFavoriteRemoved, Favorite: &rec})
	r.reloadQuietly(ctx)

	return nil
}

// Toggle adds or removes game and reports whether it is a favorite afterwards.
func (r *FavoritesRepository) Toggle(ctx context.Context, game domain.GameSummary) (bool, error) {
	rec, err := r.Find(ctx, game)
	switch {
	case errors.Is(err, ErrNotFavorite):
		if _, err := r.Add(ctx, game); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("toggle favorite: %w", err)
	}

	if err := r.Remove(ctx, *rec); err != nil {
		return true, err
	}
	return false, nil
}

func (r *FavoritesRepository) snapshot(game domain.GameSummary) domain.FavoriteRecord {
	sourceID := game.ID
	rating := 0.0
	if game.Rating != nil {
		rating = *game.Rating
	}

	return domain.FavoriteRecord{
		ID:              r.ids.NewUUID(),
		SourceGameID:    &sourceID,
		Slug:            game.Slug,
		Name:            game.Name,
		Released:        game.Released,
		BackgroundImage: game.BackgroundImage,
		Rating:          rating,
		ReviewsCount:    game.ReviewsCount,
		Metacritic:      game.Metacritic,
		Platforms:       slices.Clone(game.Platforms),
		CreatedAt:       r.clock.Now(),
	}
}

// reloadQuietly refreshes the collection after a successful write. The write
// already succeeded, so a read failure is only recorded.
func (r *FavoritesRepository) reloadQuietly(ctx context.Context) {
	_, _ = r.Reload(ctx)
}

func (r *FavoritesRepository) publish(ctx context.Context, event *domain.ChangeEvent) {
	publishChange(ctx, r.publisher, r.clock, r.logger, event)
}

// publishChange sends event if a publisher is configured. Failures are
// logged and never undo the local write.
func publishChange(ctx context.Context, publisher Publisher, clock Clock, logger *slog.Logger, event *domain.ChangeEvent) {
	if publisher == nil {
		return
	}
	event.Timestamp = clock.Now()
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish change", "action", event.Action, "error", err)
	}
}

func findMatch(records []domain.FavoriteRecord, game domain.GameSummary) *domain.FavoriteRecord {
	for i := range records {
		if records[i].Matches(game) {
			rec := records[i]
			return &rec
		}
	}
	return nil
}
