package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gamedex/internal/domain"
)

type favoriteRow struct {
	ID              string  `db:"id"`
	SourceGameID    *int64  `db:"source_game_id"`
	Slug            string  `db:"slug"`
	Name            string  `db:"name"`
	Released        *string `db:"released"`
	BackgroundImage *string `db:"background_image"`
	Rating          float64 `db:"rating"`
	ReviewsCount    int     `db:"reviews_count"`
	Metacritic      *int    `db:"metacritic"`
	Platforms       string  `db:"platforms"`
	CreatedAt       int64   `db:"created_at"`
}

const favoriteColumns = `id, source_game_id, slug, name, released, background_image,
	rating, reviews_count, metacritic, platforms, created_at`

type FavoriteStore struct {
	db *sqlx.DB
}

func NewFavoriteStore(db *sqlx.DB) *FavoriteStore {
	return &FavoriteStore{db: db}
}

// Save inserts a new record. It does not deduplicate by content.
func (s *FavoriteStore) Save(ctx context.Context, rec *domain.FavoriteRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("insert favorite: record id is required")
	}

	platforms, err := json.Marshal(nonNilPlatforms(rec.Platforms))
	if err != nil {
		return fmt.Errorf("encode favorite platforms: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`
		INSERT INTO favorites (` + favoriteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = exec.ExecContext(ctx, query,
		rec.ID,
		rec.SourceGameID,
		rec.Slug,
		rec.Name,
		rec.Released,
		rec.BackgroundImage,
		rec.Rating,
		rec.ReviewsCount,
		rec.Metacritic,
		string(platforms),
		createdAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// GetAll returns every favorite in insertion order.
func (s *FavoriteStore) GetAll(ctx context.Context) ([]domain.FavoriteRecord, error) {
	var rows []favoriteRow
	exec := GetExecutor(ctx, s.db)
	query := `SELECT ` + favoriteColumns + ` FROM favorites ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, exec, &rows, query); err != nil {
		return nil, fmt.Errorf("select favorites: %w", err)
	}

	records := make([]domain.FavoriteRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *FavoriteStore) GetByID(ctx context.Context, id string) (*domain.FavoriteRecord, error) {
	var row favoriteRow
	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`SELECT ` + favoriteColumns + ` FROM favorites WHERE id = ?`)

	err := sqlx.GetContext(ctx, exec, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select favorite %s: %w", id, err)
	}

	rec, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes every record with the given id. Zero matches is not an error.
func (s *FavoriteStore) Delete(ctx context.Context, id string) error {
	exec := GetExecutor(ctx, s.db)
	if _, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM favorites WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete favorite %s: %w", id, err)
	}
	return nil
}

func (r favoriteRow) toDomain() (domain.FavoriteRecord, error) {
	var platforms []domain.PlatformRef
	if r.Platforms != "" {
		if err := json.Unmarshal([]byte(r.Platforms), &platforms); err != nil {
			return domain.FavoriteRecord{}, fmt.Errorf("%w: favorite %s platforms: %v", ErrDecode, r.ID, err)
		}
	}

	return domain.FavoriteRecord{
		ID:              r.ID,
		SourceGameID:    r.SourceGameID,
		Slug:            r.Slug,
		Name:            r.Name,
		Released:        r.Released,
		BackgroundImage: r.BackgroundImage,
		Rating:          r.Rating,
		ReviewsCount:    r.ReviewsCount,
		Metacritic:      r.Metacritic,
		Platforms:       platforms,
		CreatedAt:       time.Unix(0, r.CreatedAt).UTC(),
	}, nil
}

func nonNilPlatforms(p []domain.PlatformRef) []domain.PlatformRef {
	if p == nil {
		return []domain.PlatformRef{}
	}
	return p
}
