package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"gamedex/internal/domain"
)

type GameSource interface {
	ListGames(ctx context.Context, page int, params domain.ListingParams) (*domain.GamePage, error)
}

type FavoriteStore interface {
	Save(ctx context.Context, rec *domain.FavoriteRecord) error
	GetAll(ctx context.Context) ([]domain.FavoriteRecord, error)
	Delete(ctx context.Context, id string) error
}

type SavedSearchStore interface {
	Save(ctx context.Context, rec *domain.SavedSearchRecord) error
	GetAll(ctx context.Context) ([]domain.SavedSearchRecord, error)
	Delete(ctx context.Context, id string) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event *domain.ChangeEvent) error
	Close() error
}

type AssetCache interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type IDGenerator interface {
	NewUUID() string
}

type Clock interface {
	Now() time.Time
}
