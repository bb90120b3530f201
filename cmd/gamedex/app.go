package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	goredis "github.com/redis/go-redis/v9"

	"gamedex/internal/common/clock"
	"gamedex/internal/common/uuid"
	"gamedex/internal/config"
	"gamedex/internal/fetch"
	"gamedex/internal/publisher"
	"gamedex/internal/service"
	"gamedex/internal/source/rawg"
	"gamedex/internal/storage/redis"
	"gamedex/internal/storage/sqlstore"
)

// app holds the wired components shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	db          *sqlx.DB
	redisClient *goredis.Client
	rabbitMQ    *publisher.RabbitMQ

	fetcher   *fetch.Client
	source    *rawg.Source
	assets    *redis.AssetCache
	profiles  *redis.ProfileStore
	listings  *service.ListingRepository
	favorites *service.FavoritesRepository
	searches  *service.SearchRepository
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, logger: logger, out: out}

	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DataSource(),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.db = db
	logger.Info("opened store", "driver", cfg.Store.Driver)

	a.fetcher = fetch.New(fetch.Config{
		Timeout:        cfg.API.Timeout,
		MaxRetries:     cfg.API.Retry.MaxRetries,
		InitialBackoff: cfg.API.Retry.InitialBackoff,
		MaxBackoff:     cfg.API.Retry.MaxBackoff,
	}, logger)

	a.source = rawg.New(rawg.Config{
		BaseURL:  cfg.API.BaseURL,
		APIKey:   cfg.API.APIKey,
		PageSize: cfg.API.PageSize,
	}, a.fetcher, logger)

	if cfg.Redis.Addr != "" {
		a.redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		profiles, err := redis.NewProfileStore(&redis.ProfileConfig{RedisClient: a.redisClient})
		if err != nil {
			logger.Warn("redis unavailable, profiles disabled", "error", err)
			a.redisClient.Close()
			a.redisClient = nil
		} else {
			a.profiles = profiles
		}
	}

	assets, err := redis.NewAssetCache(&redis.AssetConfig{
		RedisClient: a.redisClient,
		Downloader:  a.fetcher,
		TTL:         cfg.Redis.AssetTTL,
		LRUSize:     cfg.Redis.LRUSize,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create asset cache: %w", err)
	}
	a.assets = assets

	// Change events are optional; a nil interface disables publishing.
	var pub service.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, change events disabled", "error", err)
		} else {
			a.rabbitMQ = rabbitMQ
			pub = rabbitMQ
		}
	}

	ids := uuid.New()
	clk := clock.System{}

	a.listings = service.NewListingRepository(a.source, clk, logger)
	a.favorites = service.NewFavoritesRepository(
		sqlstore.NewFavoriteStore(db),
		sqlstore.NewTransactionManager(db),
		pub,
		ids,
		clk,
		logger,
	)
	a.searches = service.NewSearchRepository(
		a.source,
		sqlstore.NewSavedSearchStore(db),
		pub,
		ids,
		clk,
		logger,
	)

	return a, nil
}

func (a *app) Close() {
	if a.rabbitMQ != nil {
		a.rabbitMQ.Close()
		a.rabbitMQ = nil
	}
	if a.redisClient != nil {
		a.redisClient.Close()
		a.redisClient = nil
	}
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}
