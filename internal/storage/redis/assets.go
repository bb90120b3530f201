package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	goredis "github.com/redis/go-redis/v9"
)

const (
	assetKeyPrefix = "asset:"

	defaultAssetTTL = 24 * time.Hour
	defaultLRUSize  = 256
)

var ErrInvalidAssetURL = errors.New("asset url has no file name")

// Downloader fetches the raw bytes behind a URL.
type Downloader interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

type AssetConfig struct {
	// RedisClient is optional. Without it only the in-process tier is used.
	RedisClient *goredis.Client
	Downloader  Downloader
	TTL         time.Duration
	LRUSize     int
}

// AssetCache serves image bytes from an in-process LRU, then Redis, then
// the network. Entries are keyed by the last path segment of the URL.
type AssetCache struct {
	client     *goredis.Client
	lru        *lru.Cache[string, []byte]
	downloader Downloader
	ttl        time.Duration
	logger     *slog.Logger
}

func NewAssetCache(cfg *AssetConfig, logger *slog.Logger) (*AssetCache, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Downloader == nil {
		return nil, errors.New("downloader cannot be nil")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultAssetTTL
	}
	size := cfg.LRUSize
	if size <= 0 {
		size = defaultLRUSize
	}

	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &AssetCache{
		client:     cfg.RedisClient,
		lru:        cache,
		downloader: cfg.Downloader,
		ttl:        ttl,
		logger:     logger.With("component", "assets"),
	}, nil
}

// Get returns the bytes for rawURL, downloading and caching them on a miss.
func (c *AssetCache) Get(ctx context.Context, rawURL string) ([]byte, error) {
	key, err := AssetKey(rawURL)
	if err != nil {
		return nil, err
	}

	if data, ok := c.lru.Get(key); ok {
		return data, nil
	}

	if c.client != nil {
		data, err := c.client.Get(ctx, assetKeyPrefix+key).Bytes()
		switch {
		case err == nil:
			c.lru.Add(key, data)
			return data, nil
		case !errors.Is(err, goredis.Nil):
			// fall through to the network
			c.logger.Warn("redis lookup failed", "key", key, "error", err)
		}
	}

	data, err := c.downloader.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("download asset %s: %w", key, err)
	}

	c.lru.Add(key, data)
	if c.client != nil {
		if err := c.client.Set(ctx, assetKeyPrefix+key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("failed to cache asset", "key", key, "error", err)
		}
	}

	return data, nil
}

// Len returns the number of entries held in process.
func (c *AssetCache) Len() int {
	return c.lru.Len()
}

// AssetKey derives the cache key of an asset URL.
func AssetKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse asset url: %w", err)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidAssetURL, rawURL)
	}
	return name, nil
}
