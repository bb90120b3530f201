package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"gamedex/internal/domain"
)

const profileKeyPrefix = "profile:"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

type ProfileConfig struct {
	RedisClient *goredis.Client
	// Now stamps UpdatedAt on writes.
	Now func() time.Time
}

// ProfileStore keeps one JSON-encoded profile per user id.
type ProfileStore struct {
	client *goredis.Client
	now    func() time.Time
}

func NewProfileStore(cfg *ProfileConfig) (*ProfileStore, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &ProfileStore{client: cfg.RedisClient, now: now}, nil
}

// Create stores a new profile and fails with ErrProfileExists if one is
// already stored for the user.
func (s *ProfileStore) Create(ctx context.Context, profile *domain.UserProfile) error {
	data, err := s.encode(profile)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, profileKeyPrefix+profile.UserID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if !ok {
		return ErrProfileExists
	}
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	data, err := s.client.Get(ctx, profileKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// Update overwrites an existing profile.
func (s *ProfileStore) Update(ctx context.Context, profile *domain.UserProfile) error {
	data, err := s.encode(profile)
	if err != nil {
		return err
	}

	ok, err := s.client.SetXX(ctx, profileKeyPrefix+profile.UserID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if !ok {
		return ErrProfileNotFound
	}
	return nil
}

func (s *ProfileStore) encode(profile *domain.UserProfile) ([]byte, error) {
	if profile == nil {
		return nil, errors.New("profile cannot be nil")
	}
	if profile.UserID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	profile.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	return data, nil
}
