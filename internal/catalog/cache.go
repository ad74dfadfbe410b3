package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/mobcash/internal/logging"
)

const (
	cachePrefix       = "mobcash:catalog:v1:"
	platformsCacheKey = cachePrefix + "platforms"
	networksCacheKey  = cachePrefix + "networks"
)

// CachedRepository keeps platforms and networks in Redis for ttl. Settings are
// always read through, since the merchant phone must be current.
type CachedRepository struct {
	inner  Repository
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRepository wraps inner with a Redis read-through cache.
func NewCachedRepository(inner Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	return &CachedRepository{inner: inner, cache: cache, ttl: ttl, logger: logging.OrDiscard(logger)}
}

func (r *CachedRepository) Platforms(ctx context.Context) ([]Platform, error) {
	return readThrough(ctx, r, platformsCacheKey, r.inner.Platforms)
}

func (r *CachedRepository) Networks(ctx context.Context) ([]Network, error) {
	return readThrough(ctx, r, networksCacheKey, r.inner.Networks)
}

func (r *CachedRepository) Settings(ctx context.Context) (Settings, error) {
	return r.inner.Settings(ctx)
}

// Invalidate drops the cached lists.
func (r *CachedRepository) Invalidate(ctx context.Context) error {
	return r.cache.Del(ctx, platformsCacheKey, networksCacheKey).Err()
}

func readThrough[T any](ctx context.Context, r *CachedRepository, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	raw, err := r.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		r.logger.Warn("catalog cache entry unreadable", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("catalog cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	items, err := load(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return items, nil
	}
	if err := r.cache.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("catalog cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return items, nil
}
