package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mobcash:session:v1:"

// RedisStore keeps tokens in a redis hash keyed by profile.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore builds a redis-backed store. A zero ttl keeps the session until cleared.
func NewRedisStore(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: redisKeyPrefix + profile, ttl: ttl}
}

// Load reads the token hash.
func (s *RedisStore) Load(ctx context.Context) (Tokens, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Tokens{}, fmt.Errorf("load session: %w", err)
	}
	if len(values) == 0 {
		return Tokens{}, ErrNoSession
	}
	return Tokens{AccessToken: values["access"], RefreshToken: values["refresh"]}, nil
}

// Save replaces the token hash atomically.
func (s *RedisStore) Save(ctx context.Context, tokens Tokens) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, "access", tokens.AccessToken, "refresh", tokens.RefreshToken)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the session.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
