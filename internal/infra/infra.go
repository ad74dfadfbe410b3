// Package infra dials the optional backing services the client persists to.
package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/mobcash/internal/config"
)

const (
	clientName = "mobcash-client"
	// The client keeps one session row; a small pool is plenty.
	maxPostgresConns = 4
)

// Connections holds whichever services the config asked for. Nil fields were
// not needed.
type Connections struct {
	Redis    *redis.Client
	Postgres *pgxpool.Pool
}

// Dial opens the connections cfg requires and verifies each one.
func Dial(ctx context.Context, cfg config.Config) (*Connections, error) {
	conns := &Connections{}
	if cfg.NeedsRedis() {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		conns.Redis = cache
	}
	if cfg.SessionStore == config.StorePostgres {
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = conns.Close()
			return nil, err
		}
		conns.Postgres = db
	}
	return conns, nil
}

// Close releases every open connection.
func (c *Connections) Close() error {
	var errs []error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		c.Redis = nil
	}
	if c.Postgres != nil {
		c.Postgres.Close()
		c.Postgres = nil
	}
	return errors.Join(errs...)
}

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = clientName
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// NewPostgresPool configures a small PostgreSQL pool for the session table.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > maxPostgresConns {
		cfg.MaxConns = maxPostgresConns
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = clientName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
