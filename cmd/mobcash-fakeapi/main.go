// Command mobcash-fakeapi serves the in-process fake of the mobcash REST API
// for local UI work.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/mobcash/internal/apitest"
	"github.com/congo-pay/mobcash/internal/infra"
	"github.com/congo-pay/mobcash/internal/logging"
)

func main() {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	logger := logging.New(getEnv("LOG_LEVEL", "info"), getEnv("LOG_FORMAT", "json"))
	ctx := context.Background()

	opts := apitest.Options{
		Logger: logger,
		Addr:   getEnv("FAKEAPI_ADDR", "127.0.0.1:8000"),
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		cache, err := infra.NewRedisClient(ctx, url)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func(cache *redis.Client) {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}(cache)
		limit, err := strconv.Atoi(getEnv("FAKEAPI_TRANSACTION_LIMIT", "10"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid FAKEAPI_TRANSACTION_LIMIT: %v\n", err)
			os.Exit(1)
		}
		opts.Cache = cache
		opts.TransactionLimit = limit
	}

	backend, err := apitest.New(opts)
	if err != nil {
		logger.Error("start fake api", "error", err)
		os.Exit(1)
	}
	logger.Info("fake api listening", "url", backend.URL())

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- backend.Wait()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := backend.Close(); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("fake api exited cleanly")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
