package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppEnv              = "development"
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultEnvFile             = ".env"
	defaultRequestTimeout      = 30 * time.Second
	defaultRateLimitBurst      = 5
	defaultSessionStore        = StoreMemory
	defaultSessionProfile      = "default"
	defaultSettlementCurrency  = 27
	defaultWithdrawalCodeLen   = 4
	timeoutSecondsEnvVar       = "REQUEST_TIMEOUT_SECONDS"
	timeoutDurationEnvVar      = "REQUEST_TIMEOUT"
	catalogCacheTTLEnvVar      = "CATALOG_CACHE_TTL"
	rateLimitRPSEnvVar         = "RATE_LIMIT_RPS"
	rateLimitBurstEnvVar       = "RATE_LIMIT_BURST"
	settlementCurrencyEnvVar   = "SETTLEMENT_CURRENCY_ID"
	withdrawalCodeMinLenEnvVar = "WITHDRAWAL_CODE_MIN_LENGTH"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config captures client runtime configuration loaded from environment variables.
type Config struct {
	AppEnv                  string
	LogLevel                string
	LogFormat               string
	APIBaseURL              string
	RequestTimeout          time.Duration
	RateLimitRPS            float64
	RateLimitBurst          int
	SessionStore            string
	SessionProfile          string
	SessionKey              string
	RedisURL                string
	DatabaseURL             string
	CatalogCacheTTL         time.Duration
	SettlementCurrencyID    int
	WithdrawalCodeMinLength int
}

// Load reads an optional .env file, then populates a Config from the environment.
func Load() (Config, error) {
	envFile := getEnv("ENV_FILE", defaultEnvFile)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Config{
		AppEnv:                  getEnv("APP_ENV", defaultAppEnv),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		APIBaseURL:              strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		RequestTimeout:          defaultRequestTimeout,
		RateLimitBurst:          defaultRateLimitBurst,
		SessionStore:            strings.ToLower(getEnv("SESSION_STORE", defaultSessionStore)),
		SessionProfile:          getEnv("SESSION_PROFILE", defaultSessionProfile),
		SessionKey:              os.Getenv("SESSION_KEY"),
		RedisURL:                os.Getenv("REDIS_URL"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		SettlementCurrencyID:    defaultSettlementCurrency,
		WithdrawalCodeMinLength: defaultWithdrawalCodeLen,
	}

	if v := os.Getenv(timeoutSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", timeoutSecondsEnvVar, err)
		}
		cfg.RequestTimeout = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(timeoutDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", timeoutDurationEnvVar, err)
		}
		cfg.RequestTimeout = d
	}

	if v := os.Getenv(catalogCacheTTLEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", catalogCacheTTLEnvVar, err)
		}
		cfg.CatalogCacheTTL = d
	}

	if v := os.Getenv(rateLimitRPSEnvVar); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", rateLimitRPSEnvVar, err)
		}
		cfg.RateLimitRPS = rps
	}

	if err := intFromEnv(rateLimitBurstEnvVar, &cfg.RateLimitBurst); err != nil {
		return Config{}, err
	}
	if err := intFromEnv(settlementCurrencyEnvVar, &cfg.SettlementCurrencyID); err != nil {
		return Config{}, err
	}
	if err := intFromEnv(withdrawalCodeMinLenEnvVar, &cfg.WithdrawalCodeMinLength); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL must be set")
	}
	switch c.SessionStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when SESSION_STORE=%s", c.SessionStore)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when SESSION_STORE=%s", c.SessionStore)
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.CatalogCacheTTL > 0 && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when %s is positive", catalogCacheTTLEnvVar)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

// NeedsRedis reports whether any component is backed by redis.
func (c Config) NeedsRedis() bool {
	return c.SessionStore == StoreRedis || c.CatalogCacheTTL > 0
}

func intFromEnv(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
