package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("API_BASE_URL", "https://api.example.test/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.APIBaseURL)
	}
	if cfg.SessionStore != StoreMemory {
		t.Fatalf("expected memory store, got %s", cfg.SessionStore)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("expected default timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.SettlementCurrencyID != 27 || cfg.WithdrawalCodeMinLength != 4 {
		t.Fatalf("unexpected domain defaults: %+v", cfg)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.env")
	content := "API_BASE_URL=https://file.example.test\nREQUEST_TIMEOUT=5s\nRATE_LIMIT_RPS=2.5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	// godotenv never overrides variables that are already set; make sure these are absent.
	for _, key := range []string{"API_BASE_URL", "REQUEST_TIMEOUT", "RATE_LIMIT_RPS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://file.example.test" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("API_BASE_URL", "https://api.example.test")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid timeout error")
	}
}

func TestValidateStoreRequirements(t *testing.T) {
	base := Config{APIBaseURL: "https://api.example.test", RequestTimeout: time.Second, SessionStore: StoreRedis}
	if err := base.Validate(); err == nil {
		t.Fatal("expected redis url requirement")
	}

	base.RedisURL = "redis://localhost:6379/0"
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	base.SessionStore = StorePostgres
	if err := base.Validate(); err == nil {
		t.Fatal("expected database url requirement")
	}

	base.SessionStore = "sqlite"
	if err := base.Validate(); err == nil {
		t.Fatal("expected unknown store error")
	}
}
