package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/congo-pay/mobcash/internal/config"
)

func TestDialOnlyWhatIsNeeded(t *testing.T) {
	conns, err := Dial(context.Background(), config.Config{SessionStore: config.StoreMemory})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if conns.Redis != nil || conns.Postgres != nil {
		t.Fatalf("memory store must not dial anything: %+v", conns)
	}
	if err := conns.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDialRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	cfg := config.Config{SessionStore: config.StoreRedis, RedisURL: "redis://" + mr.Addr()}
	conns, err := Dial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if conns.Redis == nil {
		t.Fatal("expected redis client")
	}
	if err := conns.Redis.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := conns.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if conns.Redis != nil {
		t.Fatal("close must drop the client")
	}
}

func TestDialRejectsBadURLs(t *testing.T) {
	ctx := context.Background()
	if _, err := NewRedisClient(ctx, ""); err == nil {
		t.Fatal("expected error for empty redis url")
	}
	if _, err := NewRedisClient(ctx, "not a url"); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
	if _, err := NewPostgresPool(ctx, ""); err == nil {
		t.Fatal("expected error for empty database url")
	}
	if _, err := NewPostgresPool(ctx, "postgres://%zz"); err == nil {
		t.Fatal("expected error for malformed database url")
	}
}
