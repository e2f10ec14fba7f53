package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func newTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}

	opts := DefaultOptions()
	opts.Backend = BackendRedis
	opts.RedisAddr = addr
	opts.RedisPassword = os.Getenv("REDIS_TEST_PASSWORD")
	opts.DefaultTTL = time.Minute
	opts.KeyPrefix = "netsimplex-test:"

	cache, err := NewRedisCache(opts)
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Clear(context.Background())
		_ = cache.Close()
	})
	return cache
}

func TestRedisCache_SetGet(t *testing.T) {
	cache := newTestRedis(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "run:reference:x", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	val, err := cache.Get(ctx, "run:reference:x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(val) != "payload" {
		t.Errorf("Get() = %s, want payload", string(val))
	}

	ok, err := cache.Exists(ctx, "run:reference:x")
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
}

func TestRedisCache_NotFound(t *testing.T) {
	cache := newTestRedis(t)

	_, err := cache.Get(context.Background(), "nonexistent-key")
	if err != ErrKeyNotFound {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	cache := newTestRedis(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "run:textbook:1", []byte("a"), 0)
	_ = cache.Set(ctx, "run:textbook:2", []byte("b"), 0)
	_ = cache.Set(ctx, "run:reference:1", []byte("c"), 0)

	n, err := cache.DeleteByPrefix(ctx, "run:textbook:")
	if err != nil || n != 2 {
		t.Fatalf("DeleteByPrefix() = %d, %v; want 2", n, err)
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalKeys != 1 {
		t.Errorf("TotalKeys = %d, want 1", stats.TotalKeys)
	}
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	opts := DefaultOptions()
	opts.RedisAddr = "127.0.0.1:1"

	if _, err := NewRedisCache(opts); err == nil {
		t.Error("expected ping failure for unreachable redis")
	}
}
