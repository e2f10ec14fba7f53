// Package cache provides the run-result cache with in-memory and
// Redis-backed implementations.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"netsimplex/pkg/config"
)

// Backend types for cache implementations.
const (
	// BackendMemory specifies an in-memory cache backend.
	BackendMemory = "memory"
	// BackendRedis specifies a Redis cache backend.
	BackendRedis = "redis"
)

// Standard errors returned by cache operations.
var (
	// ErrKeyNotFound is returned when a requested key does not exist in the cache.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCacheClosed is returned when an operation is attempted on a closed cache.
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache is the byte-level store behind RunCache.
type Cache interface {
	// Get retrieves the value associated with the given key.
	// Returns ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value for the given key. A non-positive ttl means the
	// backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)
	// DeleteByPrefix removes every key starting with prefix and returns
	// the number of removed keys.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)

	// Stats returns statistics about the cache.
	Stats(ctx context.Context) (*Stats, error)
	// Clear removes all keys owned by the cache.
	Clear(ctx context.Context) error
	// Close shuts down the cache and releases any underlying resources.
	Close() error
	// Backend name of the implementation.
	Backend() string
}

// Stats holds statistics about a cache's state.
type Stats struct {
	TotalKeys   int64
	Hits        int64
	Misses      int64
	HitRate     float64
	MemoryBytes int64
	Backend     string
}

// Options contains configuration parameters for creating a Cache instance.
type Options struct {
	Backend    string        // BackendMemory or BackendRedis
	DefaultTTL time.Duration // 0 means entries never expire

	// Memory cache specific options
	MaxEntries      int
	CleanupInterval time.Duration

	// Redis cache specific options
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	KeyPrefix     string // prepended to every Redis key
}

// DefaultOptions returns in-memory options with a one hour TTL.
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      time.Hour,
		MaxEntries:      1000,
		CleanupInterval: time.Minute,
		RedisAddr:       "localhost:6379",
		RedisPoolSize:   10,
		KeyPrefix:       "netsimplex:",
	}
}

// FromConfig создаёт опции из конфигурации
func FromConfig(cfg *config.CacheConfig) *Options {
	opts := DefaultOptions()
	opts.Backend = cfg.Driver
	opts.DefaultTTL = cfg.DefaultTTL
	if cfg.MaxEntries > 0 {
		opts.MaxEntries = cfg.MaxEntries
	}
	opts.RedisAddr = cfg.Address()
	opts.RedisPassword = cfg.Password
	opts.RedisDB = cfg.DB
	return opts
}

// New создаёт кэш на основе опций
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	case BackendMemory, "":
		return NewMemoryCache(opts), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
