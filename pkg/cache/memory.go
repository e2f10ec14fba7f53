package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache in-memory кэш с вытеснением LRU
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	lru        *list.List // front - последний использованный
	defaultTTL time.Duration
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64

	closed atomic.Bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type cacheItem struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (i *cacheItem) isExpired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// NewMemoryCache создаёт in-memory кэш и запускает фоновую очистку
func NewMemoryCache(opts *Options) *MemoryCache {
	if opts == nil {
		opts = DefaultOptions()
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}

	cleanupInterval := opts.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &MemoryCache{
		items:      make(map[string]*list.Element),
		lru:        list.New(),
		defaultTTL: opts.DefaultTTL,
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop(cleanupInterval)

	return c
}

func (c *MemoryCache) Backend() string { return BackendMemory }

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, ErrKeyNotFound
	}
	item := el.Value.(*cacheItem)
	if item.isExpired(time.Now()) {
		c.removeElement(el)
		c.misses.Add(1)
		return nil, ErrKeyNotFound
	}

	c.hits.Add(1)
	c.lru.MoveToFront(el)

	result := make([]byte, len(item.value))
	copy(result, item.value)
	return result, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		item := el.Value.(*cacheItem)
		item.value = valueCopy
		item.expiresAt = expiresAt
		c.lru.MoveToFront(el)
		return nil
	}

	for len(c.items) >= c.maxEntries {
		c.removeElement(c.lru.Back())
	}

	c.items[key] = c.lru.PushFront(&cacheItem{key: key, value: valueCopy, expiresAt: expiresAt})
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	return ok && !el.Value.(*cacheItem).isExpired(time.Now()), nil
}

func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var count int64
	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(el)
			count++
		}
	}
	return count, nil
}

func (c *MemoryCache) Stats(_ context.Context) (*Stats, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := &Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Backend: BackendMemory,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	now := time.Now()
	for _, el := range c.items {
		item := el.Value.(*cacheItem)
		if !item.isExpired(now) {
			stats.TotalKeys++
			stats.MemoryBytes += int64(len(item.value))
		}
	}
	return stats, nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.stopCh)
	c.wg.Wait()

	c.mu.Lock()
	c.items = nil
	c.lru.Init()
	c.mu.Unlock()

	return nil
}

// Len число записей, включая ещё не вычищенные просроченные
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, el := range c.items {
		if el.Value.(*cacheItem).isExpired(now) {
			c.removeElement(el)
		}
	}
}

// removeElement вызывается под c.mu
func (c *MemoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	c.lru.Remove(el)
	delete(c.items, el.Value.(*cacheItem).key)
}
