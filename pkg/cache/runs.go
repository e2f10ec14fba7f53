package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// RunCache кэш результатов прогонов ядра
type RunCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedRun кэшированный результат прогона
type CachedRun struct {
	RunID            string        `json:"run_id"`
	Mode             string        `json:"mode"`
	Pivots           int           `json:"pivots"`
	DegeneratePivots int           `json:"degenerate_pivots"`
	BoundPivots      int           `json:"bound_pivots"`
	Refreshes        int           `json:"refreshes"`
	FinalCost        int64         `json:"final_cost"`
	Checksum         uint32        `json:"checksum"`
	Status           string        `json:"status"`
	Termination      string        `json:"termination"`
	Cycles           uint64        `json:"cycles"`
	ArtificialFlow   int64         `json:"artificial_flow,omitempty"`
	Infeasible       bool          `json:"infeasible,omitempty"`
	Trace            []CachedPivot `json:"trace,omitempty"`
	TraceTruncated   bool          `json:"trace_truncated,omitempty"`
	ComputedAt       time.Time     `json:"computed_at"`
}

// CachedPivot одна запись трассы пивотов
type CachedPivot struct {
	Index    int   `json:"index"`
	Entering int32 `json:"entering"`
	Leaving  int32 `json:"leaving"`
	Delta    int32 `json:"delta"`
	Bound    bool  `json:"bound,omitempty"`
	Cost     int64 `json:"cost"`
}

// NewRunCache создаёт кэш прогонов поверх cache
func NewRunCache(cache Cache, defaultTTL time.Duration) *RunCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &RunCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Backend имя бэкенда для метрик
func (rc *RunCache) Backend() string { return rc.cache.Backend() }

// Get возвращает кэшированный прогон; found=false при промахе
func (rc *RunCache) Get(ctx context.Context, k RunKey) (*CachedRun, bool, error) {
	key := BuildRunKey(k)

	data, err := rc.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var run CachedRun
	if err := json.Unmarshal(data, &run); err != nil {
		// Повреждённая запись: удаляем и считаем промахом
		_ = rc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return &run, true, nil
}

// Set сохраняет прогон; ttl <= 0 означает TTL по умолчанию
func (rc *RunCache) Set(ctx context.Context, k RunKey, run *CachedRun, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = rc.defaultTTL
	}
	if run.ComputedAt.IsZero() {
		run.ComputedAt = time.Now().UTC()
	}

	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return rc.cache.Set(ctx, BuildRunKey(k), data, ttl)
}

// Invalidate удаляет результат для параметров k
func (rc *RunCache) Invalidate(ctx context.Context, k RunKey) error {
	return rc.cache.Delete(ctx, BuildRunKey(k))
}

// InvalidateMode удаляет все результаты правила mode
func (rc *RunCache) InvalidateMode(ctx context.Context, mode string) (int64, error) {
	return rc.cache.DeleteByPrefix(ctx, RunPrefix+mode+":")
}

// InvalidateAll удаляет все результаты прогонов
func (rc *RunCache) InvalidateAll(ctx context.Context) (int64, error) {
	return rc.cache.DeleteByPrefix(ctx, RunPrefix)
}
