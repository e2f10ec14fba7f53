package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"netsimplex/pkg/telemetry"
)

// BackendMemory имя in-memory хранилища
const BackendMemory = "memory"

// DefaultMemoryCapacity сколько прогонов хранит MemoryRunRepository по умолчанию
const DefaultMemoryCapacity = 1000

// MemoryRunRepository in-memory реализация; самые старые прогоны вытесняются
type MemoryRunRepository struct {
	mu       sync.RWMutex
	runs     map[uuid.UUID]*Run
	order    []uuid.UUID // по возрастанию времени сохранения
	capacity int
}

// NewMemoryRunRepository создаёт хранилище; capacity <= 0 - DefaultMemoryCapacity
func NewMemoryRunRepository(capacity int) *MemoryRunRepository {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryRunRepository{
		runs:     make(map[uuid.UUID]*Run),
		capacity: capacity,
	}
}

func (r *MemoryRunRepository) Backend() string { return BackendMemory }

func (r *MemoryRunRepository) Save(ctx context.Context, run *Run) error {
	_, span := telemetry.StartSpan(ctx, "MemoryRunRepository.Save",
		telemetry.WithAttributes(telemetry.StoreAttributes(BackendMemory, "insert")...))
	defer span.End()

	prepare(run)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; !exists {
		r.order = append(r.order, run.ID)
	}
	r.runs[run.ID] = cloneRun(run, true)

	for len(r.order) > r.capacity {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

func (r *MemoryRunRepository) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	_, span := telemetry.StartSpan(ctx, "MemoryRunRepository.Get",
		telemetry.WithAttributes(telemetry.StoreAttributes(BackendMemory, "select")...))
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return cloneRun(run, true), nil
}

func (r *MemoryRunRepository) List(ctx context.Context, opts *ListOptions) ([]*Run, int64, error) {
	_, span := telemetry.StartSpan(ctx, "MemoryRunRepository.List",
		telemetry.WithAttributes(telemetry.StoreAttributes(BackendMemory, "select")...))
	defer span.End()

	opts = opts.normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Run
	for i := len(r.order) - 1; i >= 0; i-- {
		run := r.runs[r.order[i]]
		if matches(run, opts.Filter) {
			matched = append(matched, run)
		}
	}

	total := int64(len(matched))
	if opts.Offset >= len(matched) {
		return nil, total, nil
	}
	end := min(opts.Offset+opts.Limit, len(matched))

	results := make([]*Run, 0, end-opts.Offset)
	for _, run := range matched[opts.Offset:end] {
		results = append(results, cloneRun(run, false))
	}
	return results, total, nil
}

func (r *MemoryRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, span := telemetry.StartSpan(ctx, "MemoryRunRepository.Delete",
		telemetry.WithAttributes(telemetry.StoreAttributes(BackendMemory, "delete")...))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[id]; !ok {
		return ErrRunNotFound
	}
	delete(r.runs, id)
	r.order = slices.DeleteFunc(r.order, func(v uuid.UUID) bool { return v == id })
	return nil
}

// Count число хранимых прогонов
func (r *MemoryRunRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

func matches(run *Run, filter *ListFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Mode != "" && run.Mode != filter.Mode {
		return false
	}
	if len(filter.Tags) > 0 {
		for _, tag := range filter.Tags {
			if slices.Contains(run.Tags, tag) {
				return true
			}
		}
		return false
	}
	return true
}

func cloneRun(run *Run, withTrace bool) *Run {
	cp := *run
	cp.Tags = slices.Clone(run.Tags)
	if cp.Tags == nil {
		cp.Tags = []string{}
	}
	cp.Trace = nil
	if withTrace {
		cp.Trace = slices.Clone(run.Trace)
	}
	return &cp
}
