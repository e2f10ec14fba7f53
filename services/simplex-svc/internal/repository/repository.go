// Package repository stores completed kernel runs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Стандартные ошибки
var (
	ErrRunNotFound = errors.New("run not found")
)

// Run сохранённый прогон ядра
type Run struct {
	ID              uuid.UUID
	Mode            string
	Nodes           int
	Arcs            int
	Seed            uint32
	Iterations      int
	RefreshInterval int
	CarryState      bool

	Pivots           int
	DegeneratePivots int
	BoundPivots      int
	FinalCost        int64
	Checksum         uint32
	Status           string
	Termination      string
	Cycles           uint64
	Cached           bool
	ArtificialFlow   int64
	Infeasible       bool

	Trace     []byte // JSON, только в Get
	Tags      []string
	CreatedAt time.Time
}

// ListFilter фильтры для списка
type ListFilter struct {
	Mode string
	Tags []string // совпадение хотя бы одного тега
}

// ListOptions опции для списка
type ListOptions struct {
	Limit  int
	Offset int
	Filter *ListFilter
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// normalize приводит лимиты к допустимому диапазону
func (o *ListOptions) normalize() *ListOptions {
	if o == nil {
		o = &ListOptions{}
	}
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	if o.Limit > maxListLimit {
		o.Limit = maxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// RunRepository интерфейс хранилища прогонов
type RunRepository interface {
	// Save присваивает ID и CreatedAt, если они не заданы
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
	// List возвращает прогоны без трассы, новые первыми, и общее число
	List(ctx context.Context, opts *ListOptions) ([]*Run, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Backend имя хранилища для логов и трейсинга
	Backend() string
}

// prepare заполняет ID и время создания
func prepare(run *Run) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Tags == nil {
		run.Tags = []string{}
	}
}
