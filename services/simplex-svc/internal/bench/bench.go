// Package bench is the micro-benchmark harness: kernels are registered with
// an init/run/cleanup lifecycle, run through warm-up and measured rounds and
// reported in human, CSV or machine-readable form.
package bench

import (
	"fmt"
	"sync"
)

// Status outcome code of one run.
type Status int

const (
	StatusOK Status = iota
	StatusChecksum
	StatusTimeout
	StatusInternal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusChecksum:
		return "ERR_CHECKSUM"
	case StatusTimeout:
		return "ERR_TIMEOUT"
	case StatusInternal:
		return "ERR_INTERNAL"
	default:
		return fmt.Sprintf("STATUS(%d)", int(s))
	}
}

// ParseStatus inverse of Status.String; unknown names map to StatusInternal.
func ParseStatus(s string) Status {
	switch s {
	case "OK":
		return StatusOK
	case "ERR_CHECKSUM":
		return StatusChecksum
	case "ERR_TIMEOUT":
		return StatusTimeout
	default:
		return StatusInternal
	}
}

// Result of one kernel run.
type Result struct {
	Cycles   uint64
	Checksum uint32
	Status   Status
}

// Kernel lifecycle consumed by the runner. Init is called once before the
// warm-up rounds and Cleanup once after the measured rounds.
type Kernel interface {
	Init() error
	Run() Result
	Cleanup()
}

// Descriptor registry entry describing a kernel.
type Descriptor struct {
	Name             string
	Description      string
	Source           string
	ExpectedChecksum uint32
	DefaultPivots    int

	// New builds a fresh kernel instance.
	New func() Kernel
}

// Registry ordered set of kernel descriptors.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byKey map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Descriptor)}
}

// Register adds a descriptor; names must be unique.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" || d.New == nil {
		return fmt.Errorf("kernel descriptor requires a name and a constructor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byKey[d.Name]; ok {
		return fmt.Errorf("kernel %q already registered", d.Name)
	}
	r.byKey[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byKey[name]
	return d, ok
}

// All returns descriptors in registration order.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byKey[name])
	}
	return out
}

// Len number of registered kernels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Select returns a registry with the named kernels in the given order.
// An empty list selects everything.
func (r *Registry) Select(names []string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	out := NewRegistry()
	for _, name := range names {
		d, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown kernel %q", name)
		}
		if err := out.Register(d); err != nil {
			return nil, err
		}
	}
	return out, nil
}
