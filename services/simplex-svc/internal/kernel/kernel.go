// Package kernel adapts the network simplex solver to the benchmark kernel
// lifecycle: the network is generated once at Init, every Run restores the
// pristine copy (unless state is carried over), pivots within the budget and
// folds the final cost and pivot count into an FNV-1a checksum.
package kernel

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"netsimplex/pkg/apperror"
	"netsimplex/pkg/logger"
	"netsimplex/services/simplex-svc/internal/bench"
	"netsimplex/services/simplex-svc/internal/netgen"
	"netsimplex/services/simplex-svc/internal/simplex"
)

const (
	Name   = "graph_simplex"
	Source = "429.mcf"
)

// Known checksums for the default 64/256/0xCAFEBABE network with a budget of 50.
const (
	ChecksumReferenceDefault uint32 = 0x4ab0f7b7
	ChecksumReferencePrimed  uint32 = 0x41b0e98c
	ChecksumTextbookDefault  uint32 = 0xbd3b4f96
)

// Options of the kernel.
type Options struct {
	Nodes           int
	Arcs            int
	Seed            uint32
	Pivots          int
	RefreshInterval int
	Mode            simplex.Mode

	// CarryState continues pivoting from the previous run's final state.
	CarryState bool

	// PrimePotentials computes tree potentials once after generation.
	// Without it the reference rule sees zero potentials and stops at once.
	PrimePotentials bool

	// Observer receives every pivot of every run.
	Observer simplex.Observer

	// Interrupt is polled before every pivot; an error ends the run with
	// bench.StatusTimeout.
	Interrupt func() error
}

// DefaultOptions 64 nodes, 256 arcs, seed 0xCAFEBABE, 50 pivots, reference rule.
func DefaultOptions() Options {
	return Options{
		Nodes:           netgen.DefaultNodes,
		Arcs:            netgen.DefaultArcs,
		Seed:            netgen.DefaultSeed,
		Pivots:          simplex.DefaultMaxPivots,
		RefreshInterval: simplex.DefaultRefreshInterval,
		Mode:            simplex.ModeReference,
	}
}

// Params generator parameters of these options.
func (o Options) Params() netgen.Params {
	return netgen.Params{Nodes: o.Nodes, Arcs: o.Arcs, Seed: o.Seed, Mode: o.Mode}
}

// Validate checks the generator parameters and the pivot budget.
func (o Options) Validate() error {
	if err := o.Params().Validate(); err != nil {
		return err
	}
	if o.Pivots < 0 || o.Pivots > simplex.MaxPivotBudget {
		return apperror.New(apperror.CodeInvalidIterations,
			fmt.Sprintf("pivot budget must be within 0..%d", simplex.MaxPivotBudget)).
			WithDetails("pivots", o.Pivots)
	}
	if o.RefreshInterval < 0 {
		return apperror.New(apperror.CodeInvalidIterations, "refresh interval must not be negative").
			WithDetails("refresh_interval", o.RefreshInterval)
	}
	return nil
}

// ExpectedChecksum returns the known checksum for these options, or 0 when
// none is recorded. Carried state changes the result run to run.
func (o Options) ExpectedChecksum() uint32 {
	def := DefaultOptions()
	if o.CarryState ||
		o.Nodes != def.Nodes || o.Arcs != def.Arcs || o.Seed != def.Seed ||
		o.Pivots != def.Pivots || o.RefreshInterval != def.RefreshInterval {
		return 0
	}
	switch {
	case o.Mode == simplex.ModeTextbook:
		return ChecksumTextbookDefault
	case o.PrimePotentials:
		return ChecksumReferencePrimed
	default:
		return ChecksumReferenceDefault
	}
}

// Checksum folds the final cost (low word, high word) and the pivot count.
func Checksum(cost int64, pivots int) uint32 {
	csum := bench.ChecksumInt64(bench.ChecksumInit(), cost)
	return bench.ChecksumUpdate(csum, uint32(pivots))
}

// GraphSimplex kernel over a generated network.
type GraphSimplex struct {
	mu       sync.Mutex
	opts     Options
	pristine *simplex.Network
	work     *simplex.Network
	last     simplex.Report
	runs     int
}

// New creates a kernel; the network is built by Init.
func New(opts Options) *GraphSimplex {
	return &GraphSimplex{opts: opts}
}

// Init generates the network and keeps it as the pristine state.
func (k *GraphSimplex) Init() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.opts.Validate(); err != nil {
		return err
	}

	n, err := netgen.Generate(k.opts.Params())
	if err != nil {
		return err
	}
	if k.opts.PrimePotentials {
		if err := simplex.RefreshPotentials(n, k.opts.Mode); err != nil {
			return apperror.Wrap(err, apperror.CodeTreeCorrupted, "initial potentials")
		}
	}

	k.pristine = n
	k.work = n.Clone()
	k.runs = 0
	k.last = simplex.Report{}

	logger.WithKernel(Name, k.opts.Mode.String()).Debug("kernel initialized",
		"nodes", n.NumNodes(),
		"arcs", n.NumArcs(),
		"seed", k.opts.Seed,
	)
	return nil
}

// Run executes one pivot budget. Cycles are monotonic nanoseconds spent in
// the pivot loop and the final cost computation.
func (k *GraphSimplex) Run() bench.Result {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.work == nil {
		k.last = simplex.Report{Termination: simplex.Faulted, Err: errNotInitialized}
		return bench.Result{Status: bench.StatusInternal}
	}
	if !k.opts.CarryState {
		k.work.CopyFrom(k.pristine)
	}

	opts := simplex.DefaultOptions().
		WithMaxPivots(k.opts.Pivots).
		WithRefreshInterval(k.opts.RefreshInterval).
		WithMode(k.opts.Mode).
		WithObserver(k.opts.Observer).
		WithInterrupt(k.opts.Interrupt)

	start := time.Now()
	rep := simplex.NewSolver(k.work, opts).Run()
	cycles := uint64(time.Since(start).Nanoseconds())

	k.last = rep
	k.runs++

	res := bench.Result{
		Cycles:   cycles,
		Checksum: Checksum(rep.FinalCost, rep.Pivots),
		Status:   bench.StatusOK,
	}
	switch rep.Termination {
	case simplex.Interrupted:
		res.Status = bench.StatusTimeout
	case simplex.Faulted:
		res.Status = bench.StatusInternal
		logger.WithKernel(Name, k.opts.Mode.String()).Error("kernel run faulted",
			"run", k.runs,
			"pivots", rep.Pivots,
			"error", rep.Err,
		)
	}
	return res
}

// Cleanup drops the model.
func (k *GraphSimplex) Cleanup() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pristine = nil
	k.work = nil
}

// LastReport driver report of the last run.
func (k *GraphSimplex) LastReport() simplex.Report {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.last
}

// Network working network after the last run; nil before Init or after Cleanup.
func (k *GraphSimplex) Network() *simplex.Network {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.work
}

// Options kernel options.
func (k *GraphSimplex) Options() Options { return k.opts }

var errNotInitialized = errors.New("kernel: run before init")

// Descriptor registry entry for kernels built from opts.
func Descriptor(opts Options) bench.Descriptor {
	name := Name
	if opts.Mode == simplex.ModeTextbook {
		name = Name + "_textbook"
	}
	return bench.Descriptor{
		Name:             name,
		Description:      "network simplex pivots on a generated min-cost flow network",
		Source:           Source,
		ExpectedChecksum: opts.ExpectedChecksum(),
		DefaultPivots:    opts.Pivots,
		New:              func() bench.Kernel { return New(opts) },
	}
}

// Variants reference and textbook variants of opts, in registration order.
// Priming is a reference-rule concern and is dropped for textbook.
func Variants(opts Options) []Options {
	ref := opts
	ref.Mode = simplex.ModeReference
	tb := opts
	tb.Mode = simplex.ModeTextbook
	tb.PrimePotentials = false
	return []Options{ref, tb}
}

// Register registers every variant of opts.
func Register(reg *bench.Registry, opts Options) error {
	for _, v := range Variants(opts) {
		if err := reg.Register(Descriptor(v)); err != nil {
			return err
		}
	}
	return nil
}
