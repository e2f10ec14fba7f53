package simplex

// =============================================================================
// Solver Options
// =============================================================================

const (
	// DefaultMaxPivots pivot budget of one run.
	DefaultMaxPivots = 50
	// DefaultRefreshInterval potentials are recomputed after pivot i when
	// i % interval == 0.
	DefaultRefreshInterval = 10
	// MaxPivotBudget upper bound for MaxPivots accepted from callers. The
	// reference rule can keep pivoting on zero-flow arcs until the budget
	// runs out, so the budget is the only bound on a run's length.
	MaxPivotBudget = 100_000
)

// Options configures the pivot loop.
//
//	opts := DefaultOptions().
//	    WithMode(ModeTextbook).
//	    WithMaxPivots(200)
type Options struct {
	// MaxPivots fixed pivot budget. Zero runs no pivots at all.
	// Default: 50
	MaxPivots int

	// RefreshInterval cadence of RefreshPotentials. Zero or negative
	// disables the periodic refresh.
	// Default: 10
	RefreshInterval int

	// Mode pivot rule.
	// Default: ModeReference
	Mode Mode

	// Observer, if set, is called after every committed pivot.
	Observer Observer

	// Interrupt, if set, is polled before every pivot; a non-nil error
	// stops the run with Termination Interrupted.
	Interrupt func() error
}

// DefaultOptions returns the benchmark configuration.
func DefaultOptions() *Options {
	return &Options{
		MaxPivots:       DefaultMaxPivots,
		RefreshInterval: DefaultRefreshInterval,
		Mode:            ModeReference,
	}
}

// WithMaxPivots sets the pivot budget and returns the options for chaining.
func (o *Options) WithMaxPivots(max int) *Options {
	o.MaxPivots = max
	return o
}

// WithRefreshInterval sets the refresh cadence and returns the options for chaining.
func (o *Options) WithRefreshInterval(interval int) *Options {
	o.RefreshInterval = interval
	return o
}

// WithMode sets the pivot rule and returns the options for chaining.
func (o *Options) WithMode(mode Mode) *Options {
	o.Mode = mode
	return o
}

// WithObserver sets the per-pivot callback and returns the options for chaining.
func (o *Options) WithObserver(obs Observer) *Options {
	o.Observer = obs
	return o
}

// WithInterrupt sets the stop poll and returns the options for chaining.
func (o *Options) WithInterrupt(fn func() error) *Options {
	o.Interrupt = fn
	return o
}

// PivotEvent is reported to the Observer after every pivot.
type PivotEvent struct {
	Index     int
	Entering  int32
	Leaving   int32
	Delta     int32
	Bound     bool
	Refreshed bool
	Cost      int64
}

// Observer receives pivot events. It must not modify the network.
type Observer func(n *Network, ev PivotEvent)

// =============================================================================
// Solver Result
// =============================================================================

// Termination final state of the driver.
type Termination uint8

const (
	// running internal state of the loop; never returned in a Report.
	running Termination = iota
	// Converged pricing found no attractive arc.
	Converged
	// BudgetExhausted the pivot budget ran out; accepted output.
	BudgetExhausted
	// Faulted the tree links became inconsistent (reference rule only).
	Faulted
	// Interrupted Options.Interrupt stopped the run.
	Interrupted
)

func (t Termination) String() string {
	switch t {
	case running:
		return "running"
	case Converged:
		return "converged"
	case BudgetExhausted:
		return "budget_exhausted"
	case Faulted:
		return "faulted"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Report outcome of one Solver.Run.
type Report struct {
	Termination      Termination
	Pivots           int
	DegeneratePivots int
	BoundPivots      int
	Refreshes        int
	FinalCost        int64

	// ArtificialFlow flow left on the Big-M arcs of the initial basis;
	// always 0 for networks without artificial arcs.
	ArtificialFlow int64
	// Infeasible the run converged with ArtificialFlow > 0: supply cannot
	// reach demand over the real arcs.
	Infeasible bool

	// Err is set when Termination is Faulted or Interrupted.
	Err error
}

// =============================================================================
// Solver
// =============================================================================

// Solver drives the pivot loop over a single network.
type Solver struct {
	net  *Network
	opts Options
}

// NewSolver binds a solver to the network. nil options mean DefaultOptions.
func NewSolver(n *Network, opts *Options) *Solver {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Solver{net: n, opts: *opts}
}

// Network returns the network the solver mutates.
func (s *Solver) Network() *Network { return s.net }

// Options returns a copy of the solver options.
func (s *Solver) Options() Options { return s.opts }

// Run executes at most MaxPivots pivots. The loop never stops early on its
// own beyond what the pricing rule reports: the number of pivots executed is
// part of the benchmark output.
func (s *Solver) Run() Report {
	n := s.net
	mode := s.opts.Mode
	rep := Report{Termination: running}

	for i := 0; i < s.opts.MaxPivots; i++ {
		if s.opts.Interrupt != nil {
			if err := s.opts.Interrupt(); err != nil {
				rep.Termination = Interrupted
				rep.Err = err
				break
			}
		}

		entering, ok := SelectEntering(n)
		if !ok {
			rep.Termination = Converged
			break
		}

		p, err := RatioTest(n, entering, mode)
		if err != nil {
			return s.fault(rep, err)
		}
		if err := Commit(n, p, mode); err != nil {
			return s.fault(rep, err)
		}

		refreshed := false
		if s.opts.RefreshInterval > 0 && i%s.opts.RefreshInterval == 0 {
			if err := RefreshPotentials(n, mode); err != nil {
				return s.fault(rep, err)
			}
			refreshed = true
			rep.Refreshes++
		}

		rep.Pivots++
		if p.Degenerate() {
			rep.DegeneratePivots++
		}
		if p.Bound() {
			rep.BoundPivots++
		}

		if s.opts.Observer != nil {
			s.opts.Observer(n, PivotEvent{
				Index:     i,
				Entering:  p.Entering,
				Leaving:   p.Leaving,
				Delta:     p.Delta,
				Bound:     p.Bound(),
				Refreshed: refreshed,
				Cost:      n.TotalCost(),
			})
		}
	}

	if rep.Termination == running {
		rep.Termination = BudgetExhausted
	}
	rep.FinalCost = n.TotalCost()
	rep.ArtificialFlow = n.ArtificialFlow()
	rep.Infeasible = rep.Termination == Converged && rep.ArtificialFlow > 0
	return rep
}

func (s *Solver) fault(rep Report, err error) Report {
	rep.Termination = Faulted
	rep.Err = err
	rep.FinalCost = s.net.TotalCost()
	rep.ArtificialFlow = s.net.ArtificialFlow()
	return rep
}
