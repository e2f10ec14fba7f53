package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"netsimplex/pkg/apperror"
	"netsimplex/pkg/config"
	"netsimplex/pkg/simplexapi"
	"netsimplex/pkg/telemetry"
	"netsimplex/services/simplex-svc/internal/bench"
	"netsimplex/services/simplex-svc/internal/kernel"
	"netsimplex/services/simplex-svc/internal/simplex"
)

// plan параметры прогона после наложения запроса на конфигурацию
type plan struct {
	opts  kernel.Options
	runs  int
	trace bool
	tags  []string
}

// cacheable результат определяется только параметрами
func (p plan) cacheable() bool { return !p.opts.CarryState }

// resolvePlan накладывает непустые поля запроса на значения из конфигурации
func resolvePlan(defaults config.KernelConfig, req *simplexapi.RunRequest) (plan, error) {
	opts := kernel.DefaultOptions()
	if defaults.Nodes > 0 {
		opts.Nodes = defaults.Nodes
	}
	if defaults.Arcs > 0 {
		opts.Arcs = defaults.Arcs
	}
	if defaults.Seed != 0 {
		opts.Seed = defaults.Seed
	}
	opts.Pivots = defaults.Iterations
	opts.RefreshInterval = defaults.RefreshInterval
	opts.CarryState = defaults.CarryState
	opts.PrimePotentials = defaults.PrimePotentials

	modeName := defaults.Mode
	if req.Mode != "" {
		modeName = req.Mode
	}
	mode, err := simplex.ParseMode(modeName)
	if err != nil {
		return plan{}, apperror.NewWithField(apperror.CodeInvalidMode, err.Error(), "mode")
	}
	opts.Mode = mode

	if req.Nodes > 0 {
		opts.Nodes = req.Nodes
	}
	if req.Arcs > 0 {
		opts.Arcs = req.Arcs
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	if req.Iterations != nil {
		opts.Pivots = *req.Iterations
	}
	if req.RefreshInterval != nil {
		opts.RefreshInterval = *req.RefreshInterval
	}
	opts.CarryState = opts.CarryState || req.CarryState
	opts.PrimePotentials = opts.PrimePotentials || req.PrimePotentials

	if err := opts.Validate(); err != nil {
		return plan{}, err
	}

	runs := req.Runs
	if runs <= 0 {
		runs = 1
	}
	return plan{opts: opts, runs: runs, trace: req.Trace, tags: req.Tags}, nil
}

// execution итог выполнения плана
type execution struct {
	report      simplex.Report
	result      bench.Result
	expected    uint32
	initialCost int64
	trace       []simplexapi.PivotRecord
	truncated   bool
	elapsed     time.Duration
}

// status строка статуса с учётом ожидаемой контрольной суммы
func (e *execution) status() bench.Status {
	if e.result.Status == bench.StatusOK && e.expected != 0 && e.result.Checksum != e.expected {
		return bench.StatusChecksum
	}
	return e.result.Status
}

// runHooks наблюдатель за выполнением; любое поле может быть nil
type runHooks struct {
	// init вызывается один раз после генерации сети
	init func(n *simplex.Network)
	// beforeRun получает стоимость, с которой начинается прогон
	beforeRun func(cost int64)
	pivot     simplex.Observer
}

// execute строит свежее ядро, выполняет p.runs прогонов и возвращает последний.
// Отмена ctx проверяется перед каждым пивотом и прерывает прогон с CodeTimeout.
func (s *SimplexService) execute(ctx context.Context, p plan, h runHooks) (*execution, error) {
	ctx, span := telemetry.StartSpan(ctx, "kernel.Execute",
		telemetry.WithAttributes(telemetry.NetworkAttributes(p.opts.Nodes, p.opts.Arcs, p.opts.Seed)...),
		telemetry.WithAttributes(
			attribute.String(telemetry.AttrRunMode, p.opts.Mode.String()),
			attribute.Int(telemetry.AttrRunIterations, p.opts.Pivots),
		),
	)
	defer span.End()

	exec := &execution{expected: p.opts.ExpectedChecksum()}

	opts := p.opts
	opts.Interrupt = ctx.Err
	opts.Observer = func(n *simplex.Network, ev simplex.PivotEvent) {
		switch {
		case !p.trace:
		case len(exec.trace) >= s.traceLimit:
			exec.truncated = true
		default:
			exec.trace = append(exec.trace, simplexapi.PivotRecord{
				Index:    ev.Index,
				Entering: ev.Entering,
				Leaving:  ev.Leaving,
				Delta:    ev.Delta,
				Bound:    ev.Bound,
				Cost:     ev.Cost,
			})
		}
		if h.pivot != nil {
			h.pivot(n, ev)
		}
	}

	k := kernel.New(opts)
	err := telemetry.WithSpan(ctx, "kernel.Init", func(context.Context) error {
		return k.Init()
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	defer k.Cleanup()

	exec.initialCost = k.Network().TotalCost()
	if h.init != nil {
		h.init(k.Network())
	}
	start := time.Now()

	for run := 0; run < p.runs; run++ {
		if err := ctx.Err(); err != nil {
			telemetry.SetError(ctx, err)
			return nil, apperror.Wrap(err, apperror.CodeTimeout, "run cancelled").
				WithDetails("completed_runs", run)
		}
		if opts.CarryState {
			exec.initialCost = k.Network().TotalCost()
		}
		if h.beforeRun != nil {
			h.beforeRun(exec.initialCost)
		}
		exec.trace = exec.trace[:0]
		exec.truncated = false
		exec.result = k.Run()

		if rep := k.LastReport(); rep.Termination == simplex.Interrupted {
			telemetry.SetError(ctx, rep.Err)
			return nil, apperror.Wrap(rep.Err, apperror.CodeTimeout, "run interrupted").
				WithDetails("completed_runs", run).
				WithDetails("pivots", rep.Pivots)
		}
	}

	exec.elapsed = time.Since(start)
	exec.report = k.LastReport()

	span.SetAttributes(telemetry.RunAttributes(
		p.opts.Mode.String(),
		exec.report.Pivots,
		exec.report.DegeneratePivots,
		exec.report.FinalCost,
		exec.result.Checksum,
		exec.report.Termination.String(),
	)...)
	if exec.report.Err != nil {
		telemetry.RecordError(ctx, exec.report.Err)
	}

	s.recordMetrics(p, exec)
	return exec, nil
}

func (s *SimplexService) recordMetrics(p plan, exec *execution) {
	if s.metrics == nil {
		return
	}
	mode := p.opts.Mode.String()
	s.metrics.RecordNetworkSize(mode, p.opts.Nodes, p.opts.Arcs)
	s.metrics.RecordKernelRun(metricsRun(mode, exec))
	if exec.status() == bench.StatusChecksum {
		s.metrics.RecordChecksumMismatch(kernel.Descriptor(p.opts).Name)
	}
}
