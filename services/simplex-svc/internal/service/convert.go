package service

import (
	"time"

	"netsimplex/pkg/cache"
	"netsimplex/pkg/metrics"
	"netsimplex/pkg/simplexapi"
	"netsimplex/services/simplex-svc/internal/report"
	"netsimplex/services/simplex-svc/internal/repository"
)

func runKey(p plan) cache.RunKey {
	return cache.RunKey{
		Mode:            p.opts.Mode.String(),
		Nodes:           p.opts.Nodes,
		Arcs:            p.opts.Arcs,
		Seed:            p.opts.Seed,
		Iterations:      p.opts.Pivots,
		RefreshInterval: p.opts.RefreshInterval,
		PrimePotentials: p.opts.PrimePotentials,
		Trace:           p.trace,
	}
}

// baseResponse параметры запроса в ответе
func baseResponse(p plan) *simplexapi.RunResponse {
	return &simplexapi.RunResponse{
		Mode:             p.opts.Mode.String(),
		Nodes:            p.opts.Nodes,
		Arcs:             p.opts.Arcs,
		Seed:             p.opts.Seed,
		Iterations:       p.opts.Pivots,
		RefreshInterval:  p.opts.RefreshInterval,
		CarryState:       p.opts.CarryState,
		ExpectedChecksum: p.opts.ExpectedChecksum(),
		Tags:             p.tags,
	}
}

func toResponse(p plan, exec *execution) *simplexapi.RunResponse {
	resp := baseResponse(p)
	resp.Pivots = exec.report.Pivots
	resp.DegeneratePivots = exec.report.DegeneratePivots
	resp.BoundPivots = exec.report.BoundPivots
	resp.Refreshes = exec.report.Refreshes
	resp.FinalCost = exec.report.FinalCost
	resp.Checksum = exec.result.Checksum
	resp.Status = exec.status().String()
	resp.Termination = exec.report.Termination.String()
	resp.Cycles = exec.result.Cycles
	resp.ArtificialFlow = exec.report.ArtificialFlow
	resp.Infeasible = exec.report.Infeasible
	if p.trace {
		resp.PivotsTrace = append([]simplexapi.PivotRecord{}, exec.trace...)
		resp.TraceTruncated = exec.truncated
	}
	return resp
}

func toCached(resp *simplexapi.RunResponse) *cache.CachedRun {
	c := &cache.CachedRun{
		RunID:            resp.RunID,
		Mode:             resp.Mode,
		Pivots:           resp.Pivots,
		DegeneratePivots: resp.DegeneratePivots,
		BoundPivots:      resp.BoundPivots,
		Refreshes:        resp.Refreshes,
		FinalCost:        resp.FinalCost,
		Checksum:         resp.Checksum,
		Status:           resp.Status,
		Termination:      resp.Termination,
		Cycles:           resp.Cycles,
		ArtificialFlow:   resp.ArtificialFlow,
		Infeasible:       resp.Infeasible,
		TraceTruncated:   resp.TraceTruncated,
	}
	for _, pv := range resp.PivotsTrace {
		c.Trace = append(c.Trace, cache.CachedPivot(pv))
	}
	return c
}

func fromCached(p plan, c *cache.CachedRun) *simplexapi.RunResponse {
	resp := baseResponse(p)
	resp.Pivots = c.Pivots
	resp.DegeneratePivots = c.DegeneratePivots
	resp.BoundPivots = c.BoundPivots
	resp.Refreshes = c.Refreshes
	resp.FinalCost = c.FinalCost
	resp.Checksum = c.Checksum
	resp.Status = c.Status
	resp.Termination = c.Termination
	resp.Cycles = c.Cycles
	resp.ArtificialFlow = c.ArtificialFlow
	resp.Infeasible = c.Infeasible
	resp.Cached = true
	if p.trace {
		resp.TraceTruncated = c.TraceTruncated
		resp.PivotsTrace = make([]simplexapi.PivotRecord, 0, len(c.Trace))
		for _, pv := range c.Trace {
			resp.PivotsTrace = append(resp.PivotsTrace, simplexapi.PivotRecord(pv))
		}
	}
	return resp
}

func toRepositoryRun(p plan, resp *simplexapi.RunResponse) *repository.Run {
	return &repository.Run{
		Mode:             resp.Mode,
		Nodes:            resp.Nodes,
		Arcs:             resp.Arcs,
		Seed:             resp.Seed,
		Iterations:       resp.Iterations,
		RefreshInterval:  resp.RefreshInterval,
		CarryState:       p.opts.CarryState,
		Pivots:           resp.Pivots,
		DegeneratePivots: resp.DegeneratePivots,
		BoundPivots:      resp.BoundPivots,
		FinalCost:        resp.FinalCost,
		Checksum:         resp.Checksum,
		Status:           resp.Status,
		Termination:      resp.Termination,
		Cycles:           resp.Cycles,
		Cached:           resp.Cached,
		ArtificialFlow:   resp.ArtificialFlow,
		Infeasible:       resp.Infeasible,
		Tags:             p.tags,
	}
}

func fromRepositoryRun(run *repository.Run) *simplexapi.RunResponse {
	return &simplexapi.RunResponse{
		RunID:            run.ID.String(),
		Mode:             run.Mode,
		Nodes:            run.Nodes,
		Arcs:             run.Arcs,
		Seed:             run.Seed,
		Iterations:       run.Iterations,
		RefreshInterval:  run.RefreshInterval,
		CarryState:       run.CarryState,
		Pivots:           run.Pivots,
		DegeneratePivots: run.DegeneratePivots,
		BoundPivots:      run.BoundPivots,
		FinalCost:        run.FinalCost,
		Checksum:         run.Checksum,
		Status:           run.Status,
		Termination:      run.Termination,
		Cycles:           run.Cycles,
		Cached:           run.Cached,
		ArtificialFlow:   run.ArtificialFlow,
		Infeasible:       run.Infeasible,
		Tags:             run.Tags,
		CreatedAt:        run.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toReportRun(p plan, exec *execution) *report.Run {
	run := &report.Run{
		Mode:             p.opts.Mode.String(),
		Nodes:            p.opts.Nodes,
		Arcs:             p.opts.Arcs,
		Seed:             p.opts.Seed,
		Iterations:       p.opts.Pivots,
		RefreshInterval:  p.opts.RefreshInterval,
		CarryState:       p.opts.CarryState,
		InitialCost:      exec.initialCost,
		FinalCost:        exec.report.FinalCost,
		Pivots:           exec.report.Pivots,
		DegeneratePivots: exec.report.DegeneratePivots,
		BoundPivots:      exec.report.BoundPivots,
		Checksum:         exec.result.Checksum,
		Status:           exec.status().String(),
		Termination:      exec.report.Termination.String(),
		Cycles:           exec.result.Cycles,
		ArtificialFlow:   exec.report.ArtificialFlow,
		Infeasible:       exec.report.Infeasible,
		TraceTruncated:   exec.truncated,
		GeneratedAt:      time.Now().UTC(),
	}
	run.Trace = make([]report.Pivot, 0, len(exec.trace))
	for _, pv := range exec.trace {
		run.Trace = append(run.Trace, report.Pivot(pv))
	}
	return run
}

func metricsRun(mode string, exec *execution) metrics.KernelRun {
	return metrics.KernelRun{
		Mode:             mode,
		Termination:      exec.report.Termination.String(),
		Pivots:           exec.report.Pivots,
		DegeneratePivots: exec.report.DegeneratePivots,
		FinalCost:        exec.report.FinalCost,
		Duration:         time.Duration(exec.result.Cycles),
	}
}
