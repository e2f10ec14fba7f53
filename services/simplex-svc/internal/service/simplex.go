// Package service implements netsimplex.v1.SimplexService: kernel runs with
// result caching, run history, XLSX trace export and invariant verification.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"netsimplex/pkg/apperror"
	"netsimplex/pkg/cache"
	"netsimplex/pkg/config"
	"netsimplex/pkg/logger"
	"netsimplex/pkg/metrics"
	"netsimplex/pkg/simplexapi"
	"netsimplex/pkg/telemetry"
	"netsimplex/services/simplex-svc/internal/report"
	"netsimplex/services/simplex-svc/internal/repository"
	"netsimplex/services/simplex-svc/internal/simplex"
)

// maxVerifyMessages предел сообщений в ответе VerifyRun
const maxVerifyMessages = 100

// SimplexService реализация simplexapi.SimplexServiceServer
type SimplexService struct {
	simplexapi.UnimplementedSimplexServiceServer

	defaults config.KernelConfig
	repo     repository.RunRepository
	runCache *cache.RunCache
	metrics  *metrics.Metrics

	// traceLimit записей трассы на прогон
	traceLimit int
}

// NewSimplexService создаёт сервис. runCache может быть nil.
func NewSimplexService(defaults config.KernelConfig, repo repository.RunRepository, runCache *cache.RunCache) *SimplexService {
	if repo == nil {
		repo = repository.NewMemoryRunRepository(repository.DefaultMemoryCapacity)
	}
	return &SimplexService{
		defaults:   defaults,
		repo:       repo,
		runCache:   runCache,
		metrics:    metrics.Get(),
		traceLimit: simplexapi.MaxTracePivots,
	}
}

// RunKernel выполняет прогон или берёт его из кэша и сохраняет в историю
func (s *SimplexService) RunKernel(ctx context.Context, req *simplexapi.RunRequest) (*simplexapi.RunResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SimplexService.RunKernel")
	defer span.End()

	p, err := resolvePlan(s.defaults, req)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, apperror.ToGRPC(err)
	}

	key := runKey(p)
	useCache := s.runCache != nil && p.cacheable() && !req.SkipCache

	if useCache {
		cached, found, err := s.runCache.Get(ctx, key)
		if err != nil {
			logger.WithContext(ctx).Warn("Run cache lookup failed", "error", err)
		}
		s.metrics.RecordCacheLookup(s.runCache.Backend(), found)
		if found {
			span.SetAttributes(attribute.Bool(telemetry.AttrRunCached, true))
			resp := fromCached(p, cached)
			s.persist(ctx, p, resp)
			return resp, nil
		}
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrRunCached, false))

	exec, err := s.execute(ctx, p, runHooks{})
	if err != nil {
		return nil, apperror.ToGRPC(err)
	}
	resp := toResponse(p, exec)

	if useCache {
		if err := s.runCache.Set(ctx, key, toCached(resp), 0); err != nil {
			logger.WithContext(ctx).Warn("Failed to cache run", "error", err)
		}
	}

	s.persist(ctx, p, resp)

	logger.WithContext(ctx, "run_id", resp.RunID).Info("Kernel run completed",
		"mode", resp.Mode,
		"pivots", resp.Pivots,
		"final_cost", resp.FinalCost,
		"checksum", fmt.Sprintf("0x%08x", resp.Checksum),
		"status", resp.Status,
		"termination", resp.Termination,
	)
	return resp, nil
}

// persist сохраняет прогон в историю; ошибка хранилища не роняет запрос,
// но ответ остаётся без run_id
func (s *SimplexService) persist(ctx context.Context, p plan, resp *simplexapi.RunResponse) {
	run := toRepositoryRun(p, resp)
	if resp.PivotsTrace != nil {
		data, err := json.Marshal(resp.PivotsTrace)
		if err == nil {
			run.Trace = data
		}
	}

	if err := s.repo.Save(ctx, run); err != nil {
		logger.WithContext(ctx).Error("Failed to persist run", "backend", s.repo.Backend(), "error", err)
		resp.RunID = ""
		return
	}
	resp.RunID = run.ID.String()
	resp.CreatedAt = run.CreatedAt.UTC().Format(time.RFC3339Nano)
	telemetry.SetAttributes(ctx, attribute.String(telemetry.AttrRunID, resp.RunID))
}

// GetRun возвращает прогон из истории вместе с трассой
func (s *SimplexService) GetRun(ctx context.Context, req *simplexapi.GetRunRequest) (*simplexapi.RunResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SimplexService.GetRun",
		telemetry.WithAttributes(attribute.String(telemetry.AttrRunID, req.RunID)),
	)
	defer span.End()

	id, err := uuid.Parse(req.RunID)
	if err != nil {
		return nil, apperror.ToGRPC(apperror.NewWithField(apperror.CodeInvalidArgument, "run_id must be a UUID", "run_id"))
	}

	run, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			return nil, apperror.ToGRPC(apperror.New(apperror.CodeRunNotFound, "run not found").
				WithDetails("run_id", req.RunID))
		}
		telemetry.SetError(ctx, err)
		return nil, apperror.ToGRPC(apperror.Wrap(err, apperror.CodeInternal, "load run"))
	}

	resp := fromRepositoryRun(run)
	if len(run.Trace) > 0 {
		if err := json.Unmarshal(run.Trace, &resp.PivotsTrace); err != nil {
			logger.WithRun(req.RunID).Warn("Stored trace is unreadable", "error", err)
		}
	}
	return resp, nil
}

// ListRuns возвращает страницу истории без трасс, новые первыми
func (s *SimplexService) ListRuns(ctx context.Context, req *simplexapi.ListRunsRequest) (*simplexapi.ListRunsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SimplexService.ListRuns")
	defer span.End()

	opts := &repository.ListOptions{Limit: req.Limit, Offset: req.Offset}
	if req.Mode != "" || len(req.Tags) > 0 {
		opts.Filter = &repository.ListFilter{Mode: req.Mode, Tags: req.Tags}
	}

	runs, total, err := s.repo.List(ctx, opts)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, apperror.ToGRPC(apperror.Wrap(err, apperror.CodeInternal, "list runs"))
	}

	resp := &simplexapi.ListRunsResponse{
		Runs:  make([]simplexapi.RunResponse, 0, len(runs)),
		Total: total,
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, *fromRepositoryRun(run))
	}
	return resp, nil
}

// ExportTrace выполняет прогон с трассой и возвращает документ в формате
// req.ExportFormat
func (s *SimplexService) ExportTrace(ctx context.Context, req *simplexapi.RunRequest) (*wrapperspb.BytesValue, error) {
	ctx, span := telemetry.StartSpan(ctx, "SimplexService.ExportTrace")
	defer span.End()

	p, err := resolvePlan(s.defaults, req)
	if err != nil {
		return nil, apperror.ToGRPC(err)
	}
	p.trace = true

	exporter, err := report.New(req.ExportFormat)
	if err != nil {
		return nil, apperror.ToGRPC(apperror.NewWithField(apperror.CodeInvalidArgument, err.Error(), "export_format"))
	}

	exec, err := s.execute(ctx, p, runHooks{})
	if err != nil {
		return nil, apperror.ToGRPC(err)
	}

	data, err := exporter.Export(ctx, toReportRun(p, exec))
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, apperror.ToGRPC(apperror.Wrap(err, apperror.CodeInternal, "render trace "+exporter.Format()))
	}
	return wrapperspb.Bytes(data), nil
}

// VerifyRun выполняет прогон, проверяя инварианты сети после инициализации
// и после каждого пивота. Дерево, сохранение потока и дополняющая
// нежёсткость проверяются только для правила textbook.
func (s *SimplexService) VerifyRun(ctx context.Context, req *simplexapi.RunRequest) (*simplexapi.VerifyResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SimplexService.VerifyRun")
	defer span.End()

	p, err := resolvePlan(s.defaults, req)
	if err != nil {
		return nil, apperror.ToGRPC(err)
	}
	strict := p.opts.Mode == simplex.ModeTextbook

	v := &verifier{strict: strict, ve: apperror.NewValidationErrors()}
	exec, err := s.execute(ctx, p, runHooks{init: v.initial, beforeRun: v.reset, pivot: v.observe})
	if err != nil {
		return nil, apperror.ToGRPC(err)
	}
	if exec.report.Err != nil {
		v.ve.AddError(apperror.CodeTreeCorrupted, exec.report.Err.Error())
	}

	resp := &simplexapi.VerifyResponse{
		Valid:     !v.ve.HasErrors(),
		Mode:      p.opts.Mode.String(),
		Pivots:    exec.report.Pivots,
		Checked:   v.checked,
		FinalCost: exec.report.FinalCost,
		Errors:    truncate(v.ve.ErrorMessages()),
		Warnings:  truncate(v.ve.WarningMessages()),
	}
	span.SetAttributes(attribute.Int(telemetry.AttrVerifyViolations, len(v.ve.Errors)))
	return resp, nil
}

// verifier проверяет сеть после инициализации и после каждого пивота
type verifier struct {
	strict   bool
	checked  int
	lastCost int64
	ve       *apperror.ValidationErrors
}

func (v *verifier) initial(n *simplex.Network) {
	v.collect("init", n.CheckInvariants(v.strict))
}

func (v *verifier) reset(cost int64) { v.lastCost = cost }

func (v *verifier) observe(n *simplex.Network, ev simplex.PivotEvent) {
	v.checked++
	v.collect(fmt.Sprintf("pivot %d", ev.Index), n.CheckInvariants(v.strict))
	// Невырожденный пивот textbook обязан строго уменьшать стоимость
	if v.strict && ev.Delta > 0 && ev.Cost >= v.lastCost {
		v.ve.AddError(apperror.CodeCostIncrease,
			fmt.Sprintf("pivot %d: cost %d did not decrease from %d", ev.Index, ev.Cost, v.lastCost))
	}
	v.lastCost = ev.Cost
}

func (v *verifier) collect(where string, found *apperror.ValidationErrors) {
	for _, e := range found.Errors {
		v.ve.AddError(e.Code, where+": "+e.Message)
	}
	for _, w := range found.Warnings {
		v.ve.AddWarning(w.Code, where+": "+w.Message)
	}
}

func truncate(msgs []string) []string {
	if msgs == nil {
		return []string{}
	}
	if len(msgs) > maxVerifyMessages {
		return msgs[:maxVerifyMessages]
	}
	return msgs
}
