package main

import (
	"context"
	"time"

	"netsimplex/pkg/apperror"
	"netsimplex/pkg/logger"
	"netsimplex/pkg/simplexapi"
	"netsimplex/services/simplex-svc/internal/bench"
	"netsimplex/services/simplex-svc/internal/kernel"
)

// runner часть SimplexClient, нужная удалённому ядру
type runner interface {
	Run(ctx context.Context, req *simplexapi.RunRequest) (*simplexapi.RunResponse, error)
}

// remoteKernel выполняет каждый прогон на сервере
type remoteKernel struct {
	c       runner
	req     simplexapi.RunRequest
	timeout time.Duration
}

func (k *remoteKernel) Init() error { return nil }
func (k *remoteKernel) Cleanup()    {}

func (k *remoteKernel) Run() bench.Result {
	ctx := context.Background()
	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	req := k.req
	resp, err := k.c.Run(ctx, &req)
	if err != nil {
		logger.Error("remote run failed", "mode", req.Mode, "error", err)
		st := bench.StatusInternal
		if apperror.Is(err, apperror.CodeTimeout) {
			st = bench.StatusTimeout
		}
		return bench.Result{Status: st}
	}
	return bench.Result{
		Cycles:   resp.Cycles,
		Checksum: resp.Checksum,
		Status:   bench.ParseStatus(resp.Status),
	}
}

// remoteRequest запрос, воспроизводящий opts на сервере
func remoteRequest(opts kernel.Options) simplexapi.RunRequest {
	seed := opts.Seed
	iterations := opts.Pivots
	refresh := opts.RefreshInterval
	return simplexapi.RunRequest{
		Nodes:           opts.Nodes,
		Arcs:            opts.Arcs,
		Seed:            &seed,
		Iterations:      &iterations,
		RefreshInterval: &refresh,
		Mode:            opts.Mode.String(),
		CarryState:      opts.CarryState,
		PrimePotentials: opts.PrimePotentials,
		SkipCache:       true,
	}
}

// registerRemote регистрирует варианты под локальными именами и суммами,
// но с прогонами на сервере
func registerRemote(reg *bench.Registry, c runner, variants []kernel.Options, timeout time.Duration) error {
	for _, opts := range variants {
		d := kernel.Descriptor(opts)
		req := remoteRequest(opts)
		d.Source += " (remote)"
		d.New = func() bench.Kernel {
			return &remoteKernel{c: c, req: req, timeout: timeout}
		}
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}
