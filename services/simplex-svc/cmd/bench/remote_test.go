package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsimplex/pkg/apperror"
	"netsimplex/pkg/config"
	"netsimplex/pkg/logger"
	"netsimplex/pkg/simplexapi"
	"netsimplex/services/simplex-svc/internal/bench"
	"netsimplex/services/simplex-svc/internal/kernel"
)

type fakeRunner struct {
	reqs []simplexapi.RunRequest
	resp *simplexapi.RunResponse
	err  error
}

func (f *fakeRunner) Run(_ context.Context, req *simplexapi.RunRequest) (*simplexapi.RunResponse, error) {
	f.reqs = append(f.reqs, *req)
	return f.resp, f.err
}

func TestRegisterRemote(t *testing.T) {
	logger.InitDiscard()
	f := &fakeRunner{resp: &simplexapi.RunResponse{
		Cycles:   1234,
		Checksum: kernel.ChecksumTextbookDefault,
		Status:   bench.StatusOK.String(),
	}}

	reg := bench.NewRegistry()
	require.NoError(t, registerRemote(reg, f, kernel.Variants(kernel.DefaultOptions()), 0))
	require.Equal(t, 2, reg.Len())

	d, ok := reg.Get("graph_simplex_textbook")
	require.True(t, ok)
	assert.Equal(t, kernel.ChecksumTextbookDefault, d.ExpectedChecksum)

	stats := bench.Run(d, bench.Config{WarmupRuns: 1, MeasureRuns: 2, Verify: true})
	assert.True(t, stats.Passed())
	assert.Equal(t, uint64(1234), stats.CyclesMin)

	require.Len(t, f.reqs, 3)
	req := f.reqs[0]
	assert.Equal(t, "textbook", req.Mode)
	assert.True(t, req.SkipCache)
	require.NotNil(t, req.Iterations)
	assert.Equal(t, 50, *req.Iterations)
	require.NotNil(t, req.Seed)
	assert.Equal(t, uint32(0xCAFEBABE), *req.Seed)
}

func TestRemoteKernel_Errors(t *testing.T) {
	logger.InitDiscard()

	k := &remoteKernel{c: &fakeRunner{err: apperror.New(apperror.CodeTimeout, "deadline")}}
	assert.Equal(t, bench.StatusTimeout, k.Run().Status)

	k = &remoteKernel{c: &fakeRunner{err: apperror.New(apperror.CodeUnavailable, "down")}}
	assert.Equal(t, bench.StatusInternal, k.Run().Status)

	k = &remoteKernel{c: &fakeRunner{resp: &simplexapi.RunResponse{Status: "ERR_CHECKSUM", Checksum: 7}}}
	res := k.Run()
	assert.Equal(t, bench.StatusChecksum, res.Status)
	assert.Equal(t, uint32(7), res.Checksum)
}

func TestKernelOptions(t *testing.T) {
	opts, err := kernelOptions(config.KernelConfig{
		Nodes: 32, Arcs: 128, Seed: 7, Iterations: 0, Mode: "textbook", PrimePotentials: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 32, opts.Nodes)
	assert.Equal(t, 0, opts.Pivots)
	assert.True(t, opts.PrimePotentials)

	_, err = kernelOptions(config.KernelConfig{Mode: "bland"})
	assert.Error(t, err)

	_, err = kernelOptions(config.KernelConfig{Nodes: 1, Mode: "reference"})
	assert.Error(t, err)
}
