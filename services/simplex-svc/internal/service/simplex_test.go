package service

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"netsimplex/pkg/apperror"
	"netsimplex/pkg/cache"
	"netsimplex/pkg/config"
	"netsimplex/pkg/interceptors"
	"netsimplex/pkg/logger"
	"netsimplex/pkg/simplexapi"
	"netsimplex/services/simplex-svc/internal/report"
	"netsimplex/services/simplex-svc/internal/repository"
	"netsimplex/services/simplex-svc/internal/simplex"
)

func TestMain(m *testing.M) {
	logger.Init("error")

	os.Exit(m.Run())
}

func defaultKernelConfig() config.KernelConfig {
	return config.KernelConfig{
		Nodes:           64,
		Arcs:            256,
		Seed:            0xCAFEBABE,
		Iterations:      50,
		RefreshInterval: 10,
		Mode:            "reference",
	}
}

func newTestService(t *testing.T) (*SimplexService, *repository.MemoryRunRepository) {
	t.Helper()

	mem := cache.NewMemoryCache(cache.DefaultOptions())
	t.Cleanup(func() { _ = mem.Close() })

	repo := repository.NewMemoryRunRepository(0)
	return NewSimplexService(defaultKernelConfig(), repo, cache.NewRunCache(mem, time.Minute)), repo
}

func intPtr(v int) *int { return &v }

func TestRunKernel_TextbookDefault(t *testing.T) {
	svc, repo := newTestService(t)

	resp, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{Mode: "textbook", Trace: true, Tags: []string{"ci"}})
	require.NoError(t, err)

	assert.Equal(t, "textbook", resp.Mode)
	assert.Equal(t, 50, resp.Pivots)
	assert.Equal(t, int64(10064165), resp.FinalCost)
	assert.Equal(t, uint32(0xbd3b4f96), resp.Checksum)
	assert.Equal(t, uint32(0xbd3b4f96), resp.ExpectedChecksum)
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, "budget_exhausted", resp.Termination)
	assert.False(t, resp.Cached)

	require.Len(t, resp.PivotsTrace, 50)
	first := resp.PivotsTrace[0]
	assert.Equal(t, [3]int32{37, 290, 18}, [3]int32{first.Entering, first.Leaving, first.Delta})
	assert.Equal(t, int64(10064165), resp.PivotsTrace[49].Cost)

	_, err = uuid.Parse(resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Count())
}

func TestRunKernel_ReferenceDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, "reference", resp.Mode)
	assert.Equal(t, 0, resp.Pivots)
	assert.Equal(t, uint32(0x4ab0f7b7), resp.Checksum)
	assert.Equal(t, "OK", resp.Status)

	primed, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{PrimePotentials: true})
	require.NoError(t, err)
	assert.Equal(t, 9, primed.Pivots)
	assert.Equal(t, 9, primed.DegeneratePivots)
	assert.Equal(t, uint32(0x41b0e98c), primed.Checksum)
}

func TestRunKernel_ZeroBudget(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{Mode: "textbook", Iterations: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Pivots)
	assert.Equal(t, int64(28190004), resp.FinalCost)
	assert.Zero(t, resp.ExpectedChecksum)
}

func TestRunKernel_Cache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	req := &simplexapi.RunRequest{Mode: "textbook"}

	first, err := svc.RunKernel(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.RunKernel(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Checksum, second.Checksum)
	assert.Equal(t, first.FinalCost, second.FinalCost)
	assert.NotEqual(t, first.RunID, second.RunID)

	skipped, err := svc.RunKernel(ctx, &simplexapi.RunRequest{Mode: "textbook", SkipCache: true})
	require.NoError(t, err)
	assert.False(t, skipped.Cached)

	assert.Equal(t, 3, repo.Count())
}

func TestRunKernel_CarryStateIsNotCached(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := &simplexapi.RunRequest{Mode: "textbook", CarryState: true, Runs: 3}

	first, err := svc.RunKernel(ctx, req)
	require.NoError(t, err)
	second, err := svc.RunKernel(ctx, req)
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.Equal(t, first.Checksum, second.Checksum)
	// Третий прогон подряд продолжает с состояния второго и доходит до оптимума
	assert.Equal(t, int64(2442379), first.FinalCost)
	assert.Equal(t, "converged", first.Termination)
	assert.Zero(t, first.ExpectedChecksum)
}

func TestRunKernel_InvalidMode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{Mode: "bland"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRunKernel_ReferenceNeedsEnoughArcs(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{Nodes: 64, Arcs: 10})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRunKernel_Cancelled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunKernel(ctx, &simplexapi.RunRequest{Mode: "textbook", SkipCache: true})
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestExecute_CancelStopsRunBetweenPivots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := resolvePlan(defaultKernelConfig(), &simplexapi.RunRequest{Mode: "textbook", Iterations: intPtr(1000)})
	require.NoError(t, err)

	pivots := 0
	_, err = svc.execute(ctx, p, runHooks{pivot: func(_ *simplex.Network, ev simplex.PivotEvent) {
		pivots++
		if ev.Index == 4 {
			cancel()
		}
	}})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeTimeout), "got %v", err)
	assert.Equal(t, 5, pivots)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 5, appErr.Details["pivots"])
	assert.Equal(t, 0, appErr.Details["completed_runs"])
}

func TestRunKernel_DeadlineWithinRun(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// С этим зерном эталонное правило делает вырожденные пивоты до конца бюджета
	seed := uint32(3668339987)
	start := time.Now()
	_, err := svc.RunKernel(ctx, &simplexapi.RunRequest{
		Seed:            &seed,
		Iterations:      intPtr(simplexapi.MaxIterations),
		PrimePotentials: true,
		Trace:           true,
		SkipCache:       true,
	})
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunKernel_IterationLimit(t *testing.T) {
	assert.Equal(t, simplex.MaxPivotBudget, simplexapi.MaxIterations)

	svc, _ := newTestService(t)
	_, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{Iterations: intPtr(simplexapi.MaxIterations + 1)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRunKernel_TraceTruncated(t *testing.T) {
	svc, _ := newTestService(t)
	svc.traceLimit = 10

	resp, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{Mode: "textbook", Trace: true})
	require.NoError(t, err)

	assert.Equal(t, 50, resp.Pivots)
	assert.Len(t, resp.PivotsTrace, 10)
	assert.True(t, resp.TraceTruncated)

	cached, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{Mode: "textbook", Trace: true})
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.True(t, cached.TraceTruncated)
}

func TestRunKernel_ReportsInfeasibleNetwork(t *testing.T) {
	svc, repo := newTestService(t)

	resp, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{Mode: "textbook", Iterations: intPtr(1000)})
	require.NoError(t, err)

	assert.Equal(t, "converged", resp.Termination)
	assert.Equal(t, 116, resp.Pivots)
	assert.True(t, resp.Infeasible)
	assert.Positive(t, resp.ArtificialFlow)

	stored, err := svc.GetRun(context.Background(), &simplexapi.GetRunRequest{RunID: resp.RunID})
	require.NoError(t, err)
	assert.True(t, stored.Infeasible)
	assert.Equal(t, resp.ArtificialFlow, stored.ArtificialFlow)
	assert.Equal(t, 1, repo.Count())

	ref, err := svc.RunKernel(context.Background(), &simplexapi.RunRequest{})
	require.NoError(t, err)
	assert.False(t, ref.Infeasible)
	assert.Zero(t, ref.ArtificialFlow)
}

func TestGetRun(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.RunKernel(ctx, &simplexapi.RunRequest{Mode: "textbook", Trace: true})
	require.NoError(t, err)

	got, err := svc.GetRun(ctx, &simplexapi.GetRunRequest{RunID: created.RunID})
	require.NoError(t, err)
	assert.Equal(t, created.RunID, got.RunID)
	assert.Equal(t, created.Checksum, got.Checksum)
	assert.Equal(t, created.PivotsTrace, got.PivotsTrace)

	_, err = svc.GetRun(ctx, &simplexapi.GetRunRequest{RunID: uuid.NewString()})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = svc.GetRun(ctx, &simplexapi.GetRunRequest{RunID: "nope"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestListRuns(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, mode := range []string{"reference", "textbook", "textbook"} {
		_, err := svc.RunKernel(ctx, &simplexapi.RunRequest{Mode: mode, SkipCache: true, Tags: []string{mode}})
		require.NoError(t, err)
	}

	all, err := svc.ListRuns(ctx, &simplexapi.ListRunsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Len(t, all.Runs, 3)

	textbook, err := svc.ListRuns(ctx, &simplexapi.ListRunsRequest{Mode: "textbook", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), textbook.Total)
	require.Len(t, textbook.Runs, 1)
	assert.Equal(t, "textbook", textbook.Runs[0].Mode)
	assert.Empty(t, textbook.Runs[0].PivotsTrace)

	tagged, err := svc.ListRuns(ctx, &simplexapi.ListRunsRequest{Tags: []string{"reference"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), tagged.Total)
}

func TestExportTrace(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.ExportTrace(context.Background(), &simplexapi.RunRequest{Mode: "textbook", Iterations: intPtr(5)})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(resp.GetValue()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetPivots)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"0", "37", "290", "18"}, rows[1][:4])
}

func TestExportTrace_Formats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.ExportTrace(ctx, &simplexapi.RunRequest{Mode: "textbook", Iterations: intPtr(5), ExportFormat: "csv"})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(resp.GetValue())), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[2], "0,37,290,18,"))

	resp, err = svc.ExportTrace(ctx, &simplexapi.RunRequest{Mode: "textbook", Iterations: intPtr(5), ExportFormat: "pdf"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(resp.GetValue(), []byte("%PDF")))
}

func TestVerifyRun(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("textbook", func(t *testing.T) {
		resp, err := svc.VerifyRun(ctx, &simplexapi.RunRequest{Mode: "textbook", Iterations: intPtr(200)})
		require.NoError(t, err)
		assert.True(t, resp.Valid, "errors: %v", resp.Errors)
		assert.Equal(t, 116, resp.Pivots)
		assert.Equal(t, resp.Pivots, resp.Checked)
		assert.Equal(t, int64(2442379), resp.FinalCost)
		assert.Empty(t, resp.Errors)
	})

	t.Run("reference primed", func(t *testing.T) {
		resp, err := svc.VerifyRun(ctx, &simplexapi.RunRequest{PrimePotentials: true})
		require.NoError(t, err)
		assert.Equal(t, "reference", resp.Mode)
		assert.Equal(t, 9, resp.Checked)
		assert.NotNil(t, resp.Errors)
	})
}

func TestSimplexService_OverGRPC(t *testing.T) {
	svc, _ := newTestService(t)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(interceptors.ServerOptions(&interceptors.ServerConfig{ServiceName: "simplex-svc"})...)
	simplexapi.RegisterSimplexServiceServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	client := simplexapi.NewSimplexServiceClient(conn)
	ctx := context.Background()

	resp, err := client.RunKernel(ctx, &simplexapi.RunRequest{Mode: "textbook"})
	require.NoError(t, err)
	assert.Equal(t, uint32(0xbd3b4f96), resp.Checksum)

	got, err := client.GetRun(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, resp.FinalCost, got.FinalCost)

	_, err = client.RunKernel(ctx, &simplexapi.RunRequest{Nodes: simplexapi.MaxNodes + 1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetRun(ctx, "not-a-uuid")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
