package bench

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedKernel возвращает заранее заданные результаты по кругу
type scriptedKernel struct {
	initErr error
	results []Result
	calls   int
	cleaned bool
	inited  bool
}

func (k *scriptedKernel) Init() error {
	k.inited = true
	return k.initErr
}

func (k *scriptedKernel) Run() Result {
	r := k.results[k.calls%len(k.results)]
	k.calls++
	return r
}

func (k *scriptedKernel) Cleanup() { k.cleaned = true }

func descriptorFor(k *scriptedKernel, name, source string, expected uint32) Descriptor {
	return Descriptor{
		Name:             name,
		Source:           source,
		ExpectedChecksum: expected,
		New:              func() Kernel { return k },
	}
}

func TestChecksum(t *testing.T) {
	t.Run("zero_cost_zero_pivots", func(t *testing.T) {
		c := ChecksumInt64(ChecksumInit(), 0)
		c = ChecksumUpdate(c, 0)
		assert.Equal(t, uint32(0x4ab0f7b7), c)
	})

	t.Run("int64_low_then_high", func(t *testing.T) {
		v := int64(-5)
		want := ChecksumUpdate(ChecksumUpdate(ChecksumInit(), 0xfffffffb), 0xffffffff)
		assert.Equal(t, want, ChecksumInt64(ChecksumInit(), v))
	})
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	k := &scriptedKernel{results: []Result{{}}}

	require.NoError(t, reg.Register(descriptorFor(k, "b", "src", 0)))
	require.NoError(t, reg.Register(descriptorFor(k, "a", "src", 0)))
	assert.Error(t, reg.Register(descriptorFor(k, "a", "src", 0)))
	assert.Error(t, reg.Register(Descriptor{Name: "nil_ctor"}))
	assert.Error(t, reg.Register(Descriptor{New: func() Kernel { return k }}))

	assert.Equal(t, 2, reg.Len())
	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Name)
	assert.Equal(t, "a", all[1].Name)

	_, ok := reg.Get("a")
	assert.True(t, ok)
	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_Select(t *testing.T) {
	reg := NewRegistry()
	k := &scriptedKernel{results: []Result{{}}}
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, reg.Register(descriptorFor(k, name, "src", 0)))
	}

	same, err := reg.Select(nil)
	require.NoError(t, err)
	assert.Same(t, reg, same)

	sub, err := reg.Select([]string{"c", "a"})
	require.NoError(t, err)
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, "c", sub.All()[0].Name)

	_, err = reg.Select([]string{"zzz"})
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusOK, StatusChecksum, StatusTimeout, StatusInternal} {
		assert.Equal(t, s, ParseStatus(s.String()))
	}
	assert.Equal(t, StatusInternal, ParseStatus("garbage"))
}

func TestRun_AllPass(t *testing.T) {
	k := &scriptedKernel{results: []Result{
		{Cycles: 100, Checksum: 7},
		{Cycles: 300, Checksum: 7},
	}}
	var seen []int
	cfg := Config{WarmupRuns: 2, MeasureRuns: 4, Verify: true, OnResult: func(run int, _ Result) {
		seen = append(seen, run)
	}}

	stats := Run(descriptorFor(k, "k", "src", 7), cfg)

	assert.True(t, k.inited)
	assert.True(t, k.cleaned)
	assert.Equal(t, 6, k.calls)
	assert.Equal(t, []int{0, 1, 2, 3}, seen)

	assert.Equal(t, StatusOK, stats.Status)
	assert.True(t, stats.Passed())
	assert.Equal(t, 4, stats.RunsTotal)
	assert.Equal(t, 4, stats.RunsPass)
	assert.Equal(t, 0, stats.RunsFail)
	assert.Equal(t, uint64(100), stats.CyclesMin)
	assert.Equal(t, uint64(300), stats.CyclesMax)
	assert.Equal(t, uint64(800), stats.CyclesTotal)
	assert.Equal(t, uint64(200), stats.CyclesAvg)
	assert.Equal(t, uint32(7), stats.Checksum)
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name       string
		kernel     *scriptedKernel
		expected   uint32
		cfg        Config
		wantStatus Status
		wantPass   int
		wantFail   int
		wantMin    uint64
		wantAvg    uint64
	}{
		{
			name:       "checksum_mismatch_keeps_cycles",
			kernel:     &scriptedKernel{results: []Result{{Cycles: 50, Checksum: 1}}},
			expected:   2,
			cfg:        Config{MeasureRuns: 3, Verify: true},
			wantStatus: StatusChecksum,
			wantPass:   0,
			wantFail:   3,
			wantMin:    50,
			wantAvg:    0,
		},
		{
			name:       "verify_disabled",
			kernel:     &scriptedKernel{results: []Result{{Cycles: 50, Checksum: 1}}},
			expected:   2,
			cfg:        Config{MeasureRuns: 3},
			wantStatus: StatusOK,
			wantPass:   3,
			wantFail:   0,
			wantMin:    50,
			wantAvg:    50,
		},
		{
			name: "internal_run_skipped",
			kernel: &scriptedKernel{results: []Result{
				{Cycles: 10, Status: StatusInternal},
				{Cycles: 40},
			}},
			cfg:        Config{MeasureRuns: 2, Verify: true},
			wantStatus: StatusInternal,
			wantPass:   1,
			wantFail:   1,
			wantMin:    40,
			wantAvg:    40,
		},
		{
			name:       "timeout",
			kernel:     &scriptedKernel{results: []Result{{Cycles: uint64(2 * time.Millisecond)}}},
			cfg:        Config{MeasureRuns: 2, Timeout: time.Millisecond},
			wantStatus: StatusTimeout,
			wantPass:   0,
			wantFail:   2,
			wantMin:    math.MaxUint64,
			wantAvg:    0,
		},
		{
			name:       "init_failure",
			kernel:     &scriptedKernel{initErr: errors.New("boom"), results: []Result{{}}},
			cfg:        Config{WarmupRuns: 1, MeasureRuns: 5},
			wantStatus: StatusInternal,
			wantPass:   0,
			wantFail:   5,
			wantMin:    math.MaxUint64,
			wantAvg:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := Run(descriptorFor(tt.kernel, tt.name, "", tt.expected), tt.cfg)
			assert.Equal(t, tt.wantStatus, stats.Status)
			assert.Equal(t, tt.wantPass, stats.RunsPass)
			assert.Equal(t, tt.wantFail, stats.RunsFail)
			assert.Equal(t, tt.wantMin, stats.CyclesMin)
			assert.Equal(t, tt.wantAvg, stats.CyclesAvg)
			assert.False(t, stats.Passed())
		})
	}
}

func TestRun_ExpectedOverride(t *testing.T) {
	k := &scriptedKernel{results: []Result{{Cycles: 5, Checksum: 9}}}
	stats := Run(descriptorFor(k, "k", "", 1), Config{MeasureRuns: 1, Verify: true, ExpectedChecksum: 9})
	assert.Equal(t, uint32(9), stats.Expected)
	assert.Equal(t, StatusOK, stats.Status)
}

func TestGeomean(t *testing.T) {
	mk := func(avgs ...uint64) []Stats {
		out := make([]Stats, len(avgs))
		for i, a := range avgs {
			out[i].CyclesAvg = a
		}
		return out
	}

	assert.Equal(t, uint64(0), Geomean(nil))
	assert.Equal(t, uint64(123), Geomean(mk(123)))
	assert.Equal(t, uint64(200), Geomean(mk(100, 400)))
	assert.Equal(t, uint64(1000), Geomean(mk(1000, 1000, 1000)))
	assert.Equal(t, uint64(2048), Geomean(mk(1024, 4096)))
}

func TestSummarize(t *testing.T) {
	all := []Stats{
		{CyclesAvg: 100, Status: StatusOK},
		{CyclesAvg: 400, Status: StatusChecksum},
	}
	s := Summarize(all)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, uint64(500), s.TotalCycles)
	assert.Equal(t, uint64(200), s.GeomeanCycles)
	assert.Equal(t, uint64(5_000_000), s.ScorePerGHz)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatHuman, "human": FormatHuman, "csv": FormatCSV, "machine": FormatMachine} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestRunAll_Output(t *testing.T) {
	newReg := func() *Registry {
		reg := NewRegistry()
		require.NoError(t, reg.Register(descriptorFor(
			&scriptedKernel{results: []Result{{Cycles: 100, Checksum: 0x4ab0f7b7}}},
			"graph_simplex", "429.mcf", 0x4ab0f7b7)))
		require.NoError(t, reg.Register(descriptorFor(
			&scriptedKernel{results: []Result{{Cycles: 400, Checksum: 1}}},
			"graph_textbook", "429.mcf", 2)))
		return reg
	}
	cfg := Config{WarmupRuns: 0, MeasureRuns: 1, Verify: true}

	t.Run("human", func(t *testing.T) {
		var buf bytes.Buffer
		all := RunAll(newReg(), cfg, NewPrinter(&buf, FormatHuman))
		require.Len(t, all, 2)

		out := buf.String()
		assert.Contains(t, out, "Network Simplex Micro-Benchmark Results")
		assert.Contains(t, out, "Architecture: "+ArchName())
		assert.Equal(t, 1, strings.Count(out, "[429.mcf]"))
		assert.Contains(t, out, "0x4ab0f7b7 PASS")
		assert.Contains(t, out, "0x00000001 FAIL")
		assert.Contains(t, out, "2 total, 1 passed, 1 failed")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		RunAll(newReg(), cfg, NewPrinter(&buf, FormatCSV))

		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "kernel,min_cycles,avg_cycles,max_cycles,checksum,status\n"))
		assert.Contains(t, out, "# 429.mcf\n")
		assert.Contains(t, out, "graph_simplex,100,100,100,0x4ab0f7b7,PASS\n")
		assert.Contains(t, out, "kernels_failed,1\n")
	})

	t.Run("machine", func(t *testing.T) {
		var buf bytes.Buffer
		RunAll(newReg(), cfg, NewPrinter(&buf, FormatMachine))

		out := buf.String()
		assert.Equal(t, 2, strings.Count(out, "[BENCH_START]"))
		assert.Contains(t, out, "kernel=graph_simplex\n")
		assert.Contains(t, out, "source=429.mcf\n")
		assert.Contains(t, out, "status=FAIL\n")
		assert.Contains(t, out, "runs_pass=1\n")
		assert.True(t, strings.HasSuffix(out, "[END]\n"))
	})
}
