// Command bench runs the registered kernels through the benchmark harness
// and prints per-kernel cycle statistics and checksums.
//
// By default the kernels run in-process. With -remote every run is sent to
// a simplex-svc instance (client.* configuration) with the result cache
// bypassed, so the cycles and checksum come from the server.
//
//	go run ./services/simplex-svc/cmd/bench -runs 10 -format csv
//	go run ./services/simplex-svc/cmd/bench -remote -kernels graph_simplex_textbook
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"netsimplex/pkg/client"
	"netsimplex/pkg/config"
	"netsimplex/pkg/logger"
	"netsimplex/services/simplex-svc/internal/bench"
	"netsimplex/services/simplex-svc/internal/kernel"
	"netsimplex/services/simplex-svc/internal/simplex"
)

func main() {
	var (
		remote  = flag.Bool("remote", false, "run kernels on a simplex-svc instance")
		warmup  = flag.Int("warmup", -1, "warm-up runs (default from config)")
		runs    = flag.Int("runs", -1, "measured runs (default from config)")
		format  = flag.String("format", "", "output format: human, csv, machine")
		kernels = flag.String("kernels", "", "comma separated kernel names")
		verbose = flag.Bool("v", false, "log every measured run")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	// stdout занят таблицей результатов
	logger.InitWithConfig(logger.Config{Level: cfg.Log.Level, Format: "text", Output: "stderr"})

	if *warmup >= 0 {
		cfg.Bench.WarmupRuns = *warmup
	}
	if *runs >= 0 {
		cfg.Bench.MeasureRuns = *runs
	}
	if *format != "" {
		cfg.Bench.Output = *format
	}
	if *kernels != "" {
		cfg.Bench.Kernels = strings.Split(*kernels, ",")
	}
	if *verbose {
		cfg.Bench.Verbose = true
	}

	out, err := bench.ParseFormat(cfg.Bench.Output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	opts, err := kernelOptions(cfg.Kernel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	reg := bench.NewRegistry()
	if *remote {
		c, err := client.NewSimplexClient(context.Background(), cfg.Client)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer c.Close() //nolint:errcheck // выход из процесса
		err = registerRemote(reg, c, kernel.Variants(opts), cfg.Bench.Timeout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	} else if err := kernel.Register(reg, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	reg, err = reg.Select(cfg.Bench.Kernels)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	all := bench.RunAll(reg, benchConfig(cfg.Bench), bench.NewPrinter(os.Stdout, out))
	if !allPassed(all) {
		os.Exit(1) //nolint:gocritic // defer Close не важен при выходе
	}
}

func allPassed(all []bench.Stats) bool {
	for _, s := range all {
		if !s.Passed() {
			return false
		}
	}
	return true
}

func kernelOptions(kc config.KernelConfig) (kernel.Options, error) {
	mode, err := simplex.ParseMode(kc.Mode)
	if err != nil {
		return kernel.Options{}, err
	}
	opts := kernel.DefaultOptions()
	if kc.Nodes > 0 {
		opts.Nodes = kc.Nodes
	}
	if kc.Arcs > 0 {
		opts.Arcs = kc.Arcs
	}
	if kc.Seed != 0 {
		opts.Seed = kc.Seed
	}
	if kc.Iterations >= 0 {
		opts.Pivots = kc.Iterations
	}
	if kc.RefreshInterval > 0 {
		opts.RefreshInterval = kc.RefreshInterval
	}
	opts.Mode = mode
	opts.CarryState = kc.CarryState
	opts.PrimePotentials = kc.PrimePotentials
	return opts, opts.Validate()
}

func benchConfig(bc config.BenchConfig) bench.Config {
	cfg := bench.Config{
		WarmupRuns:       bc.WarmupRuns,
		MeasureRuns:      bc.MeasureRuns,
		Verify:           bc.Verify,
		Verbose:          bc.Verbose,
		ExpectedChecksum: bc.ExpectedChecksum,
		Timeout:          bc.Timeout,
	}
	if bc.Verbose {
		cfg.OnResult = func(run int, res bench.Result) {
			logger.Info("run",
				"n", run,
				"cycles", res.Cycles,
				"checksum", bench.FormatChecksum(res.Checksum),
				"status", res.Status.String())
		}
	}
	return cfg
}
