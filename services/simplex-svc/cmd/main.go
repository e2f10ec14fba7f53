// Package main is the entry point for simplex-svc.
//
// simplex-svc runs the network simplex benchmark kernel behind the
// netsimplex.v1.SimplexService gRPC API:
//
//	RunKernel   - run the kernel (result cache + run history)
//	GetRun      - fetch a stored run with its pivot trace
//	ListRuns    - page through run history, filtered by mode or tags
//	ExportTrace - pivot trace as an XLSX workbook, PDF or CSV
//	VerifyRun   - run with network invariant checks after every pivot
//
// # Configuration
//
// Defaults < config file (CONFIG_PATH, config.yaml, config/config.yaml,
// /etc/netsimplex/config.yaml) < environment (NETSIMPLEX_ prefix):
//
//	NETSIMPLEX_GRPC_PORT             - gRPC port (default: 50051)
//	NETSIMPLEX_KERNEL_MODE           - default pivot rule: reference, textbook
//	NETSIMPLEX_KERNEL_ITERATIONS     - default pivot budget (default: 50)
//	NETSIMPLEX_CACHE_ENABLED         - run result cache (default: false)
//	NETSIMPLEX_CACHE_DRIVER          - memory, redis
//	NETSIMPLEX_DATABASE_ENABLED      - PostgreSQL run history (default: false,
//	                                   in-memory history otherwise)
//	NETSIMPLEX_TRACING_ENABLED       - OpenTelemetry export over OTLP/gRPC
//	NETSIMPLEX_METRICS_ENABLED       - Prometheus endpoint (default: true)
//	NETSIMPLEX_HTTP_ENABLED          - Connect gateway (HTTP/JSON, gRPC-Web)
//	NETSIMPLEX_HTTP_PORT             - gateway port (default: 8080)
//
// Example:
//
//	grpcurl -plaintext -d '{"mode": "textbook", "trace": true}' \
//	  localhost:50051 netsimplex.v1.SimplexService/RunKernel
package main

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"netsimplex/migrations"
	"netsimplex/pkg/cache"
	"netsimplex/pkg/config"
	"netsimplex/pkg/database"
	"netsimplex/pkg/logger"
	"netsimplex/pkg/metrics"
	"netsimplex/pkg/server"
	"netsimplex/pkg/simplexapi"
	"netsimplex/services/simplex-svc/internal/gateway"
	"netsimplex/services/simplex-svc/internal/repository"
	"netsimplex/services/simplex-svc/internal/service"
)

func main() {
	cfg, err := config.LoadWithServiceDefaults("simplex-svc", 50051)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	// Метрики регистрируются до создания сервиса: он берёт metrics.Get()
	metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	prometheus.MustRegister(metrics.NewRuntimeCollector(cfg.Metrics.Namespace, cfg.Metrics.Subsystem))

	srv, err := server.New(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	// =========================================================================
	// Run history: PostgreSQL или in-memory
	// =========================================================================
	var repo repository.RunRepository
	var readyChecks []gateway.ReadyCheck
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		srv.OnShutdown("database", func(context.Context) error {
			db.Close()
			return nil
		})

		if err := database.RunMigrations(ctx, db.Pool(), &cfg.Database, migrations.PostgresMigrations, migrations.PostgresDir); err != nil {
			logger.Fatal("failed to run migrations", "error", err)
		}
		repo = repository.NewPostgresRunRepository(db)
		readyChecks = append(readyChecks, gateway.ReadyCheck{Name: "database", Check: db.HealthCheck})
	} else {
		repo = repository.NewMemoryRunRepository(repository.DefaultMemoryCapacity)
		logger.Info("Database disabled, run history kept in memory",
			"capacity", repository.DefaultMemoryCapacity,
		)
	}
	prometheus.MustRegister(metrics.NewRunStoreCollector(cfg.Metrics.Namespace, cfg.Metrics.Subsystem, storedRuns(repo)))

	// =========================================================================
	// Run cache
	// =========================================================================
	var runCache *cache.RunCache
	if cfg.Cache.Enabled {
		baseCache, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("Failed to create cache, continuing without cache", "error", err)
		} else {
			runCache = cache.NewRunCache(baseCache, cfg.Cache.DefaultTTL)
			srv.OnShutdown("cache", func(context.Context) error {
				return baseCache.Close()
			})
			logger.Info("Run cache initialized",
				"driver", cfg.Cache.Driver,
				"ttl", cfg.Cache.DefaultTTL,
			)
		}
	}

	svc := service.NewSimplexService(cfg.Kernel, repo, runCache)
	simplexapi.RegisterSimplexServiceServer(srv.GetEngine(), svc)

	if cfg.HTTP.Enabled {
		gw := gateway.NewServer(cfg.HTTP, svc, readyChecks...)
		if err := gw.Start(); err != nil {
			logger.Fatal("failed to start connect gateway", "error", err)
		}
		srv.OnShutdown("gateway", gw.Shutdown)
	}

	logger.Info("Starting simplex service",
		"port", cfg.GRPC.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"default_mode", cfg.Kernel.Mode,
		"history", repo.Backend(),
		"cache_enabled", runCache != nil,
		"http_enabled", cfg.HTTP.Enabled,
	)

	if err := srv.Run(); err != nil {
		logger.Fatal("server failed", "error", err)
	}
}

// storedRuns число прогонов в истории для коллектора метрик
func storedRuns(repo repository.RunRepository) func() int {
	if mem, ok := repo.(*repository.MemoryRunRepository); ok {
		return mem.Count
	}
	return func() int {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, total, err := repo.List(ctx, &repository.ListOptions{Limit: 1})
		if err != nil {
			return 0
		}
		return int(total)
	}
}
