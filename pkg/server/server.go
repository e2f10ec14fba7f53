// Package server wraps grpc.Server with the service's interceptor chain,
// health reporting, metrics endpoint and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"netsimplex/pkg/config"
	"netsimplex/pkg/interceptors"
	"netsimplex/pkg/logger"
	"netsimplex/pkg/metrics"
	"netsimplex/pkg/telemetry"
)

const defaultShutdownTimeout = 30 * time.Second

// ShutdownFunc освобождает ресурс при остановке сервера
type ShutdownFunc func(ctx context.Context) error

// GRPCServer обёртка над grpc.Server
type GRPCServer struct {
	server      *grpc.Server
	health      *health.Server
	serviceName string
	config      *config.Config
	telemetry   *telemetry.Provider
	metricsSrv  *http.Server
	hooks       []namedHook
}

type namedHook struct {
	name string
	fn   ShutdownFunc
}

// New создаёт новый gRPC сервер
func New(cfg *config.Config) (*GRPCServer, error) {
	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle:     cfg.GRPC.KeepAlive.MaxConnectionIdle,
		MaxConnectionAge:      cfg.GRPC.KeepAlive.MaxConnectionAge,
		MaxConnectionAgeGrace: cfg.GRPC.KeepAlive.MaxConnectionAgeGrace,
		Time:                  cfg.GRPC.KeepAlive.Time,
		Timeout:               cfg.GRPC.KeepAlive.Timeout,
	}

	kaPolicy := keepalive.EnforcementPolicy{
		MinTime:             5 * time.Second,
		PermitWithoutStream: true,
	}

	interceptorCfg := &interceptors.ServerConfig{
		ServiceName:   cfg.App.Name,
		EnableTracing: cfg.Tracing.Enabled,
	}

	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(kaParams),
		grpc.KeepaliveEnforcementPolicy(kaPolicy),
	}
	serverOpts = append(serverOpts, interceptors.ServerOptions(interceptorCfg)...)
	if cfg.GRPC.MaxRecvMsgSize > 0 {
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(cfg.GRPC.MaxRecvMsgSize))
	}
	if cfg.GRPC.MaxSendMsgSize > 0 {
		serverOpts = append(serverOpts, grpc.MaxSendMsgSize(cfg.GRPC.MaxSendMsgSize))
	}
	if cfg.GRPC.MaxConcurrentConn > 0 {
		serverOpts = append(serverOpts, grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentConn)))
	}

	if cfg.GRPC.TLS.Enabled {
		creds, err := credentials.NewServerTLSFromFile(cfg.GRPC.TLS.CertFile, cfg.GRPC.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS credentials: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	s := grpc.NewServer(serverOpts...)

	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, h)

	if cfg.IsDevelopment() {
		reflection.Register(s)
		logger.Log.Debug("gRPC reflection enabled")
	}

	return &GRPCServer{
		server:      s,
		health:      h,
		serviceName: cfg.App.Name,
		config:      cfg,
	}, nil
}

// GetEngine возвращает *grpc.Server для регистрации сервисов
func (s *GRPCServer) GetEngine() *grpc.Server {
	return s.server
}

// OnShutdown регистрирует освобождение ресурса; хуки вызываются в обратном порядке
func (s *GRPCServer) OnShutdown(name string, fn ShutdownFunc) {
	s.hooks = append(s.hooks, namedHook{name: name, fn: fn})
}

// Run слушает порт из конфигурации и блокируется до сигнала остановки
func (s *GRPCServer) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.config.GRPC.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.Serve(ctx, lis)
}

// Serve обслуживает lis до отмены ctx, затем выполняет graceful shutdown
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	if s.config.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.FromConfig(s.config.App, s.config.Tracing))
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			s.telemetry = tp
			logger.Log.Info("Telemetry initialized",
				"endpoint", s.config.Tracing.Endpoint,
				"sample_rate", s.config.Tracing.SampleRate,
			)
		}
	}

	if s.config.Metrics.Enabled {
		s.metricsSrv = metrics.NewMetricsServer(s.config.Metrics.Port, s.config.Metrics.Path)
		go func() {
			logger.Log.Info("Starting metrics server",
				"port", s.config.Metrics.Port,
				"path", s.config.Metrics.Path,
			)
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error("Metrics server failed", "error", err)
			}
		}()
		metrics.Get().SetServiceInfo(s.config.App.Version, s.config.App.Environment)
	}

	s.health.SetServingStatus(s.serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Starting gRPC server",
			"service", s.serviceName,
			"addr", lis.Addr().String(),
			"environment", s.config.App.Environment,
			"version", s.config.App.Version,
		)
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.shutdown()
		return err
	case <-ctx.Done():
		logger.Log.Info("Shutdown requested", "reason", context.Cause(ctx))
	}

	s.shutdown()
	return nil
}

func (s *GRPCServer) shutdown() {
	timeout := s.config.GRPC.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.health.SetServingStatus(s.serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("Server stopped gracefully")
	case <-ctx.Done():
		logger.Log.Warn("Forcing server stop")
		s.server.Stop()
	}

	if s.metricsSrv != nil {
		if err := s.metricsSrv.Shutdown(ctx); err != nil {
			logger.Log.Warn("Failed to shutdown metrics server", "error", err)
		}
	}

	for i := len(s.hooks) - 1; i >= 0; i-- {
		h := s.hooks[i]
		if err := h.fn(ctx); err != nil {
			logger.Log.Warn("Shutdown hook failed", "hook", h.name, "error", err)
		}
	}

	// Трейсы сбрасываем последними, чтобы захватить спаны хуков
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			logger.Log.Warn("Failed to shutdown telemetry", "error", err)
		}
	}
}

// SetServingStatus устанавливает статус сервиса
func (s *GRPCServer) SetServingStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus(s.serviceName, status)
}

// Stop останавливает сервер немедленно
func (s *GRPCServer) Stop() {
	s.server.Stop()
}

// GracefulStop останавливает сервер gracefully
func (s *GRPCServer) GracefulStop() {
	s.server.GracefulStop()
}
