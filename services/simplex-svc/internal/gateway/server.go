package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"netsimplex/pkg/config"
	"netsimplex/pkg/logger"
	"netsimplex/pkg/metrics"
	"netsimplex/pkg/simplexapi"
)

// Server HTTP сервер Connect поверх h2c
type Server struct {
	http *http.Server
}

// ReadyCheck зависимость, без которой сервис не готов принимать запросы
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// NewServer собирает сервер с логированием и метриками
func NewServer(cfg config.HTTPConfig, srv simplexapi.SimplexServiceServer, checks ...ReadyCheck) *Server {
	mux := http.NewServeMux()
	mux.Handle("/", NewHandler(srv, connect.WithInterceptors(
		NewLoggingInterceptor(),
		NewMetricsInterceptor(metrics.Get()),
	)))
	mux.Handle("/ready", ReadyHandler(checks...))

	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h2c.NewHandler(mux, &http2.Server{}),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start слушает в фоне; ошибка Serve логируется
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	go func() {
		logger.Log.Info("Connect gateway listening",
			"addr", lis.Addr().String(),
			"protocol", "HTTP/1.1 + H2C (Connect, gRPC-Web, gRPC)")
		if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Connect gateway failed", "error", err)
		}
	}()
	return nil
}

// Shutdown подходит как server.ShutdownFunc
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ReadyHandler отвечает 503 и именем первой упавшей проверки
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for _, c := range checks {
			if err := c.Check(r.Context()); err != nil {
				logger.Log.Warn("Readiness check failed", "check", c.Name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "check": c.Name}) //nolint:errcheck // ответ уже начат
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`)) //nolint:errcheck // ответ уже начат
	})
}

// NewLoggingInterceptor логирует каждый вызов
func NewLoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			log := logger.WithContext(ctx,
				"method", procedure,
				"protocol", req.Peer().Protocol,
				"duration_ms", time.Since(start).Milliseconds())
			if err != nil {
				log.Error("Request failed", "code", connect.CodeOf(err).String(), "error", err)
			} else {
				log.Info("Request completed")
			}
			return resp, err
		}
	}
}

// NewMetricsInterceptor пишет те же метрики запросов, что и gRPC сервер
func NewMetricsInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			m.GRPCRequestsInFlight.Inc()
			defer m.GRPCRequestsInFlight.Dec()

			start := time.Now()
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			m.RecordGRPCRequest(req.Spec().Procedure, code, time.Since(start))
			return resp, err
		}
	}
}
