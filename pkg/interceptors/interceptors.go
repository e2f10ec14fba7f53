// Package interceptors собирает серверные gRPC интерсепторы сервиса.
package interceptors

import (
	"google.golang.org/grpc"

	"netsimplex/pkg/telemetry"
)

// ServerConfig конфигурация серверных интерсепторов
type ServerConfig struct {
	ServiceName   string
	EnableTracing bool
}

// ServerOptions подключает обе цепочки интерсепторов к grpc.Server
func ServerOptions(cfg *ServerConfig) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unaryChain(cfg)...),
		grpc.ChainStreamInterceptor(streamChain(cfg)...),
	}
}

// unaryChain порядок unary интерсепторов, первый внешний
func unaryChain(cfg *ServerConfig) []grpc.UnaryServerInterceptor {
	chain := []grpc.UnaryServerInterceptor{
		RecoveryInterceptor(),
	}

	// Tracing до логов: в строке лога есть trace_id
	if cfg.EnableTracing {
		chain = append(chain, telemetry.UnaryServerInterceptor())
	}

	return append(chain,
		MetricsInterceptor(),
		LoggingInterceptor(cfg.ServiceName),
		// Validation последней: запросы уже типизированы
		ValidationInterceptor(),
	)
}

func streamChain(cfg *ServerConfig) []grpc.StreamServerInterceptor {
	chain := []grpc.StreamServerInterceptor{
		StreamRecoveryInterceptor(),
	}

	if cfg.EnableTracing {
		chain = append(chain, telemetry.StreamServerInterceptor())
	}

	return append(chain,
		StreamMetricsInterceptor(),
		StreamLoggingInterceptor(cfg.ServiceName),
	)
}
