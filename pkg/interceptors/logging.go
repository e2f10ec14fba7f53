package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"netsimplex/pkg/logger"
)

// LoggingInterceptor пишет одну строку на вызов: метод, длительность, код
// и поля прогона из запроса и ответа (mode, run_id, termination...)
func LoggingInterceptor(serviceName string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		log := logger.WithContext(ctx, "service", serviceName)
		args := callFields(info.FullMethod, time.Since(start).Milliseconds(), req, resp, err)
		switch _, clientSide := callOutcome(err); {
		case err == nil:
			log.Info("gRPC request completed", args...)
		case clientSide:
			log.Warn("gRPC request rejected", args...)
		default:
			log.Error("gRPC request failed", args...)
		}

		return resp, err
	}
}

// StreamLoggingInterceptor логирует streaming запросы
func StreamLoggingInterceptor(serviceName string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()

		err := handler(srv, ss)

		ctx := context.Background()
		if ss != nil {
			ctx = ss.Context()
		}
		log := logger.WithContext(ctx, "service", serviceName)
		args := callFields(info.FullMethod, time.Since(start).Milliseconds(), nil, nil, err)
		if err != nil {
			log.Error("gRPC stream failed", args...)
		} else {
			log.Info("gRPC stream completed", args...)
		}

		return err
	}
}
