package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"netsimplex/pkg/metrics"
)

// MetricsInterceptor считает вызовы по короткому имени метода и коду ответа.
// Прерванный по дедлайну прогон попадает в DeadlineExceeded.
func MetricsInterceptor() grpc.UnaryServerInterceptor {
	m := metrics.Get()
	tracker := metrics.NewRequestTracker(m.GRPCRequestsInFlight)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		method := methodName(info.FullMethod)
		tracker.Start(method)
		defer tracker.End(method)

		start := time.Now()
		resp, err := handler(ctx, req)

		code, _ := callOutcome(err)
		m.RecordGRPCRequest(method, code.String(), time.Since(start))

		return resp, err
	}
}

// StreamMetricsInterceptor то же для stream вызовов
func StreamMetricsInterceptor() grpc.StreamServerInterceptor {
	m := metrics.Get()
	tracker := metrics.NewRequestTracker(m.GRPCRequestsInFlight)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		method := methodName(info.FullMethod)
		tracker.Start(method)
		defer tracker.End(method)

		start := time.Now()
		err := handler(srv, ss)

		code, _ := callOutcome(err)
		m.RecordGRPCRequest(method, code.String(), time.Since(start))

		return err
	}
}
