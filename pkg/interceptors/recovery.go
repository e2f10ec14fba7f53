package interceptors

import (
	"context"
	"runtime/debug"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"netsimplex/pkg/logger"
)

// recoverPanic логирует панику обработчика и отдаёт клиенту Internal
func recoverPanic(ctx context.Context, p any) error {
	logger.WithContext(ctx).Error("panic in gRPC handler",
		"panic", p,
		"stack", string(debug.Stack()),
	)
	return status.Errorf(codes.Internal, "internal error: %v", p)
}

// RecoveryInterceptor перехватывает панику в unary обработчике
func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return recovery.UnaryServerInterceptor(recovery.WithRecoveryHandlerContext(recoverPanic))
}

// StreamRecoveryInterceptor перехватывает панику в stream обработчике
func StreamRecoveryInterceptor() grpc.StreamServerInterceptor {
	return recovery.StreamServerInterceptor(recovery.WithRecoveryHandlerContext(recoverPanic))
}
