package interceptors

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"netsimplex/pkg/apperror"
)

// Validator интерфейс для валидируемых сообщений
type Validator interface {
	Validate() error
}

// ValidationInterceptor валидирует входящие запросы
func ValidationInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if v, ok := req.(Validator); ok {
			if err := v.Validate(); err != nil {
				// apperror сохраняет свой код и поле
				var appErr *apperror.Error
				if errors.As(err, &appErr) {
					return nil, apperror.ToGRPC(appErr)
				}
				return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
			}
		}

		return handler(ctx, req)
	}
}
