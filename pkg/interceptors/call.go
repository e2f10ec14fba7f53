package interceptors

import (
	"path"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"netsimplex/pkg/apperror"
)

// runFields сообщения API, которые умеют описать прогон полями лога
type runFields interface {
	LogFields() []any
}

// methodName "/simplex.v1.SimplexService/RunKernel" -> "RunKernel"
func methodName(fullMethod string) string {
	return path.Base(fullMethod)
}

// callOutcome код ответа и вид отказа: ошибки запроса и лимитов клиента
// логируются как warn, остальные как error
func callOutcome(err error) (codes.Code, bool) {
	code := status.Code(err)
	switch code {
	case codes.InvalidArgument, codes.NotFound, codes.OutOfRange, codes.Canceled,
		codes.DeadlineExceeded, codes.ResourceExhausted:
		return code, true
	}
	return code, false
}

// callFields общие поля строки лога вызова
func callFields(method string, durationMs int64, req, resp any, err error) []any {
	code, _ := callOutcome(err)
	args := []any{"method", methodName(method), "duration_ms", durationMs, "code", code.String()}
	if f, ok := req.(runFields); ok {
		args = append(args, f.LogFields()...)
	}
	if err != nil {
		return append(args, "error_code", string(apperror.FromGRPC(err).Code), "error", err.Error())
	}
	if f, ok := resp.(runFields); ok {
		args = append(args, f.LogFields()...)
	}
	return args
}
