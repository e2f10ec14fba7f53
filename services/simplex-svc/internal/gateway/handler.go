// Package gateway serves SimplexService over Connect, so the same API is
// reachable as plain HTTP/JSON (curl), gRPC-Web and gRPC on the HTTP port.
//
//	curl -H 'Content-Type: application/json' -d '{"mode":"textbook"}' \
//	  localhost:8080/netsimplex.v1.SimplexService/RunKernel
package gateway

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"netsimplex/pkg/apperror"
	"netsimplex/pkg/simplexapi"
)

type validator interface {
	Validate() error
}

// NewHandler регистрирует все методы srv на одном mux
func NewHandler(srv simplexapi.SimplexServiceServer, opts ...connect.HandlerOption) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(simplexapi.MethodRunKernel, structHandler(simplexapi.MethodRunKernel, srv.RunKernel, opts...))
	mux.Handle(simplexapi.MethodListRuns, structHandler(simplexapi.MethodListRuns, srv.ListRuns, opts...))
	mux.Handle(simplexapi.MethodVerifyRun, structHandler(simplexapi.MethodVerifyRun, srv.VerifyRun, opts...))

	mux.Handle(simplexapi.MethodGetRun, connect.NewUnaryHandler(simplexapi.MethodGetRun,
		func(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[structpb.Struct], error) {
			in := &simplexapi.GetRunRequest{RunID: req.Msg.GetValue()}
			if err := in.Validate(); err != nil {
				return nil, toConnect(err)
			}
			resp, err := srv.GetRun(ctx, in)
			if err != nil {
				return nil, toConnect(err)
			}
			return encode(resp)
		}, opts...))

	mux.Handle(simplexapi.MethodExportTrace, connect.NewUnaryHandler(simplexapi.MethodExportTrace,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[wrapperspb.BytesValue], error) {
			in := new(simplexapi.RunRequest)
			if err := decode(req.Msg, in); err != nil {
				return nil, err
			}
			data, err := srv.ExportTrace(ctx, in)
			if err != nil {
				return nil, toConnect(err)
			}
			return connect.NewResponse(data), nil
		}, opts...))

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck // ответ уже начат
	})

	return mux
}

// structHandler метод со Struct на входе и выходе
func structHandler[T any, R any](procedure string, call func(context.Context, *T) (R, error), opts ...connect.HandlerOption) *connect.Handler {
	return connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			in := new(T)
			if err := decode(req.Msg, in); err != nil {
				return nil, err
			}
			resp, err := call(ctx, in)
			if err != nil {
				return nil, toConnect(err)
			}
			return encode(resp)
		}, opts...)
}

func decode(msg *structpb.Struct, v any) error {
	if err := simplexapi.FromStruct(msg, v); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	if val, ok := v.(validator); ok {
		if err := val.Validate(); err != nil {
			return toConnect(err)
		}
	}
	return nil
}

func encode(v any) (*connect.Response[structpb.Struct], error) {
	msg, err := simplexapi.ToStruct(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// toConnect переводит ошибку сервиса в ошибку Connect; коды совпадают с gRPC
func toConnect(err error) error {
	st := status.Convert(apperror.ToGRPC(err))
	return connect.NewError(connect.Code(st.Code()), errors.New(st.Message()))
}
