package simplexapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName полное имя gRPC сервиса
const ServiceName = "netsimplex.v1.SimplexService"

// Полные имена методов
const (
	MethodRunKernel   = "/" + ServiceName + "/RunKernel"
	MethodGetRun      = "/" + ServiceName + "/GetRun"
	MethodListRuns    = "/" + ServiceName + "/ListRuns"
	MethodExportTrace = "/" + ServiceName + "/ExportTrace"
	MethodVerifyRun   = "/" + ServiceName + "/VerifyRun"
)

// SimplexServiceServer серверная часть API
type SimplexServiceServer interface {
	RunKernel(context.Context, *RunRequest) (*RunResponse, error)
	GetRun(context.Context, *GetRunRequest) (*RunResponse, error)
	ListRuns(context.Context, *ListRunsRequest) (*ListRunsResponse, error)
	ExportTrace(context.Context, *RunRequest) (*wrapperspb.BytesValue, error)
	VerifyRun(context.Context, *RunRequest) (*VerifyResponse, error)
}

// UnimplementedSimplexServiceServer встраивается для совместимости вперёд
type UnimplementedSimplexServiceServer struct{}

func (UnimplementedSimplexServiceServer) RunKernel(context.Context, *RunRequest) (*RunResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RunKernel not implemented")
}
func (UnimplementedSimplexServiceServer) GetRun(context.Context, *GetRunRequest) (*RunResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetRun not implemented")
}
func (UnimplementedSimplexServiceServer) ListRuns(context.Context, *ListRunsRequest) (*ListRunsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRuns not implemented")
}
func (UnimplementedSimplexServiceServer) ExportTrace(context.Context, *RunRequest) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ExportTrace not implemented")
}
func (UnimplementedSimplexServiceServer) VerifyRun(context.Context, *RunRequest) (*VerifyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyRun not implemented")
}

// RegisterSimplexServiceServer регистрирует реализацию на сервере
func RegisterSimplexServiceServer(s grpc.ServiceRegistrar, srv SimplexServiceServer) {
	s.RegisterService(&SimplexService_ServiceDesc, srv)
}

// SimplexService_ServiceDesc описание сервиса для grpc.Server
//
//nolint:revive,stylecheck // имя в стиле protoc-gen-go-grpc
var SimplexService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimplexServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunKernel", Handler: runKernelHandler},
		{MethodName: "GetRun", Handler: getRunHandler},
		{MethodName: "ListRuns", Handler: listRunsHandler},
		{MethodName: "ExportTrace", Handler: exportTraceHandler},
		{MethodName: "VerifyRun", Handler: verifyRunHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "netsimplex/v1/simplex.proto",
}

// unary общая часть обработчиков: запрос уже типизирован, ответ
// переводится в proto сообщение после цепочки интерсепторов
func unary(
	ctx context.Context,
	srv any,
	method string,
	req any,
	interceptor grpc.UnaryServerInterceptor,
	call func(context.Context, any) (any, error),
) (any, error) {
	var (
		resp any
		err  error
	)
	if interceptor == nil {
		resp, err = call(ctx, req)
	} else {
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		resp, err = interceptor(ctx, req, info, call)
	}
	if err != nil {
		return nil, err
	}
	return encodeResponse(resp)
}

func encodeResponse(resp any) (proto.Message, error) {
	if msg, ok := resp.(proto.Message); ok {
		return msg, nil
	}
	s, err := ToStruct(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func decodeStruct(dec func(any) error, v any) error {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return err
	}
	if err := FromStruct(in, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func runKernelHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(RunRequest)
	if err := decodeStruct(dec, req); err != nil {
		return nil, err
	}
	return unary(ctx, srv, MethodRunKernel, req, interceptor, func(ctx context.Context, r any) (any, error) {
		return srv.(SimplexServiceServer).RunKernel(ctx, r.(*RunRequest))
	})
}

func getRunHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	req := &GetRunRequest{RunID: in.GetValue()}
	return unary(ctx, srv, MethodGetRun, req, interceptor, func(ctx context.Context, r any) (any, error) {
		return srv.(SimplexServiceServer).GetRun(ctx, r.(*GetRunRequest))
	})
}

func listRunsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ListRunsRequest)
	if err := decodeStruct(dec, req); err != nil {
		return nil, err
	}
	return unary(ctx, srv, MethodListRuns, req, interceptor, func(ctx context.Context, r any) (any, error) {
		return srv.(SimplexServiceServer).ListRuns(ctx, r.(*ListRunsRequest))
	})
}

func exportTraceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(RunRequest)
	if err := decodeStruct(dec, req); err != nil {
		return nil, err
	}
	return unary(ctx, srv, MethodExportTrace, req, interceptor, func(ctx context.Context, r any) (any, error) {
		return srv.(SimplexServiceServer).ExportTrace(ctx, r.(*RunRequest))
	})
}

func verifyRunHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(RunRequest)
	if err := decodeStruct(dec, req); err != nil {
		return nil, err
	}
	return unary(ctx, srv, MethodVerifyRun, req, interceptor, func(ctx context.Context, r any) (any, error) {
		return srv.(SimplexServiceServer).VerifyRun(ctx, r.(*RunRequest))
	})
}

// SimplexServiceClient клиентская часть API
type SimplexServiceClient interface {
	RunKernel(ctx context.Context, in *RunRequest, opts ...grpc.CallOption) (*RunResponse, error)
	GetRun(ctx context.Context, runID string, opts ...grpc.CallOption) (*RunResponse, error)
	ListRuns(ctx context.Context, in *ListRunsRequest, opts ...grpc.CallOption) (*ListRunsResponse, error)
	ExportTrace(ctx context.Context, in *RunRequest, opts ...grpc.CallOption) ([]byte, error)
	VerifyRun(ctx context.Context, in *RunRequest, opts ...grpc.CallOption) (*VerifyResponse, error)
}

type simplexServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSimplexServiceClient создаёт клиента поверх соединения
func NewSimplexServiceClient(cc grpc.ClientConnInterface) SimplexServiceClient {
	return &simplexServiceClient{cc: cc}
}

// invokeStruct отправляет in как Struct и декодирует Struct ответа в out
func (c *simplexServiceClient) invokeStruct(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	req, err := ToStruct(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, resp, opts...); err != nil {
		return err
	}
	return FromStruct(resp, out)
}

func (c *simplexServiceClient) RunKernel(ctx context.Context, in *RunRequest, opts ...grpc.CallOption) (*RunResponse, error) {
	out := new(RunResponse)
	if err := c.invokeStruct(ctx, MethodRunKernel, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *simplexServiceClient) GetRun(ctx context.Context, runID string, opts ...grpc.CallOption) (*RunResponse, error) {
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetRun, wrapperspb.String(runID), resp, opts...); err != nil {
		return nil, err
	}
	out := new(RunResponse)
	if err := FromStruct(resp, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *simplexServiceClient) ListRuns(ctx context.Context, in *ListRunsRequest, opts ...grpc.CallOption) (*ListRunsResponse, error) {
	out := new(ListRunsResponse)
	if err := c.invokeStruct(ctx, MethodListRuns, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *simplexServiceClient) ExportTrace(ctx context.Context, in *RunRequest, opts ...grpc.CallOption) ([]byte, error) {
	req, err := ToStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, MethodExportTrace, req, resp, opts...); err != nil {
		return nil, err
	}
	return resp.GetValue(), nil
}

func (c *simplexServiceClient) VerifyRun(ctx context.Context, in *RunRequest, opts ...grpc.CallOption) (*VerifyResponse, error) {
	out := new(VerifyResponse)
	if err := c.invokeStruct(ctx, MethodVerifyRun, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
