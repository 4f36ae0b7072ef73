package polcount

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const counterServiceName = "polcount.Counter"

// CounterServer is the server API of the polcount.Counter gRPC service, as
// declared in polcount.proto. Its messages are protobuf well-known types, so
// no generated code is needed.
type CounterServer interface {
	Enable(context.Context, *wrapperspb.UInt32Value) (*emptypb.Empty, error)
	Disable(context.Context, *wrapperspb.UInt32Value) (*emptypb.Empty, error)
	Query(context.Context, *wrapperspb.StringValue) (*wrapperspb.UInt64Value, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterCounterServer(s *grpc.Server, srv CounterServer) {
	s.RegisterService(&counterServiceDesc, srv)
}

var counterServiceDesc = grpc.ServiceDesc{
	ServiceName: counterServiceName,
	HandlerType: (*CounterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Enable", Handler: unaryHandler("Enable", CounterServer.Enable)},
		{MethodName: "Disable", Handler: unaryHandler("Disable", CounterServer.Disable)},
		{MethodName: "Query", Handler: unaryHandler("Query", CounterServer.Query)},
		{MethodName: "Stats", Handler: unaryHandler("Stats", CounterServer.Stats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "polcount.proto",
}

func fullMethod(method string) string {
	return "/" + counterServiceName + "/" + method
}

type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

func unaryHandler[Req, Ans any](method string, call func(CounterServer, context.Context, *Req) (*Ans, error)) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CounterServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CounterServer), ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// CounterClient calls a remote polcount.Counter service.
type CounterClient struct {
	cc grpc.ClientConnInterface
}

func NewCounterClient(cc grpc.ClientConnInterface) *CounterClient {
	return &CounterClient{cc: cc}
}

func (c *CounterClient) Enable(ctx context.Context, idx uint32, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("Enable"), wrapperspb.UInt32(idx), new(emptypb.Empty), opts...)
}

func (c *CounterClient) Disable(ctx context.Context, idx uint32, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("Disable"), wrapperspb.UInt32(idx), new(emptypb.Empty), opts...)
}

func (c *CounterClient) Query(ctx context.Context, text string, opts ...grpc.CallOption) (uint64, error) {
	ans := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, fullMethod("Query"), wrapperspb.String(text), ans, opts...); err != nil {
		return 0, err
	}
	return ans.Value, nil
}

func (c *CounterClient) Stats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	ans := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Stats"), new(emptypb.Empty), ans, opts...); err != nil {
		return nil, err
	}
	return ans, nil
}

type counterRpcHandler struct {
	s *Server
}

func (h *counterRpcHandler) Enable(ctx context.Context, req *wrapperspb.UInt32Value) (*emptypb.Empty, error) {
	h.s.logger.Debugw("receive Enable request", zap.Uint32("idx", req.Value))
	if err := h.s.toggle(int(req.Value), true); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *counterRpcHandler) Disable(ctx context.Context, req *wrapperspb.UInt32Value) (*emptypb.Empty, error) {
	h.s.logger.Debugw("receive Disable request", zap.Uint32("idx", req.Value))
	if err := h.s.toggle(int(req.Value), false); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *counterRpcHandler) Query(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.UInt64Value, error) {
	cnt := h.s.counter.Query(req.Value)
	h.s.queries.Inc()
	h.s.logger.Debugw("receive Query request",
		zap.String("text", shorten(req.Value)),
		zap.Uint64("count", cnt))
	return wrapperspb.UInt64(cnt), nil
}

func (h *counterRpcHandler) Stats(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	c := h.s.counter
	return structpb.NewStruct(map[string]interface{}{
		"entries": c.Len(),
		"states":  c.States(),
		"active":  c.ActiveCount(),
		"queries": h.s.queries.Load(),
		"toggles": h.s.toggles.Load(),
	})
}

func toStatus(err error) error {
	if errors.Is(err, ErrInvalidIndex) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
