package relaypb

import (
	"context"

	"google.golang.org/grpc"
)

// RelayServiceServer is the server API for RelayService, hand-written in
// the shape protoc-gen-go-grpc would produce.
type RelayServiceServer interface {
	Open(context.Context, *OpenRequest) (*OpenResponse, error)
	Channel(grpc.BidiStreamingServer[ClientUpdate, ServerUpdate]) error
	Close(context.Context, *CloseRequest) (*CloseResponse, error)
}

// RelayServiceClient is the client API for RelayService.
type RelayServiceClient interface {
	Open(ctx context.Context, in *OpenRequest, opts ...grpc.CallOption) (*OpenResponse, error)
	Channel(ctx context.Context, opts ...grpc.CallOption) (grpc.BidiStreamingClient[ClientUpdate, ServerUpdate], error)
	Close(ctx context.Context, in *CloseRequest, opts ...grpc.CallOption) (*CloseResponse, error)
}

type relayServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRelayServiceClient wraps a gRPC client connection as a RelayServiceClient.
func NewRelayServiceClient(cc grpc.ClientConnInterface) RelayServiceClient {
	return &relayServiceClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}

func (c *relayServiceClient) Open(ctx context.Context, in *OpenRequest, opts ...grpc.CallOption) (*OpenResponse, error) {
	out := new(OpenResponse)
	if err := c.cc.Invoke(ctx, "/relaypb.RelayService/Open", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayServiceClient) Close(ctx context.Context, in *CloseRequest, opts ...grpc.CallOption) (*CloseResponse, error) {
	out := new(CloseResponse)
	if err := c.cc.Invoke(ctx, "/relaypb.RelayService/Close", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayServiceClient) Channel(ctx context.Context, opts ...grpc.CallOption) (grpc.BidiStreamingClient[ClientUpdate, ServerUpdate], error) {
	stream, err := c.cc.NewStream(ctx, &RelayService_ServiceDesc.Streams[0], "/relaypb.RelayService/Channel", callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[ClientUpdate, ServerUpdate]{ClientStream: stream}, nil
}

func _RelayService_Open_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(OpenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServiceServer).Open(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/relaypb.RelayService/Open"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServiceServer).Open(ctx, req.(*OpenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RelayService_Close_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CloseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServiceServer).Close(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/relaypb.RelayService/Close"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServiceServer).Close(ctx, req.(*CloseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RelayService_Channel_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(RelayServiceServer).Channel(&grpc.GenericServerStream[ClientUpdate, ServerUpdate]{ServerStream: stream})
}

// RelayService_ServiceDesc is the grpc.ServiceDesc for RelayService, built
// by hand in place of protoc-gen-go-grpc's generated descriptor.
var RelayService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "relaypb.RelayService",
	HandlerType: (*RelayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Open", Handler: _RelayService_Open_Handler},
		{MethodName: "Close", Handler: _RelayService_Close_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Channel",
			Handler:       _RelayService_Channel_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "relay.proto",
}

// RegisterRelayServiceServer registers srv as the RelayService implementation
// on s.
func RegisterRelayServiceServer(s grpc.ServiceRegistrar, srv RelayServiceServer) {
	s.RegisterService(&RelayService_ServiceDesc, srv)
}
