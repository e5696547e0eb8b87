// Package relay declares the ChatRelay gRPC service. Frames travel as
// google.protobuf.Struct values shaped like the websocket JSON frames,
// so both transports share one encoding.
package relay

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName           = "nolmessage.relay.v1.ChatRelay"
	SessionFullMethodName = "/" + ServiceName + "/Session"
)

type SessionServer = grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]
type SessionClient = grpc.BidiStreamingClient[structpb.Struct, structpb.Struct]

// ChatRelayServer is implemented by the relay. Session lives as long as
// the client connection.
type ChatRelayServer interface {
	Session(SessionServer) error
}

type ChatRelayClient interface {
	Session(ctx context.Context, opts ...grpc.CallOption) (SessionClient, error)
}

var ChatRelay_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatRelayServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Session",
			Handler:       sessionHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "relay/v1/relay.proto",
}

func RegisterChatRelayServer(s grpc.ServiceRegistrar, srv ChatRelayServer) {
	s.RegisterService(&ChatRelay_ServiceDesc, srv)
}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ChatRelayServer).Session(&grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

type chatRelayClient struct {
	cc grpc.ClientConnInterface
}

func NewChatRelayClient(cc grpc.ClientConnInterface) ChatRelayClient {
	return &chatRelayClient{cc: cc}
}

func (c *chatRelayClient) Session(ctx context.Context, opts ...grpc.CallOption) (SessionClient, error) {
	stream, err := c.cc.NewStream(ctx, &ChatRelay_ServiceDesc.Streams[0], SessionFullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}, nil
}
