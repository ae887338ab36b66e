package wire

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name rex registers under.
const ServiceName = "rex.v1.Execute"

// ExecuteServer is implemented by whatever owns a call's process lifecycle.
// It is handed a bidirectional stream and runs until the stream ends or it
// returns an error, which becomes the call's terminal status.
type ExecuteServer interface {
	Execute(ExecuteExecuteServer) error
}

// ExecuteExecuteServer is the server-side view of one Execute call.
type ExecuteExecuteServer interface {
	Send(*ProgramOutput) error
	Recv() (*ExecuteRequestChunk, error)
	grpc.ServerStream
}

type executeExecuteServer struct {
	grpc.ServerStream
}

func (s *executeExecuteServer) Send(m *ProgramOutput) error {
	return s.ServerStream.SendMsg(m)
}

func (s *executeExecuteServer) Recv() (*ExecuteRequestChunk, error) {
	m := new(ExecuteRequestChunk)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func executeExecuteHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ExecuteServer).Execute(&executeExecuteServer{ServerStream: stream})
}

// ServiceDesc is registered with a *grpc.Server to expose the Execute RPC.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExecuteServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Execute",
			Handler:       executeExecuteHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "rex/v1/rex.proto",
}

// RegisterExecuteServer registers srv on s, the way generated *_grpc.pb.go
// code would via the ServiceDesc above.
func RegisterExecuteServer(s grpc.ServiceRegistrar, srv ExecuteServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ExecuteClient is the client-side stub for the Execute RPC.
type ExecuteClient interface {
	Execute(ctx context.Context, opts ...grpc.CallOption) (ExecuteExecuteClient, error)
}

// ExecuteExecuteClient is the client-side view of one Execute call.
type ExecuteExecuteClient interface {
	Send(*ExecuteRequestChunk) error
	Recv() (*ProgramOutput, error)
	grpc.ClientStream
}

type executeClient struct {
	cc grpc.ClientConnInterface
}

// NewExecuteClient builds an ExecuteClient bound to an established
// connection. opts passed to Execute are combined with
// grpc.CallContentSubtype(CodecName) so the call is framed with this
// package's codec regardless of the channel's configured default.
func NewExecuteClient(cc grpc.ClientConnInterface) ExecuteClient {
	return &executeClient{cc: cc}
}

func (c *executeClient) Execute(ctx context.Context, opts ...grpc.CallOption) (ExecuteExecuteClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/Execute", opts...)
	if err != nil {
		return nil, err
	}
	return &executeExecuteClientStream{ClientStream: stream}, nil
}

type executeExecuteClientStream struct {
	grpc.ClientStream
}

func (s *executeExecuteClientStream) Send(m *ExecuteRequestChunk) error {
	return s.ClientStream.SendMsg(m)
}

func (s *executeExecuteClientStream) Recv() (*ProgramOutput, error) {
	m := new(ProgramOutput)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
