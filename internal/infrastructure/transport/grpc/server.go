// Package grpc re-exposes the CommandDispatcher over the network. There is
// no protoc-generated stub: the wire message is a single
// google.golang.org/protobuf/types/known/structpb.Struct, and the service
// is registered directly as a grpc.ServiceDesc built by hand, the way a
// generated *_grpc.pb.go would but without code generation.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kodflow/supervizio/internal/domain/bus"
)

// serviceName is the fully qualified name used for registration and health
// reporting; there is no .proto file behind it, only this constant.
const serviceName = "supervizio.v1.CommandService"

// ErrServerAlreadyRunning indicates Serve was called on a running Server.
var ErrServerAlreadyRunning = errors.New("grpc: server already running")

// commandServiceServer is the handler interface the hand-wired
// grpc.ServiceDesc below dispatches to. *Server implements it.
type commandServiceServer interface {
	Dispatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func dispatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(commandServiceServer).Dispatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Dispatch"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(commandServiceServer).Dispatch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*commandServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Dispatch", Handler: dispatchHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "supervizio/v1/command.proto",
}

// Server is the gRPC front door onto the CommandDispatcher: one unary RPC,
// Dispatch, plus the standard grpc.health.v1 service.
type Server struct {
	grpcServer   *grpc.Server
	healthServer *health.Server
	bus          bus.Bus

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// NewServer builds a Server that submits every Dispatch call onto b's
// commands topic and waits for the matching Response, exactly like a
// local CommandDispatcher caller would.
func NewServer(b bus.Bus) *Server {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()

	s := &Server{grpcServer: grpcServer, healthServer: healthServer, bus: b}

	grpcServer.RegisterService(&serviceDesc, s)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return s
}

// Dispatch implements commandServiceServer: decode, submit to the bus,
// encode the response.
func (s *Server) Dispatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cmd := commandFromStruct(req)
	if cmd.Kind == "" {
		return nil, status.Error(codes.InvalidArgument, "missing kind")
	}

	resp, err := submitCommand(ctx, s.bus, cmd)
	if err != nil {
		return nil, status.Errorf(codes.DeadlineExceeded, "dispatch: %s", err)
	}

	out, err := responseToStruct(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %s", err)
	}
	return out, nil
}

// Serve starts listening on address and blocks serving gRPC requests until
// Stop is called or the listener errors.
//
// Returns:
//   - error: ErrServerAlreadyRunning, a listen error, or the serve error.
func (s *Server) Serve(address string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("serve: %w", ErrServerAlreadyRunning)
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	return s.grpcServer.Serve(listener)
}

// Stop gracefully stops the server, marking the health service
// NOT_SERVING first so in-flight load balancers stop routing to it.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	s.grpcServer.GracefulStop()
	s.running = false
}

// Address returns the server's listening address, or "" if not running.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
