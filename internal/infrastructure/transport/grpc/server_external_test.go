package grpc_test

import (
	"context"
	"testing"
	"time"

	googlegrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodflow/supervizio/internal/application/dispatcher"
	"github.com/kodflow/supervizio/internal/domain/command"
	"github.com/kodflow/supervizio/internal/infrastructure/bus/inproc"
	grpctransport "github.com/kodflow/supervizio/internal/infrastructure/transport/grpc"
)

func TestServer_Serve_AlreadyRunning(t *testing.T) {
	t.Parallel()

	b := inproc.New()
	srv := grpctransport.NewServer(b)

	go func() { _ = srv.Serve("127.0.0.1:0") }()
	t.Cleanup(srv.Stop)

	waitForAddress(t, srv)
	assert.ErrorIs(t, srv.Serve("127.0.0.1:0"), grpctransport.ErrServerAlreadyRunning)
}

func TestServer_Dispatch_Ping(t *testing.T) {
	t.Parallel()

	b := inproc.New()
	d := dispatcher.New(b)
	d.RegisterHandler(command.KindPing, func(_ context.Context, cmd command.Command) command.Response {
		return command.OKResponse(cmd.ID, map[string]any{"status": "running"})
	})
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(d.Stop)

	srv := grpctransport.NewServer(b)
	go func() { _ = srv.Serve("127.0.0.1:0") }()
	t.Cleanup(srv.Stop)
	waitForAddress(t, srv)

	conn, err := googlegrpc.NewClient(srv.Address(), googlegrpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	req, err := structpb.NewStruct(map[string]any{"id": "cmd-1", "kind": "ping"})
	require.NoError(t, err)

	out := new(structpb.Struct)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = conn.Invoke(ctx, "/supervizio.v1.CommandService/Dispatch", req, out)
	require.NoError(t, err)
	assert.Equal(t, true, out.GetFields()["ok"].GetBoolValue())

	healthClient := grpc_health_v1.NewHealthClient(conn)
	resp, err := healthClient.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}

func waitForAddress(t *testing.T, srv *grpctransport.Server) {
	t.Helper()
	for i := 0; i < 50; i++ {
		if srv.Address() != "" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server never reported a listening address")
}
