package grpc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodflow/supervizio/internal/application/dispatcher"
	"github.com/kodflow/supervizio/internal/domain/command"
	"github.com/kodflow/supervizio/internal/infrastructure/bus/inproc"
	grpctransport "github.com/kodflow/supervizio/internal/infrastructure/transport/grpc"
)

func TestClient_Dispatch_RoundTripsThroughRealServer(t *testing.T) {
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

	client, err := grpctransport.Dial(srv.Address())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Dispatch(ctx, command.Command{ID: "cmd-1", Kind: command.KindPing})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "cmd-1", resp.CommandID)
}

func TestClient_Dispatch_UnreachableAddress(t *testing.T) {
	t.Parallel()

	client, err := grpctransport.Dial("127.0.0.1:1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = client.Dispatch(ctx, command.Command{ID: "cmd-1", Kind: command.KindPing})
	assert.Error(t, err)
}
