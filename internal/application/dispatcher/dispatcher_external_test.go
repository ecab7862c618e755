package dispatcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodflow/supervizio/internal/application/dispatcher"
	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/command"
	"github.com/kodflow/supervizio/internal/infrastructure/bus/inproc"
)

func waitForResponse(t *testing.T, b *inproc.Bus, topic string) command.Response {
	t.Helper()

	respCh := make(chan command.Response, 1)
	unsub, err := b.Subscribe(context.Background(), topic, func(_ context.Context, msg bus.Message) {
		if resp, ok := msg.Payload.(command.Response); ok {
			respCh <- resp
		}
	})
	require.NoError(t, err)
	defer unsub()

	select {
	case resp := <-respCh:
		return resp
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
		return command.Response{}
	}
}

func TestDispatcher_MissingType(t *testing.T) {
	t.Parallel()

	b := inproc.New()
	d := dispatcher.New(b)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	respCh := make(chan command.Response, 1)
	unsub, err := b.Subscribe(context.Background(), "responses", func(_ context.Context, msg bus.Message) {
		if resp, ok := msg.Payload.(command.Response); ok {
			respCh <- resp
		}
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, b.Publish(context.Background(), bus.Message{Topic: "commands", Payload: command.Command{ID: "c1"}}))

	select {
	case resp := <-respCh:
		assert.False(t, resp.OK)
		assert.Equal(t, "missing type", resp.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestDispatcher_UnknownType(t *testing.T) {
	t.Parallel()

	b := inproc.New()
	d := dispatcher.New(b)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.NoError(t, b.Publish(context.Background(), bus.Message{
		Topic:   "commands",
		Payload: command.Command{ID: "c2", Kind: "nonexistent"},
	}))

	resp := waitForResponse(t, b, "responses")
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown type", resp.Message)
}

func TestDispatcher_CustomResponseChannel(t *testing.T) {
	t.Parallel()

	b := inproc.New()
	d := dispatcher.New(b)
	d.RegisterHandler("echo", func(_ context.Context, cmd command.Command) command.Response {
		return command.OKResponse(cmd.ID, map[string]any{"echo": true})
	})
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.NoError(t, b.Publish(context.Background(), bus.Message{
		Topic:   "commands",
		Payload: command.Command{ID: "c3", Kind: "echo", Params: map[string]string{command.ResponseChannelParam: "my-channel"}},
	}))

	resp := waitForResponse(t, b, "my-channel")
	assert.True(t, resp.OK)
	assert.Equal(t, "c3", resp.CommandID)
}

func TestDispatcher_KindIsLowercased(t *testing.T) {
	t.Parallel()

	b := inproc.New()
	d := dispatcher.New(b)
	called := false
	d.RegisterHandler("ping", func(_ context.Context, cmd command.Command) command.Response {
		called = true
		return command.OKResponse(cmd.ID, nil)
	})
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.NoError(t, b.Publish(context.Background(), bus.Message{
		Topic:   "commands",
		Payload: command.Command{ID: "c4", Kind: "PING"},
	}))

	resp := waitForResponse(t, b, "responses")
	assert.True(t, resp.OK)
	assert.True(t, called)
}

func TestDispatcher_StartIdempotent(t *testing.T) {
	t.Parallel()

	b := inproc.New()
	d := dispatcher.New(b)
	require.NoError(t, d.Start(context.Background()))
	require.NoError(t, d.Start(context.Background()))
	d.Stop()
}

func TestDispatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	b := inproc.New()
	d := dispatcher.New(b)
	require.NoError(t, d.Start(context.Background()))
	d.Stop()
	d.Stop()
}
