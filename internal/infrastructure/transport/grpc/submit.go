package grpc

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/command"
)

// replySeq disambiguates reply topics across concurrent gRPC calls on the
// same server; the dispatcher reads command.ResponseChannelParam rather
// than bus.Message.ReplyTo, so Request's own reply-topic handling is not
// reused here.
var replySeq atomic.Int64

// submitCommand publishes cmd on the commands topic and blocks for the
// matching Response, the same round trip a CLI client does through the
// in-process bus.
func submitCommand(ctx context.Context, b bus.Bus, cmd command.Command) (command.Response, error) {
	replyTopic := fmt.Sprintf("_grpc_reply:%d", replySeq.Add(1))
	if cmd.Params == nil {
		cmd.Params = make(map[string]string, 1)
	}
	cmd.Params[command.ResponseChannelParam] = replyTopic

	replyCh := make(chan command.Response, 1)
	unsubscribe, err := b.Subscribe(ctx, replyTopic, func(_ context.Context, msg bus.Message) {
		if resp, ok := msg.Payload.(command.Response); ok {
			select {
			case replyCh <- resp:
			default:
			}
		}
	})
	if err != nil {
		return command.Response{}, err
	}
	defer unsubscribe()

	if err := b.Publish(ctx, bus.Message{Topic: "commands", Payload: cmd}); err != nil {
		return command.Response{}, err
	}

	select {
	case resp := <-replyCh:
		return resp, nil
	case <-ctx.Done():
		return command.Response{}, ctx.Err()
	}
}
