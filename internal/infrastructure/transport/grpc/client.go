package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kodflow/supervizio/internal/domain/command"
)

// dispatchMethod is the fully qualified RPC name the hand-wired
// grpc.ServiceDesc in server.go registers Dispatch under.
const dispatchMethod = "/" + serviceName + "/Dispatch"

// Client is a thin gRPC client for the CommandService: the network-facing
// counterpart a CLI front-end (or any out-of-process caller) uses in place
// of a direct in-process bus publish, per spec.md §6's CLI surface.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a daemon's gRPC listener.
//
// Params:
//   - address: host:port of the daemon's gRPC listener (its grpc.listen setting).
//
// Returns:
//   - *Client: a ready client.
//   - error: any dial error.
func Dial(address string) (*Client, error) {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc: dial %s: %w", address, err)
	}
	return &Client{conn: conn}, nil
}

// Dispatch submits cmd to the daemon and returns its Response.
//
// Returns:
//   - command.Response: the daemon's response.
//   - error: any transport-level error; a handler failure is carried as
//     Response.OK=false, not as this error.
func (c *Client) Dispatch(ctx context.Context, cmd command.Command) (command.Response, error) {
	req, err := commandToStruct(cmd)
	if err != nil {
		return command.Response{}, fmt.Errorf("grpc: encode command: %w", err)
	}

	reply := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, dispatchMethod, req, reply); err != nil {
		return command.Response{}, fmt.Errorf("grpc: dispatch: %w", err)
	}

	return structToResponse(reply), nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
