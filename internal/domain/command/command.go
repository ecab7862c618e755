// Package command defines the request/response envelopes exchanged between
// a command submitter (CLI, gRPC client, bus publisher) and CommandDispatcher.
package command

import (
	"context"
	"time"
)

// Kind names a dispatchable operation, used by the dispatcher as the routing
// key for Commands published on the single "commands" topic.
type Kind string

// Supported command kinds.
const (
	KindStart    Kind = "start"
	KindStop     Kind = "stop"
	KindRestart  Kind = "restart"
	KindStatus   Kind = "status"
	KindRegister Kind = "register"
	KindRun      Kind = "run"
	KindPing     Kind = "ping"
)

// ResponseChannelParam is the Params key a submitter sets to override the
// default "responses" destination topic for this command's Response.
const ResponseChannelParam = "responseChannel"

// Command is a request to act on a process, or on the daemon itself.
type Command struct {
	ID        string
	Kind      Kind
	ProcessID string
	Params    map[string]string
	Timestamp time.Time
}

// Response is the result of dispatching a Command.
type Response struct {
	CommandID string
	OK        bool
	Message   string
	Data      map[string]any
	Timestamp time.Time
}

// OKResponse builds a successful Response carrying data.
//
// Params:
//   - commandID: the ID of the command this responds to.
//   - data: arbitrary key/value payload; may be nil.
//
// Returns:
//   - Response: OK=true with the given data.
func OKResponse(commandID string, data map[string]any) Response {
	return Response{CommandID: commandID, OK: true, Data: data, Timestamp: time.Now().UTC()}
}

// ErrResponse builds a failed Response carrying the given message.
//
// Params:
//   - commandID: the ID of the command this responds to.
//   - message: human-readable failure description.
//
// Returns:
//   - Response: OK=false with the given message.
func ErrResponse(commandID, message string) Response {
	return Response{CommandID: commandID, OK: false, Message: message, Timestamp: time.Now().UTC()}
}

// Handler processes one Command kind and produces a Response.
type Handler func(ctx context.Context, cmd Command) Response
