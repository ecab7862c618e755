// Package bus defines the publish/subscribe contract the supervisor uses to
// decouple its components: ProcessManager, HealthMonitor and
// CommandDispatcher never call each other directly, only through a Bus.
package bus

import "context"

// Message is the envelope carried over the bus: a topic plus an opaque
// payload. Concrete adapters decide how Payload is encoded on the wire (the
// in-process adapter passes it through unchanged; the network adapter uses
// structpb.Struct).
type Message struct {
	Topic   string
	Payload any

	// ReplyTo, when non-empty, names the topic a Request expects the
	// handler to Publish its response to.
	ReplyTo string
}

// Handler processes a single Message delivered to a subscription.
type Handler func(ctx context.Context, msg Message)

// Bus is the topic-based pub/sub port. Topics are colon-separated segment
// paths (e.g. "process:web-1:started"); subscriptions may use "*" to match
// exactly one segment and "#" to match the remainder of the topic.
type Bus interface {
	// Publish delivers msg to every subscription whose pattern matches
	// msg.Topic. Publish does not block on slow subscribers; adapters are
	// expected to buffer or drop per their own policy.
	Publish(ctx context.Context, msg Message) error

	// Subscribe registers handler for every topic matching pattern and
	// returns an unsubscribe function.
	Subscribe(ctx context.Context, pattern string, handler Handler) (unsubscribe func(), err error)

	// Request publishes msg on msg.Topic with a generated ReplyTo, and
	// blocks until a reply arrives on that topic or ctx is done.
	Request(ctx context.Context, msg Message) (Message, error)

	// IsAvailable reports whether the bus is currently able to accept
	// Publish/Subscribe calls (e.g. false while reconnecting to a broker).
	IsAvailable() bool

	// Close releases resources held by the bus and rejects further calls.
	Close() error
}
