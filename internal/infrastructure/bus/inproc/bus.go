// Package inproc implements the domain bus.Bus port entirely in-process:
// a closure-keyed subscriber map guarded by a single RWMutex, generalized
// from one-event-type broadcast to full topic pattern matching plus
// Request/Response.
package inproc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kodflow/supervizio/internal/domain/bus"
)

// defaultBufferSize is the initial value of Bus.bufferSize. Dispatch does
// not read it: Publish hands each message straight to a goroutine, with no
// per-subscription channel.
const defaultBufferSize = 64

// ErrClosed is returned by Publish/Subscribe/Request once Close has run.
var ErrClosed = errors.New("inproc: bus is closed")

type subscription struct {
	pattern string
	handler bus.Handler
}

// Bus is the in-process Bus adapter: every Subscribe registers a pattern,
// every Publish is matched against every live pattern and dispatched
// asynchronously in a new goroutine per matching subscriber, so a slow
// handler never blocks the publisher or other subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int64]*subscription
	nextID int64
	closed bool

	bufferSize int
	replySeq   atomic.Int64
}

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize overrides the stored buffer size. Dispatch does not use
// the value, so it has no effect on Publish.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// New creates a ready-to-use in-process Bus.
//
// Returns:
//   - *Bus: a bus with no subscriptions.
func New(opts ...Option) *Bus {
	b := &Bus{subs: make(map[int64]*subscription), bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish implements bus.Bus.
func (b *Bus) Publish(ctx context.Context, msg bus.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	matched := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if bus.MatchTopic(s.pattern, msg.Topic) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range matched {
		go s.handler(ctx, msg)
	}
	return nil
}

// Subscribe implements bus.Bus.
func (b *Bus) Subscribe(ctx context.Context, pattern string, handler bus.Handler) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscription{pattern: pattern, handler: handler}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
	return unsubscribe, nil
}

// Request implements bus.Bus: it publishes on msg.Topic with a generated
// reply topic, subscribes to that reply topic, and blocks until a reply
// arrives or ctx is done.
func (b *Bus) Request(ctx context.Context, msg bus.Message) (bus.Message, error) {
	replyTopic := fmt.Sprintf("_reply:%d", b.replySeq.Add(1))
	msg.ReplyTo = replyTopic

	replyCh := make(chan bus.Message, 1)
	unsubscribe, err := b.Subscribe(ctx, replyTopic, func(_ context.Context, reply bus.Message) {
		select {
		case replyCh <- reply:
		default:
		}
	})
	if err != nil {
		return bus.Message{}, err
	}
	defer unsubscribe()

	if err := b.Publish(ctx, msg); err != nil {
		return bus.Message{}, err
	}

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-ctx.Done():
		return bus.Message{}, ctx.Err()
	}
}

// IsAvailable implements bus.Bus.
func (b *Bus) IsAvailable() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

// Close implements bus.Bus.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.subs = make(map[int64]*subscription)
	return nil
}

// SubscriberCount reports the number of active subscriptions, for
// diagnostics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

var _ bus.Bus = (*Bus)(nil)
