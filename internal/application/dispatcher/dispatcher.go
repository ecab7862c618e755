// Package dispatcher implements the CommandDispatcher described by
// spec.md §4.5: it subscribes to the commands topic, routes each Command to
// a registered handler by lower-cased kind, and publishes the resulting
// Response to the command's response topic.
package dispatcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/command"
	"github.com/kodflow/supervizio/internal/infrastructure/metrics/prom"
)

// Defaults mirrored from spec.md §4.5/§5.
const (
	defaultCommandsTopic  = "commands"
	defaultResponsesTopic = "responses"
	defaultDrainTimeout   = 30 * time.Second
)

// Dispatcher is the concrete CommandDispatcher: a handler registry plus a
// single long-lived subscription on the commands topic.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[command.Kind]command.Handler

	bus           bus.Bus
	commandsTopic string
	drainTimeout  time.Duration

	wg          sync.WaitGroup
	unsubscribe func()
	running     bool
}

// New constructs a Dispatcher with no handlers registered. Call
// RegisterHandler for each supported command.Kind before Start.
//
// Params:
//   - b: the bus to subscribe to and publish responses on.
//
// Returns:
//   - *Dispatcher: a ready-to-configure dispatcher.
func New(b bus.Bus) *Dispatcher {
	return &Dispatcher{
		handlers:      make(map[command.Kind]command.Handler),
		bus:           b,
		commandsTopic: defaultCommandsTopic,
		drainTimeout:  defaultDrainTimeout,
	}
}

// RegisterHandler replaces any existing handler for kind.
func (d *Dispatcher) RegisterHandler(kind command.Kind, h command.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Start spawns the receive loop; idempotent.
//
// Returns:
//   - error: any error subscribing to the commands topic.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.mu.Unlock()

	unsub, err := d.bus.Subscribe(ctx, d.commandsTopic, d.onMessage)
	if err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return err
	}
	d.unsubscribe = unsub
	return nil
}

// Stop cancels the receive loop and drains in-flight handlers up to the
// shutdown timeout.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	unsub := d.unsubscribe
	d.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d.drainTimeout):
	}
}

// onMessage implements the dispatch algorithm from spec.md §4.5. Each
// command is handled in its own goroutine so a slow or misbehaving handler
// never blocks the receive loop or other in-flight commands.
func (d *Dispatcher) onMessage(ctx context.Context, msg bus.Message) {
	cmd, ok := msg.Payload.(command.Command)
	if !ok {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(ctx, cmd)
	}()
}

func (d *Dispatcher) dispatch(ctx context.Context, cmd command.Command) {
	if cmd.Kind == "" {
		d.reply(ctx, cmd, command.ErrResponse(cmd.ID, "missing type"))
		return
	}

	kind := command.Kind(strings.ToLower(string(cmd.Kind)))
	d.mu.RLock()
	handler, ok := d.handlers[kind]
	d.mu.RUnlock()
	if !ok {
		d.reply(ctx, cmd, command.ErrResponse(cmd.ID, "unknown type"))
		return
	}

	start := time.Now()
	resp := handler(ctx, cmd)
	prom.ObserveCommandDispatch(string(kind), resp.OK, time.Since(start).Seconds())
	d.reply(ctx, cmd, resp)
}

func (d *Dispatcher) reply(ctx context.Context, cmd command.Command, resp command.Response) {
	if d.bus == nil {
		return
	}

	topic := defaultResponsesTopic
	if override, ok := cmd.Params[command.ResponseChannelParam]; ok && override != "" {
		topic = override
	}

	_ = d.bus.Publish(ctx, bus.Message{Topic: topic, Payload: resp})
}
