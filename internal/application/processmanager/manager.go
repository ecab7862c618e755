// Package processmanager implements the process registry described by
// spec.md §4.2: it owns id -> (descriptor, handle, runtime state), drives
// start/stop/restart, and reacts to system events on the bus.
package processmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kodflow/supervizio/internal/application/processhandle"
	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/process"
	"github.com/kodflow/supervizio/internal/domain/storage"
	"github.com/kodflow/supervizio/internal/infrastructure/metrics/prom"
)

// Defaults mirrored from spec.md §4.2.
const (
	defaultMaxStartAttempts = 3
	defaultShutdownTimeout  = 30 * time.Second
)

// HealthRegistrar is the slice of HealthMonitor the manager depends on,
// kept as a narrow interface to avoid an import cycle between
// processmanager and the health package (both depend on process, neither
// on the other's concrete type).
type HealthRegistrar interface {
	Register(h *processhandle.Handle)
	Unregister(id string)
}

type entry struct {
	descriptor process.Descriptor
	handle     *processhandle.Handle
	tracker    *process.RestartTracker
}

// Manager is the concrete ProcessManager: a mutex-guarded registry plus the
// system-event subscription that reacts to stopped/crashed events. Registered
// events are not acted upon; registration happens only through Register.
type Manager struct {
	mu       sync.RWMutex
	registry map[string]*entry

	store  storage.Store
	bus    bus.Bus
	health HealthRegistrar

	newExecutor func() process.Executor
	outputSink  processhandle.OutputSink

	maxStartAttempts int
	shutdownTimeout  time.Duration

	initialized bool
	unsubscribe func()
}

// New constructs a Manager. Initialize must be called before use.
//
// Params:
//   - store: the durable state backend.
//   - b: the bus used for the system-event subscription and emitted events.
//   - health: the health monitor to register/unregister handles with.
//   - newExecutor: factory for the Executor bound to each handle; kept as a
//     factory rather than a shared instance since some Executor adapters
//     are not safe to reuse across concurrent Start calls.
//
// Returns:
//   - *Manager: a manager with an empty registry.
func New(store storage.Store, b bus.Bus, health HealthRegistrar, newExecutor func() process.Executor) *Manager {
	return &Manager{
		registry:         make(map[string]*entry),
		store:            store,
		bus:              b,
		health:           health,
		newExecutor:      newExecutor,
		maxStartAttempts: defaultMaxStartAttempts,
		shutdownTimeout:  defaultShutdownTimeout,
	}
}

// SetOutputSink attaches the durable output/last-error backstop every
// subsequently constructed Handle is given. Call before Initialize so
// descriptors loaded at startup get it too.
func (m *Manager) SetOutputSink(sink processhandle.OutputSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputSink = sink
}

// newHandle constructs a Handle for d, attaching the output sink if one is
// configured.
func (m *Manager) newHandle(d process.Descriptor) *processhandle.Handle {
	if m.outputSink != nil {
		return processhandle.New(d, m.newExecutor(), processhandle.WithOutputSink(m.outputSink))
	}
	return processhandle.New(d, m.newExecutor())
}

// Initialize loads all non-stopped descriptors from the store, materializes
// Stopped handles for them (without starting them), registers each with the
// health monitor, and starts the system-event subscription. Idempotent
// after the first successful call.
//
// Returns:
//   - error: a wrapped storage error if the store is unreachable.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	descriptors, err := m.store.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("processmanager: initialize failed to list descriptors: %w", err)
	}

	m.mu.Lock()
	for _, d := range descriptors {
		h := m.newHandle(d)
		m.registry[d.ID] = &entry{descriptor: d, handle: h, tracker: process.NewRestartTracker(d.Policy)}
		if m.health != nil {
			m.health.Register(h)
		}
	}
	m.mu.Unlock()

	unsub, err := m.bus.Subscribe(ctx, "events:#", m.onSystemEvent)
	if err != nil {
		return fmt.Errorf("processmanager: failed to subscribe to events: %w", err)
	}

	m.mu.Lock()
	m.unsubscribe = unsub
	m.initialized = true
	m.mu.Unlock()

	return nil
}

// Register adds a new process to the registry.
//
// Params:
//   - d: the descriptor to persist and register.
//   - force: when true, an existing descriptor with the same ID is stopped
//     and replaced instead of returning process.ErrAlreadyExists.
//
// Returns:
//   - error: process.ErrAlreadyExists, a validation error, or a storage error.
func (m *Manager) Register(ctx context.Context, d process.Descriptor, force bool) error {
	if err := d.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if existing, ok := m.registry[d.ID]; ok {
		if !force {
			m.mu.Unlock()
			return fmt.Errorf("%w: id %q", process.ErrAlreadyExists, d.ID)
		}
		m.mu.Unlock()
		_ = existing.handle.Stop(m.shutdownTimeout)
		m.mu.Lock()
	}

	if d.Policy == (process.Policy{}) {
		d.Policy = process.DefaultPolicy()
	}

	h := m.newHandle(d)
	e := &entry{descriptor: d, handle: h, tracker: process.NewRestartTracker(d.Policy)}
	m.registry[d.ID] = e
	if m.health != nil {
		m.health.Register(h)
	}
	m.mu.Unlock()

	if err := m.store.UpsertDescriptor(ctx, d, process.StatusStopped); err != nil {
		return fmt.Errorf("processmanager: failed to persist descriptor %q: %w", d.ID, err)
	}

	snap := h.Snapshot()
	m.publish(ctx, process.NewEvent(process.EventRegistered, d, &snap))
	return nil
}

// Start launches the named process, retrying with exponential backoff up to
// maxStartAttempts times.
//
// Returns:
//   - error: process.ErrNotFound, or process.ErrStartFailed after exhaustion.
func (m *Manager) Start(ctx context.Context, id string) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}

	if e.handle.Snapshot().Status == process.StatusRunning {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < m.maxStartAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if lastErr = e.handle.Start(ctx); lastErr == nil {
			m.persistStatus(ctx, e)
			prom.IncStart(id)
			prom.SetCurrentState(id, e.handle.Snapshot().Status.String(), true)
			return nil
		}
	}

	m.persistStatus(ctx, e)
	return fmt.Errorf("%w: %s", process.ErrStartFailed, lastErr)
}

// Stop stops the named process using the default shutdown timeout.
//
// Returns:
//   - error: process.ErrNotFound if unknown; nil if already Stopped.
func (m *Manager) Stop(ctx context.Context, id string) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	if e.handle.Snapshot().Status == process.StatusStopped {
		return nil
	}
	stopErr := e.handle.Stop(m.shutdownTimeout)
	m.persistStatus(ctx, e)
	prom.SetCurrentState(id, e.handle.Snapshot().Status.String(), false)
	return stopErr
}

// Restart stops then starts the named process, incrementing its restart
// counter.
//
// Returns:
//   - error: process.ErrNotFound, or any error from Stop/Start.
func (m *Manager) Restart(ctx context.Context, id string) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	err = e.handle.Restart(ctx, m.shutdownTimeout)
	m.persistStatus(ctx, e)
	if err == nil {
		prom.IncRestart(id)
		prom.SetCurrentState(id, e.handle.Snapshot().Status.String(), true)
	}
	return err
}

// Get returns a snapshot of the named process's descriptor and state.
//
// Returns:
//   - process.Descriptor, process.RuntimeState, error: process.ErrNotFound if unknown.
func (m *Manager) Get(id string) (process.Descriptor, process.RuntimeState, error) {
	e, err := m.get(id)
	if err != nil {
		return process.Descriptor{}, process.RuntimeState{}, err
	}
	return e.descriptor, e.handle.Snapshot(), nil
}

// GetAll returns a registry snapshot: every descriptor paired with its
// current runtime state.
//
// Returns:
//   - map[string]process.RuntimeState: keyed by process ID.
func (m *Manager) GetAll() map[string]process.RuntimeState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]process.RuntimeState, len(m.registry))
	for id, e := range m.registry {
		out[id] = e.handle.Snapshot()
	}
	return out
}

// MaintenanceTick is invoked periodically by the Supervisor root: for every
// handle needing attention (Failed/Crashed/Warning), it considers a restart
// subject to the descriptor's auto-restart policy.
func (m *Manager) MaintenanceTick(ctx context.Context) {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.registry))
	for _, e := range m.registry {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	running := 0
	for _, e := range entries {
		state := e.handle.Snapshot()
		switch {
		case state.Status.IsActive():
			running++
			continue
		case state.Status == process.StatusStopping || state.Status == process.StatusStopped:
			continue
		case state.Status.NeedsAttention():
			m.maybeRestart(ctx, e)
		}
	}
	prom.SetRunningProcesses(running)
}

func (m *Manager) maybeRestart(ctx context.Context, e *entry) {
	if !e.descriptor.Policy.AutoRestart || !e.tracker.ShouldRestart() {
		return
	}
	e.tracker.RecordAttempt()
	if err := e.handle.Restart(ctx, m.shutdownTimeout); err != nil {
		return
	}
	m.persistStatus(ctx, e)
	prom.IncRestart(e.descriptor.ID)
	prom.SetCurrentState(e.descriptor.ID, e.handle.Snapshot().Status.String(), true)
}

// Dispose stops every Running handle in parallel within the shutdown
// timeout, clears the registry, and unsubscribes from the event bus.
func (m *Manager) Dispose(ctx context.Context) {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}

	m.mu.Lock()
	entries := make([]*entry, 0, len(m.registry))
	for _, e := range m.registry {
		entries = append(entries, e)
	}
	m.registry = make(map[string]*entry)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		if e.handle.Snapshot().Status != process.StatusRunning {
			continue
		}
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			_ = e.handle.Stop(m.shutdownTimeout)
		}(e)
	}
	wg.Wait()
}

func (m *Manager) get(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", process.ErrNotFound, id)
	}
	return e, nil
}

func (m *Manager) persistStatus(ctx context.Context, e *entry) {
	_ = m.store.UpdateStatus(ctx, e.descriptor.ID, e.handle.Snapshot().Status)
}

func (m *Manager) publish(ctx context.Context, ev process.Event) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(ctx, bus.Message{Topic: fmt.Sprintf("events:%s", ev.Type), Payload: ev})
}

func (m *Manager) onSystemEvent(ctx context.Context, msg bus.Message) {
	ev, ok := msg.Payload.(process.Event)
	if !ok {
		return
	}
	switch ev.Type {
	case process.EventStopped:
		if e, err := m.get(ev.ProcessID); err == nil {
			m.persistStatus(ctx, e)
		}
	case process.EventCrashed:
		e, err := m.get(ev.ProcessID)
		if err != nil {
			return
		}
		m.persistStatus(ctx, e)
		prom.IncCrash(ev.ProcessID)
		prom.SetCurrentState(ev.ProcessID, e.handle.Snapshot().Status.String(), false)
		if e.descriptor.Policy.AutoRestart {
			delay := e.descriptor.Policy.RestartDelay.Duration()
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			_ = m.Restart(ctx, ev.ProcessID)
		}
	}
}
