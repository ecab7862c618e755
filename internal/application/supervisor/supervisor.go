// Package supervisor implements the daemon-level root component: it wires
// the bus, state store, ProcessManager, HealthMonitor and CommandDispatcher
// together, runs the periodic maintenance tick, and owns shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kodflow/supervizio/internal/application/dispatcher"
	"github.com/kodflow/supervizio/internal/application/health"
	"github.com/kodflow/supervizio/internal/application/processmanager"
	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/process"
	"github.com/kodflow/supervizio/internal/domain/storage"
)

// defaultTickInterval is the cadence of MaintenanceTick, distinct from
// HealthMonitor's own sampling interval: the tick only reconciles handles
// already flagged NeedsAttention, so it can run more often cheaply.
const (
	defaultTickInterval   = 10 * time.Second
	defaultDisposeTimeout = 30 * time.Second
)

// State represents the supervisor's own lifecycle, distinct from any one
// supervised process's Status.
type State int

// Supervisor state constants.
const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// Errors for supervisor operations.
var (
	ErrAlreadyRunning = errors.New("supervisor: already running")
	ErrNotRunning     = errors.New("supervisor: not running")
)

// Supervisor is the daemon's composition root: one ProcessManager, one
// HealthMonitor, one CommandDispatcher, sharing one Bus and one Store.
type Supervisor struct {
	mu    sync.RWMutex
	state State

	bus        bus.Bus
	store      storage.Store
	manager    *processmanager.Manager
	monitor    *health.Monitor
	dispatcher *dispatcher.Dispatcher

	tickInterval   time.Duration
	disposeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Supervisor from its already-wired components. Use
// internal/bootstrap to build these with the production adapters.
//
// Params:
//   - b: the shared bus.
//   - store: the shared durable state backend.
//   - manager: the process registry.
//   - monitor: the resource-health sampler.
//   - d: the command dispatcher, already given its handlers via
//     dispatcher.RegisterCoreHandlers.
//
// Returns:
//   - *Supervisor: a supervisor ready to Start.
func New(b bus.Bus, store storage.Store, manager *processmanager.Manager, monitor *health.Monitor, d *dispatcher.Dispatcher) *Supervisor {
	return &Supervisor{
		bus:            b,
		store:          store,
		manager:        manager,
		monitor:        monitor,
		dispatcher:     d,
		tickInterval:   defaultTickInterval,
		disposeTimeout: defaultDisposeTimeout,
	}
}

// Start initializes the ProcessManager, starts the HealthMonitor and the
// CommandDispatcher, and spawns the maintenance tick loop.
//
// Returns:
//   - error: ErrAlreadyRunning, or any fatal error initializing ProcessManager.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = StateStarting
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if err := s.manager.Initialize(s.ctx); err != nil {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return fmt.Errorf("supervisor: fatal error initializing process manager: %w", err)
	}

	s.monitor.Start(s.ctx)

	if err := s.dispatcher.Start(s.ctx); err != nil {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return fmt.Errorf("supervisor: failed to start command dispatcher: %w", err)
	}

	s.wg.Add(1)
	go s.tickLoop()

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	return nil
}

// tickLoop drives MaintenanceTick on tickInterval until Stop cancels the
// supervisor's context. Every caught error is swallowed into the tick
// itself (ProcessManager never returns one from MaintenanceTick); this
// loop only terminates on cancellation.
//
// Goroutine lifecycle:
//   - One goroutine for the supervisor's lifetime between Start and Stop.
//   - Terminates when s.ctx is cancelled.
func (s *Supervisor) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.manager.MaintenanceTick(s.ctx)
		}
	}
}

// Stop cancels the tick loop, stops the dispatcher and health monitor, and
// disposes the process registry (stopping every live child) within the
// dispose timeout.
//
// Returns:
//   - error: always nil; provided for interface symmetry with other
//     lifecycle components.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.dispatcher.Stop()
	s.monitor.Stop()

	disposeCtx, cancel := context.WithTimeout(context.Background(), s.disposeTimeout)
	defer cancel()
	s.manager.Dispose(disposeCtx)

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	return nil
}

// Reload re-registers descriptors from an external source (e.g. a
// reloaded config file on SIGHUP), sharing the same force-register path
// the "register" command uses.
//
// Params:
//   - ctx: cancellation context for the registration calls.
//   - descriptors: the full, current set of descriptors from the reloaded
//     configuration.
//
// Returns:
//   - error: ErrNotRunning if the supervisor is not running, or the first
//     registration error encountered.
func (s *Supervisor) Reload(ctx context.Context, descriptors []process.Descriptor) error {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state != StateRunning {
		return ErrNotRunning
	}

	for _, d := range descriptors {
		if err := s.manager.Register(ctx, d, true); err != nil {
			return fmt.Errorf("supervisor: reload failed for %q: %w", d.ID, err)
		}
	}
	return nil
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Manager exposes the underlying ProcessManager, e.g. for a transport
// adapter that needs direct registry access alongside the command path.
func (s *Supervisor) Manager() *processmanager.Manager {
	return s.manager
}
