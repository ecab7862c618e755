// Package processhandle implements the per-process state machine described
// by ProcessHandle: Start/Stop/Restart/WaitForExit over one OS child, plus
// its ring-buffered stdout/stderr tails.
package processhandle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kodflow/supervizio/internal/domain/process"
)

// eventBufferSize bounds the channel carrying StatusChanged/OutputReceived/
// ErrorReceived notifications out of a Handle.
const eventBufferSize = 64

// defaultStopTimeout is used when Stop is called with timeout <= 0.
const defaultStopTimeout = 30 * time.Second

// OutputSink durably backstops a Handle's in-memory ring buffers, per
// SPEC_FULL.md §3's crash-recovery cache: every output line and every
// terminal error is mirrored here in addition to the in-memory RingBuffer,
// so a daemon restart can recover the most recent tail even though the
// ring buffer itself does not survive the process.
type OutputSink interface {
	// AppendLine records one output line for processID/stream ("stdout" or
	// "stderr").
	AppendLine(processID, stream, line string)
	// SetLastError records processID's most recent error message.
	SetLastError(processID, msg string)
}

// Option configures optional Handle behavior at construction time.
type Option func(*Handle)

// WithOutputSink attaches a durable backstop for output lines and errors.
func WithOutputSink(sink OutputSink) Option {
	return func(h *Handle) { h.sink = sink }
}

// Handle owns the state machine for one OS child process, as described by
// spec.md §4.1: every transition is guarded by mu; output readers run on
// dedicated goroutines until their stream reaches EOF. They are not tied to
// the handle's context and are not cancelled by Stop.
type Handle struct {
	mu sync.Mutex

	descriptor process.Descriptor
	executor   process.Executor
	state      *process.RuntimeState

	events chan process.Event

	ctx    context.Context
	cancel context.CancelFunc

	// exited is closed by watchExit once the current Start's child has been
	// reaped and its terminal status applied; Stop and WaitForExit both wait
	// on it instead of racing watchExit for the single-value wait channel.
	exited   chan struct{}
	lastExit process.ExitResult

	sink OutputSink
}

// New creates a Handle for descriptor, starting in Stopped state with empty
// ring buffers. It does not spawn anything until Start is called.
//
// Params:
//   - descriptor: the immutable process registration record.
//   - executor: the OS-process adapter used to spawn/stop/signal.
//
// Returns:
//   - *Handle: a new, Stopped handle.
func New(descriptor process.Descriptor, executor process.Executor, opts ...Option) *Handle {
	h := &Handle{
		descriptor: descriptor,
		executor:   executor,
		state:      process.NewRuntimeState(),
		events:     make(chan process.Event, eventBufferSize),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Events returns the channel on which StatusChanged/OutputReceived/
// ErrorReceived events are published for this handle.
//
// Returns:
//   - <-chan process.Event: a read-only event stream.
func (h *Handle) Events() <-chan process.Event {
	return h.events
}

// Descriptor returns the immutable registration record this handle wraps.
//
// Returns:
//   - process.Descriptor: the handle's descriptor.
func (h *Handle) Descriptor() process.Descriptor {
	return h.descriptor
}

// Snapshot returns a copy of the handle's current observable runtime state.
//
// Returns:
//   - process.RuntimeState: a value copy; the ring buffer pointers are
//     shared, so callers that need a stable view should call Lines() on them.
func (h *Handle) Snapshot() process.RuntimeState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.state
}

// Start spawns the child process.
//
// Returns:
//   - error: process.ErrAlreadyRunning if already Starting/Running, or the
//     spawn error wrapped in process.ErrStartFailed.
//
// Goroutine lifecycle:
//   - Spawns no output readers; StartOutputPump starts those separately.
//   - Spawns one watcher goroutine that blocks on the executor's exit
//     channel and applies the terminal status (Stopped/Crashed) the moment
//     the child exits, whether that exit was requested via Stop or happened
//     on its own (an external kill, a crash).
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.state.Status.IsActive() {
		h.mu.Unlock()
		return process.ErrAlreadyRunning
	}

	h.state.Status = process.StatusStarting
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.mu.Unlock()
	h.emit(process.EventStarted)

	pid, wait, err := h.executor.Start(h.ctx, h.descriptor.ToSpec())

	h.mu.Lock()
	if err != nil {
		h.state.Status = process.StatusFailed
		h.state.LastError = err.Error()
		h.mu.Unlock()
		if h.sink != nil {
			h.sink.SetLastError(h.descriptor.ID, err.Error())
		}
		h.emit(process.EventCrashed)
		return fmt.Errorf("%w: %s", process.ErrStartFailed, err)
	}

	h.state.PID = pid
	h.state.StartTime = time.Now()
	h.state.Status = process.StatusRunning
	exited := make(chan struct{})
	h.exited = exited
	h.mu.Unlock()

	go h.watchExit(wait, exited)

	return nil
}

// watchExit is the sole reader of wait: it blocks until the child the
// matching Start spawned has exited, then applies the resulting status
// transition (Stopped on a clean exit, Crashed otherwise) and emits the
// corresponding event, whether this exit was requested by Stop or happened
// asynchronously (crash, external kill). exited is closed last so anyone
// blocked in Stop/WaitForExit observes the finished transition.
func (h *Handle) watchExit(wait <-chan process.ExitResult, exited chan struct{}) {
	result := <-wait
	defer close(exited)

	h.mu.Lock()
	if h.exited != exited {
		// A later Start has already replaced this generation; this result is
		// stale (e.g. the process group was reaped after Restart moved on).
		h.mu.Unlock()
		return
	}

	h.state.StopTime = time.Now()
	h.state.LastExitCode = result.Code
	h.lastExit = result
	if h.cancel != nil {
		h.cancel()
	}

	if result.Code == 0 && result.Error == nil {
		h.state.Status = process.StatusStopped
		h.mu.Unlock()
		h.emit(process.EventStopped)
		return
	}

	if result.Error != nil {
		h.state.LastError = result.Error.Error()
	}
	lastErr := h.state.LastError
	h.state.Status = process.StatusCrashed
	h.mu.Unlock()

	if h.sink != nil && lastErr != "" {
		h.sink.SetLastError(h.descriptor.ID, lastErr)
	}
	h.emit(process.EventCrashed)
}

// StartOutputPump wires stdout/stderr readers against the spawned streams.
// Executors that expose io.Reader pipes should call this once per Start;
// it is split from Start so test executors without real pipes can skip it.
//
// Params:
//   - stdout: the child's stdout stream, or nil.
//   - stderr: the child's stderr stream, or nil.
func (h *Handle) StartOutputPump(stdout, stderr io.Reader) {
	if stdout != nil {
		go h.pumpLines(stdout, h.state.OutputRing, "stdout")
	}
	if stderr != nil {
		go h.pumpLines(stderr, h.state.ErrorRing, "stderr")
	}
}

func (h *Handle) pumpLines(r io.Reader, ring *process.RingBuffer, stream string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		ring.Append(line)
		if h.sink != nil {
			h.sink.AppendLine(h.descriptor.ID, stream, line)
		}
	}
}

// Stop gracefully terminates the child, force-killing it after timeout. The
// resulting status transition (Stopped/Crashed) is applied by watchExit,
// the same goroutine that would have caught an unrequested exit; Stop only
// waits for it to finish.
//
// Params:
//   - timeout: grace period before a forced kill; defaultStopTimeout if <= 0.
//
// Returns:
//   - error: nil if already terminal (Stopped/Failed/Crashed); otherwise the
//     executor's stop error.
func (h *Handle) Stop(timeout time.Duration) error {
	h.mu.Lock()
	if h.state.Status.IsTerminal() {
		h.mu.Unlock()
		return nil
	}
	pid := h.state.PID
	exited := h.exited
	h.state.Status = process.StatusStopping
	h.mu.Unlock()

	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	stopErr := h.executor.Stop(pid, timeout)

	if exited != nil {
		select {
		case <-exited:
		case <-time.After(timeout):
			// watchExit never observed an exit within the grace period; leave
			// the handle Stopping rather than guess a terminal status. A
			// subsequent Stop call retries; MaintenanceTick skips Stopping
			// handles.
		}
	}

	return stopErr
}

// Restart stops then starts the process, incrementing RestartCount on
// success.
//
// Params:
//   - ctx: context for the subsequent Start call.
//   - timeout: grace period passed to Stop.
//
// Returns:
//   - error: any error from Stop or Start.
func (h *Handle) Restart(ctx context.Context, timeout time.Duration) error {
	if err := h.Stop(timeout); err != nil {
		return err
	}
	if err := h.Start(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.state.RestartCount++
	h.state.LastRestartAt = time.Now()
	h.mu.Unlock()
	return nil
}

// WaitForExit blocks until the child exits, returning immediately if it
// already has.
//
// Returns:
//   - process.ExitResult: the exit code/error observed.
func (h *Handle) WaitForExit() process.ExitResult {
	h.mu.Lock()
	exited := h.exited
	status := h.state.Status
	lastExit := h.lastExit
	h.mu.Unlock()

	if status.IsTerminal() {
		return lastExit
	}
	if exited == nil {
		return process.ExitResult{}
	}

	<-exited

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastExit
}

// SetWarning marks the handle Warning when warn is true, or clears a
// previously set Warning back to Running when false, called by the health
// monitor as it evaluates resource thresholds each tick. A no-op outside
// Running/Warning (e.g. Stopping, Crashed) so a late health sample never
// overwrites a transition the handle itself already made.
func (h *Handle) SetWarning(warn bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state.Status {
	case process.StatusRunning:
		if warn {
			h.state.Status = process.StatusWarning
		}
	case process.StatusWarning:
		if !warn {
			h.state.Status = process.StatusRunning
		}
	}
}

func (h *Handle) emit(t process.EventType) {
	h.mu.Lock()
	ev := process.NewEvent(t, h.descriptor, h.state)
	h.mu.Unlock()

	select {
	case h.events <- ev:
	default:
		// Drop event if the channel is full; status is always readable via
		// Snapshot so a missed event never hides a real transition.
	}
}
