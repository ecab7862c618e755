package process

import (
	"sync"
	"time"
)

// ringBufferCapacity bounds the number of lines retained per output stream,
// per the data model's "last 1000 lines" retention rule.
const ringBufferCapacity = 1000

// RingBuffer is a fixed-capacity, concurrency-safe FIFO of text lines. Once
// full, appending a line evicts the oldest one. It backs the stdout/stderr
// tails exposed on a ProcessRuntimeState.
type RingBuffer struct {
	mu    sync.RWMutex
	lines []string
	cap   int
}

// NewRingBuffer creates a RingBuffer with the given capacity.
//
// Params:
//   - capacity: the maximum number of lines retained; ringBufferCapacity if <= 0.
//
// Returns:
//   - *RingBuffer: a new, empty ring buffer.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = ringBufferCapacity
	}
	return &RingBuffer{lines: make([]string, 0, capacity), cap: capacity}
}

// Append adds a line, evicting the oldest line if the buffer is full.
//
// Params:
//   - line: the text line to append.
func (b *RingBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) >= b.cap {
		// Evict the oldest entry to make room; shifting is cheap enough at
		// this bounded size and keeps the slice contiguous for Lines().
		b.lines = append(b.lines[1:], line)
		return
	}
	b.lines = append(b.lines, line)
}

// Lines returns a snapshot copy of the buffered lines, oldest first.
//
// Returns:
//   - []string: a copy safe for the caller to retain or mutate.
func (b *RingBuffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len reports the current number of buffered lines.
//
// Returns:
//   - int: number of lines currently held, at most the buffer's capacity.
func (b *RingBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// RuntimeState is the mutable, observed half of a supervised process: what
// ProcessHandle reports to ProcessManager and HealthMonitor. Descriptor
// stays immutable; RuntimeState is replaced/updated on every transition.
type RuntimeState struct {
	Status                    Status
	PID                       int
	StartTime                 time.Time
	StopTime                  time.Time
	RestartCount              int
	ConsecutiveRestartAttempts int
	LastRestartAt             time.Time
	LastError                 string
	LastExitCode              int
	LastMetrics               *MetricSample

	// OutputRing and ErrorRing hold the last ringBufferCapacity lines of
	// stdout/stderr respectively. They are shared pointers, not copied by
	// value, so a RuntimeState snapshot still reflects live appends unless
	// the caller takes Lines() explicitly.
	OutputRing *RingBuffer
	ErrorRing  *RingBuffer
}

// NewRuntimeState returns a freshly initialized, Stopped runtime state with
// empty ring buffers ready for use.
//
// Returns:
//   - *RuntimeState: a zero-valued, Stopped state.
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{
		Status:     StatusStopped,
		OutputRing: NewRingBuffer(ringBufferCapacity),
		ErrorRing:  NewRingBuffer(ringBufferCapacity),
	}
}

// Uptime returns how long the process has been in its current run, or zero
// if it is not active.
//
// Returns:
//   - time.Duration: elapsed time since StartTime, zero if not active.
func (rs *RuntimeState) Uptime() time.Duration {
	if !rs.Status.IsActive() || rs.StartTime.IsZero() {
		return 0
	}
	return time.Since(rs.StartTime)
}
