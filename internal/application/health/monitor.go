// Package health implements the periodic resource sampler described by
// spec.md §4.3: it samples CPU/memory for every Running process, persists
// the sample, publishes it on the bus, and considers a restart when a
// process sustains severe resource pressure.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kodflow/supervizio/internal/application/processhandle"
	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/process"
	"github.com/kodflow/supervizio/internal/domain/storage"
)

// Defaults mirrored from spec.md §4.3.
const (
	defaultCheckInterval      = 30 * time.Second
	defaultMaxRestartAttempts = 3
	defaultRestartCooldown    = 5 * time.Minute
	// severeThresholdMultiplier is the 1.5x-over-threshold trigger for the
	// restart-consideration policy.
	severeThresholdMultiplier = 1.5
)

// Sampler abstracts the resource-sampling backend so Monitor does not
// depend directly on gopsutil; the default production Sampler wraps
// github.com/shirou/gopsutil/v4.
type Sampler interface {
	// Sample returns the CPU%, RSS in bytes, thread count and open-handle
	// count for the process with the given PID, or an error if the process
	// cannot be inspected (e.g. already exited).
	Sample(ctx context.Context, pid int) (cpuPercent float64, memoryRSS uint64, threadCount int32, handleCount int32, err error)
}

type registration struct {
	handle *processhandle.Handle

	consecutiveAttempts int
	lastRestartAt       time.Time
}

// Monitor is the concrete HealthMonitor.
type Monitor struct {
	mu       sync.RWMutex
	handles  map[string]*registration
	sampler  Sampler
	store    storage.Store
	bus      bus.Bus
	interval time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// New constructs a Monitor with the given sampling backend, storage and bus.
//
// Params:
//   - sampler: the CPU/RSS sampling backend.
//   - store: where samples are persisted.
//   - b: the bus samples are published to, on topic "health:<id>".
//   - interval: the sampling period; defaultCheckInterval if <= 0.
//
// Returns:
//   - *Monitor: a monitor with no registered processes yet.
func New(sampler Sampler, store storage.Store, b bus.Bus, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Monitor{
		handles:  make(map[string]*registration),
		sampler:  sampler,
		store:    store,
		bus:      b,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Register adds a handle to the set sampled on every tick.
func (m *Monitor) Register(h *processhandle.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handles[h.Descriptor().ID] = &registration{handle: h}
}

// Unregister removes a handle from the sampled set.
func (m *Monitor) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handles, id)
}

// Start begins the periodic sampling loop. Idempotent: a second call while
// already running is a no-op.
//
// Goroutine lifecycle:
//   - Spawns one ticking goroutine that runs until Stop is called or ctx
//     is cancelled; every tick itself runs synchronously within the loop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop cancels the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	m.mu.RLock()
	regs := make(map[string]*registration, len(m.handles))
	for id, r := range m.handles {
		regs[id] = r
	}
	m.mu.RUnlock()

	for id, r := range regs {
		m.sampleOne(ctx, id, r)
	}
}

func (m *Monitor) sampleOne(ctx context.Context, id string, r *registration) {
	snap := r.handle.Snapshot()
	if snap.Status != process.StatusRunning && snap.Status != process.StatusWarning {
		return
	}

	cpuPct, rss, threads, handles, err := m.sampler.Sample(ctx, snap.PID)
	if err != nil {
		return
	}
	cpuPct = roundTo2Decimals(cpuPct)

	sample := process.MetricSample{
		Timestamp: time.Now(), CPUPercent: cpuPct, MemoryRSS: rss,
		ThreadCount: threads, HandleCount: handles,
	}

	_ = m.store.RecordMetric(ctx, storage.MetricRow{
		ProcessID: id, Timestamp: sample.Timestamp, CPUPercent: cpuPct, MemoryRSS: rss,
		ThreadCount: threads, HandleCount: handles,
	})

	if m.bus != nil {
		_ = m.bus.Publish(ctx, bus.Message{Topic: fmt.Sprintf("health:%s", id), Payload: sample})
	}

	descriptor := r.handle.Descriptor()
	policy := descriptor.Policy
	warn := policyBreached(policy, cpuPct, rss, 1.0)
	severe := policyBreached(policy, cpuPct, rss, severeThresholdMultiplier)

	prevStatus := snap.Status
	r.handle.SetWarning(warn)
	if newStatus := r.handle.Snapshot().Status; newStatus != prevStatus {
		_ = m.store.UpdateStatus(ctx, id, newStatus)
	}

	if warn {
		m.publishEvent(ctx, process.EventHealthWarn, descriptor, &snap)
	} else {
		m.publishEvent(ctx, process.EventHealthOK, descriptor, &snap)
	}

	if severe {
		m.considerRestart(ctx, id, r, descriptor)
	}
}

func policyBreached(p process.Policy, cpuPct float64, memRSS uint64, multiplier float64) bool {
	if p.CPUWarnPercent > 0 && cpuPct > p.CPUWarnPercent*multiplier {
		return true
	}
	if p.MemWarnBytes > 0 && memRSS > uint64(float64(p.MemWarnBytes)*multiplier) {
		return true
	}
	return false
}

func (m *Monitor) considerRestart(ctx context.Context, id string, r *registration, descriptor process.Descriptor) {
	maxAttempts := descriptor.Policy.MaxRestartAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxRestartAttempts
	}
	cooldown := descriptor.Policy.RestartCooldown.Duration()
	if cooldown <= 0 {
		cooldown = defaultRestartCooldown
	}

	m.mu.Lock()
	if r.consecutiveAttempts >= maxAttempts && time.Since(r.lastRestartAt) <= cooldown {
		m.mu.Unlock()
		return
	}
	if time.Since(r.lastRestartAt) > cooldown {
		r.consecutiveAttempts = 0
	}
	m.mu.Unlock()

	if err := r.handle.Restart(ctx, 30*time.Second); err != nil {
		// The error is dropped here and not logged; the next tick retries
		// under the same policy.
		return
	}

	m.mu.Lock()
	r.lastRestartAt = time.Now()
	r.consecutiveAttempts++
	m.mu.Unlock()
}

func (m *Monitor) publishEvent(ctx context.Context, t process.EventType, descriptor process.Descriptor, snap *process.RuntimeState) {
	if m.bus == nil {
		return
	}
	ev := process.NewEvent(t, descriptor, snap)
	_ = m.bus.Publish(ctx, bus.Message{Topic: fmt.Sprintf("events:%s", t), Payload: ev})
}

func roundTo2Decimals(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
