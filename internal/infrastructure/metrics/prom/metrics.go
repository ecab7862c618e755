// Package prom exposes ambient Prometheus observability for the
// supervisor: restart counts, running-process gauges and command dispatch
// latency, registered against a caller-supplied prometheus.Registerer.
package prom

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register and
// are safe to use before registration: the Inc*/Observe*/Set* helpers
// no-op until regOK is set.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supervizio",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful process starts.",
		}, []string{"id"},
	)
	processRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supervizio",
			Subsystem: "process",
			Name:      "restarts_total",
			Help:      "Number of auto restarts.",
		}, []string{"id"},
	)
	processCrashes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supervizio",
			Subsystem: "process",
			Name:      "crashes_total",
			Help:      "Number of non-zero process exits.",
		}, []string{"id"},
	)
	runningProcesses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "supervizio",
			Subsystem: "process",
			Name:      "running",
			Help:      "Current count of processes in the Running state.",
		},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "supervizio",
			Subsystem: "process",
			Name:      "current_state",
			Help:      "Current status of a process (1 = active state, 0 = inactive).",
		}, []string{"id", "status"},
	)
	commandDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "supervizio",
			Subsystem: "command",
			Name:      "dispatch_duration_seconds",
			Help:      "Time to handle a dispatched command, by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "success"},
	)
)

// Register registers all collectors with r. Safe to call multiple times;
// calls after the first success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}

	collectors := []prometheus.Collector{
		processStarts, processRestarts, processCrashes,
		runningProcesses, currentState, commandDispatchDuration,
	}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving metrics for the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

// IncStart records a successful process start.
func IncStart(id string) {
	if regOK.Load() {
		processStarts.WithLabelValues(id).Inc()
	}
}

// IncRestart records an automatic restart.
func IncRestart(id string) {
	if regOK.Load() {
		processRestarts.WithLabelValues(id).Inc()
	}
}

// IncCrash records a non-zero process exit.
func IncCrash(id string) {
	if regOK.Load() {
		processCrashes.WithLabelValues(id).Inc()
	}
}

// SetRunningProcesses sets the current Running-state process count.
func SetRunningProcesses(n int) {
	if regOK.Load() {
		runningProcesses.Set(float64(n))
	}
}

// SetCurrentState records whether id is currently in status.
func SetCurrentState(id, status string, active bool) {
	if regOK.Load() {
		value := 0.0
		if active {
			value = 1
		}
		currentState.WithLabelValues(id, status).Set(value)
	}
}

// ObserveCommandDispatch records the handling latency for one dispatched
// command of the given kind.
func ObserveCommandDispatch(kind string, success bool, seconds float64) {
	if regOK.Load() {
		commandDispatchDuration.WithLabelValues(kind, successLabel(success)).Observe(seconds)
	}
}

func successLabel(success bool) string {
	if success {
		return "true"
	}
	return "false"
}
