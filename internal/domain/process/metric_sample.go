package process

import "time"

// MetricSample is a point-in-time resource reading for a running process,
// produced by HealthMonitor and attached to RuntimeState.LastMetrics.
type MetricSample struct {
	Timestamp   time.Time
	CPUPercent  float64
	MemoryRSS   uint64
	ThreadCount int32
	HandleCount int32
}
