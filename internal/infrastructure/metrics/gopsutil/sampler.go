// Package gopsutil implements health.Sampler on top of
// github.com/shirou/gopsutil/v4, the cross-platform process/CPU/memory
// inspection library.
package gopsutil

import (
	"context"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Sampler samples CPU% and resident memory for a PID using gopsutil.
type Sampler struct{}

// New returns a ready-to-use gopsutil-backed Sampler.
//
// Returns:
//   - *Sampler: a stateless sampler safe for concurrent use.
func New() *Sampler {
	return &Sampler{}
}

// Sample implements health.Sampler.
//
// Returns:
//   - float64, uint64, int32, int32, error: CPU percent (0-100*cores), RSS
//     bytes, thread count, open file-handle count, or an error if the
//     process could not be inspected (e.g. already exited).
func (s *Sampler) Sample(ctx context.Context, pid int) (float64, uint64, int32, int32, error) {
	proc, err := gopsproc.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return 0, 0, 0, 0, err
	}

	cpuPct, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	threads, err := proc.NumThreadsWithContext(ctx)
	if err != nil {
		threads = 0
	}

	// NumFDs is Unix-only in gopsutil's sense of "open file handles"; a
	// failure here (e.g. unsupported platform) is not fatal to the sample.
	fds, err := proc.NumFDsWithContext(ctx)
	if err != nil {
		fds = 0
	}

	return cpuPct, memInfo.RSS, threads, fds, nil
}
