package process

import (
	"fmt"

	"github.com/kodflow/supervizio/internal/domain/shared"
)

// Metadata carries free-form identification attached to a ProcessDescriptor.
// None of these fields affect scheduling; they exist for operators and for
// the status surface returned by ProcessManager.GetAll.
type Metadata struct {
	Name          string            `json:"name" yaml:"name"`
	Type          string            `json:"type" yaml:"type"`
	Version       string            `json:"version" yaml:"version"`
	Environment   string            `json:"environment" yaml:"environment"`
	Configuration map[string]string `json:"configuration,omitempty" yaml:"configuration,omitempty"`
}

// Policy captures the restart and health-threshold behavior for a process.
type Policy struct {
	// AutoRestart, when true, means the supervisor re-spawns the process on
	// Failed or Crashed after RestartDelay, subject to MaxRestartAttempts
	// and RestartCooldown.
	AutoRestart bool `json:"auto_restart" yaml:"auto_restart"`

	// RestartDelay is the delay ProcessManager waits after a crash event
	// before restarting. RestartTracker.NextDelay derives a doubling
	// (exponential backoff) delay from it, capped at 10x; no caller in the
	// daemon uses NextDelay.
	RestartDelay shared.Duration `json:"restart_delay_ms" yaml:"restart_delay_ms"`

	// MaxRestartAttempts bounds the number of consecutive restart attempts
	// within one RestartCooldown window before the process is left Crashed
	// and no further attempts are made. Zero means unlimited for
	// RestartTracker; HealthMonitor treats zero as its default of 3.
	MaxRestartAttempts int `json:"max_restart_attempts" yaml:"max_restart_attempts"`

	// RestartCooldown is the window of sustained Running time after which
	// the consecutive-attempt counter resets to zero.
	RestartCooldown shared.Duration `json:"restart_cooldown" yaml:"restart_cooldown"`

	// CPUWarnPercent, when non-zero, is the CPU utilization percentage above
	// which HealthMonitor transitions the process to StatusWarning.
	CPUWarnPercent float64 `json:"cpu_warn_pct" yaml:"cpu_warn_pct"`

	// MemWarnBytes, when non-zero, is the resident memory threshold above
	// which HealthMonitor transitions the process to StatusWarning.
	MemWarnBytes uint64 `json:"mem_warn_bytes" yaml:"mem_warn_bytes"`
}

// DefaultPolicy returns the policy applied when a descriptor omits one.
//
// Returns:
//   - Policy: auto-restart enabled, 1s base delay, 5 attempts, 60s cooldown.
func DefaultPolicy() Policy {
	return Policy{
		AutoRestart:        true,
		RestartDelay:       shared.Seconds(1),
		MaxRestartAttempts: 5,
		RestartCooldown:    shared.Seconds(60),
	}
}

// Descriptor is the immutable registration record for a supervised process:
// everything ProcessManager needs to spawn it, independent of runtime state.
type Descriptor struct {
	ID               string   `json:"id" yaml:"id"`
	Metadata         Metadata `json:"metadata" yaml:"metadata"`
	ExecutablePath   string   `json:"executable_path" yaml:"executable_path"`
	Arguments        []string `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	WorkingDirectory string   `json:"working_directory,omitempty" yaml:"working_directory,omitempty"`
	Environment      []string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Policy           Policy   `json:"policy" yaml:"policy"`
}

// Validate checks that the descriptor can be handed to an Executor.
//
// Returns:
//   - error: ErrInvalidArgument wrapping the first violation found, nil if valid.
func (d Descriptor) Validate() error {
	// ID and executable are the two fields spec.md §4.2 names explicitly;
	// name is kept as a third practical requirement since an Executor still
	// needs something human-readable to log against.
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	if d.Metadata.Name == "" {
		return fmt.Errorf("%w: metadata.name is required", ErrInvalidArgument)
	}
	if d.ExecutablePath == "" {
		return fmt.Errorf("%w: executable_path is required", ErrInvalidArgument)
	}
	if d.Policy.MaxRestartAttempts < 0 {
		return fmt.Errorf("%w: policy.max_restart_attempts cannot be negative", ErrInvalidArgument)
	}
	return nil
}
