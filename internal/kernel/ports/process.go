package ports

import "os/exec"

// ProcessControl manages process-group-level OS operations.
type ProcessControl interface {
	// SetProcessGroup configures cmd to run in its own process group, so the
	// whole tree can be signaled at once.
	SetProcessGroup(cmd *exec.Cmd)

	// GetProcessGroup returns the process group ID for pid.
	GetProcessGroup(pid int) (int, error)
}
