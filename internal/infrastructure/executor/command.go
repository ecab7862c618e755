//go:build unix

package executor

import (
	"context"
	"os/exec"
)

// TrustedCommand wraps exec.CommandContext for admin-controlled process
// descriptors loaded from configuration, not arbitrary user input.
//
// nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
// nosemgrep: go_subproc_rule-subproc
func TrustedCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
