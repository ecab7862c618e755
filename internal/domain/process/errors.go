package process

import "errors"

// Sentinel errors for process lifecycle and registry operations. Callers
// should use errors.Is against these; infrastructure adapters wrap them
// with fmt.Errorf("...: %w", ...) to add context.
var (
	// ErrNotFound is returned when a descriptor or handle does not exist
	// in the registry.
	ErrNotFound = errors.New("process: not found")

	// ErrAlreadyExists is returned by Register when a descriptor with the
	// same ID is already registered.
	ErrAlreadyExists = errors.New("process: already exists")

	// ErrInvalidArgument is returned when a descriptor fails Validate, or a
	// command carries malformed parameters.
	ErrInvalidArgument = errors.New("process: invalid argument")

	// ErrAlreadyRunning is returned by Start when the handle is already in
	// an active status (Starting or Running).
	ErrAlreadyRunning = errors.New("process: already running")

	// ErrNotRunning reports that a handle is in a terminal status. Handle.Stop
	// does not return it: stopping a terminal handle is a no-op returning nil.
	ErrNotRunning = errors.New("process: not running")

	// ErrStartFailed is returned when the Executor could not spawn the
	// process (binary missing, permission denied, exec failure).
	ErrStartFailed = errors.New("process: start failed")

	// ErrStopTimeout is returned when a graceful stop did not complete
	// within the configured grace period and a forced kill was required.
	ErrStopTimeout = errors.New("process: stop timed out")

	// ErrCrashed is returned when an operation is attempted against a
	// handle that exited with a non-zero code and exhausted its restarts.
	ErrCrashed = errors.New("process: crashed")

	// ErrMaxRetriesExceeded names the condition where the policy's
	// MaxRestartAttempts has been reached within the cooldown window.
	// RestartTracker reports it as a bool (ShouldRestart, IsExhausted) and
	// does not return this error.
	ErrMaxRetriesExceeded = errors.New("process: max restart attempts exceeded")

	// ErrInvalidTransition is returned when a state transition violates the
	// process state machine.
	ErrInvalidTransition = errors.New("process: invalid state transition")
)
