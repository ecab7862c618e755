package ports

// ZombieReaper reaps exited child processes when running as PID 1, where no
// parent init exists to do it automatically.
type ZombieReaper interface {
	// Start begins the background reaping loop.
	Start()

	// Stop stops the reaping loop, performing a final reap before returning.
	Stop()

	// ReapOnce performs a single non-blocking reap pass and returns the
	// number of processes reaped.
	ReapOnce() int

	// IsPID1 reports whether the current process is running as PID 1.
	IsPID1() bool
}
