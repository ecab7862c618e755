package process

// Spec is the flattened set of fields an Executor needs to spawn a process.
// It is derived from a Descriptor via ToSpec rather than stored directly,
// keeping the Executor port decoupled from the registry's richer metadata.
type Spec struct {
	// Command is the executable path or name resolved against PATH.
	Command string
	// Args are the command-line arguments passed to Command.
	Args []string
	// Dir is the working directory; empty means inherit the supervisor's.
	Dir string
	// Env holds additional "KEY=VALUE" entries appended to the supervisor's
	// own environment.
	Env []string
	// User, when non-empty, is the OS user the child is spawned as.
	User string
	// Group, when non-empty, is the OS group the child is spawned as.
	Group string
}

// ToSpec projects a Descriptor into the Spec shape consumed by Executor.
//
// Returns:
//   - Spec: the flattened executor input.
func (d Descriptor) ToSpec() Spec {
	return Spec{
		Command: d.ExecutablePath,
		Args:    d.Arguments,
		Dir:     d.WorkingDirectory,
		Env:     d.Environment,
	}
}
