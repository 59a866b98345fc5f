package process

// Opener locates and opens a target process for an attach session.
// Implementations resolve a process name to a PID and return an opened
// Process; when several processes share the name the lowest PID wins so
// repeated attaches are deterministic.
type Opener interface {
	// OpenByName opens the process with the given name.
	// Returns ErrProcessNotFound when nothing matches.
	OpenByName(name string) (Process, error)

	// OpenByPID opens the process with the given PID.
	OpenByPID(pid ProcessID) (Process, error)
}
