// Package process provides the types and interfaces for attaching to a
// target process and reading or writing its memory.
package process

import "errors"

// The types and interfaces are defined in:
// - types.go: ProcessID, ProcessInfo
// - process_state.go: ProcessState constants
// - memory_types.go: ProcessMemoryAddress, ProcessMemorySize, AOB
// - process_interface.go: Process interface
// - opener.go: Opener interface

var (
	// ErrProcessNotFound is returned when no running process matches the
	// requested name or PID.
	ErrProcessNotFound = errors.New("process not found")

	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")
)
