//go:build linux

package process_linux

import (
	"fmt"

	"crashmem/process"
)

// Helper implements the process.Opener interface for Linux
type Helper struct{}

// NewHelper creates a new Helper
func NewHelper() process.Opener {
	return &Helper{}
}

// OpenByName opens the process with the given name, lowest PID first
func (h *Helper) OpenByName(name string) (process.Process, error) {
	found, err := OneByName(name)
	if err != nil {
		return nil, err
	}

	p, err := NewWithPID(found.PID)
	if err != nil {
		return nil, fmt.Errorf("open %q (pid %d): %w", name, found.PID, err)
	}
	return p, nil
}

// OpenByPID opens the process with the given PID
func (h *Helper) OpenByPID(pid process.ProcessID) (process.Process, error) {
	return NewWithPID(pid)
}
