//go:build linux

package process_linux

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"crashmem/process"
)

// FindByPID returns process details for a PID, read from /proc
func FindByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	procPath := fmt.Sprintf("/proc/%d", pid)

	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
	}

	return getProcessInfo(pid)
}

// Helper function to get process information
func getProcessInfo(pid process.ProcessID) (*process.ProcessInfo, error) {
	procPath := fmt.Sprintf("/proc/%d", pid)

	// Read process name from /proc/<pid>/comm
	nameBytes, err := os.ReadFile(filepath.Join(procPath, "comm"))
	if err != nil {
		return nil, fmt.Errorf("failed to read process name: %w", err)
	}
	name := strings.TrimSpace(string(nameBytes))

	// Read executable path from /proc/<pid>/exe symlink
	exe, err := os.Readlink(filepath.Join(procPath, "exe"))
	if err != nil {
		// Some processes don't have an exe (e.g., kernel threads)
		exe = ""
	}

	// Read the command line from /proc/<pid>/cmdline
	cmdlineBytes, err := os.ReadFile(filepath.Join(procPath, "cmdline"))
	if err != nil {
		return nil, fmt.Errorf("failed to read process cmdline: %w", err)
	}

	// Split the command line on NULL bytes
	var cmdline []string
	if len(cmdlineBytes) > 0 {
		// Remove the trailing NULL byte
		if cmdlineBytes[len(cmdlineBytes)-1] == 0 {
			cmdlineBytes = cmdlineBytes[:len(cmdlineBytes)-1]
		}

		for _, arg := range bytes.Split(cmdlineBytes, []byte{0}) {
			cmdline = append(cmdline, string(arg))
		}
	}

	// Get process status from /proc/<pid>/status
	var (
		ppid    process.ProcessID
		state   process.ProcessState
		threads int
		memory  uint64
	)

	statusBytes, err := os.ReadFile(filepath.Join(procPath, "status"))
	if err == nil {
		statusLines := strings.Split(string(statusBytes), "\n")
		for _, line := range statusLines {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			switch key {
			case "PPid":
				if ppidVal, err := strconv.Atoi(value); err == nil {
					ppid = process.ProcessID(ppidVal)
				}
			case "State":
				if len(value) > 0 {
					state = process.ProcessState(value[0:1]) // First character is the state code
				}
			case "Threads":
				if threadsVal, err := strconv.Atoi(value); err == nil {
					threads = threadsVal
				}
			case "VmRSS":
				// Extract memory usage (format: "1234 kB")
				memParts := strings.Fields(value)
				if len(memParts) >= 1 {
					if memVal, err := strconv.ParseUint(memParts[0], 10, 64); err == nil {
						if len(memParts) > 1 && memParts[1] == "kB" {
							memory = memVal * 1024 // Convert kB to bytes
						} else {
							memory = memVal
						}
					}
				}
			}
		}
	}

	return &process.ProcessInfo{
		PID:     pid,
		PPID:    ppid,
		Name:    name,
		Exe:     exe,
		Cmdline: cmdline,
		State:   state,
		Threads: threads,
		Memory:  memory,
	}, nil
}
