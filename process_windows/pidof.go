//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"crashmem/process"

	"golang.org/x/sys/windows"
)

// FoundProcess is one name-discovery result
type FoundProcess struct {
	PID  process.ProcessID
	Name string
}

// ListByName returns all processes whose executable name matches name,
// compared case-insensitively the way Windows treats file names.
func ListByName(name string) ([]*FoundProcess, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot failed: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var out []*FoundProcess

	err = windows.Process32First(snapshot, &entry)
	for err == nil {
		exe := windows.UTF16ToString(entry.ExeFile[:])
		if strings.EqualFold(exe, name) {
			out = append(out, &FoundProcess{
				PID:  process.ProcessID(entry.ProcessID),
				Name: exe,
			})
		}
		err = windows.Process32Next(snapshot, &entry)
	}

	return out, nil
}

// OneByName returns the match with the lowest PID, or ErrProcessNotFound if none.
// Lowest PID keeps repeated attaches deterministic when several processes share the name.
func OneByName(name string) (*FoundProcess, error) {
	ps, err := ListByName(name)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, fmt.Errorf("%q: %w", name, process.ErrProcessNotFound)
	}
	minIdx := 0
	for i := 1; i < len(ps); i++ {
		if ps[i].PID < ps[minIdx].PID {
			minIdx = i
		}
	}
	return ps[minIdx], nil
}
