//go:build windows

package memory_map

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// WindowsMemoryMap implements MemoryMap for Windows
type WindowsMemoryMap struct{}

// NewWindowsMemoryMap creates a new WindowsMemoryMap instance
func NewWindowsMemoryMap() *WindowsMemoryMap {
	return &WindowsMemoryMap{}
}

// ReadMemoryMap walks the process address space with VirtualQueryEx
func (w *WindowsMemoryMap) ReadMemoryMap(pid int) ([]MemoryMapItem, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess(%d) failed: %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	var memoryMap []MemoryMapItem
	var mbi windows.MemoryBasicInformation

	for addr := uintptr(0); ; {
		err := windows.VirtualQueryEx(handle, addr, &mbi, unsafe.Sizeof(mbi))
		if err != nil {
			// Query fails once we walk past the end of user space
			break
		}

		memoryMap = append(memoryMap, MemoryMapItem{
			Address:   uint64(mbi.BaseAddress),
			Size:      uint(mbi.RegionSize),
			Perms:     protectPerms(mbi.Protect),
			Committed: mbi.State == windows.MEM_COMMIT,
		})

		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			// Address overflow guard
			break
		}
		addr = next
	}

	return memoryMap, nil
}

// protectPerms maps a PAGE_* protection value onto the rwx perms string
// used by the rest of the memory map code.
func protectPerms(protect uint32) string {
	if protect&windows.PAGE_GUARD != 0 {
		// Touching a guard page raises an exception in the target
		return "---"
	}

	switch protect &^ (windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READONLY:
		return "r--"
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		return "rw-"
	case windows.PAGE_EXECUTE:
		return "--x"
	case windows.PAGE_EXECUTE_READ:
		return "r-x"
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return "rwx"
	default:
		return "---"
	}
}
