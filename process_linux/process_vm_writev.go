//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"crashmem/process"

	"golang.org/x/sys/unix"
)

// process_vm_writev uses the process_vm_writev syscall to write memory to another process
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
	bytesToWrite process.ProcessMemorySize,
) (int, error) {
	// Create iovec for local buffer
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(len(localBuf)),
	}

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  int(bytesToWrite),
	}

	// Call process_vm_writev
	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	// ESRCH means the target exited; make that recognizable with errors.Is
	if errno == unix.ESRCH {
		return 0, fmt.Errorf("process_vm_writev: %w", process.ErrProcessNotFound)
	}

	if errno != 0 {
		return 0, fmt.Errorf("process_vm_writev failed: %s (errno: %d)", errno.Error(), errno)
	}

	return int(n), nil
}

// WriteMemory writes data to the process memory at the specified address
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	p.mu.Lock()

	if p.pid == 0 {
		p.mu.Unlock()
		return process.ErrProcessNotOpen
	}

	pid := p.pid

	if !p.isValidAddressInternal(addr) {
		p.mu.Unlock()
		return fmt.Errorf("address %s: %w", addr.ToString(), process.ErrAddressNotMapped)
	}

	// The whole write must land inside one writable region
	region, isWritable := p.getMemoryRegionForAddress(addr)

	// Release the lock before the system call
	p.mu.Unlock()

	if region == nil {
		return fmt.Errorf("address %s: %w", addr.ToString(), process.ErrAddressNotMapped)
	}

	if !isWritable {
		return fmt.Errorf("memory region at %s is not writable", addr.ToString())
	}

	if uint64(addr)+uint64(len(data)) > region.End() {
		return fmt.Errorf("write of %d bytes at %s crosses region end", len(data), addr.ToString())
	}

	size := process.ProcessMemorySize(len(data))

	// Copy so the caller can't mutate the buffer mid-syscall
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	written, err := process_vm_writev(
		pid,
		dataCopy,
		addr,
		size,
	)

	if err != nil {
		return fmt.Errorf("failed to write process memory: %w", err)
	}

	if written != len(data) {
		return fmt.Errorf("only wrote %d of %d bytes", written, len(data))
	}

	return nil
}
