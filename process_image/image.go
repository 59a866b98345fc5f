// Package process_image provides an in-memory process.Process backed by
// synthetic memory regions. Tests use it to exercise scanning, validation
// and field edits without a live target.
package process_image

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"crashmem/process"
	"crashmem/process/memory_map"
)

type imageRegion struct {
	item memory_map.MemoryMapItem
	data []byte
}

// Image is a fake process whose address space is whatever regions the
// caller installed. Reads and writes are counted so tests can assert on
// scan effort and on writes that must not happen.
type Image struct {
	mu      sync.Mutex
	pid     process.ProcessID
	open    bool
	running bool
	regions []*imageRegion

	readCalls  int
	writeCalls int
}

var _ process.Process = (*Image)(nil)

// New creates an Image that behaves like a running process with no regions
func New(pid process.ProcessID) *Image {
	return &Image{
		pid:     pid,
		running: true,
	}
}

// AddRegion installs a region at addr with the given perms ("rw-p" style).
// The region owns data; later writes through WriteMemory mutate it.
func (im *Image) AddRegion(addr uint64, perms string, data []byte) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.regions = append(im.regions, &imageRegion{
		item: memory_map.MemoryMapItem{
			Address:   addr,
			Size:      uint(len(data)),
			Perms:     perms,
			Committed: true,
		},
		data: data,
	})
	sort.Slice(im.regions, func(i, j int) bool {
		return im.regions[i].item.Address < im.regions[j].item.Address
	})
}

// SetRunning simulates process exit (false) or restart (true)
func (im *Image) SetRunning(running bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.running = running
}

// Running reports the simulated-exit flag on its own, unlike IsRunning
// which also requires the handle to be open
func (im *Image) Running() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.running
}

// ReadCalls returns the number of ReadMemory calls served so far
func (im *Image) ReadCalls() int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.readCalls
}

// WriteCalls returns the number of WriteMemory calls attempted so far
func (im *Image) WriteCalls() int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.writeCalls
}

// RegionBytes returns a copy of the raw bytes of the region at addr,
// so tests can assert memory was or was not modified.
func (im *Image) RegionBytes(addr uint64) []byte {
	im.mu.Lock()
	defer im.mu.Unlock()

	for _, r := range im.regions {
		if r.item.Address == addr {
			out := make([]byte, len(r.data))
			copy(out, r.data)
			return out
		}
	}
	return nil
}

func (im *Image) Open(pid process.ProcessID) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if !im.running {
		return fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
	}
	im.pid = pid
	im.open = true
	return nil
}

func (im *Image) Close() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.open = false
	return nil
}

func (im *Image) GetPID() process.ProcessID {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.pid
}

func (im *Image) IsRunning() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.open && im.running
}

func (im *Image) UpdateMemoryMap() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if !im.open {
		return process.ErrProcessNotOpen
	}
	if !im.running {
		return fmt.Errorf("pid %d: %w", im.pid, process.ErrProcessNotFound)
	}
	return nil
}

func (im *Image) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	im.mu.Lock()
	defer im.mu.Unlock()

	r := im.regionFor(uint64(addr))
	return r != nil && r.item.IsReadable()
}

func (im *Image) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if !im.open {
		return nil, process.ErrProcessNotOpen
	}

	out := make([]memory_map.MemoryMapItem, 0, len(im.regions))
	for _, r := range im.regions {
		out = append(out, r.item)
	}
	return out, nil
}

func (im *Image) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.readCalls++

	if !im.open {
		return nil, process.ErrProcessNotOpen
	}
	if !im.running {
		return nil, fmt.Errorf("read at %s: %w", addr.ToString(), process.ErrProcessNotFound)
	}

	r := im.regionFor(uint64(addr))
	if r == nil {
		return nil, process.ErrAddressNotMapped
	}
	if !r.item.IsReadable() {
		return nil, fmt.Errorf("read at %s: region not readable", addr.ToString())
	}

	offset := uint64(addr) - r.item.Address
	if offset+uint64(size) > uint64(len(r.data)) {
		return nil, fmt.Errorf("partial read at %s: %w", addr.ToString(), process.ErrAddressNotMapped)
	}

	out := make([]byte, size)
	copy(out, r.data[offset:offset+uint64(size)])
	return out, nil
}

func (im *Image) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.writeCalls++

	if !im.open {
		return process.ErrProcessNotOpen
	}
	if !im.running {
		return fmt.Errorf("write at %s: %w", addr.ToString(), process.ErrProcessNotFound)
	}

	r := im.regionFor(uint64(addr))
	if r == nil {
		return process.ErrAddressNotMapped
	}
	if !r.item.IsWritable() {
		return fmt.Errorf("write at %s: region not writable", addr.ToString())
	}

	offset := uint64(addr) - r.item.Address
	if offset+uint64(len(data)) > uint64(len(r.data)) {
		return fmt.Errorf("write of %d bytes at %s crosses region end", len(data), addr.ToString())
	}

	copy(r.data[offset:], data)
	return nil
}

// ReadUINT8 reads an unsigned 8-bit integer from the specified address
func (im *Image) ReadUINT8(addr process.ProcessMemoryAddress) (uint8, error) {
	data, err := im.ReadMemory(addr, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// ReadUINT16 reads an unsigned 16-bit little-endian integer from the specified address
func (im *Image) ReadUINT16(addr process.ProcessMemoryAddress) (uint16, error) {
	data, err := im.ReadMemory(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

// ReadUINT32 reads an unsigned 32-bit little-endian integer from the specified address
func (im *Image) ReadUINT32(addr process.ProcessMemoryAddress) (uint32, error) {
	data, err := im.ReadMemory(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// ReadUINT64 reads an unsigned 64-bit little-endian integer from the specified address
func (im *Image) ReadUINT64(addr process.ProcessMemoryAddress) (uint64, error) {
	data, err := im.ReadMemory(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

// regionFor assumes the mutex is held
func (im *Image) regionFor(addr uint64) *imageRegion {
	for _, r := range im.regions {
		if addr >= r.item.Address && addr < r.item.End() {
			return r
		}
	}
	return nil
}
