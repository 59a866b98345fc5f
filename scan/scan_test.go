package scan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"crashmem/layout"
	"crashmem/process"
	"crashmem/process_image"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newImage returns an opened fake process with no regions
func newImage(t *testing.T) *process_image.Image {
	t.Helper()

	img := process_image.New(1234)
	require.NoError(t, img.Open(1234))
	return img
}

// addTableRegion installs a region at addr whose bytes are zeros with a
// valid table window at windowOff, and returns the slot 0 address.
func addTableRegion(t *testing.T, img *process_image.Image, addr uint64, size, windowOff int, overrides map[int]map[string]uint64) process.ProcessMemoryAddress {
	t.Helper()

	tbl := layout.Default()
	window := plausibleWindow(t, tbl, tbl.SlotsRequired, overrides)
	require.LessOrEqual(t, windowOff+len(window), size)

	img.AddRegion(addr, "rw-p", embed(size, windowOff, window))
	return process.ProcessMemoryAddress(addr + uint64(windowOff) + uint64(tbl.Lead))
}

func TestRegionsFastSubset(t *testing.T) {
	img := newImage(t)
	img.AddRegion(0x00400000, "r--p", make([]byte, 4096))
	img.AddRegion(0x08000000, "rw-p", make([]byte, 4096))
	img.AddRegion(0x09000000, "---p", make([]byte, 4096))

	s := New(layout.Default())

	full, err := s.Regions(img, false)
	require.NoError(t, err)
	fast, err := s.Regions(img, true)
	require.NoError(t, err)

	// The unreadable region never appears
	require.Len(t, full, 2)
	assert.Equal(t, uint64(0x00400000), full[0].Address)
	assert.Equal(t, uint64(0x08000000), full[1].Address)

	// Fast scan yields a subset of the full region set
	assert.LessOrEqual(t, len(fast), len(full))
	for _, r := range fast {
		assert.Contains(t, full, r)
		assert.GreaterOrEqual(t, r.Address, uint64(0x07000000))
	}
	require.Len(t, fast, 1)
	assert.Equal(t, uint64(0x08000000), fast[0].Address)
}

func TestCandidatesFindsTable(t *testing.T) {
	img := newImage(t)
	want := addTableRegion(t, img, 0x08000000, 4096, 256, nil)

	s := New(layout.Default())

	for _, fast := range []bool{true, false} {
		got, err := s.Candidates(context.Background(), img, fast)
		require.NoError(t, err, "fast=%v", fast)
		assert.Equal(t, []process.ProcessMemoryAddress{want}, got, "fast=%v", fast)
	}
}

func TestCandidatesAscendingUnique(t *testing.T) {
	img := newImage(t)
	a := addTableRegion(t, img, 0x08000000, 4096, 256, nil)
	b := addTableRegion(t, img, 0x0A000000, 4096, 512, nil)

	s := New(layout.Default())

	got, err := s.Candidates(context.Background(), img, true)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{a, b}, got)
}

func TestCandidatesChunkBoundary(t *testing.T) {
	img := newImage(t)
	want := addTableRegion(t, img, 0x08000000, 8192, 3500, nil)

	// Small chunks force the window across a chunk boundary; the
	// span-1 overlap must still surface it exactly once
	s := New(layout.Default(), WithChunkSize(4096))

	got, err := s.Candidates(context.Background(), img, true)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{want}, got)
}

// dyingProc simulates the target exiting mid-scan: after failAfter reads
// every further read fails and IsRunning flips to false.
type dyingProc struct {
	*process_image.Image
	failAfter int
	reads     int
}

func (p *dyingProc) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.reads++
	if p.reads > p.failAfter {
		p.SetRunning(false)
	}
	return p.Image.ReadMemory(addr, size)
}

func TestCandidatesAbortWhenProcessExits(t *testing.T) {
	img := newImage(t)
	img.AddRegion(0x08000000, "rw-p", make([]byte, 8192))

	s := New(layout.Default(), WithChunkSize(4096))

	_, err := s.Candidates(context.Background(), &dyingProc{Image: img, failAfter: 1}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrProcessNotFound)
}

// flakyProc fails every read at one address while the process stays alive
type flakyProc struct {
	*process_image.Image
	failAt process.ProcessMemoryAddress
}

func (p *flakyProc) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if addr == p.failAt {
		return nil, fmt.Errorf("chunk fault at %s", addr.ToString())
	}
	return p.Image.ReadMemory(addr, size)
}

func TestCandidatesSkipUnreadableChunk(t *testing.T) {
	img := newImage(t)
	want := addTableRegion(t, img, 0x08000000, 8192, 5800, nil)

	s := New(layout.Default(), WithChunkSize(4096))

	// First chunk of the region faults; the region walk continues and
	// still finds the window further in
	proc := &flakyProc{Image: img, failAt: 0x08000000}
	got, err := s.Candidates(context.Background(), proc, true)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{want}, got)
}

func TestCandidatesNothingReadable(t *testing.T) {
	img := newImage(t)
	img.AddRegion(0x08000000, "---p", make([]byte, 4096))

	s := New(layout.Default())

	_, err := s.Candidates(context.Background(), img, true)
	assert.ErrorIs(t, err, ErrNoCandidate, "fast pass defers to the fallback")

	_, err = s.Candidates(context.Background(), img, false)
	assert.ErrorIs(t, err, ErrNoReadableRegion, "full pass is the fatal form")
}

func TestCandidatesCanceled(t *testing.T) {
	img := newImage(t)
	addTableRegion(t, img, 0x08000000, 4096, 256, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(layout.Default()).Candidates(ctx, img, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocatePrefersLowestAddress(t *testing.T) {
	img := newImage(t)
	low := addTableRegion(t, img, 0x08000000, 4096, 256, nil)
	addTableRegion(t, img, 0x0A000000, 4096, 256, nil)

	s := New(layout.Default())

	got, err := s.Locate(context.Background(), img, true)
	require.NoError(t, err)
	assert.Equal(t, low, got)
}

func TestLocateSkipsInvalidCandidate(t *testing.T) {
	img := newImage(t)

	// The lower match carries an impossible Level, so only the higher
	// one validates
	addTableRegion(t, img, 0x08000000, 4096, 256, map[int]map[string]uint64{
		1: {layout.FieldLevel: 200},
	})
	want := addTableRegion(t, img, 0x0A000000, 4096, 256, nil)

	s := New(layout.Default())

	got, err := s.Locate(context.Background(), img, true)
	require.NoError(t, err)
	require.Equal(t, want, got)

	// Accepted base implies the whole window passes the range invariants
	tbl := layout.Default()
	buf, err := img.ReadMemory(got, process.ProcessMemorySize(tbl.WindowSize()))
	require.NoError(t, err)
	assert.NoError(t, tbl.ValidateWindow(buf))
}

func TestLocateNoCandidate(t *testing.T) {
	img := newImage(t)
	img.AddRegion(0x08000000, "rw-p", make([]byte, 4096))

	s := New(layout.Default())

	_, err := s.Locate(context.Background(), img, false)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestValidateReportsField(t *testing.T) {
	img := newImage(t)
	base := addTableRegion(t, img, 0x08000000, 4096, 256, map[int]map[string]uint64{
		2: {layout.FieldStrength: 26},
	})

	s := New(layout.Default())

	err := s.Validate(img, base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Strength")
}
