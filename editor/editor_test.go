package editor

import (
	"context"
	"testing"
	"time"

	"crashmem/config"
	"crashmem/layout"
	"crashmem/process"
	"crashmem/process_image"
	"crashmem/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AttachRetry = config.Duration(5 * time.Millisecond)
	cfg.ScanDelay = 0
	cfg.ChunkSize = 4096
	return cfg
}

// validWindow builds lead zeros plus four slots that pass every field
// invariant. overrides maps slot index to field values applied on top.
func validWindow(t *testing.T, overrides map[int]map[string]uint64) []byte {
	t.Helper()

	tbl := layout.Default()
	buf := make([]byte, tbl.Lead+uint(tbl.SlotsRequired)*tbl.Stride)
	for i := 0; i < tbl.SlotsRequired; i++ {
		slot := buf[tbl.Lead+uint(i)*tbl.Stride : tbl.Lead+uint(i+1)*tbl.Stride]

		set := func(name string, v uint64) {
			f, ok := tbl.FieldByName(name)
			require.True(t, ok, "field %s", name)
			copy(slot[f.Offset:], f.Encode(v))
		}

		set(layout.FieldUnlocked, layout.FlagPresent)
		set(layout.FieldLevel, 1)
		for name, v := range overrides[i] {
			set(name, v)
		}
	}
	return buf
}

// starterOverrides is the slot 0 shape several tests read back
var starterOverrides = map[int]map[string]uint64{
	0: {
		layout.FieldLevel:    42,
		layout.FieldStrength: 10,
		layout.FieldDefense:  10,
		layout.FieldMagic:    10,
		layout.FieldAgility:  10,
	},
}

// addTable installs a region holding a valid window at windowOff and
// returns the slot 0 address
func addTable(t *testing.T, img *process_image.Image, addr uint64, size, windowOff int, overrides map[int]map[string]uint64) process.ProcessMemoryAddress {
	t.Helper()

	window := validWindow(t, overrides)
	require.LessOrEqual(t, windowOff+len(window), size)

	buf := make([]byte, size)
	copy(buf[windowOff:], window)
	img.AddRegion(addr, "rw-p", buf)

	return process.ProcessMemoryAddress(addr + uint64(windowOff) + uint64(layout.Default().Lead))
}

type rig struct {
	img    *process_image.Image
	ed     *Editor
	events chan StateEvent
}

// startRig runs an editor against the given opener until test cleanup
func startRig(t *testing.T, cfg config.Config, img *process_image.Image, opener process.Opener) *rig {
	t.Helper()

	ed := New(cfg, opener)
	events := make(chan StateEvent, 256)
	ed.OnStateChange(func(ev StateEvent) { events <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ed.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("run loop did not stop")
		}
	})

	return &rig{img: img, ed: ed, events: events}
}

// waitFor consumes events until one lands in the wanted state, returning
// everything consumed on the way (the target event last)
func (r *rig) waitFor(t *testing.T, to State) []StateEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	var seen []StateEvent
	for {
		select {
		case ev := <-r.events:
			seen = append(seen, ev)
			if ev.To == to {
				return seen
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s, saw %v", to, seen)
		}
	}
}

// quiet asserts no transition into the given state arrives for a while
func (r *rig) quiet(t *testing.T, to State, d time.Duration) {
	t.Helper()

	deadline := time.After(d)
	for {
		select {
		case ev := <-r.events:
			if ev.To == to {
				t.Fatalf("unexpected transition to %s: %+v", to, ev)
			}
		case <-deadline:
			return
		}
	}
}

func startReady(t *testing.T, overrides map[int]map[string]uint64) *rig {
	t.Helper()

	img := process_image.New(4242)
	addTable(t, img, 0x08000000, 16384, 256, overrides)

	r := startRig(t, testConfig(), img, process_image.NewOpener("castle.exe", img))
	r.waitFor(t, StateReady)
	return r
}

func TestAttachRetriesUntilProcessAppears(t *testing.T) {
	img := process_image.New(4242)
	addTable(t, img, 0x08000000, 16384, 256, nil)
	img.SetRunning(false)

	r := startRig(t, testConfig(), img, process_image.NewOpener("castle.exe", img))

	r.waitFor(t, StateAttaching)

	// The process does not exist yet; the machine keeps retrying
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, StateAttaching, r.ed.State())

	img.SetRunning(true)
	r.waitFor(t, StateScanning)
	r.waitFor(t, StateReady)
	assert.NotEmpty(t, r.ed.Session())
}

func TestFastScanFallsBackToFullScan(t *testing.T) {
	img := process_image.New(4242)

	// The whole table sits below the fast-scan threshold
	base := addTable(t, img, 0x00400000, 16384, 256, starterOverrides)
	require.Less(t, uint64(base), uint64(0x07000000))

	r := startRig(t, testConfig(), img, process_image.NewOpener("castle.exe", img))

	seen := r.waitFor(t, StateReady)

	var fellBack bool
	for _, ev := range seen {
		if ev.To == StateScanning && ev.Err != nil {
			assert.ErrorIs(t, ev.Err, scan.ErrNoCandidate)
			fellBack = true
		}
	}
	assert.True(t, fellBack, "expected a fallback full-scan transition")

	v, err := r.ed.ReadField(0, "Level")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	v, err = r.ed.ReadField(0, "Strength")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), v)
}

func TestWriteFieldRangePolicy(t *testing.T) {
	r := startReady(t, starterOverrides)

	writesBefore := r.img.WriteCalls()

	// Out of range: rejected before any memory write
	err := r.ed.WriteField(0, "Level", 150)
	require.ErrorIs(t, err, ErrFieldOutOfRange)
	assert.Equal(t, writesBefore, r.img.WriteCalls())

	v, err := r.ed.ReadField(0, "Level")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v, "slot unchanged after rejected write")

	// In range: written and readable back
	require.NoError(t, r.ed.WriteField(0, "Level", 50))
	v, err = r.ed.ReadField(0, "Level")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), v)
}

func TestWriteFieldCaseInsensitiveName(t *testing.T) {
	r := startReady(t, starterOverrides)

	require.NoError(t, r.ed.WriteField(0, "level", 50))
	v, err := r.ed.ReadField(0, "LEVEL")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), v)
}

func TestWriteAfterProcessExit(t *testing.T) {
	img := process_image.New(4242)
	addTable(t, img, 0x08000000, 16384, 256, starterOverrides)

	// A slow health tick keeps the write call, not the watch loop, the
	// first to notice the exit
	cfg := testConfig()
	cfg.AttachRetry = config.Duration(100 * time.Millisecond)

	r := startRig(t, cfg, img, process_image.NewOpener("castle.exe", img))
	r.waitFor(t, StateReady)

	writesBefore := r.img.WriteCalls()
	r.img.SetRunning(false)

	err := r.ed.WriteField(0, "Level", 50)
	require.ErrorIs(t, err, ErrStaleHandle)
	assert.Equal(t, writesBefore, r.img.WriteCalls(), "no write against a dead process")

	r.waitFor(t, StateStale)
	r.waitFor(t, StateAttaching)

	// Further accessor calls fail fast until the machine recovers
	_, err = r.ed.ReadField(0, "Level")
	require.Error(t, err)

	// The process comes back and the machine works its way to Ready
	r.img.SetRunning(true)
	r.waitFor(t, StateReady)

	v, err := r.ed.ReadField(0, "Level")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)
}

func TestHealthCheckDetectsExit(t *testing.T) {
	r := startReady(t, starterOverrides)

	// No accessor call; the watch loop's periodic probe must notice
	r.img.SetRunning(false)
	r.waitFor(t, StateStale)
	r.waitFor(t, StateAttaching)
}

// gatedProc blocks every raw read until the gate is closed, holding the
// scanner mid-pass
type gatedProc struct {
	process.Process
	gate chan struct{}
}

func (p *gatedProc) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	<-p.gate
	return p.Process.ReadMemory(addr, size)
}

type procOpener struct {
	proc process.Process
}

func (o procOpener) OpenByName(string) (process.Process, error) {
	return o.proc, nil
}

func (o procOpener) OpenByPID(process.ProcessID) (process.Process, error) {
	return o.proc, nil
}

func TestRescanCoalescedWhileScanning(t *testing.T) {
	img := process_image.New(4242)
	addTable(t, img, 0x08000000, 16384, 256, nil)
	require.NoError(t, img.Open(4242))

	gate := make(chan struct{})
	proc := &gatedProc{Process: img, gate: gate}

	r := startRig(t, testConfig(), img, procOpener{proc: proc})
	r.waitFor(t, StateScanning)

	// The pass is stuck on its first read; rescan requests while a scan
	// is in flight are no-ops, not queued
	r.ed.Rescan()
	r.ed.Rescan()

	close(gate)
	r.waitFor(t, StateReady)

	// No second scan follows the coalesced requests
	r.quiet(t, StateScanning, 50*time.Millisecond)
	assert.Equal(t, StateReady, r.ed.State())
}

func TestRescanFromReady(t *testing.T) {
	r := startReady(t, nil)

	r.ed.Rescan()
	seen := r.waitFor(t, StateReady)

	var scans int
	for _, ev := range seen {
		if ev.To == StateScanning {
			scans++
		}
	}
	assert.Equal(t, 1, scans, "one rescan round")
}

func TestAccessorBeforeReady(t *testing.T) {
	img := process_image.New(4242)
	ed := New(testConfig(), process_image.NewOpener("castle.exe", img))

	_, err := ed.ReadField(0, "Level")
	assert.ErrorIs(t, err, ErrNotReady)

	err = ed.WriteField(0, "Level", 50)
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = ed.ListCharacters()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestAccessorRejectsBadArguments(t *testing.T) {
	r := startReady(t, nil)

	_, err := r.ed.ReadField(0, "Charisma")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = r.ed.ReadField(99, "Level")
	assert.ErrorIs(t, err, ErrSlotIndex)

	err = r.ed.WriteField(-1, "Level", 50)
	assert.ErrorIs(t, err, ErrSlotIndex)

	err = r.ed.WriteField(0, "Unlocked", 0x40)
	assert.ErrorIs(t, err, ErrFieldOutOfRange)
}

func TestListCharacters(t *testing.T) {
	tbl := layout.Default()

	img := process_image.New(4242)
	buf := make([]byte, 16384)
	window := validWindow(t, starterOverrides)
	copy(buf[256:], window)

	// Slots 4 and 5 stay zero (locked); slot 6 carries a torn flag byte
	// that ends the walk
	base := 256 + int(tbl.Lead)
	buf[base+6*int(tbl.Stride)] = 0x55
	img.AddRegion(0x08000000, "rw-p", buf)

	r := startRig(t, testConfig(), img, process_image.NewOpener("castle.exe", img))
	r.waitFor(t, StateReady)

	views, err := r.ed.ListCharacters()
	require.NoError(t, err)
	require.Len(t, views, 6)

	assert.Equal(t, "Green Knight", views[0].Name)
	assert.True(t, views[0].Unlocked)
	assert.Equal(t, uint64(42), views[0].Fields[layout.FieldLevel])
	assert.Equal(t, process.ProcessMemoryAddress(0x08000000+uint64(base)), views[0].Address)

	assert.Equal(t, "Gray Knight", views[4].Name)
	assert.False(t, views[4].Unlocked)
}

func TestWriteProgressCascade(t *testing.T) {
	r := startReady(t, nil)

	require.NoError(t, r.ed.WriteProgress(0, false, 10))

	want := map[string]uint64{
		layout.FieldNormalProgress0: 0xFF,
		layout.FieldNormalProgress1: 0x07,
		layout.FieldNormalProgress2: 0x00,
	}
	for name, v := range want {
		got, err := r.ed.ReadField(0, name)
		require.NoError(t, err)
		assert.Equal(t, v, got, name)
	}
}

func TestReadSlotBytes(t *testing.T) {
	r := startReady(t, starterOverrides)

	addr, data, err := r.ed.ReadSlotBytes(0)
	require.NoError(t, err)
	assert.Len(t, data, int(layout.Default().Stride))
	assert.EqualValues(t, layout.FlagPresent, data[0])
	assert.NotZero(t, addr)

	_, _, err = r.ed.ReadSlotBytes(500)
	assert.ErrorIs(t, err, ErrSlotIndex)
}
