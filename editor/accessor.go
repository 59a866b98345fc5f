package editor

import (
	"errors"
	"fmt"

	"crashmem/layout"
	"crashmem/process"
)

// CharacterView is a read-only snapshot of one character slot. It is
// stale the moment the process mutates its memory; re-fetch instead of
// assuming it is current.
type CharacterView struct {
	Index    int
	Name     string
	Address  process.ProcessMemoryAddress
	Unlocked bool
	Fields   map[string]uint64
}

// borrow returns the session's handle and base for one accessor call.
// Fails fast outside Ready so callers never see stale data.
func (e *Editor) borrow() (process.Process, process.ProcessMemoryAddress, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateReady:
		return e.proc, e.base, nil
	case StateStale:
		return nil, 0, ErrStaleHandle
	default:
		return nil, 0, fmt.Errorf("state %s: %w", e.state, ErrNotReady)
	}
}

// resolve maps a character index and field name onto the field definition and
// the absolute address of the field's first byte
func (e *Editor) resolve(base process.ProcessMemoryAddress, index int, name string) (layout.Field, process.ProcessMemoryAddress, error) {
	f, ok := e.table.FieldByName(name)
	if !ok {
		return layout.Field{}, 0, fmt.Errorf("%q: %w", name, ErrUnknownField)
	}
	if index < 0 || index >= e.table.MaxSlots {
		return layout.Field{}, 0, fmt.Errorf("index %d, table holds %d slots: %w", index, e.table.MaxSlots, ErrSlotIndex)
	}

	addr := base.Offset(uint64(index) * uint64(e.table.Stride)).Offset(uint64(f.Offset))
	return f, addr, nil
}

// ReadField decodes one field of one character slot from live process
// memory
func (e *Editor) ReadField(index int, name string) (uint64, error) {
	proc, base, err := e.borrow()
	if err != nil {
		return 0, err
	}

	f, addr, err := e.resolve(base, index, name)
	if err != nil {
		return 0, err
	}

	data, err := proc.ReadMemory(addr, process.ProcessMemorySize(f.Width))
	if err != nil {
		if !proc.IsRunning() {
			e.markStale(err)
			return 0, fmt.Errorf("read %s of slot %d: %w", name, index, ErrStaleHandle)
		}
		return 0, fmt.Errorf("read %s of slot %d: %w", name, index, err)
	}

	at := f
	at.Offset = 0
	return at.Decode(data), nil
}

// WriteField encodes value into one field of one character slot. An
// out-of-range value is rejected before any memory is touched; the
// handle's liveness is re-checked on every call, not just at attach.
func (e *Editor) WriteField(index int, name string, value uint64) error {
	proc, base, err := e.borrow()
	if err != nil {
		return err
	}

	f, addr, err := e.resolve(base, index, name)
	if err != nil {
		return err
	}

	if !f.InRange(value) {
		if f.Kind == layout.KindFlag {
			return fmt.Errorf("%s = %d, want 0x00 or 0x80: %w", name, value, ErrFieldOutOfRange)
		}
		return fmt.Errorf("%s = %d, want [%d,%d]: %w", name, value, f.Min, f.Max, ErrFieldOutOfRange)
	}

	if !proc.IsRunning() {
		e.markStale(process.ErrProcessNotFound)
		return fmt.Errorf("write %s of slot %d: %w", name, index, ErrStaleHandle)
	}

	if err := proc.WriteMemory(addr, f.Encode(value)); err != nil {
		if !proc.IsRunning() {
			e.markStale(err)
			return fmt.Errorf("write %s of slot %d: %w", name, index, ErrStaleHandle)
		}
		return fmt.Errorf("write %s of slot %d: %w", name, index, err)
	}

	e.logger().Debugln("Wrote", name, "=", value, "for slot", index)
	return nil
}

// WriteProgress sets a slot's campaign progress to "levels 0..highest
// unlocked" for one difficulty, composing the cascading bitmask bytes.
// highest -1 clears all progress.
func (e *Editor) WriteProgress(index int, insane bool, highest int) error {
	fields := []string{layout.FieldNormalProgress0, layout.FieldNormalProgress1, layout.FieldNormalProgress2}
	if insane {
		fields = []string{layout.FieldInsaneProgress0, layout.FieldInsaneProgress1, layout.FieldInsaneProgress2}
	}

	for i, b := range layout.ProgressBytes(highest, len(fields)) {
		if err := e.WriteField(index, fields[i], uint64(b)); err != nil {
			return err
		}
	}
	return nil
}

// ListCharacters walks the table from the base and snapshots every slot
// whose flag byte is still plausible, capped at the table's slot limit.
// The walk stops at the first slot with a torn flag byte, which marks
// the end of the live table.
func (e *Editor) ListCharacters() ([]CharacterView, error) {
	proc, base, err := e.borrow()
	if err != nil {
		return nil, err
	}

	var views []CharacterView
	for i := 0; i < e.table.MaxSlots; i++ {
		addr := base.Offset(uint64(i) * uint64(e.table.Stride))

		slot, err := proc.ReadMemory(addr, process.ProcessMemorySize(e.table.Stride))
		if err != nil {
			if !proc.IsRunning() {
				e.markStale(err)
				return nil, fmt.Errorf("read slot %d: %w", i, ErrStaleHandle)
			}
			if errors.Is(err, process.ErrAddressNotMapped) {
				// The mapped table ends here
				break
			}
			return nil, fmt.Errorf("read slot %d: %w", i, err)
		}

		flag := uint64(slot[0])
		if flag != layout.FlagAbsent && flag != layout.FlagPresent {
			break
		}

		fields, err := e.table.DecodeSlot(slot)
		if err != nil {
			return nil, fmt.Errorf("decode slot %d: %w", i, err)
		}

		views = append(views, CharacterView{
			Index:    i,
			Name:     layout.CharacterName(i),
			Address:  addr,
			Unlocked: flag == layout.FlagPresent,
			Fields:   fields,
		})
	}

	return views, nil
}

// ReadSlotBytes returns the raw bytes of one slot, for inspection and
// layout debugging
func (e *Editor) ReadSlotBytes(index int) (process.ProcessMemoryAddress, []byte, error) {
	proc, base, err := e.borrow()
	if err != nil {
		return 0, nil, err
	}

	if index < 0 || index >= e.table.MaxSlots {
		return 0, nil, fmt.Errorf("index %d, table holds %d slots: %w", index, e.table.MaxSlots, ErrSlotIndex)
	}

	addr := base.Offset(uint64(index) * uint64(e.table.Stride))
	data, err := proc.ReadMemory(addr, process.ProcessMemorySize(e.table.Stride))
	if err != nil {
		if !proc.IsRunning() {
			e.markStale(err)
			return 0, nil, fmt.Errorf("read slot %d: %w", index, ErrStaleHandle)
		}
		return 0, nil, fmt.Errorf("read slot %d: %w", index, err)
	}

	return addr, data, nil
}
