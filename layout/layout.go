// Package layout holds the reverse-engineered byte layout of the in-game
// character table: slot geometry, field offsets and encodings, the scan
// signature shape, and the range invariants that tell a real table apart
// from a coincidental byte pattern.
//
// Everything here is data. Scanning and field access consume it, so a
// layout revision never touches that code.
package layout

import (
	"encoding/binary"
	"fmt"
	"strings"

	"crashmem/process"
)

// Kind selects how a field value is checked
type Kind int

const (
	// KindUint is an unsigned integer checked against [Min,Max]
	KindUint Kind = iota

	// KindFlag is a presence flag, 0x00 (absent) or 0x80 (present)
	KindFlag
)

// Field describes one value inside a character slot
type Field struct {
	Name   string
	Offset uint             // byte offset inside the slot
	Width  uint             // 1, 2, 4 or 8 bytes
	Order  binary.ByteOrder // byte order for multi-byte widths
	Kind   Kind
	Min    uint64 // inclusive, KindUint only
	Max    uint64 // inclusive, KindUint only
}

// InRange reports whether a decoded value satisfies the field invariant
func (f Field) InRange(v uint64) bool {
	if f.Kind == KindFlag {
		return v == FlagAbsent || v == FlagPresent
	}
	return v >= f.Min && v <= f.Max
}

// Decode reads the field value out of a single slot buffer.
// The caller guarantees len(slot) >= Offset+Width.
func (f Field) Decode(slot []byte) uint64 {
	cell := slot[f.Offset : f.Offset+f.Width]
	switch f.Width {
	case 1:
		return uint64(cell[0])
	case 2:
		return uint64(f.Order.Uint16(cell))
	case 4:
		return uint64(f.Order.Uint32(cell))
	case 8:
		return f.Order.Uint64(cell)
	default:
		panic(fmt.Sprintf("field %s: unsupported width %d", f.Name, f.Width))
	}
}

// Encode renders a value as the field's raw bytes
func (f Field) Encode(v uint64) []byte {
	out := make([]byte, f.Width)
	switch f.Width {
	case 1:
		out[0] = byte(v)
	case 2:
		f.Order.PutUint16(out, uint16(v))
	case 4:
		f.Order.PutUint32(out, uint32(v))
	case 8:
		f.Order.PutUint64(out, v)
	default:
		panic(fmt.Sprintf("field %s: unsupported width %d", f.Name, f.Width))
	}
	return out
}

// Flag byte values for KindFlag fields and for the slot walk
const (
	FlagAbsent  = 0x00
	FlagPresent = 0x80
)

// Table is the geometry and field set of the character table
type Table struct {
	Stride        uint // bytes per slot
	Pad           uint // trailing bytes of every slot, always zero
	Lead          uint // zero bytes immediately before slot 0
	SlotsRequired int  // consecutive plausible slots the signature demands
	MaxSlots      int  // enumeration cap
	Fields        []Field
}

// WindowSize is the byte length the validator inspects at a candidate
func (t Table) WindowSize() uint {
	return t.Stride * uint(t.SlotsRequired)
}

// FieldByName finds a field, matching case-insensitively
func (t Table) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// ValidateSlot checks every field of one slot buffer against its range
// invariant. It is meant for slots the signature selected (flag 0x80);
// a locked slot legitimately holds zero bytes that fail ranges like
// Level's [1,99].
func (t Table) ValidateSlot(slot []byte) error {
	if uint(len(slot)) < t.Stride {
		return fmt.Errorf("slot buffer %d bytes, need %d", len(slot), t.Stride)
	}
	for _, f := range t.Fields {
		v := f.Decode(slot)
		if !f.InRange(v) {
			return fmt.Errorf("field %s = %d out of range", f.Name, v)
		}
	}
	return nil
}

// ValidateWindow checks the first SlotsRequired slots of a candidate
// window. One out-of-range field anywhere rejects the whole window. Pure:
// operates only on the given buffer.
func (t Table) ValidateWindow(buf []byte) error {
	if uint(len(buf)) < t.WindowSize() {
		return fmt.Errorf("window %d bytes, need %d", len(buf), t.WindowSize())
	}
	for i := 0; i < t.SlotsRequired; i++ {
		slot := buf[uint(i)*t.Stride : uint(i+1)*t.Stride]
		if err := t.ValidateSlot(slot); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return nil
}

// DecodeSlot decodes every field of one slot buffer
func (t Table) DecodeSlot(slot []byte) (map[string]uint64, error) {
	if uint(len(slot)) < t.Stride {
		return nil, fmt.Errorf("slot buffer %d bytes, need %d", len(slot), t.Stride)
	}
	out := make(map[string]uint64, len(t.Fields))
	for _, f := range t.Fields {
		out[f.Name] = f.Decode(slot)
	}
	return out, nil
}

// SlotSignature is the per-slot byte fingerprint: present flag at offset 0,
// zero pad at the tail, wildcards everywhere else. The scanner requires it
// to repeat at SlotsRequired consecutive strides with Lead zero bytes in
// front of the first.
func (t Table) SlotSignature() process.AOB {
	pattern := make([]byte, t.Stride)
	mask := make([]byte, t.Stride)

	pattern[0] = FlagPresent
	mask[0] = 0xFF

	for i := t.Stride - t.Pad; i < t.Stride; i++ {
		pattern[i] = 0x00
		mask[i] = 0xFF
	}

	return process.AOB{Pattern: pattern, Mask: mask}
}
