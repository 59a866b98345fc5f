package scan

import (
	"bytes"

	"crashmem/layout"
	"crashmem/process"
)

// Signature is the compiled table fingerprint: the per-slot byte pattern
// repeated at SlotsRequired consecutive strides, with Lead zero bytes
// immediately before the first slot. The starter slots are always
// unlocked, so every live table carries this shape.
type Signature struct {
	slot   process.AOB
	stride uint
	lead   uint
	slots  int
}

// NewSignature compiles the fingerprint for a table layout
func NewSignature(t layout.Table) Signature {
	return Signature{
		slot:   t.SlotSignature(),
		stride: t.Stride,
		lead:   t.Lead,
		slots:  t.SlotsRequired,
	}
}

// Span is the number of bytes one match inspects: the lead zero window
// plus SlotsRequired full strides. A buffer shorter than Span cannot
// contain a match; chunked reads overlap by Span-1 so boundary matches
// are seen whole.
func (s Signature) Span() uint {
	return s.lead + s.stride*uint(s.slots)
}

// footprint is the byte count from the match offset to the end of the
// last required slot. The lead window sits before the offset.
func (s Signature) footprint() int {
	return int(s.stride) * s.slots
}

// Find returns every offset in buf where a full match begins, ascending.
// The offset points at slot 0, so it is at least Lead into the buffer;
// callers add it to the buffer's base address to form a candidate.
func (s Signature) Find(buf []byte) []int {
	var out []int

	// Highest offset a match can still fit at
	last := len(buf) - s.footprint()
	if last < int(s.lead) {
		return nil
	}

	// Slot 0 starts with the exact-matched flag byte; jumping between its
	// occurrences skips almost the whole buffer.
	flag := s.slot.Pattern[0]
	for i := int(s.lead); i <= last; {
		rel := bytes.IndexByte(buf[i:last+1], flag)
		if rel < 0 {
			break
		}
		i += rel
		if s.MatchAt(buf, i) {
			out = append(out, i)
		}
		i++
	}

	return out
}

// MatchAt reports whether a full match begins at offset i of buf: Lead
// zero bytes before i, then the slot pattern at SlotsRequired consecutive
// strides.
func (s Signature) MatchAt(buf []byte, i int) bool {
	if i < int(s.lead) || i+s.footprint() > len(buf) {
		return false
	}

	for _, b := range buf[i-int(s.lead) : i] {
		if b != 0 {
			return false
		}
	}

	for k := 0; k < s.slots; k++ {
		if !matchAOB(buf[i+k*int(s.stride):], s.slot) {
			return false
		}
	}

	return true
}

// matchAOB reports whether data starts with the masked pattern. A zero
// mask byte is a wildcard; elsewhere only the masked bits are compared.
func matchAOB(data []byte, aob process.AOB) bool {
	if len(data) < len(aob.Pattern) {
		return false
	}

	for j := range aob.Pattern {
		if aob.Mask[j] == 0 {
			continue
		}
		if data[j]&aob.Mask[j] != aob.Pattern[j]&aob.Mask[j] {
			return false
		}
	}

	return true
}
