package layout

// Campaign progress is stored as a run of bitmask bytes per difficulty.
// Unlocking a level implies every earlier level, so a valid encoding is
// always a cascade: whole 0xFF bytes, then one partial byte, then zeros.

// ProgressByteCount is the number of progress bytes per difficulty in the
// shipped table
const ProgressByteCount = 3

// ProgressBytes encodes "levels 0..highest unlocked" as cascading bytes.
// highest -1 means nothing unlocked. Values past the encodable maximum
// saturate.
func ProgressBytes(highest, count int) []byte {
	b := make([]byte, count)
	if highest < 0 {
		return b
	}
	if max := count*8 - 1; highest > max {
		highest = max
	}

	full := highest / 8
	for i := 0; i < full; i++ {
		b[i] = 0xFF
	}
	b[full] = byte(1<<uint(highest%8+1)) - 1
	return b
}

// ProgressLevel decodes the highest unlocked level index from progress
// bytes, -1 when no bit is set. Non-cascading encodings decode to their
// highest set bit.
func ProgressLevel(b []byte) int {
	highest := -1
	for i, by := range b {
		for bit := 0; bit < 8; bit++ {
			if by&(1<<uint(bit)) != 0 {
				if idx := i*8 + bit; idx > highest {
					highest = idx
				}
			}
		}
	}
	return highest
}
