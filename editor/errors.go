package editor

import "errors"

var (
	// ErrNotReady is returned by accessor calls issued before the
	// orchestrator has reached Ready
	ErrNotReady = errors.New("character data not located yet")

	// ErrStaleHandle is returned once the attached process is gone or the
	// table base is no longer mapped; accessor calls fail with it until
	// the machine works its way back to Ready
	ErrStaleHandle = errors.New("stale process handle")

	// ErrFieldOutOfRange rejects a write whose value violates the field's
	// documented range. No memory is touched.
	ErrFieldOutOfRange = errors.New("value out of range for field")

	// ErrUnknownField is returned for a field name the layout does not
	// define
	ErrUnknownField = errors.New("unknown field")

	// ErrSlotIndex is returned for a character index outside the table
	ErrSlotIndex = errors.New("character index out of range")
)
