package editor

import (
	"fmt"
	"time"
)

// State is the orchestrator's position in the attach/scan lifecycle
type State int

const (
	// StateDetached is the initial state, before Run
	StateDetached State = iota

	// StateAttaching looks the process up by name, retrying while it
	// does not exist yet
	StateAttaching

	// StateScanning walks readable regions for signature candidates
	StateScanning

	// StateValidating checks candidates against the field invariants
	StateValidating

	// StateReady holds a validated table base; the accessor works
	StateReady

	// StateStale lost its base; accessor calls fail until the machine
	// works its way back to Ready
	StateStale
)

func (s State) String() string {
	switch s {
	case StateDetached:
		return "Detached"
	case StateAttaching:
		return "Attaching"
	case StateScanning:
		return "Scanning"
	case StateValidating:
		return "Validating"
	case StateReady:
		return "Ready"
	case StateStale:
		return "Stale"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateEvent describes one state transition
type StateEvent struct {
	// Session identifies the attach session the event belongs to.
	// Empty before the first attach.
	Session string

	From State
	To   State

	// Err carries the failure that caused the transition, if any
	Err error

	Time time.Time
}

// StateHandler receives transitions on the orchestrator goroutine.
// Keep it fast and hand heavy work off.
type StateHandler func(StateEvent)
