package timing

import (
	"github.com/sarchlab/vaiverif/sim/hooking"
)

// TimeTeller can tell the current simulated time.
type TimeTeller interface {
	Now() VTimeInSec
}

// EventScheduler accepts events for the current or a later time.
type EventScheduler interface {
	TimeTeller

	Schedule(e Event)
}

// An Engine advances simulated time by handling the scheduled events. The
// hooks of an engine are invoked at HookPosBeforeEvent and
// HookPosAfterEvent.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Run handles events until none is left or Stop is called.
	Run() error

	// Stop makes Run return after the event being handled. Events that are
	// still queued are dropped.
	Stop()

	// Pause holds the engine before its next event until Continue is called.
	// Both may be called from any goroutine.
	Pause()
	Continue()
	IsPaused() bool
}
