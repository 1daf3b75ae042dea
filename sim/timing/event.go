// Package timing provides the discrete event engine that advances simulated
// time.
package timing

import (
	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/id"
)

// VTimeInSec defines the time in the simulated space in the unit of second
type VTimeInSec = float64

// An Event is something that happens at a point of simulated time.
type Event interface {
	Time() VTimeInSec
	Handler() Handler

	// IsSecondary tells if the event runs after all the primary events of
	// the same time. Signal updates use secondary events so that every
	// process sampling an edge sees the values from before the edge.
	IsSecondary() bool
}

// HookPosBeforeEvent is a hook position that triggers before handling an event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}

// EventBase carries the fields that every event needs. Embed it to define a
// new event type.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// MakeEventBase creates an EventBase with a fresh ID.
func MakeEventBase(t VTimeInSec, handler Handler, secondary bool) EventBase {
	return EventBase{
		ID:        id.Generate(),
		time:      t,
		handler:   handler,
		secondary: secondary,
	}
}

// Time returns when the event happens.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler reacts to the events scheduled for it. The kernel and the signal
// domains are the handlers of this module.
type Handler interface {
	Handle(e Event) error
}
