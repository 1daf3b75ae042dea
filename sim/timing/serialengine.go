package timing

import (
	"fmt"
	"log"
	"sync"

	"github.com/sarchlab/vaiverif/sim/hooking"
)

// A SerialEngine handles events one at a time in time order. Primary events
// of a time are handled before the secondary events of the same time.
//
// Schedule and Run belong to the simulation goroutine. Pause, Continue, Stop
// and Now may be called from other goroutines, such as a monitoring server.
type SerialEngine struct {
	hooking.HookableBase

	primary   EventQueue
	secondary EventQueue

	// running is held while an event is handled and while the engine is
	// paused.
	running sync.Mutex

	pauseMu sync.Mutex
	paused  bool

	mu      sync.Mutex
	now     VTimeInSec
	stopped bool
	handled uint64

	runLock sync.Mutex
}

// NewSerialEngine creates an engine at time 0 with no event.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		primary:   NewEventQueue(),
		secondary: NewEventQueue(),
	}
}

// Name returns the name of the engine.
func (e *SerialEngine) Name() string {
	return "SerialEngine"
}

// Schedule queues an event. It panics if the event is in the past.
func (e *SerialEngine) Schedule(evt Event) {
	if now := e.Now(); evt.Time() < now {
		log.Panicf("cannot schedule %T @ %.10f, now %.10f",
			evt, evt.Time(), now)
	}

	if evt.IsSecondary() {
		e.secondary.Push(evt)
		return
	}

	e.primary.Push(evt)
}

// Run handles events until none is left or Stop is called. A Stop drops the
// events that are still queued. Run returns the first error that a handler
// returns, after dropping the queued events as well.
func (e *SerialEngine) Run() error {
	e.runLock.Lock()
	defer e.runLock.Unlock()

	e.mu.Lock()
	e.stopped = false
	e.mu.Unlock()

	for !e.isStopped() {
		evt := e.nextEvent()
		if evt == nil {
			return nil
		}

		if err := e.step(evt); err != nil {
			e.drop()
			return err
		}
	}

	e.drop()

	return nil
}

func (e *SerialEngine) step(evt Event) error {
	e.running.Lock()
	defer e.running.Unlock()

	e.mu.Lock()
	e.now = evt.Time()
	e.handled++
	e.mu.Unlock()

	ctx := hooking.HookCtx{Domain: e, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	if err := evt.Handler().Handle(evt); err != nil {
		return fmt.Errorf("handling %T @ %.10f: %w", evt, evt.Time(), err)
	}

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)

	return nil
}

// nextEvent pops the earliest event. Secondary events only go first when
// they are strictly earlier than the earliest primary event.
func (e *SerialEngine) nextEvent() Event {
	switch {
	case e.primary.Len() == 0 && e.secondary.Len() == 0:
		return nil
	case e.secondary.Len() == 0:
		return e.primary.Pop()
	case e.primary.Len() == 0:
		return e.secondary.Pop()
	case e.primary.Peek().Time() <= e.secondary.Peek().Time():
		return e.primary.Pop()
	default:
		return e.secondary.Pop()
	}
}

func (e *SerialEngine) drop() {
	e.primary.Clear()
	e.secondary.Clear()
}

// Pending returns the number of queued events.
func (e *SerialEngine) Pending() int {
	return e.primary.Len() + e.secondary.Len()
}

// Handled returns the number of events handled so far.
func (e *SerialEngine) Handled() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.handled
}

// Pause blocks the engine before its next event until Continue is called.
func (e *SerialEngine) Pause() {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()

	if e.paused {
		return
	}

	e.running.Lock()
	e.paused = true
}

// Continue lets a paused engine handle events again.
func (e *SerialEngine) Continue() {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()

	if !e.paused {
		return
	}

	e.paused = false
	e.running.Unlock()
}

// IsPaused tells if the engine is paused.
func (e *SerialEngine) IsPaused() bool {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()

	return e.paused
}

// Stop makes Run return once the current event is handled.
func (e *SerialEngine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
}

func (e *SerialEngine) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.stopped
}

// Now returns the time of the event being handled, or of the last handled
// event.
func (e *SerialEngine) Now() VTimeInSec {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.now
}
