package timing

// TickEvent triggers one cycle of a periodic handler, such as a clock.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a tick for the handler at the given time.
func MakeTickEvent(handler Handler, time VTimeInSec) TickEvent {
	return TickEvent{EventBase: MakeEventBase(time, handler, false)}
}

// A TickScheduler keeps at most one tick pending for its handler. Ticks are
// always placed on a cycle boundary of the frequency.
type TickScheduler struct {
	handler Handler
	engine  EventScheduler
	freq    Freq
	pending VTimeInSec
}

// NewTickScheduler creates a scheduler with no pending tick.
func NewTickScheduler(
	handler Handler,
	engine EventScheduler,
	freq Freq,
) *TickScheduler {
	return &TickScheduler{
		handler: handler,
		engine:  engine,
		freq:    freq,
		pending: -1,
	}
}

// Freq returns the frequency of the ticks.
func (t *TickScheduler) Freq() Freq {
	return t.freq
}

// Now returns the current time of the engine.
func (t *TickScheduler) Now() VTimeInSec {
	return t.engine.Now()
}

// TickLater schedules a tick on the first cycle boundary after the current
// time. It does nothing if that tick is already pending.
func (t *TickScheduler) TickLater() {
	next := t.freq.NextTick(t.engine.Now())
	if t.pending >= next {
		return
	}

	t.pending = next
	t.engine.Schedule(MakeTickEvent(t.handler, next))
}

// NextTick returns the time of the pending tick. The second return value is
// false if no tick is pending.
func (t *TickScheduler) NextTick() (VTimeInSec, bool) {
	if t.pending < t.engine.Now() {
		return 0, false
	}

	return t.pending, true
}
