package vai

import (
	"math"

	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/timing"
)

// LatencyTracer measures, from the BFM hooks, how long operations wait for
// accept_o and how long the core takes to produce each result.
type LatencyTracer struct {
	timeTeller timing.TimeTeller

	drivenAt   []timing.VTimeInSec
	acceptedAt []timing.VTimeInSec

	accept LatencyStats
	core   LatencyStats
}

// LatencyStats summarizes a series of durations.
type LatencyStats struct {
	Count int
	Total timing.VTimeInSec
	Min   timing.VTimeInSec
	Max   timing.VTimeInSec
}

// Average returns the mean duration, 0 if nothing was measured.
func (s LatencyStats) Average() timing.VTimeInSec {
	if s.Count == 0 {
		return 0
	}

	return s.Total / timing.VTimeInSec(s.Count)
}

func (s *LatencyStats) add(d timing.VTimeInSec) {
	if s.Count == 0 {
		s.Min = math.Inf(1)
	}

	s.Count++
	s.Total += d
	s.Min = math.Min(s.Min, d)
	s.Max = math.Max(s.Max, d)
}

// NewLatencyTracer creates a tracer.
func NewLatencyTracer(timeTeller timing.TimeTeller) *LatencyTracer {
	return &LatencyTracer{timeTeller: timeTeller}
}

// Func records the hook event.
func (t *LatencyTracer) Func(ctx hooking.HookCtx) {
	now := t.timeTeller.Now()

	switch ctx.Pos {
	case HookPosOperationDriven:
		t.drivenAt = append(t.drivenAt, now)
	case HookPosInputObserved:
		if len(t.drivenAt) > 0 {
			t.accept.add(now - t.drivenAt[0])
			t.drivenAt = t.drivenAt[1:]
		}

		t.acceptedAt = append(t.acceptedAt, now)
	case HookPosOutputObserved:
		if len(t.acceptedAt) > 0 {
			t.core.add(now - t.acceptedAt[0])
			t.acceptedAt = t.acceptedAt[1:]
		}
	}
}

// AcceptLatency returns how long operations waited between being driven and
// being accepted.
func (t *LatencyTracer) AcceptLatency() LatencyStats {
	return t.accept
}

// CoreLatency returns the time between accepting an operation and taking
// its result, matching results to operations in order.
func (t *LatencyTracer) CoreLatency() LatencyStats {
	return t.core
}

// InFlight returns the number of accepted operations without a result yet.
func (t *LatencyTracer) InFlight() int {
	return len(t.acceptedAt)
}
