// Package hdl models the signal level view of a clocked design: fixed width
// signals with register semantics and clocks that produce rising edges.
package hdl

import (
	"fmt"
	"log"

	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/timing"
)

// HookPosSignalCommit is triggered when a signal takes a new value. The hook
// item is the signal and the detail is the previous value.
var HookPosSignalCommit = &hooking.HookPos{Name: "SignalCommit"}

// A Domain owns a set of signals and commits their deferred writes.
//
// A write made by a process only becomes visible after every process that is
// runnable at the current time has run. All processes woken by the same clock
// edge therefore observe the values from before the edge, like registers in
// RTL.
type Domain struct {
	hooking.HookableBase

	kernel  *process.Kernel
	signals []*Signal
	pending []*Signal

	commitScheduled bool
}

// NewDomain creates a signal domain driven by the kernel.
func NewDomain(kernel *process.Kernel) *Domain {
	return &Domain{kernel: kernel}
}

// Kernel returns the kernel the domain belongs to.
func (d *Domain) Kernel() *process.Kernel {
	return d.kernel
}

// Signals returns all the signals created in the domain.
func (d *Domain) Signals() []*Signal {
	return d.signals
}

// NewSignal creates a signal of the given width in bits. Width must be
// between 1 and 128.
func (d *Domain) NewSignal(name string, width int) *Signal {
	if width < 1 || width > 128 {
		log.Panicf("signal %s: width %d out of range [1, 128]", name, width)
	}

	s := &Signal{
		domain: d,
		name:   name,
		width:  width,
		mask:   widthMask(width),
	}
	d.signals = append(d.signals, s)

	return s
}

type commitEvent struct {
	timing.EventBase
}

// Handle commits all the pending writes.
func (d *Domain) Handle(e timing.Event) error {
	if _, ok := e.(commitEvent); !ok {
		log.Panicf("signal domain cannot handle event of type %T", e)
	}

	d.commit()

	return nil
}

func (d *Domain) commit() {
	pending := d.pending
	d.pending = nil
	d.commitScheduled = false

	for _, s := range pending {
		s.hasNext = false

		if s.value == s.next {
			continue
		}

		prev := s.value
		s.value = s.next
		d.invokeCommitHook(s, prev)
	}
}

func (d *Domain) invokeCommitHook(s *Signal, prev uint128.Uint128) {
	if d.NumHooks() == 0 {
		return
	}

	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    HookPosSignalCommit,
		Item:   s,
		Detail: prev,
	})
}

func (d *Domain) scheduleWrite(s *Signal) {
	if !s.hasNext {
		s.hasNext = true
		d.pending = append(d.pending, s)
	}

	if d.commitScheduled {
		return
	}

	d.commitScheduled = true
	d.kernel.Engine().Schedule(commitEvent{
		EventBase: timing.MakeEventBase(d.kernel.Now(), d, true),
	})
}

// A Signal is a named wire or register of a fixed width.
type Signal struct {
	domain *Domain
	name   string
	width  int
	mask   uint128.Uint128

	value   uint128.Uint128
	next    uint128.Uint128
	hasNext bool
}

func widthMask(width int) uint128.Uint128 {
	switch {
	case width >= 128:
		return uint128.Max
	case width > 64:
		return uint128.New(^uint64(0), (uint64(1)<<(width-64))-1)
	case width == 64:
		return uint128.New(^uint64(0), 0)
	default:
		return uint128.New((uint64(1)<<width)-1, 0)
	}
}

func (s *Signal) truncate(v uint128.Uint128) uint128.Uint128 {
	return uint128.New(v.Lo&s.mask.Lo, v.Hi&s.mask.Hi)
}

// Name returns the name of the signal.
func (s *Signal) Name() string {
	return s.name
}

// Width returns the number of bits of the signal.
func (s *Signal) Width() int {
	return s.width
}

// Value returns the committed value.
func (s *Signal) Value() uint128.Uint128 {
	return s.value
}

// Uint64 returns the low 64 bits of the committed value.
func (s *Signal) Uint64() uint64 {
	return s.value.Lo
}

// Bool tells if the committed value is not zero.
func (s *Signal) Bool() bool {
	return !s.value.IsZero()
}

// Set schedules a write. The value is truncated to the width of the signal
// and becomes visible once all the currently runnable processes have run.
// The last write before the commit wins.
func (s *Signal) Set(v uint128.Uint128) {
	s.next = s.truncate(v)
	s.domain.scheduleWrite(s)
}

// SetUint64 schedules a write of a 64 bit value.
func (s *Signal) SetUint64(v uint64) {
	s.Set(uint128.From64(v))
}

// SetBool schedules a write of 1 for true and 0 for false.
func (s *Signal) SetBool(b bool) {
	if b {
		s.SetUint64(1)
		return
	}

	s.SetUint64(0)
}

// SetImmediate changes the value right away, dropping any pending write. It
// is meant for initial values set before the simulation starts.
func (s *Signal) SetImmediate(v uint128.Uint128) {
	s.value = s.truncate(v)
	s.next = s.value
}

// String prints the signal as name=0xVALUE.
func (s *Signal) String() string {
	return fmt.Sprintf("%s=0x%016x%016x", s.name, s.value.Hi, s.value.Lo)
}
