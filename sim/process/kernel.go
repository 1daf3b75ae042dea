// Package process runs cooperative simulation processes on top of the timing
// engine.
//
// Every process is backed by a goroutine, but the kernel hands execution to
// exactly one process at a time. A process runs until it suspends at one of
// the explicit wait points (a clock edge, a timer, a queue, an event or a
// join), so the interleaving of processes is fully determined by the order of
// the events in the engine.
//
// All kernel, process, queue and signal operations must be called either from
// inside a running process or from the goroutine that owns the kernel while
// the kernel is not running.
package process

import (
	"context"
	"errors"
	"log"

	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/timing"
)

// ErrKilled is returned from a wait when the waiting process has been killed.
var ErrKilled = errors.New("process killed")

// HookPosProcessStart marks the moment a process starts running.
var HookPosProcessStart = &hooking.HookPos{Name: "ProcessStart"}

// HookPosProcessEnd marks the moment a process finishes.
var HookPosProcessEnd = &hooking.HookPos{Name: "ProcessEnd"}

// Func is the body of a process. The context carries the process and is
// cancelled when the process is killed.
type Func func(ctx context.Context) error

// Kernel schedules processes.
type Kernel struct {
	hooking.HookableBase

	engine  timing.Engine
	yield   chan struct{}
	current *Process
	procs   []*Process
}

// NewKernel creates a kernel that drives processes with the given engine.
func NewKernel(engine timing.Engine) *Kernel {
	return &Kernel{
		engine: engine,
		yield:  make(chan struct{}),
	}
}

// Engine returns the engine that the kernel schedules events on.
func (k *Kernel) Engine() timing.Engine {
	return k.engine
}

// Now returns the current simulated time.
func (k *Kernel) Now() timing.VTimeInSec {
	return k.engine.Now()
}

// Spawn creates a process and schedules it to start at the current time,
// after all the already scheduled same-time activities.
func (k *Kernel) Spawn(name string, fn Func) *Process {
	p := newProcess(k, name, fn)
	k.procs = append(k.procs, p)

	go p.run()

	p.state = stateScheduled
	k.scheduleResume(p, k.Now(), p.waitSeq, nil)

	return p
}

// Processes returns the processes that have not finished yet.
func (k *Kernel) Processes() []*Process {
	live := make([]*Process, 0, len(k.procs))
	for _, p := range k.procs {
		if p.state != stateDone {
			live = append(live, p)
		}
	}

	return live
}

// Run runs the simulation until no event is left or Stop is called. When Run
// returns, all the remaining processes have been killed and have finished.
func (k *Kernel) Run() error {
	err := k.engine.Run()

	k.shutdown()

	return err
}

// Stop ends the simulation after the current activity suspends.
func (k *Kernel) Stop() {
	k.engine.Stop()
}

func (k *Kernel) shutdown() {
	for _, p := range k.Processes() {
		p.killed = true
		p.cancel()

		k.switchTo(p, ErrKilled)
	}

	k.procs = nil
}

type resumeEvent struct {
	timing.EventBase

	proc *Process
	seq  uint64
	err  error
}

type timerEvent struct {
	timing.EventBase

	w waiter
}

// Handle resumes processes and fires timers.
func (k *Kernel) Handle(e timing.Event) error {
	switch evt := e.(type) {
	case resumeEvent:
		k.resume(evt.proc, evt.seq, evt.err)
	case timerEvent:
		evt.w.fire(nil)
	default:
		log.Panicf("kernel cannot handle event of type %T", e)
	}

	return nil
}

func (k *Kernel) scheduleResume(
	p *Process,
	t timing.VTimeInSec,
	seq uint64,
	err error,
) {
	k.engine.Schedule(resumeEvent{
		EventBase: timing.MakeEventBase(t, k, false),
		proc:      p,
		seq:       seq,
		err:       err,
	})
}

func (k *Kernel) scheduleTimer(w waiter, t timing.VTimeInSec) {
	k.engine.Schedule(timerEvent{
		EventBase: timing.MakeEventBase(t, k, false),
		w:         w,
	})
}

func (k *Kernel) resume(p *Process, seq uint64, err error) {
	if p.state != stateScheduled || p.waitSeq != seq {
		return
	}

	if p.killed {
		err = ErrKilled
	}

	k.switchTo(p, err)
}

func (k *Kernel) switchTo(p *Process, err error) {
	if !p.started {
		p.started = true
		k.invokeProcessHook(HookPosProcessStart, p)
	}

	prev := k.current
	k.current = p
	p.state = stateRunning

	p.wake <- err
	<-k.yield

	k.current = prev

	if p.state == stateDone {
		k.invokeProcessHook(HookPosProcessEnd, p)

		if p.panicValue != nil {
			log.Panicf("process %s panicked: %v", p.name, p.panicValue)
		}
	}
}

func (k *Kernel) invokeProcessHook(pos *hooking.HookPos, p *Process) {
	if k.NumHooks() == 0 {
		return
	}

	k.InvokeHook(hooking.HookCtx{
		Domain: k,
		Pos:    pos,
		Item:   p,
	})
}

type processKey struct{}

// Current returns the process that is associated with the context. It panics
// if the context does not belong to the running process.
func Current(ctx context.Context) *Process {
	p, ok := ctx.Value(processKey{}).(*Process)
	if !ok {
		log.Panic("context does not belong to a process")
	}

	if p.kernel.current != p {
		log.Panicf("process %s is not the running process", p.name)
	}

	return p
}

// Sleep suspends the calling process for the given amount of simulated time.
func Sleep(ctx context.Context, d timing.VTimeInSec) error {
	p := Current(ctx)
	w := p.newWaiter()

	p.kernel.scheduleTimer(w, p.kernel.Now()+d)

	return w.wait()
}
