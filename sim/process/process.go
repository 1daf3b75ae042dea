package process

import (
	"context"
	"fmt"

	"github.com/sarchlab/vaiverif/sim/id"
)

type state int

const (
	stateScheduled state = iota
	stateRunning
	stateWaiting
	stateDone
)

// A Process is a cooperative thread of the simulation.
type Process struct {
	id     string
	name   string
	kernel *Kernel
	fn     Func

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan error

	state      state
	started    bool
	waitSeq    uint64
	killed     bool
	err        error
	panicValue any

	finished *Event
}

func newProcess(k *Kernel, name string, fn Func) *Process {
	p := &Process{
		id:     id.Generate(),
		name:   name,
		kernel: k,
		fn:     fn,
		wake:   make(chan error),
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.ctx = context.WithValue(ctx, processKey{}, p)
	p.cancel = cancel
	p.finished = NewEvent(name + ".finished")

	return p
}

// ID returns the unique ID of the process.
func (p *Process) ID() string {
	return p.id
}

// Name returns the name of the process.
func (p *Process) Name() string {
	return p.name
}

// Kernel returns the kernel that runs the process.
func (p *Process) Kernel() *Kernel {
	return p.kernel
}

// Done tells if the process has finished.
func (p *Process) Done() bool {
	return p.state == stateDone
}

// Killed tells if the process has been killed.
func (p *Process) Killed() bool {
	return p.killed
}

// Err returns the error that the process function returned. It is nil while
// the process is running.
func (p *Process) Err() error {
	return p.err
}

// Kill terminates the process. A waiting process is resumed with ErrKilled at
// the current time, ahead of any activity scheduled after the kill. A process
// that kills itself gets ErrKilled from its next wait.
func (p *Process) Kill() {
	if p.state == stateDone || p.killed {
		return
	}

	p.killed = true
	p.cancel()

	if p.state == stateWaiting {
		p.state = stateScheduled
		p.kernel.scheduleResume(p, p.kernel.Now(), p.waitSeq, ErrKilled)
	}
}

// Join suspends the calling process until p finishes. The returned error
// only reports why the wait ended; use Err for the result of p.
func (p *Process) Join(ctx context.Context) error {
	return p.finished.Wait(ctx)
}

// JoinAll waits for all the given processes to finish and returns the first
// error among the waits and the process results.
func JoinAll(ctx context.Context, procs ...*Process) error {
	for _, p := range procs {
		if err := p.Join(ctx); err != nil {
			return err
		}
	}

	for _, p := range procs {
		if p.Err() != nil {
			return fmt.Errorf("process %s: %w", p.Name(), p.Err())
		}
	}

	return nil
}

func (p *Process) run() {
	err := <-p.wake
	if err == nil {
		err = p.call()
	}

	p.err = err
	p.state = stateDone
	p.cancel()
	p.finished.Set()

	p.kernel.yield <- struct{}{}
}

func (p *Process) call() (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.panicValue = r
			err = fmt.Errorf("process %s panicked: %v", p.name, r)
		}
	}()

	return p.fn(p.ctx)
}

func (p *Process) newWaiter() waiter {
	p.waitSeq++

	return waiter{p: p, seq: p.waitSeq}
}

// waiter identifies one suspension of one process. Firing a waiter that is
// stale, because the process was already resumed or killed, has no effect.
type waiter struct {
	p   *Process
	seq uint64
}

func (w waiter) wait() error {
	p := w.p
	if p.killed {
		return ErrKilled
	}

	p.state = stateWaiting
	p.kernel.yield <- struct{}{}

	return <-p.wake
}

func (w waiter) fire(err error) bool {
	p := w.p
	if p.state != stateWaiting || p.waitSeq != w.seq {
		return false
	}

	p.state = stateScheduled
	p.kernel.scheduleResume(p, p.kernel.Now(), w.seq, err)

	return true
}

// A WaitList is a FIFO of suspended processes waiting for a condition.
type WaitList struct {
	waiters []waiter
}

// Wait suspends the calling process until it is notified.
func (l *WaitList) Wait(ctx context.Context) error {
	p := Current(ctx)
	w := p.newWaiter()

	l.waiters = append(l.waiters, w)

	return w.wait()
}

// NotifyOne resumes the longest waiting process that can still be resumed.
// It returns false if no process was resumed.
func (l *WaitList) NotifyOne() bool {
	for len(l.waiters) > 0 {
		w := l.waiters[0]
		l.waiters = l.waiters[1:]

		if w.fire(nil) {
			return true
		}
	}

	return false
}

// NotifyAll resumes all the waiting processes and returns how many were
// resumed.
func (l *WaitList) NotifyAll() int {
	waiters := l.waiters
	l.waiters = nil

	n := 0
	for _, w := range waiters {
		if w.fire(nil) {
			n++
		}
	}

	return n
}

// Len returns the number of registered waits, including stale ones.
func (l *WaitList) Len() int {
	return len(l.waiters)
}

// An Event is a flag that processes can wait on.
type Event struct {
	name    string
	isSet   bool
	waiting WaitList
}

// NewEvent creates a cleared event.
func NewEvent(name string) *Event {
	return &Event{name: name}
}

// Name returns the name of the event.
func (e *Event) Name() string {
	return e.name
}

// Set sets the event and resumes all the waiting processes.
func (e *Event) Set() {
	e.isSet = true
	e.waiting.NotifyAll()
}

// Clear resets the event so that later waits suspend again.
func (e *Event) Clear() {
	e.isSet = false
}

// IsSet tells if the event is set.
func (e *Event) IsSet() bool {
	return e.isSet
}

// Wait returns immediately if the event is set, otherwise it suspends the
// calling process until the event is set.
func (e *Event) Wait(ctx context.Context) error {
	if e.isSet {
		return nil
	}

	return e.waiting.Wait(ctx)
}
