package queueing

import (
	"context"

	"github.com/sarchlab/vaiverif/sim/process"
)

type request[T any] struct {
	proc   *process.Process
	elem   T
	served bool
	done   *process.Event
}

// A Queue is a FIFO that processes can block on. Get suspends while the
// queue is empty and Put suspends while a bounded queue is full. Blocked
// getters and putters are served in arrival order, and a newcomer never
// overtakes a blocked one.
type Queue[T any] struct {
	*Buffer[T]

	getters []*request[T]
	putters []*request[T]
}

// NewQueue creates a queue. A capacity of 0 or less makes the queue
// unbounded, so Put never blocks.
func NewQueue[T any](name string, capacity int) *Queue[T] {
	return &Queue[T]{Buffer: NewBuffer[T](name, capacity)}
}

// Put adds an element, waiting for room if the queue is full.
func (q *Queue[T]) Put(ctx context.Context, e T) error {
	if q.TryPut(e) == nil {
		return nil
	}

	req := &request[T]{
		proc: process.Current(ctx),
		elem: e,
		done: process.NewEvent(q.name + ".put"),
	}
	q.putters = append(q.putters, req)

	err := req.done.Wait(ctx)
	if req.served {
		return nil
	}

	q.putters = remove(q.putters, req)

	return err
}

// TryPut adds an element if there is room, otherwise it returns ErrFull.
func (q *Queue[T]) TryPut(e T) error {
	q.dropKilled()

	if !q.CanPush() || len(q.putters) > 0 {
		return ErrFull
	}

	q.Buffer.Push(e)
	q.serveGetters()

	return nil
}

// Get removes the front element, waiting until one is available.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	if e, err := q.TryGet(); err == nil {
		return e, nil
	}

	req := &request[T]{
		proc: process.Current(ctx),
		done: process.NewEvent(q.name + ".get"),
	}
	q.getters = append(q.getters, req)

	err := req.done.Wait(ctx)
	if req.served {
		return req.elem, nil
	}

	q.getters = remove(q.getters, req)

	var zero T

	return zero, err
}

// TryGet removes the front element if there is one, otherwise it returns
// ErrEmpty.
func (q *Queue[T]) TryGet() (T, error) {
	e, err := q.Buffer.Pop()
	if err != nil {
		return e, err
	}

	q.servePutters()

	return e, nil
}

// Push adds an element like TryPut but panics if the queue is full.
func (q *Queue[T]) Push(e T) {
	if err := q.TryPut(e); err != nil {
		panic("queue " + q.name + " overflow")
	}
}

// Pop is the same as TryGet.
func (q *Queue[T]) Pop() (T, error) {
	return q.TryGet()
}

// Clear drops all the elements and lets blocked putters proceed.
func (q *Queue[T]) Clear() {
	q.Buffer.Clear()
	q.servePutters()
}

// Waiting returns the number of blocked getters and putters.
func (q *Queue[T]) Waiting() (getters, putters int) {
	return len(q.getters), len(q.putters)
}

func (q *Queue[T]) serveGetters() {
	for len(q.getters) > 0 && q.Size() > 0 {
		req := q.getters[0]
		q.getters = q.getters[1:]

		if req.proc.Killed() {
			continue
		}

		req.elem, _ = q.Buffer.Pop()
		req.served = true
		req.done.Set()
	}
}

func (q *Queue[T]) servePutters() {
	for len(q.putters) > 0 && q.CanPush() {
		req := q.putters[0]
		q.putters = q.putters[1:]

		if req.proc.Killed() {
			continue
		}

		q.Buffer.Push(req.elem)
		req.served = true
		req.done.Set()
	}

	q.serveGetters()
}

func (q *Queue[T]) dropKilled() {
	for len(q.putters) > 0 && q.putters[0].proc.Killed() {
		q.putters = q.putters[1:]
	}
}

func remove[T any](reqs []*request[T], req *request[T]) []*request[T] {
	for i, r := range reqs {
		if r == req {
			return append(reqs[:i], reqs[i+1:]...)
		}
	}

	return reqs
}
