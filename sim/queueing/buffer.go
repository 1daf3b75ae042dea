// Package queueing provides FIFO containers for simulation models.
package queueing

import (
	"errors"
	"log"

	"github.com/sarchlab/vaiverif/sim/hooking"
)

// HookPosBufPush marks when an element is pushed into a buffer or a queue.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from a buffer or a queue.
var HookPosBufPop = &hooking.HookPos{Name: "Buffer Pop"}

var (
	// ErrEmpty is returned when taking from an empty buffer or queue.
	ErrEmpty = errors.New("queue empty")

	// ErrFull is returned when adding to a full buffer or queue.
	ErrFull = errors.New("queue full")
)

// Unbounded is the capacity of a buffer without a size limit.
const Unbounded = 0

// A Buffer is a non-blocking FIFO. A capacity of 0 or less means the buffer
// is unbounded.
type Buffer[T any] struct {
	hooking.HookableBase

	name     string
	capacity int
	elements []T
}

// NewBuffer creates a buffer.
func NewBuffer[T any](name string, capacity int) *Buffer[T] {
	if capacity < 0 {
		capacity = Unbounded
	}

	return &Buffer[T]{
		name:     name,
		capacity: capacity,
	}
}

// Name returns the name of the buffer.
func (b *Buffer[T]) Name() string {
	return b.name
}

// CanPush tells if an element can be pushed without overflowing.
func (b *Buffer[T]) CanPush() bool {
	return b.capacity == Unbounded || len(b.elements) < b.capacity
}

// Push adds an element to the back. It panics if the buffer is full.
func (b *Buffer[T]) Push(e T) {
	if !b.CanPush() {
		log.Panicf("buffer %s overflow", b.name)
	}

	b.elements = append(b.elements, e)
	b.invoke(HookPosBufPush, e)
}

// Pop removes the front element.
func (b *Buffer[T]) Pop() (T, error) {
	var zero T

	if len(b.elements) == 0 {
		return zero, ErrEmpty
	}

	e := b.elements[0]
	b.elements[0] = zero
	b.elements = b.elements[1:]

	b.invoke(HookPosBufPop, e)

	return e, nil
}

// Peek returns the front element without removing it.
func (b *Buffer[T]) Peek() (T, error) {
	if len(b.elements) == 0 {
		var zero T
		return zero, ErrEmpty
	}

	return b.elements[0], nil
}

// Capacity returns the capacity, 0 when unbounded.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Size returns the number of elements.
func (b *Buffer[T]) Size() int {
	return len(b.elements)
}

// Elements returns a copy of the buffered elements, front first.
func (b *Buffer[T]) Elements() []T {
	return append([]T(nil), b.elements...)
}

// Clear removes all the elements.
func (b *Buffer[T]) Clear() {
	b.elements = nil
}

func (b *Buffer[T]) invoke(pos *hooking.HookPos, e T) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   e,
	})
}
