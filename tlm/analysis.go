// Package tlm connects testbench components with transaction level ports.
package tlm

import (
	"context"

	"github.com/sarchlab/vaiverif/sim/queueing"
)

// A Subscriber receives the transactions written to an analysis port.
type Subscriber[T any] interface {
	Write(t T)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc[T any] func(t T)

// Write calls f.
func (f SubscriberFunc[T]) Write(t T) {
	f(t)
}

// An AnalysisPort broadcasts every transaction to all the connected
// subscribers, in connection order. Writing never blocks.
type AnalysisPort[T any] struct {
	name        string
	subscribers []Subscriber[T]
}

// NewAnalysisPort creates a port without subscribers.
func NewAnalysisPort[T any](name string) *AnalysisPort[T] {
	return &AnalysisPort[T]{name: name}
}

// Name returns the name of the port.
func (p *AnalysisPort[T]) Name() string {
	return p.name
}

// Connect adds a subscriber.
func (p *AnalysisPort[T]) Connect(s Subscriber[T]) {
	p.subscribers = append(p.subscribers, s)
}

// NumSubscribers returns the number of connected subscribers.
func (p *AnalysisPort[T]) NumSubscribers() int {
	return len(p.subscribers)
}

// Write sends the transaction to every subscriber.
func (p *AnalysisPort[T]) Write(t T) {
	for _, s := range p.subscribers {
		s.Write(t)
	}
}

// An AnalysisFIFO is an unbounded subscriber that stores transactions until
// they are taken.
type AnalysisFIFO[T any] struct {
	queue *queueing.Queue[T]
}

// NewAnalysisFIFO creates an empty FIFO.
func NewAnalysisFIFO[T any](name string) *AnalysisFIFO[T] {
	return &AnalysisFIFO[T]{
		queue: queueing.NewQueue[T](name, queueing.Unbounded),
	}
}

// Name returns the name of the FIFO.
func (f *AnalysisFIFO[T]) Name() string {
	return f.queue.Name()
}

// Queue exposes the underlying queue, for hooks.
func (f *AnalysisFIFO[T]) Queue() *queueing.Queue[T] {
	return f.queue
}

// Write stores a transaction.
func (f *AnalysisFIFO[T]) Write(t T) {
	f.queue.Push(t)
}

// Get takes the oldest transaction, waiting for one if the FIFO is empty.
func (f *AnalysisFIFO[T]) Get(ctx context.Context) (T, error) {
	return f.queue.Get(ctx)
}

// TryGet takes the oldest transaction if there is one.
func (f *AnalysisFIFO[T]) TryGet() (T, bool) {
	t, err := f.queue.TryGet()
	return t, err == nil
}

// CanGet tells if a transaction is available.
func (f *AnalysisFIFO[T]) CanGet() bool {
	return f.queue.Size() > 0
}

// Size returns the number of stored transactions.
func (f *AnalysisFIFO[T]) Size() int {
	return f.queue.Size()
}
