package env

import (
	"context"

	"github.com/sarchlab/vaiverif/sim/naming"
	"github.com/sarchlab/vaiverif/tlm"
)

// A Monitor forwards what a BFM monitor task captures to the subscribers of
// its port.
type Monitor[T any] struct {
	naming.NamedBase

	get    func(ctx context.Context) (T, error)
	tryGet func() (T, error)
	port   *tlm.AnalysisPort[T]
}

// NewMonitor creates a monitor around the blocking and non-blocking getters
// of a BFM queue.
func NewMonitor[T any](
	name string,
	get func(ctx context.Context) (T, error),
	tryGet func() (T, error),
) *Monitor[T] {
	return &Monitor[T]{
		NamedBase: naming.MakeNamedBase(name),
		get:       get,
		tryGet:    tryGet,
		port:      tlm.NewAnalysisPort[T](name + ".Port"),
	}
}

// Port returns the analysis port that the monitor writes to.
func (m *Monitor[T]) Port() *tlm.AnalysisPort[T] {
	return m.port
}

// Run forwards items as they are captured until the context ends.
func (m *Monitor[T]) Run(ctx context.Context) error {
	for {
		item, err := m.get(ctx)
		if err != nil {
			return err
		}

		m.port.Write(item)
	}
}

// Drain forwards the items that are captured but not forwarded yet and
// returns how many there were.
func (m *Monitor[T]) Drain() int {
	n := 0

	for {
		item, err := m.tryGet()
		if err != nil {
			return n
		}

		m.port.Write(item)
		n++
	}
}
