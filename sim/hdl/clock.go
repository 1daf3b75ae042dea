package hdl

import (
	"context"
	"log"

	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/timing"
)

// A Clock produces rising edges at a fixed frequency.
type Clock struct {
	*timing.TickScheduler

	name    string
	running bool
	cycle   uint64
	edge    process.WaitList
}

// NewClock creates a stopped clock in the domain.
func NewClock(d *Domain, name string, freq timing.Freq) *Clock {
	c := &Clock{name: name}
	c.TickScheduler = timing.NewTickScheduler(c, d.kernel.Engine(), freq)

	return c
}

// Name returns the name of the clock.
func (c *Clock) Name() string {
	return c.name
}

// Start makes the clock produce a rising edge every period, starting one
// period from now.
func (c *Clock) Start() {
	if c.running {
		return
	}

	c.running = true
	c.TickLater()
}

// Stop stops producing edges. Processes waiting for an edge stay suspended.
func (c *Clock) Stop() {
	c.running = false
}

// Running tells if the clock is producing edges.
func (c *Clock) Running() bool {
	return c.running
}

// Cycle returns the number of rising edges produced so far.
func (c *Clock) Cycle() uint64 {
	return c.cycle
}

// Handle produces one rising edge.
func (c *Clock) Handle(e timing.Event) error {
	if _, ok := e.(timing.TickEvent); !ok {
		log.Panicf("clock %s cannot handle event of type %T", c.name, e)
	}

	if !c.running {
		return nil
	}

	c.cycle++
	c.edge.NotifyAll()
	c.TickLater()

	return nil
}

// RisingEdge suspends the calling process until the next rising edge.
func (c *Clock) RisingEdge(ctx context.Context) error {
	return c.edge.Wait(ctx)
}

// Cycles suspends the calling process for n rising edges.
func (c *Clock) Cycles(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := c.RisingEdge(ctx); err != nil {
			return err
		}
	}

	return nil
}
