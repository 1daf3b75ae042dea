package vai

import (
	"context"

	"lukechampine.com/uint128"
)

// drive moves operations from the driver queue onto the input side. It only
// ever fetches without blocking, so it reacts on every clock edge.
func (b *BFM) drive(ctx context.Context) error {
	bus := b.bus

	bus.Valid.SetBool(false)
	bus.Key.Set(uint128.Zero)
	bus.Data.Set(uint128.Zero)
	b.driverState = DriverIdle

	for {
		if err := bus.Clock.RisingEdge(ctx); err != nil {
			return err
		}

		switch b.driverState {
		case DriverIdle:
			op, err := b.driverQueue.TryGet()
			if err != nil {
				continue
			}

			bus.Mode.SetUint64(uint64(op.Mode))
			bus.Key.Set(op.Key)
			bus.Data.Set(op.Data)
			bus.Valid.SetBool(true)

			b.driving = op
			b.stallCycles = 0
			b.driverState = DriverAsserted
			b.invoke(HookPosOperationDriven, op, nil)

		case DriverAsserted:
			if bus.Accept.Bool() {
				bus.Valid.SetBool(false)
				b.driverState = DriverIdle

				continue
			}

			b.stallCycles++
			if b.stallWarnCycles > 0 && b.stallCycles == b.stallWarnCycles {
				b.logger.Warningf(
					"accept_o not asserted %d cycles after valid_i for %s",
					b.stallCycles, b.driving)
				b.invoke(HookPosProtocolWarning, b.driving, b.stallCycles)
			}
		}
	}
}

// accept takes results from the core. It raises accept_i for exactly one
// cycle per valid_o pulse.
func (b *BFM) accept(ctx context.Context) error {
	bus := b.bus

	bus.AcceptIn.SetBool(false)

	for {
		if err := bus.Clock.RisingEdge(ctx); err != nil {
			return err
		}

		bus.AcceptIn.SetBool(bus.ValidOut.Bool() && !bus.AcceptIn.Bool())
	}
}

func (b *BFM) monitorInput(ctx context.Context) error {
	bus := b.bus

	for {
		if err := bus.Clock.RisingEdge(ctx); err != nil {
			return err
		}

		if !bus.Valid.Bool() || !bus.Accept.Bool() {
			continue
		}

		op := bus.InputOperation()
		b.inputQueue.Push(op)
		b.logger.Debugf("input observed: %s", op)
		b.invoke(HookPosInputObserved, op, nil)
	}
}

func (b *BFM) monitorOutput(ctx context.Context) error {
	bus := b.bus

	for {
		if err := bus.Clock.RisingEdge(ctx); err != nil {
			return err
		}

		if !bus.ValidOut.Bool() || !bus.AcceptIn.Bool() {
			continue
		}

		result := bus.DataOut.Value()
		b.outputQueue.Push(result)
		b.logger.Debugf("output observed: 0x%s", Hex(result))
		b.invoke(HookPosOutputObserved, result, nil)
	}
}
