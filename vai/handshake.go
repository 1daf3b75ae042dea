package vai

import (
	"context"
	"log"

	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/sim/hdl"
)

// A Transmitter performs single valid/accept transfers as the sending side,
// for directed tests that do not run the BFM driver.
type Transmitter struct {
	clock  *hdl.Clock
	valid  *hdl.Signal
	accept *hdl.Signal
	fields []*hdl.Signal
	logger *reporting.Logger
}

// NewTransmitter creates a transmitter and drives valid and the data fields
// to 0 right away.
func NewTransmitter(
	clock *hdl.Clock,
	valid, accept *hdl.Signal,
	logger *reporting.Logger,
	fields ...*hdl.Signal,
) *Transmitter {
	valid.SetImmediate(uint128.Zero)
	for _, f := range fields {
		f.SetImmediate(uint128.Zero)
	}

	return &Transmitter{
		clock:  clock,
		valid:  valid,
		accept: accept,
		fields: fields,
		logger: logger,
	}
}

// NewInputTransmitter creates a transmitter for the input side of a bus.
func NewInputTransmitter(bus *Bus, logger *reporting.Logger) *Transmitter {
	return NewTransmitter(bus.Clock, bus.Valid, bus.Accept, logger,
		bus.Mode, bus.Key, bus.Data)
}

// Send drives one value per field and holds valid until the receiver
// accepts. With sync, it first waits for a rising edge.
func (t *Transmitter) Send(
	ctx context.Context,
	sync bool,
	values ...uint128.Uint128,
) error {
	if len(values) != len(t.fields) {
		log.Panicf("transmitter has %d fields, got %d values",
			len(t.fields), len(values))
	}

	if sync {
		if err := t.clock.RisingEdge(ctx); err != nil {
			return err
		}
	}

	if t.logger != nil {
		t.logger.Infof("sending data: 0x%s", Hex(values[len(values)-1]))
	}

	for i, f := range t.fields {
		f.Set(values[i])
	}
	t.valid.SetBool(true)

	for {
		if err := t.clock.RisingEdge(ctx); err != nil {
			return err
		}

		if t.accept.Bool() {
			break
		}
	}

	t.valid.SetBool(false)

	return nil
}

// SendOp sends an operation through an input side transmitter.
func (t *Transmitter) SendOp(ctx context.Context, sync bool, op Operation) error {
	return t.Send(ctx, sync, uint128.From64(uint64(op.Mode)), op.Key, op.Data)
}

// A Receiver performs single valid/accept transfers as the receiving side.
type Receiver struct {
	clock  *hdl.Clock
	valid  *hdl.Signal
	accept *hdl.Signal
	data   *hdl.Signal
	logger *reporting.Logger
}

// NewReceiver creates a receiver and drives accept to 0 right away.
func NewReceiver(
	clock *hdl.Clock,
	data, valid, accept *hdl.Signal,
	logger *reporting.Logger,
) *Receiver {
	accept.SetImmediate(uint128.Zero)

	return &Receiver{
		clock:  clock,
		valid:  valid,
		accept: accept,
		data:   data,
		logger: logger,
	}
}

// NewOutputReceiver creates a receiver for the output side of a bus.
func NewOutputReceiver(bus *Bus, logger *reporting.Logger) *Receiver {
	return NewReceiver(bus.Clock, bus.DataOut, bus.ValidOut, bus.AcceptIn,
		logger)
}

// Receive waits for valid, accepts for one cycle and returns the data that
// was on the bus when the transfer completed.
func (r *Receiver) Receive(ctx context.Context, sync bool) (uint128.Uint128, error) {
	if sync {
		if err := r.clock.RisingEdge(ctx); err != nil {
			return uint128.Zero, err
		}
	}

	for !r.valid.Bool() {
		if err := r.clock.RisingEdge(ctx); err != nil {
			return uint128.Zero, err
		}
	}

	r.accept.SetBool(true)

	if err := r.clock.RisingEdge(ctx); err != nil {
		return uint128.Zero, err
	}

	data := r.data.Value()
	r.accept.SetBool(false)

	if r.logger != nil {
		r.logger.Infof("received data: 0x%s", Hex(data))
	}

	return data, nil
}
