package vai

import (
	"github.com/sarchlab/vaiverif/sim/hdl"
)

// Bus is the set of signals between the testbench and the core. The _i
// signals are core inputs and the _o signals are core outputs.
type Bus struct {
	Clock *hdl.Clock

	Reset  *hdl.Signal // reset_i, active low
	Valid  *hdl.Signal // valid_i
	Accept *hdl.Signal // accept_o
	Mode   *hdl.Signal // mode_i
	Key    *hdl.Signal // key_i
	Data   *hdl.Signal // data_i

	ValidOut *hdl.Signal // valid_o
	AcceptIn *hdl.Signal // accept_i
	DataOut  *hdl.Signal // data_o
}

// NewBus creates the signals of the bus in the domain.
func NewBus(d *hdl.Domain, clock *hdl.Clock) *Bus {
	return &Bus{
		Clock:    clock,
		Reset:    d.NewSignal("reset_i", 1),
		Valid:    d.NewSignal("valid_i", 1),
		Accept:   d.NewSignal("accept_o", 1),
		Mode:     d.NewSignal("mode_i", 1),
		Key:      d.NewSignal("key_i", 128),
		Data:     d.NewSignal("data_i", 128),
		ValidOut: d.NewSignal("valid_o", 1),
		AcceptIn: d.NewSignal("accept_i", 1),
		DataOut:  d.NewSignal("data_o", 128),
	}
}

// InputOperation returns the operation currently on the input side.
func (b *Bus) InputOperation() Operation {
	return Operation{
		Mode: Mode(b.Mode.Uint64()),
		Key:  b.Key.Value(),
		Data: b.Data.Value(),
	}
}
