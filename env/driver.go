package env

import (
	"context"

	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/sequencing"
	"github.com/sarchlab/vaiverif/sim/naming"
	"github.com/sarchlab/vaiverif/tlm"
	"github.com/sarchlab/vaiverif/vai"
)

// A Driver resets the bus, starts the BFM tasks and then sends the items of
// the sequencer one by one. It waits for the result of every item before it
// asks for the next one, and publishes the result on its port.
type Driver struct {
	naming.NamedBase

	bfm    *vai.BFM
	seqr   *sequencing.Sequencer
	port   *tlm.AnalysisPort[uint128.Uint128]
	logger *reporting.Logger
}

// NewDriver creates a driver.
func NewDriver(
	name string,
	bfm *vai.BFM,
	seqr *sequencing.Sequencer,
	logger *reporting.Logger,
) *Driver {
	return &Driver{
		NamedBase: naming.MakeNamedBase(name),
		bfm:       bfm,
		seqr:      seqr,
		port:      tlm.NewAnalysisPort[uint128.Uint128](name + ".ResultPort"),
		logger:    logger,
	}
}

// ResultPort publishes every result the driver collects.
func (d *Driver) ResultPort() *tlm.AnalysisPort[uint128.Uint128] {
	return d.port
}

// Run is the body of the driver process. It only returns on errors, which
// includes being killed at the end of the run.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.bfm.Reset(ctx); err != nil {
		return err
	}

	d.bfm.StartTasks()

	for {
		item, err := d.seqr.GetNextItem(ctx)
		if err != nil {
			return err
		}

		d.logger.Debugf("driving %s", item)

		if err := d.bfm.SendOp(ctx, item.Op); err != nil {
			return err
		}

		result, err := d.bfm.GetOutput(ctx)
		if err != nil {
			return err
		}

		d.port.Write(result)
		d.seqr.ItemDone()
	}
}
