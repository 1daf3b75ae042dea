package env

import (
	"context"
	"fmt"
	"io"

	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/aescore"
	"github.com/sarchlab/vaiverif/config"
	"github.com/sarchlab/vaiverif/refmodel"
	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/sim/hdl"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/timing"
	"github.com/sarchlab/vaiverif/stimulus"
	"github.com/sarchlab/vaiverif/vai"
)

// DirectedResult summarizes a directed test.
type DirectedResult struct {
	Mode    vai.Mode
	Passed  int
	SimTime timing.VTimeInSec
}

// RunDirected sends n operations of one mode with uniformly random keys and
// data, one at a time, without the BFM tasks. Every result is checked as
// soon as it is received, and the test stops at the first wrong result with
// an error that wraps ErrTestFailed.
func RunDirected(
	cfg config.Config,
	mode vai.Mode,
	n int,
	w io.Writer,
) (DirectedResult, error) {
	if err := cfg.Validate(); err != nil {
		return DirectedResult{}, err
	}

	severity, err := reporting.ParseSeverity(cfg.Verbosity)
	if err != nil {
		return DirectedResult{}, err
	}

	name := "Directed" + mode.String()

	engine := timing.NewSerialEngine()
	kernel := process.NewKernel(engine)
	logger := reporting.NewLogger(w, name).WithClock(kernel)
	logger.SetVerbosity(severity)

	domain := hdl.NewDomain(kernel)
	period := timing.VTimeInSec(cfg.ClockPeriodNS) * timing.NS
	clk := hdl.NewClock(domain, name+".Clk", timing.FreqFromPeriod(period))
	bus := vai.NewBus(domain, clk)

	core := aescore.MakeBuilder().
		WithKernel(kernel).
		WithBus(bus).
		WithLogger(logger.Child(name + ".Core")).
		WithNumStage(cfg.NumStage).
		WithExtraLatency(cfg.ExtraLatency).
		WithSeed(stimulus.DeriveSeed(cfg.Seed, name+".Core")).
		Build(name + ".Core")

	tx := vai.NewInputTransmitter(bus, logger.Child(name+".Driver"))
	rx := vai.NewOutputReceiver(bus, logger.Child(name+".Receiver"))
	bus.Reset.SetImmediate(uint128.Zero)

	gen := stimulus.NewGenerator(stimulus.DeriveSeed(cfg.Seed, name)).
		WithKeyDist(stimulus.DataDist())
	cipher := refmodel.NewECB()

	res := DirectedResult{Mode: mode}

	test := kernel.Spawn(name, func(ctx context.Context) error {
		defer clk.Stop()

		logger.Infof("Hold reset")

		if err := process.Sleep(ctx,
			timing.VTimeInSec(cfg.ResetNS)*timing.NS); err != nil {
			return err
		}

		bus.Reset.SetBool(true)
		logger.Infof("Released reset")

		for i := 0; i < n; i++ {
			key, data := gen.Randomize()
			op := vai.Operation{Mode: mode, Key: key, Data: data}

			if err := tx.SendOp(ctx, true, op); err != nil {
				return err
			}

			expected := cipher.Encrypt(key, data)
			if mode == vai.Decrypt {
				expected = cipher.Decrypt(key, data)
			}

			got, err := rx.Receive(ctx, false)
			if err != nil {
				return err
			}

			if !got.Equals(expected) {
				return fmt.Errorf("%w: %s error, got 0x%s, expected 0x%s",
					ErrTestFailed, mode, vai.Hex(got), vai.Hex(expected))
			}

			res.Passed++
		}

		return nil
	})

	core.Start()
	clk.Start()

	if err := kernel.Run(); err != nil {
		return res, err
	}

	res.SimTime = kernel.Now()

	if err := test.Err(); err != nil {
		logger.Errorf("%v", err)
		return res, err
	}

	logger.Infof("%d %s operations passed", res.Passed, mode)

	return res, nil
}
