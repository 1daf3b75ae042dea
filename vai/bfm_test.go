package vai

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/sim/hdl"
	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/timing"
)

type pendingResult struct {
	result  uint128.Uint128
	readyAt uint64
}

// echoCore is a minimal core that accepts with a registered accept_o and
// returns the data of every operation after latency cycles, in order.
func echoCore(bus *Bus, latency uint64) process.Func {
	return func(ctx context.Context) error {
		var pending []pendingResult

		accept := false
		validOut := false

		for {
			if err := bus.Clock.RisingEdge(ctx); err != nil {
				return err
			}

			cycle := bus.Clock.Cycle()

			if validOut && bus.AcceptIn.Bool() {
				validOut = false
			}

			if accept {
				if bus.Valid.Bool() {
					op := bus.InputOperation()
					pending = append(pending,
						pendingResult{op.Data, cycle + latency})
				}
				accept = false
			} else if bus.Valid.Bool() {
				accept = true
			}

			if !validOut && len(pending) > 0 && pending[0].readyAt <= cycle {
				bus.DataOut.Set(pending[0].result)
				pending = pending[1:]
				validOut = true
			}

			bus.Accept.SetBool(accept)
			bus.ValidOut.SetBool(validOut)
		}
	}
}

func op(mode Mode, key, data uint64) Operation {
	return Operation{
		Mode: mode,
		Key:  uint128.From64(key),
		Data: uint128.From64(data),
	}
}

var _ = Describe("BFM", func() {
	var (
		kernel *process.Kernel
		clk    *hdl.Clock
		bus    *Bus
		out    *bytes.Buffer
		bfm    *BFM
	)

	BeforeEach(func() {
		kernel = process.NewKernel(timing.NewSerialEngine())
		domain := hdl.NewDomain(kernel)
		clk = hdl.NewClock(domain, "clk", 100*timing.MHz)
		bus = NewBus(domain, clk)
		out = new(bytes.Buffer)
		bfm = MakeBFMBuilder().
			WithKernel(kernel).
			WithBus(bus).
			WithLogger(reporting.NewLogger(out, "BFM")).
			WithStallWarningCycles(5).
			Build("BFM")
	})

	run := func(body process.Func) {
		kernel.Spawn("test", func(ctx context.Context) error {
			defer clk.Stop()
			return body(ctx)
		})
		clk.Start()
		Expect(kernel.Run()).To(Succeed())
	}

	It("should hold reset for the reset duration", func() {
		var duringReset, afterReset bool

		run(func(ctx context.Context) error {
			kernel.Spawn("watcher", func(ctx context.Context) error {
				if err := process.Sleep(ctx, 50*timing.NS); err != nil {
					return err
				}
				duringReset = bus.Reset.Bool()
				return nil
			})

			if err := bfm.Reset(ctx); err != nil {
				return err
			}

			if err := clk.RisingEdge(ctx); err != nil {
				return err
			}
			afterReset = bus.Reset.Bool()

			return nil
		})

		Expect(duringReset).To(BeFalse())
		Expect(afterReset).To(BeTrue())
	})

	It("should pass operations through in order", func() {
		ops := []Operation{
			op(Encrypt, 1, 10),
			op(Decrypt, 2, 20),
			op(Encrypt, 3, 30),
		}
		var inputs []Operation
		var outputs []uint128.Uint128

		run(func(ctx context.Context) error {
			kernel.Spawn("core", echoCore(bus, 3))

			if err := bfm.Reset(ctx); err != nil {
				return err
			}
			bfm.StartTasks()

			for _, o := range ops {
				if err := bfm.SendOp(ctx, o); err != nil {
					return err
				}
			}

			for range ops {
				in, err := bfm.GetInput(ctx)
				if err != nil {
					return err
				}
				inputs = append(inputs, in)

				res, err := bfm.GetOutput(ctx)
				if err != nil {
					return err
				}
				outputs = append(outputs, res)
			}

			return nil
		})

		Expect(inputs).To(Equal(ops))
		Expect(outputs).To(Equal([]uint128.Uint128{
			uint128.From64(10), uint128.From64(20), uint128.From64(30),
		}))
		_, err := bfm.TryGetInput()
		Expect(err).To(HaveOccurred())
		_, err = bfm.TryGetOutput()
		Expect(err).To(HaveOccurred())
	})

	It("should never accept for two cycles in a row", func() {
		maxRun := 0

		run(func(ctx context.Context) error {
			kernel.Spawn("core", echoCore(bus, 0))
			kernel.Spawn("checker", func(ctx context.Context) error {
				consecutive := 0
				for {
					if err := clk.RisingEdge(ctx); err != nil {
						return err
					}
					if bus.AcceptIn.Bool() {
						consecutive++
					} else {
						consecutive = 0
					}
					maxRun = max(maxRun, consecutive)
				}
			})

			bfm.StartTasks()
			for i := uint64(0); i < 8; i++ {
				if err := bfm.SendOp(ctx, op(Encrypt, i, i)); err != nil {
					return err
				}
			}

			for i := 0; i < 8; i++ {
				if _, err := bfm.GetOutput(ctx); err != nil {
					return err
				}
			}

			return nil
		})

		Expect(maxRun).To(Equal(1))
	})

	It("should not duplicate observations when a monitor restarts", func() {
		const n = 6
		observed := 0

		bfm.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosInputObserved {
				observed++
			}
		}))

		run(func(ctx context.Context) error {
			kernel.Spawn("core", echoCore(bus, 1))
			bfm.StartTasks()

			for i := uint64(0); i < n; i++ {
				if err := bfm.SendOp(ctx, op(Decrypt, i, i)); err != nil {
					return err
				}
				old := bfm.Task(RoleInputMonitor)
				bfm.Restart(RoleInputMonitor)
				Expect(old.Killed()).To(BeTrue())
			}

			for i := 0; i < n; i++ {
				if _, err := bfm.GetOutput(ctx); err != nil {
					return err
				}
			}

			// Let the monitor see the last handshake.
			return clk.Cycles(ctx, 2)
		})

		Expect(observed).To(Equal(n))
		Expect(bfm.InputQueue().Size()).To(Equal(n))
	})

	It("should warn when accept_o never comes", func() {
		var warnings []int

		bfm.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosProtocolWarning {
				warnings = append(warnings, ctx.Detail.(int))
			}
		}))

		run(func(ctx context.Context) error {
			bfm.StartTasks()
			if err := bfm.SendOp(ctx, op(Encrypt, 0, 0)); err != nil {
				return err
			}

			return clk.Cycles(ctx, 10)
		})

		Expect(warnings).To(Equal([]int{5}))
		Expect(bfm.DriverState()).To(Equal(DriverAsserted))
		Expect(out.String()).To(ContainSubstring("WARNING"))
	})

	It("should stop all tasks", func() {
		run(func(ctx context.Context) error {
			bfm.StartTasks()
			if err := clk.RisingEdge(ctx); err != nil {
				return err
			}

			driver := bfm.Task(RoleDriver)
			bfm.StopTasks()
			Expect(bfm.Task(RoleDriver)).To(BeNil())

			if err := clk.RisingEdge(ctx); err != nil {
				return err
			}
			Expect(driver.Done()).To(BeTrue())

			return nil
		})
	})
})
