package vai

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/sim/hdl"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/timing"
)

var _ = Describe("Transmitter and Receiver", func() {
	var (
		kernel *process.Kernel
		clk    *hdl.Clock
		bus    *Bus
	)

	BeforeEach(func() {
		kernel = process.NewKernel(timing.NewSerialEngine())
		domain := hdl.NewDomain(kernel)
		clk = hdl.NewClock(domain, "clk", 100*timing.MHz)
		bus = NewBus(domain, clk)
	})

	It("should complete one transfer in each direction", func() {
		tx := NewInputTransmitter(bus, nil)
		rx := NewOutputReceiver(bus, nil)
		var received []uint128.Uint128

		kernel.Spawn("core", echoCore(bus, 2))
		kernel.Spawn("test", func(ctx context.Context) error {
			defer clk.Stop()

			for i := uint64(1); i <= 3; i++ {
				if err := tx.SendOp(ctx, true, op(Decrypt, 0, i*7)); err != nil {
					return err
				}
				Expect(bus.Valid.Bool()).To(BeTrue())

				res, err := rx.Receive(ctx, true)
				if err != nil {
					return err
				}
				received = append(received, res)
			}

			return nil
		})

		clk.Start()
		Expect(kernel.Run()).To(Succeed())
		Expect(received).To(Equal([]uint128.Uint128{
			uint128.From64(7), uint128.From64(14), uint128.From64(21),
		}))
		Expect(bus.AcceptIn.Bool()).To(BeFalse())
		Expect(bus.Valid.Bool()).To(BeFalse())
	})

	It("should panic when the number of values does not match", func() {
		tx := NewInputTransmitter(bus, nil)

		Expect(func() {
			_ = tx.Send(context.Background(), false, uint128.Zero)
		}).To(Panic())
	})
})

var _ = Describe("Hex", func() {
	It("should print 32 digits", func() {
		Expect(Hex(uint128.From64(1))).
			To(Equal("00000000000000000000000000000001"))
		Expect(Hex(uint128.Max)).To(Equal("ffffffffffffffffffffffffffffffff"))
	})

	It("should parse what it prints", func() {
		v, err := ParseHex("0x000102030405060708090a0b0c0d0e0f")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint128.New(0x08090a0b0c0d0e0f, 0x0001020304050607)))
		Expect(Hex(v)).To(Equal("000102030405060708090a0b0c0d0e0f"))

		v, err = ParseHex("ff")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint128.From64(0xff)))
	})

	It("should reject invalid values", func() {
		_, err := ParseHex("0xzz")
		Expect(err).To(HaveOccurred())
		_, err = ParseHex("1" + Hex(uint128.Max))
		Expect(err).To(HaveOccurred())
	})

	It("should name modes and operations", func() {
		Expect(Encrypt.String()).To(Equal("Encrypt"))
		Expect(Mode(5).String()).To(Equal("Mode(5)"))
		Expect(op(Decrypt, 1, 2).String()).To(Equal(
			"Decrypt data 0x00000000000000000000000000000002 " +
				"key 0x00000000000000000000000000000001"))
	})
})
