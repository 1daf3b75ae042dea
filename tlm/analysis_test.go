package tlm

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/timing"
)

var _ = Describe("AnalysisPort", func() {
	var mockCtrl *gomock.Controller

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should broadcast to all subscribers in order", func() {
		port := NewAnalysisPort[int]("Mon.AP")
		first := NewMockSubscriber[int](mockCtrl)
		second := NewMockSubscriber[int](mockCtrl)

		w1 := first.EXPECT().Write(1)
		w2 := second.EXPECT().Write(1).After(w1)
		w3 := first.EXPECT().Write(2).After(w2)
		second.EXPECT().Write(2).After(w3)

		port.Connect(first)
		port.Connect(second)
		Expect(port.NumSubscribers()).To(Equal(2))

		port.Write(1)
		port.Write(2)
	})

	It("should accept plain functions", func() {
		port := NewAnalysisPort[string]("AP")
		var got []string
		port.Connect(SubscriberFunc[string](func(s string) {
			got = append(got, s)
		}))

		port.Write("a")

		Expect(got).To(Equal([]string{"a"}))
	})
})

var _ = Describe("AnalysisFIFO", func() {
	It("should store transactions in order", func() {
		fifo := NewAnalysisFIFO[int]("FIFO")
		Expect(fifo.CanGet()).To(BeFalse())

		fifo.Write(1)
		fifo.Write(2)

		Expect(fifo.Size()).To(Equal(2))
		v, ok := fifo.TryGet()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(1))
		v, ok = fifo.TryGet()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(2))
		_, ok = fifo.TryGet()
		Expect(ok).To(BeFalse())
	})

	It("should let a process wait for a transaction", func() {
		kernel := process.NewKernel(timing.NewSerialEngine())
		fifo := NewAnalysisFIFO[int]("FIFO")
		var got int
		var at float64

		kernel.Spawn("reader", func(ctx context.Context) error {
			v, err := fifo.Get(ctx)
			got, at = v, kernel.Now()
			return err
		})
		kernel.Spawn("writer", func(ctx context.Context) error {
			if err := process.Sleep(ctx, 3); err != nil {
				return err
			}
			fifo.Write(9)
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(got).To(Equal(9))
		Expect(at).To(Equal(3.0))
	})
})
