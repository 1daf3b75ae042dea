package process

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaiverif/sim/timing"
)

var _ = Describe("WaitList", func() {
	var (
		kernel *Kernel
		list   *WaitList
		woken  []string
	)

	BeforeEach(func() {
		kernel = NewKernel(timing.NewSerialEngine())
		list = &WaitList{}
		woken = nil
	})

	spawnWaiter := func(name string) *Process {
		return kernel.Spawn(name, func(ctx context.Context) error {
			if err := list.Wait(ctx); err != nil {
				return err
			}
			woken = append(woken, name)
			return nil
		})
	}

	It("should notify waiters one at a time in FIFO order", func() {
		spawnWaiter("w0")
		spawnWaiter("w1")
		kernel.Spawn("notifier", func(ctx context.Context) error {
			Expect(list.Len()).To(Equal(2))
			Expect(list.NotifyOne()).To(BeTrue())
			if err := Sleep(ctx, 1); err != nil {
				return err
			}
			Expect(woken).To(Equal([]string{"w0"}))
			Expect(list.NotifyOne()).To(BeTrue())
			Expect(list.NotifyOne()).To(BeFalse())
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(woken).To(Equal([]string{"w0", "w1"}))
	})

	It("should notify all waiters", func() {
		spawnWaiter("w0")
		spawnWaiter("w1")
		spawnWaiter("w2")
		kernel.Spawn("notifier", func(ctx context.Context) error {
			Expect(list.NotifyAll()).To(Equal(3))
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(woken).To(Equal([]string{"w0", "w1", "w2"}))
	})

	It("should skip waiters that were killed", func() {
		w0 := spawnWaiter("w0")
		spawnWaiter("w1")
		kernel.Spawn("notifier", func(ctx context.Context) error {
			w0.Kill()
			Expect(list.NotifyOne()).To(BeTrue())
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(woken).To(Equal([]string{"w1"}))
		Expect(w0.Err()).To(MatchError(ErrKilled))
	})
})

var _ = Describe("Event", func() {
	var kernel *Kernel

	BeforeEach(func() {
		kernel = NewKernel(timing.NewSerialEngine())
	})

	It("should release waiters when set", func() {
		evt := NewEvent("go")
		var wokeAt []float64

		for i := 0; i < 2; i++ {
			kernel.Spawn("waiter", func(ctx context.Context) error {
				if err := evt.Wait(ctx); err != nil {
					return err
				}
				wokeAt = append(wokeAt, kernel.Now())
				return nil
			})
		}
		kernel.Spawn("setter", func(ctx context.Context) error {
			if err := Sleep(ctx, 4); err != nil {
				return err
			}
			evt.Set()
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(wokeAt).To(Equal([]float64{4, 4}))
		Expect(evt.IsSet()).To(BeTrue())
	})

	It("should not suspend when already set", func() {
		evt := NewEvent("ready")
		evt.Set()

		kernel.Spawn("waiter", func(ctx context.Context) error {
			return evt.Wait(ctx)
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(kernel.Now()).To(Equal(0.0))
	})

	It("should suspend again after being cleared", func() {
		evt := NewEvent("toggle")
		evt.Set()
		evt.Clear()

		Expect(evt.IsSet()).To(BeFalse())
		Expect(evt.Name()).To(Equal("toggle"))
	})
})
