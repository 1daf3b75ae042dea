package process

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/timing"
)

var _ = Describe("Kernel", func() {
	var (
		kernel *Kernel
		trace  []string
	)

	record := func(format string, args ...any) {
		trace = append(trace, fmt.Sprintf(format, args...))
	}

	BeforeEach(func() {
		kernel = NewKernel(timing.NewSerialEngine())
		trace = nil
	})

	It("should start processes in spawn order", func() {
		for i := 0; i < 3; i++ {
			kernel.Spawn(fmt.Sprintf("p%d", i), func(ctx context.Context) error {
				record("%s", Current(ctx).Name())
				return nil
			})
		}

		Expect(kernel.Run()).To(Succeed())
		Expect(trace).To(Equal([]string{"p0", "p1", "p2"}))
	})

	It("should interleave sleeping processes by time", func() {
		kernel.Spawn("a", func(ctx context.Context) error {
			for i := 0; i < 3; i++ {
				if err := Sleep(ctx, 2); err != nil {
					return err
				}
				record("a@%.0f", kernel.Now())
			}
			return nil
		})
		kernel.Spawn("b", func(ctx context.Context) error {
			for i := 0; i < 2; i++ {
				if err := Sleep(ctx, 3); err != nil {
					return err
				}
				record("b@%.0f", kernel.Now())
			}
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		// Same-time wakeups run in the order they were scheduled. b asked
		// for t=6 at t=3, before a asked at t=4.
		Expect(trace).To(Equal([]string{"a@2", "b@3", "a@4", "b@6", "a@6"}))
	})

	It("should resume a killed process with ErrKilled", func() {
		var sleepErr error

		victim := kernel.Spawn("victim", func(ctx context.Context) error {
			sleepErr = Sleep(ctx, 100)
			record("victim woke @%.0f", kernel.Now())
			return sleepErr
		})
		kernel.Spawn("killer", func(ctx context.Context) error {
			if err := Sleep(ctx, 5); err != nil {
				return err
			}
			victim.Kill()
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(sleepErr).To(MatchError(ErrKilled))
		Expect(victim.Killed()).To(BeTrue())
		Expect(victim.Done()).To(BeTrue())
		Expect(trace).To(Equal([]string{"victim woke @5"}))
		Expect(kernel.Now()).To(Equal(100.0))
	})

	It("should cancel the context of a killed process", func() {
		var ctxErr error

		victim := kernel.Spawn("victim", func(ctx context.Context) error {
			err := Sleep(ctx, 10)
			ctxErr = ctx.Err()
			return err
		})
		kernel.Spawn("killer", func(ctx context.Context) error {
			victim.Kill()
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(ctxErr).To(MatchError(context.Canceled))
	})

	It("should let a kill take effect before a same-time respawn", func() {
		var idle WaitList

		first := kernel.Spawn("first", func(ctx context.Context) error {
			err := idle.Wait(ctx)
			record("first exits: %v", err)
			return err
		})

		kernel.Spawn("restarter", func(ctx context.Context) error {
			if err := Sleep(ctx, 3); err != nil {
				return err
			}

			first.Kill()
			kernel.Spawn("second", func(ctx context.Context) error {
				record("second starts, first done=%v", first.Done())
				return nil
			})

			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(trace).To(Equal([]string{
			"first exits: process killed",
			"second starts, first done=true",
		}))
	})

	It("should join processes", func() {
		worker := kernel.Spawn("worker", func(ctx context.Context) error {
			return Sleep(ctx, 7)
		})
		kernel.Spawn("parent", func(ctx context.Context) error {
			if err := worker.Join(ctx); err != nil {
				return err
			}
			record("joined @%.0f", kernel.Now())
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(trace).To(Equal([]string{"joined @7"}))
	})

	It("should report the first failing process from JoinAll", func() {
		boom := errors.New("boom")
		var joinErr error

		a := kernel.Spawn("a", func(ctx context.Context) error {
			return Sleep(ctx, 1)
		})
		b := kernel.Spawn("b", func(ctx context.Context) error {
			if err := Sleep(ctx, 2); err != nil {
				return err
			}
			return boom
		})
		kernel.Spawn("parent", func(ctx context.Context) error {
			joinErr = JoinAll(ctx, a, b)
			return nil
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(joinErr).To(MatchError(boom))
	})

	It("should kill the remaining processes at the end of the run", func() {
		var waitErr error

		p := kernel.Spawn("forever", func(ctx context.Context) error {
			var never WaitList
			waitErr = never.Wait(ctx)
			return waitErr
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(waitErr).To(MatchError(ErrKilled))
		Expect(p.Done()).To(BeTrue())
		Expect(kernel.Processes()).To(BeEmpty())
	})

	It("should stop the run", func() {
		kernel.Spawn("ticker", func(ctx context.Context) error {
			for {
				if err := Sleep(ctx, 1); err != nil {
					return err
				}
				if kernel.Now() >= 10 {
					kernel.Stop()
				}
			}
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(kernel.Now()).To(Equal(10.0))
	})

	It("should re-panic a process panic in the kernel", func() {
		kernel.Spawn("bad", func(ctx context.Context) error {
			panic("bad process")
		})

		Expect(func() { _ = kernel.Run() }).To(Panic())
	})

	It("should invoke hooks when processes start and end", func() {
		var positions []string

		kernel.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			p := ctx.Item.(*Process)
			positions = append(positions, ctx.Pos.Name+":"+p.Name())
		}))

		kernel.Spawn("p", func(ctx context.Context) error {
			return Sleep(ctx, 1)
		})

		Expect(kernel.Run()).To(Succeed())
		Expect(positions).To(Equal([]string{"ProcessStart:p", "ProcessEnd:p"}))
	})
})
