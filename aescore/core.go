// Package aescore is a behavioural model of an AES core with valid/accept
// interfaces. It stands in for the RTL design under test.
package aescore

import (
	"context"
	"log"
	"math/rand/v2"

	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/refmodel"
	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/queueing"
	"github.com/sarchlab/vaiverif/vai"
)

// HookPosLatched is triggered when the core takes an operation. The item is
// the operation and the detail is the result it will produce.
var HookPosLatched = &hooking.HookPos{Name: "CoreLatched"}

// A Corruption rewrites the result of an operation. It is used to inject
// faults in negative tests.
type Corruption func(op vai.Operation, result uint128.Uint128) uint128.Uint128

type job struct {
	op     vai.Operation
	result uint128.Uint128
}

// Core accepts one operation at a time, processes operations in order in a
// pipeline and offers the results on the output side.
//
// accept_o is registered: the core raises it on the edge after it sees
// valid_i, and takes the operation on the following edge. reset_i is active
// low and flushes the pipeline.
type Core struct {
	hooking.HookableBase

	name   string
	kernel *process.Kernel
	bus    *vai.Bus
	cipher refmodel.Cipher
	logger *reporting.Logger

	pipeline     *queueing.Pipeline[job]
	done         *queueing.Buffer[job]
	extraLatency int
	rng          *rand.Rand
	corrupt      Corruption

	proc       *process.Process
	accepting  bool
	presenting bool
	processed  int
}

// Name returns the name of the core.
func (c *Core) Name() string {
	return c.name
}

// Processed returns the number of operations the core has taken.
func (c *Core) Processed() int {
	return c.processed
}

// Start launches the process that models the core.
func (c *Core) Start() *process.Process {
	if c.proc != nil && !c.proc.Done() {
		return c.proc
	}

	c.proc = c.kernel.Spawn(c.name, c.run)

	return c.proc
}

// Stop terminates the core process.
func (c *Core) Stop() {
	if c.proc != nil {
		c.proc.Kill()
	}
}

func (c *Core) run(ctx context.Context) error {
	c.bus.Accept.SetBool(false)
	c.bus.ValidOut.SetBool(false)

	for {
		if err := c.bus.Clock.RisingEdge(ctx); err != nil {
			return err
		}

		if !c.bus.Reset.Bool() {
			c.reset()
			continue
		}

		c.step()
	}
}

func (c *Core) reset() {
	c.pipeline.Clear()
	c.done.Clear()
	c.accepting = false
	c.presenting = false

	c.bus.Accept.SetBool(false)
	c.bus.ValidOut.SetBool(false)
}

func (c *Core) step() {
	bus := c.bus

	if c.presenting && bus.AcceptIn.Bool() {
		c.presenting = false
	}

	c.pipeline.Tick()

	if !c.presenting {
		if j, err := c.done.Pop(); err == nil {
			bus.DataOut.Set(j.result)
			c.presenting = true
		}
	}

	switch {
	case c.accepting:
		if bus.Valid.Bool() {
			c.latch(bus.InputOperation())
		} else {
			c.logger.Warningf("valid_i dropped before the transfer completed")
		}

		c.accepting = false
	case bus.Valid.Bool() && c.pipeline.CanAccept():
		c.accepting = true
	}

	bus.Accept.SetBool(c.accepting)
	bus.ValidOut.SetBool(c.presenting)
}

func (c *Core) latch(op vai.Operation) {
	var result uint128.Uint128

	switch op.Mode {
	case vai.Encrypt:
		result = c.cipher.Encrypt(op.Key, op.Data)
	default:
		result = c.cipher.Decrypt(op.Key, op.Data)
	}

	if c.corrupt != nil {
		result = c.corrupt(op, result)
	}

	extra := 0
	if c.extraLatency > 0 {
		extra = c.rng.IntN(c.extraLatency + 1)
	}

	c.processed++
	c.pipeline.AcceptWithExtraCycles(job{op: op, result: result}, extra)

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosLatched,
			Item:   op,
			Detail: result,
		})
	}
}

// Builder builds cores.
type Builder struct {
	kernel       *process.Kernel
	bus          *vai.Bus
	cipher       refmodel.Cipher
	logger       *reporting.Logger
	numStage     int
	extraLatency int
	seed         uint64
	corrupt      Corruption
}

// MakeBuilder returns a builder for a 10 stage AES-128 core with a fixed
// latency.
func MakeBuilder() Builder {
	return Builder{
		cipher:   refmodel.NewECB(),
		numStage: 10,
		seed:     1,
	}
}

// WithKernel sets the kernel that runs the core.
func (b Builder) WithKernel(k *process.Kernel) Builder {
	b.kernel = k
	return b
}

// WithBus sets the bus the core is connected to.
func (b Builder) WithBus(bus *vai.Bus) Builder {
	b.bus = bus
	return b
}

// WithCipher replaces the cipher the core computes with.
func (b Builder) WithCipher(c refmodel.Cipher) Builder {
	b.cipher = c
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *reporting.Logger) Builder {
	b.logger = l
	return b
}

// WithNumStage sets the depth of the pipeline, which is also the minimum
// number of cycles between taking an operation and offering its result.
func (b Builder) WithNumStage(n int) Builder {
	b.numStage = n
	return b
}

// WithExtraLatency makes every operation stay up to n more cycles in the
// first stage, drawn uniformly per operation. Results stay in order.
func (b Builder) WithExtraLatency(n int) Builder {
	b.extraLatency = n
	return b
}

// WithSeed seeds the latency randomization.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithCorruption sets a function that rewrites every result.
func (b Builder) WithCorruption(fn Corruption) Builder {
	b.corrupt = fn
	return b
}

// Build creates the core.
func (b Builder) Build(name string) *Core {
	if b.kernel == nil || b.bus == nil {
		log.Panicf("core %s needs a kernel and a bus", name)
	}

	logger := b.logger
	if logger == nil {
		logger = reporting.NewLogger(log.Writer(), name)
	}

	done := queueing.NewBuffer[job](name+".Done", 1)
	pipeline := queueing.MakePipelineBuilder[job]().
		WithNumStage(b.numStage).
		WithCyclePerStage(1).
		WithPostPipelineBuffer(done).
		Build(name + ".Pipeline")

	return &Core{
		name:         name,
		kernel:       b.kernel,
		bus:          b.bus,
		cipher:       b.cipher,
		logger:       logger,
		pipeline:     pipeline,
		done:         done,
		extraLatency: b.extraLatency,
		rng:          rand.New(rand.NewPCG(b.seed, b.seed^0x9e3779b97f4a7c15)),
		corrupt:      b.corrupt,
	}
}
