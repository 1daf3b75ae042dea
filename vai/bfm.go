package vai

import (
	"context"
	"fmt"
	"log"

	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/queueing"
	"github.com/sarchlab/vaiverif/sim/timing"
)

// HookPosOperationDriven is triggered when the driver puts an operation on
// the input side of the bus.
var HookPosOperationDriven = &hooking.HookPos{Name: "OperationDriven"}

// HookPosInputObserved is triggered when the input monitor captures a
// completed input handshake. The item is the Operation.
var HookPosInputObserved = &hooking.HookPos{Name: "InputObserved"}

// HookPosOutputObserved is triggered when the output monitor captures a
// completed output handshake. The item is the uint128.Uint128 result.
var HookPosOutputObserved = &hooking.HookPos{Name: "OutputObserved"}

// HookPosProtocolWarning is triggered when the driver detects a stalled
// handshake. The item is the stalled Operation and the detail is the number
// of cycles it has been waiting.
var HookPosProtocolWarning = &hooking.HookPos{Name: "ProtocolWarning"}

// Role identifies one of the four tasks of the BFM.
type Role int

// The tasks of the BFM.
const (
	RoleDriver Role = iota
	RoleAcceptor
	RoleInputMonitor
	RoleOutputMonitor
	numRoles
)

var roleNames = [numRoles]string{
	"Driver", "Acceptor", "InputMonitor", "OutputMonitor",
}

func (r Role) String() string {
	if r < 0 || r >= numRoles {
		return fmt.Sprintf("Role(%d)", int(r))
	}

	return roleNames[r]
}

// Roles returns all the roles in launch order.
func Roles() []Role {
	return []Role{RoleDriver, RoleAcceptor, RoleInputMonitor, RoleOutputMonitor}
}

// DriverState is the state of the driver task.
type DriverState int

// The states of the driver task.
const (
	DriverIdle DriverState = iota
	DriverAsserted
)

func (s DriverState) String() string {
	if s == DriverAsserted {
		return "Asserted"
	}

	return "Idle"
}

// A BFM drives and observes a valid/accept bus with four clocked tasks: a
// driver for the input side, an acceptor for the output side, and one
// monitor per side.
type BFM struct {
	hooking.HookableBase

	name   string
	kernel *process.Kernel
	bus    *Bus
	logger *reporting.Logger

	resetDuration   timing.VTimeInSec
	stallWarnCycles int

	driverQueue *queueing.Queue[Operation]
	inputQueue  *queueing.Queue[Operation]
	outputQueue *queueing.Queue[uint128.Uint128]

	tasks       [numRoles]*process.Process
	driverState DriverState
	stallCycles int
	driving     Operation
}

// Name returns the name of the BFM.
func (b *BFM) Name() string {
	return b.name
}

// Bus returns the bus that the BFM is connected to.
func (b *BFM) Bus() *Bus {
	return b.bus
}

// DriverState returns the current state of the driver task.
func (b *BFM) DriverState() DriverState {
	return b.driverState
}

// DriverQueue returns the queue that feeds the driver.
func (b *BFM) DriverQueue() *queueing.Queue[Operation] {
	return b.driverQueue
}

// InputQueue returns the queue filled by the input monitor.
func (b *BFM) InputQueue() *queueing.Queue[Operation] {
	return b.inputQueue
}

// OutputQueue returns the queue filled by the output monitor.
func (b *BFM) OutputQueue() *queueing.Queue[uint128.Uint128] {
	return b.outputQueue
}

// Task returns the process currently running the role, or nil.
func (b *BFM) Task(r Role) *process.Process {
	return b.tasks[r]
}

// Reset holds reset_i low for the reset duration with every bus input at its
// idle value, then releases it.
func (b *BFM) Reset(ctx context.Context) error {
	b.bus.Reset.SetBool(false)
	b.bus.Valid.SetBool(false)
	b.bus.Mode.SetUint64(0)
	b.bus.Key.Set(uint128.Zero)
	b.bus.Data.Set(uint128.Zero)
	b.bus.AcceptIn.SetBool(false)

	b.logger.Debugf("reset asserted")

	if err := process.Sleep(ctx, b.resetDuration); err != nil {
		return err
	}

	b.bus.Reset.SetBool(true)
	b.logger.Debugf("reset released")

	return nil
}

// StartTasks launches the four tasks, replacing any running instance.
func (b *BFM) StartTasks() {
	for _, r := range Roles() {
		b.Restart(r)
	}
}

// Restart terminates the running instance of the role, if any, and launches
// a new one. The old instance is gone before the new one runs its first
// step, so two instances never act on the same cycle.
func (b *BFM) Restart(r Role) *process.Process {
	if old := b.tasks[r]; old != nil {
		old.Kill()
	}

	var fn process.Func

	switch r {
	case RoleDriver:
		fn = b.drive
	case RoleAcceptor:
		fn = b.accept
	case RoleInputMonitor:
		fn = b.monitorInput
	case RoleOutputMonitor:
		fn = b.monitorOutput
	default:
		log.Panicf("unknown BFM role %d", int(r))
	}

	p := b.kernel.Spawn(b.name+"."+r.String(), fn)
	b.tasks[r] = p

	return p
}

// StopTasks terminates all the running tasks.
func (b *BFM) StopTasks() {
	for i, p := range b.tasks {
		if p != nil {
			p.Kill()
			b.tasks[i] = nil
		}
	}
}

// SendOp queues an operation for the driver, waiting while the driver queue
// is full.
func (b *BFM) SendOp(ctx context.Context, op Operation) error {
	return b.driverQueue.Put(ctx, op)
}

// GetInput returns the next operation captured by the input monitor,
// waiting if there is none yet.
func (b *BFM) GetInput(ctx context.Context) (Operation, error) {
	return b.inputQueue.Get(ctx)
}

// GetOutput returns the next result captured by the output monitor, waiting
// if there is none yet.
func (b *BFM) GetOutput(ctx context.Context) (uint128.Uint128, error) {
	return b.outputQueue.Get(ctx)
}

// TryGetInput returns the next captured operation or queueing.ErrEmpty.
func (b *BFM) TryGetInput() (Operation, error) {
	return b.inputQueue.TryGet()
}

// TryGetOutput returns the next captured result or queueing.ErrEmpty.
func (b *BFM) TryGetOutput() (uint128.Uint128, error) {
	return b.outputQueue.TryGet()
}

func (b *BFM) invoke(pos *hooking.HookPos, item, detail any) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

// BFMBuilder builds BFMs.
type BFMBuilder struct {
	kernel          *process.Kernel
	bus             *Bus
	logger          *reporting.Logger
	resetDuration   timing.VTimeInSec
	stallWarnCycles int
	driverQueueCap  int
}

// MakeBFMBuilder returns a builder with a 100ns reset, a single slot driver
// queue and a stall warning after 1000 cycles.
func MakeBFMBuilder() BFMBuilder {
	return BFMBuilder{
		resetDuration:   100 * timing.NS,
		stallWarnCycles: 1000,
		driverQueueCap:  1,
	}
}

// WithKernel sets the kernel that runs the tasks.
func (b BFMBuilder) WithKernel(k *process.Kernel) BFMBuilder {
	b.kernel = k
	return b
}

// WithBus sets the bus to drive.
func (b BFMBuilder) WithBus(bus *Bus) BFMBuilder {
	b.bus = bus
	return b
}

// WithLogger sets the logger.
func (b BFMBuilder) WithLogger(l *reporting.Logger) BFMBuilder {
	b.logger = l
	return b
}

// WithResetDuration sets how long Reset holds reset_i low.
func (b BFMBuilder) WithResetDuration(d timing.VTimeInSec) BFMBuilder {
	b.resetDuration = d
	return b
}

// WithStallWarningCycles sets after how many cycles of valid_i without
// accept_o the driver warns. 0 disables the warning.
func (b BFMBuilder) WithStallWarningCycles(n int) BFMBuilder {
	b.stallWarnCycles = n
	return b
}

// WithDriverQueueCapacity sets the capacity of the driver queue. 0 makes it
// unbounded.
func (b BFMBuilder) WithDriverQueueCapacity(n int) BFMBuilder {
	b.driverQueueCap = n
	return b
}

// Build creates the BFM.
func (b BFMBuilder) Build(name string) *BFM {
	if b.kernel == nil || b.bus == nil {
		log.Panicf("BFM %s needs a kernel and a bus", name)
	}

	logger := b.logger
	if logger == nil {
		logger = reporting.NewLogger(log.Writer(), name)
	}

	return &BFM{
		name:            name,
		kernel:          b.kernel,
		bus:             b.bus,
		logger:          logger,
		resetDuration:   b.resetDuration,
		stallWarnCycles: b.stallWarnCycles,
		driverQueue: queueing.NewQueue[Operation](
			name+".DriverQueue", b.driverQueueCap),
		inputQueue: queueing.NewQueue[Operation](
			name+".InputQueue", queueing.Unbounded),
		outputQueue: queueing.NewQueue[uint128.Uint128](
			name+".OutputQueue", queueing.Unbounded),
	}
}
