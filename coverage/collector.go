package coverage

import (
	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/vai"
)

// HookPosSample is triggered after every sample. The detail is the coverage
// percentage after the sample.
var HookPosSample = &hooking.HookPos{Name: "CoverageSample"}

// A Collector samples every observed operation into a covergroup.
type Collector struct {
	hooking.HookableBase

	name          string
	group         *Covergroup[vai.Operation]
	logger        *reporting.Logger
	disableErrors bool
}

// NewCollector creates a collector around the AES covergroup.
func NewCollector(name string, logger *reporting.Logger) *Collector {
	return &Collector{
		name:   name,
		group:  NewAESCovergroup(name),
		logger: logger,
	}
}

// Name returns the name of the collector.
func (c *Collector) Name() string {
	return c.name
}

// Group returns the covergroup.
func (c *Collector) Group() *Covergroup[vai.Operation] {
	return c.group
}

// DisableErrors silences the warning about incomplete coverage.
func (c *Collector) DisableErrors(disable bool) {
	c.disableErrors = disable
}

// ErrorsDisabled tells if the incomplete coverage warning is silenced.
func (c *Collector) ErrorsDisabled() bool {
	return c.disableErrors
}

// Write samples an operation.
func (c *Collector) Write(op vai.Operation) {
	c.group.Sample(op)

	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosSample,
		Item:   op,
		Detail: c.group.Coverage(),
	})
}

// Coverage returns the current coverage percentage.
func (c *Collector) Coverage() float64 {
	return c.group.Coverage()
}

// Complete tells if every bin has been hit.
func (c *Collector) Complete() bool {
	return c.group.Coverage() == 100
}

// Report logs whether coverage is complete. Incomplete coverage is only a
// warning and never fails the run.
func (c *Collector) Report() {
	if c.disableErrors {
		return
	}

	if !c.Complete() {
		c.logger.Warningf("Functional coverage incomplete: %.2f%%",
			c.Coverage())
		return
	}

	c.logger.Infof("Covered all operations")
}
