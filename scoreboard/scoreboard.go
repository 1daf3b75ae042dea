// Package scoreboard checks the results of the core against a reference
// cipher.
package scoreboard

import (
	"context"
	"errors"
	"fmt"

	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/refmodel"
	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/tlm"
	"github.com/sarchlab/vaiverif/vai"
)

// ErrFailed is wrapped by the verdict of a failing run.
var ErrFailed = errors.New("scoreboard failed")

// HookPosCheck is triggered after every result is checked. The item is a
// CheckRecord.
var HookPosCheck = &hooking.HookPos{Name: "Check"}

// Outcome is the result of checking one result.
type Outcome int

// The outcomes.
const (
	Pass Outcome = iota
	Mismatch
	// CorrelationFault means a result arrived without a pending operation.
	CorrelationFault
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "PASSED"
	case Mismatch:
		return "FAILED"
	case CorrelationFault:
		return "FAULT"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// A CheckRecord describes one check.
type CheckRecord struct {
	Index    int
	Op       vai.Operation
	Expected uint128.Uint128
	Actual   uint128.Uint128
	Outcome  Outcome
}

// Stats counts the checks. Checks counts the comparisons, so it does not
// include correlation faults.
type Stats struct {
	Checks     int
	Passes     int
	Mismatches int
	Faults     int
}

// A Scoreboard pairs the observed operations with the observed results in
// arrival order and compares every result with the reference cipher.
type Scoreboard struct {
	hooking.HookableBase

	name    string
	cipher  refmodel.Cipher
	logger  *reporting.Logger
	inputs  *tlm.AnalysisFIFO[vai.Operation]
	outputs *tlm.AnalysisFIFO[uint128.Uint128]
	stats   Stats
	index   int
}

// NewScoreboard creates a scoreboard.
func NewScoreboard(
	name string,
	cipher refmodel.Cipher,
	logger *reporting.Logger,
) *Scoreboard {
	return &Scoreboard{
		name:    name,
		cipher:  cipher,
		logger:  logger,
		inputs:  tlm.NewAnalysisFIFO[vai.Operation](name + ".Inputs"),
		outputs: tlm.NewAnalysisFIFO[uint128.Uint128](name + ".Outputs"),
	}
}

// Name returns the name of the scoreboard.
func (s *Scoreboard) Name() string {
	return s.name
}

// InputExport receives the operations accepted by the core.
func (s *Scoreboard) InputExport() *tlm.AnalysisFIFO[vai.Operation] {
	return s.inputs
}

// OutputExport receives the results produced by the core.
func (s *Scoreboard) OutputExport() *tlm.AnalysisFIFO[uint128.Uint128] {
	return s.outputs
}

// CheckAvailable checks every result that has arrived so far and returns how
// many were taken.
func (s *Scoreboard) CheckAvailable() int {
	n := 0

	for {
		result, ok := s.outputs.TryGet()
		if !ok {
			return n
		}

		s.check(result)
		n++
	}
}

// Run checks results as they arrive until the context ends.
func (s *Scoreboard) Run(ctx context.Context) error {
	for {
		result, err := s.outputs.Get(ctx)
		if err != nil {
			return err
		}

		s.check(result)
	}
}

func (s *Scoreboard) check(result uint128.Uint128) {
	record := CheckRecord{Index: s.index, Actual: result}
	s.index++

	op, ok := s.inputs.TryGet()
	if !ok {
		record.Outcome = CorrelationFault
		s.stats.Faults++
		s.logger.Criticalf(
			"result 0x%s has no matching operation", vai.Hex(result))
		s.invoke(record)

		return
	}

	record.Op = op
	record.Expected = s.expect(op)
	s.stats.Checks++

	if record.Expected.Equals(result) {
		record.Outcome = Pass
		s.stats.Passes++
		s.logger.Infof("PASSED: %s 0x%s with key 0x%s = 0x%s",
			op.Mode, vai.Hex(op.Data), vai.Hex(op.Key), vai.Hex(result))
	} else {
		record.Outcome = Mismatch
		s.stats.Mismatches++
		s.logger.Errorf("FAILED: %s 0x%s with key 0x%s = 0x%s, expected 0x%s",
			op.Mode, vai.Hex(op.Data), vai.Hex(op.Key), vai.Hex(result),
			vai.Hex(record.Expected))
	}

	s.invoke(record)
}

func (s *Scoreboard) expect(op vai.Operation) uint128.Uint128 {
	if op.Mode == vai.Decrypt {
		return s.cipher.Decrypt(op.Key, op.Data)
	}

	return s.cipher.Encrypt(op.Key, op.Data)
}

func (s *Scoreboard) invoke(record CheckRecord) {
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosCheck,
		Item:   record,
	})
}

// Stats returns the counters.
func (s *Scoreboard) Stats() Stats {
	return s.stats
}

// Unmatched returns the number of operations still waiting for a result.
func (s *Scoreboard) Unmatched() int {
	return s.inputs.Size()
}

// Passed tells if no check has failed so far.
func (s *Scoreboard) Passed() bool {
	return s.stats.Mismatches == 0 && s.stats.Faults == 0
}

// Verdict returns nil if the run passed, or an error wrapping ErrFailed.
func (s *Scoreboard) Verdict() error {
	if s.Passed() {
		return nil
	}

	return fmt.Errorf("%w: %d mismatches, %d correlation faults in %d results",
		ErrFailed, s.stats.Mismatches, s.stats.Faults,
		s.stats.Checks+s.stats.Faults)
}
