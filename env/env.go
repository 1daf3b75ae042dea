// Package env assembles the testbench around the AES core and runs it
// through its build, connect, run, check and report phases.
package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/vaiverif/aescore"
	"github.com/sarchlab/vaiverif/config"
	"github.com/sarchlab/vaiverif/coverage"
	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/scoreboard"
	"github.com/sarchlab/vaiverif/sequencing"
	"github.com/sarchlab/vaiverif/sim/hdl"
	"github.com/sarchlab/vaiverif/sim/naming"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/timing"
	"github.com/sarchlab/vaiverif/vai"
)

// ErrTestFailed is returned by Run when the verdict of the run is a failure.
var ErrTestFailed = errors.New("test failed")

// ErrCycleLimit is part of the verdict when the run was stopped because it
// did not end within the cycle limit.
var ErrCycleLimit = errors.New("cycle limit reached")

// The files written into the results directory.
const (
	ReportFile     = "tb_aes_fcover.txt"
	CoverageDBFile = "tb_aes_fcover.json.zst"
)

// Result summarizes a run.
type Result struct {
	RunID         string
	Seed          uint64
	Policy        string
	Items         int
	Stats         scoreboard.Stats
	Unmatched     int
	Coverage      float64
	SimTime       timing.VTimeInSec
	Cycles        uint64
	AcceptLatency vai.LatencyStats
	CoreLatency   vai.LatencyStats

	// Err is nil if the run passed.
	Err error
}

// Env is the testbench. It owns the simulation kernel, the core and all the
// verification components.
type Env struct {
	naming.NamedBase

	cfg    config.Config
	runID  string
	engine *timing.SerialEngine
	kernel *process.Kernel
	clock  *hdl.Clock
	bus    *vai.Bus
	logger *reporting.Logger

	bfm        *vai.BFM
	core       *aescore.Core
	seqr       *sequencing.Sequencer
	driver     *Driver
	inMonitor  *Monitor[vai.Operation]
	scoreboard *scoreboard.Scoreboard
	coverage   *coverage.Collector
	latency    *vai.LatencyTracer
	recorder   *Recorder

	top      sequencing.Sequence
	ran      bool
	timedOut bool
	testErr  error
}

// RunID returns the unique ID of the run.
func (e *Env) RunID() string {
	return e.runID
}

// Config returns the settings of the run.
func (e *Env) Config() config.Config {
	return e.cfg
}

// Kernel returns the simulation kernel.
func (e *Env) Kernel() *process.Kernel {
	return e.kernel
}

// Logger returns the root logger of the testbench.
func (e *Env) Logger() *reporting.Logger {
	return e.logger
}

// BFM returns the bus functional model.
func (e *Env) BFM() *vai.BFM {
	return e.bfm
}

// Core returns the core under test.
func (e *Env) Core() *aescore.Core {
	return e.core
}

// Sequencer returns the sequencer that feeds the driver.
func (e *Env) Sequencer() *sequencing.Sequencer {
	return e.seqr
}

// Scoreboard returns the scoreboard.
func (e *Env) Scoreboard() *scoreboard.Scoreboard {
	return e.scoreboard
}

// Coverage returns the coverage collector.
func (e *Env) Coverage() *coverage.Collector {
	return e.coverage
}

// Top returns the sequence that the run phase starts.
func (e *Env) Top() sequencing.Sequence {
	return e.top
}

// Run runs the remaining phases of the testbench. The returned error wraps
// ErrTestFailed if the verdict is a failure. An Env can only run once.
func (e *Env) Run() (Result, error) {
	if e.ran {
		panic("env " + e.Name() + " has already run")
	}

	e.ran = true

	if err := e.runPhase(); err != nil {
		return Result{}, err
	}

	e.checkPhase()

	return e.reportPhase()
}

func (e *Env) runPhase() error {
	e.logger.Infof("run %s: seed %d, %s policy, %d items per sequence",
		e.runID, e.cfg.Seed, e.cfg.Policy, e.cfg.ItemsPerSeq)

	e.kernel.Spawn(e.Name()+".Test", e.test)
	e.kernel.Spawn(e.driver.Name(), e.driver.Run)
	e.kernel.Spawn(e.inMonitor.Name(), e.inMonitor.Run)

	if e.cfg.LiveCheck {
		e.kernel.Spawn(e.scoreboard.Name(), e.scoreboard.Run)
	}

	if e.cfg.MaxCycles > 0 {
		e.kernel.Spawn(e.Name()+".Watchdog", e.watchdog)
	}

	e.core.Start()
	e.clock.Start()

	return e.kernel.Run()
}

func (e *Env) test(ctx context.Context) error {
	defer e.clock.Stop()

	e.testErr = sequencing.Start(ctx, e.top, e.seqr)
	if e.testErr != nil && !errors.Is(e.testErr, process.ErrKilled) {
		e.logger.Criticalf("test sequence ended with error: %v", e.testErr)
	}

	return e.testErr
}

func (e *Env) watchdog(ctx context.Context) error {
	if err := e.clock.Cycles(ctx, e.cfg.MaxCycles); err != nil {
		return err
	}

	e.timedOut = true
	e.logger.Criticalf("test did not end within %d cycles", e.cfg.MaxCycles)
	e.kernel.Stop()

	return nil
}

func (e *Env) checkPhase() {
	if n := e.inMonitor.Drain(); n > 0 {
		e.logger.Debugf("forwarded %d late observations", n)
	}

	n := e.scoreboard.CheckAvailable()
	e.logger.Debugf("checked %d results in the check phase", n)

	if u := e.scoreboard.Unmatched(); u > 0 {
		e.logger.Warningf("%d operations never produced a result", u)
	}
}

func (e *Env) reportPhase() (Result, error) {
	e.coverage.Report()

	db := coverage.Snapshot(e.coverage.Group(), e.runID)
	if err := e.writeCoverage(db); err != nil {
		return Result{}, err
	}

	res := Result{
		RunID:         e.runID,
		Seed:          e.cfg.Seed,
		Policy:        e.cfg.Policy,
		Items:         e.seqr.Finished(),
		Stats:         e.scoreboard.Stats(),
		Unmatched:     e.scoreboard.Unmatched(),
		Coverage:      db.Coverage,
		SimTime:       e.kernel.Now(),
		Cycles:        e.clock.Cycle(),
		AcceptLatency: e.latency.AcceptLatency(),
		CoreLatency:   e.latency.CoreLatency(),
		Err:           e.verdict(),
	}

	e.logger.Infof("%d checks, %d passed, %d failed, %d faults, "+
		"coverage %.2f%%",
		res.Stats.Checks, res.Stats.Passes, res.Stats.Mismatches,
		res.Stats.Faults, res.Coverage)

	if res.CoreLatency.Count > 0 {
		e.logger.Infof("core latency: avg %.2fns, min %.2fns, max %.2fns",
			res.CoreLatency.Average()/timing.NS,
			res.CoreLatency.Min/timing.NS,
			res.CoreLatency.Max/timing.NS)
	}

	if e.recorder != nil {
		e.recorder.RecordCoverage(db)
		e.recorder.RecordRun(res)
	}

	if res.Err != nil {
		e.logger.Errorf("TEST FAILED: %v", res.Err)
		e.logger.Infof("messages: %s", e.logger.Summary())

		return res, fmt.Errorf("%w: %w", ErrTestFailed, res.Err)
	}

	e.logger.Infof("TEST PASSED")
	e.logger.Infof("messages: %s", e.logger.Summary())

	return res, nil
}

func (e *Env) verdict() error {
	var errs []error

	if err := e.scoreboard.Verdict(); err != nil {
		errs = append(errs, err)
	}

	if e.timedOut {
		errs = append(errs, ErrCycleLimit)
	} else if e.testErr != nil {
		errs = append(errs, e.testErr)
	}

	return errors.Join(errs...)
}

func (e *Env) writeCoverage(db coverage.DB) error {
	dir := e.cfg.ResultsDir
	if dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := coverage.AppendReport(filepath.Join(dir, ReportFile), db); err != nil {
		return err
	}

	return coverage.WriteDB(filepath.Join(dir, CoverageDBFile), db)
}
