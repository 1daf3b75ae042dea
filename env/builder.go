package env

import (
	"io"
	"log"
	"os"

	"github.com/rs/xid"

	"github.com/sarchlab/vaiverif/aescore"
	"github.com/sarchlab/vaiverif/config"
	"github.com/sarchlab/vaiverif/coverage"
	"github.com/sarchlab/vaiverif/datarecording"
	"github.com/sarchlab/vaiverif/monitoring"
	"github.com/sarchlab/vaiverif/refmodel"
	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/scoreboard"
	"github.com/sarchlab/vaiverif/sequencing"
	"github.com/sarchlab/vaiverif/sim/hdl"
	"github.com/sarchlab/vaiverif/sim/naming"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/sim/timing"
	"github.com/sarchlab/vaiverif/stimulus"
	"github.com/sarchlab/vaiverif/vai"
)

// A Builder builds environments.
type Builder struct {
	cfg       config.Config
	logOutput io.Writer
	reference refmodel.Cipher
	corrupt   aescore.Corruption
	recorder  datarecording.DataRecorder
	monitor   *monitoring.Monitor
	top       func(e *Env) sequencing.Sequence
}

// MakeBuilder returns a builder with the default settings.
func MakeBuilder() Builder {
	return Builder{
		cfg:       config.Default(),
		logOutput: os.Stdout,
		reference: refmodel.NewECB(),
	}
}

// WithConfig sets the settings of the run.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithLogOutput sets where the log messages go.
func (b Builder) WithLogOutput(w io.Writer) Builder {
	b.logOutput = w
	return b
}

// WithReference replaces the cipher that the scoreboard predicts results
// with.
func (b Builder) WithReference(c refmodel.Cipher) Builder {
	b.reference = c
	return b
}

// WithCorruption makes the core rewrite its results.
func (b Builder) WithCorruption(fn aescore.Corruption) Builder {
	b.corrupt = fn
	return b
}

// WithRecorder stores the checks, observations and coverage of the run.
func (b Builder) WithRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithMonitor registers the components with a monitor.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithTop replaces the default test sequence. The function is called after
// all the components are built.
func (b Builder) WithTop(fn func(e *Env) sequencing.Sequence) Builder {
	b.top = fn
	return b
}

// Build creates the environment and connects its components. It panics if
// the settings are invalid.
func (b Builder) Build(name string) *Env {
	if err := b.cfg.Validate(); err != nil {
		log.Panicf("env %s: %v", name, err)
	}

	e := &Env{
		NamedBase: naming.MakeNamedBase(name),
		cfg:       b.cfg,
		runID:     xid.New().String(),
	}

	b.buildKernel(e)
	b.buildComponents(e)
	b.connect(e)
	b.buildTop(e)

	if b.recorder != nil {
		b.attachRecorder(e)
	}

	if b.monitor != nil {
		b.registerWithMonitor(e)
	}

	return e
}

func (b Builder) buildKernel(e *Env) {
	severity, err := reporting.ParseSeverity(b.cfg.Verbosity)
	if err != nil {
		log.Panic(err)
	}

	e.engine = timing.NewSerialEngine()
	e.kernel = process.NewKernel(e.engine)

	e.logger = reporting.NewLogger(b.logOutput, e.Name()).WithClock(e.kernel)
	e.logger.SetVerbosity(severity)

	domain := hdl.NewDomain(e.kernel)
	period := timing.VTimeInSec(b.cfg.ClockPeriodNS) * timing.NS
	e.clock = hdl.NewClock(domain, naming.BuildName(e.Name(), "Clk"),
		timing.FreqFromPeriod(period))
	e.bus = vai.NewBus(domain, e.clock)
}

func (b Builder) buildComponents(e *Env) {
	child := func(elem string) (string, *reporting.Logger) {
		n := naming.BuildName(e.Name(), elem)
		return n, e.logger.Child(n)
	}

	bfmName, bfmLogger := child("BFM")
	e.bfm = vai.MakeBFMBuilder().
		WithKernel(e.kernel).
		WithBus(e.bus).
		WithLogger(bfmLogger).
		WithResetDuration(timing.VTimeInSec(b.cfg.ResetNS) * timing.NS).
		WithStallWarningCycles(b.cfg.StallWarning).
		Build(bfmName)

	coreName, coreLogger := child("Core")
	e.core = aescore.MakeBuilder().
		WithKernel(e.kernel).
		WithBus(e.bus).
		WithLogger(coreLogger).
		WithNumStage(b.cfg.NumStage).
		WithExtraLatency(b.cfg.ExtraLatency).
		WithSeed(stimulus.DeriveSeed(b.cfg.Seed, coreName)).
		WithCorruption(b.corrupt).
		Build(coreName)

	e.seqr = sequencing.NewSequencer(naming.BuildName(e.Name(), "Seqr"))

	driverName, driverLogger := child("Driver")
	e.driver = NewDriver(driverName, e.bfm, e.seqr, driverLogger)

	e.inMonitor = NewMonitor[vai.Operation](
		naming.BuildName(e.Name(), "InputMonitor"),
		e.bfm.GetInput, e.bfm.TryGetInput)

	sbName, sbLogger := child("Scoreboard")
	e.scoreboard = scoreboard.NewScoreboard(sbName, b.reference, sbLogger)

	covName, covLogger := child("Coverage")
	e.coverage = coverage.NewCollector(covName, covLogger)
	e.coverage.DisableErrors(b.cfg.DisableCovErrs)

	e.latency = vai.NewLatencyTracer(e.kernel)
}

func (b Builder) connect(e *Env) {
	e.inMonitor.Port().Connect(e.scoreboard.InputExport())
	e.inMonitor.Port().Connect(e.coverage)
	e.driver.ResultPort().Connect(e.scoreboard.OutputExport())

	e.bfm.AcceptHook(e.latency)

	if e.logger.Verbosity() <= reporting.Debug {
		hook := reporting.NewLogHook(e.logger.Child(
			naming.BuildName(e.Name(), "Trace")))
		e.bfm.AcceptHook(hook)
		e.seqr.AcceptHook(hook)
	}
}

func (b Builder) buildTop(e *Env) {
	if b.top != nil {
		e.top = b.top(e)
		return
	}

	e.top = DefaultTop(e.Name(), b.cfg)
}

// DefaultTop builds the default test: one random encrypt sequence and one
// random decrypt sequence, run with the configured policy. Every sequence
// draws from its own stream derived from the seed.
func DefaultTop(parent string, cfg config.Config) *sequencing.VirtualSequence {
	policy, err := sequencing.ParsePolicy(cfg.Policy)
	if err != nil {
		log.Panic(err)
	}

	topName := naming.BuildName(parent, "TestAllSeq")

	seq := func(elem string, mode vai.Mode) sequencing.Sequence {
		n := naming.BuildName(topName, elem)
		gen := stimulus.NewGenerator(stimulus.DeriveSeed(cfg.Seed, n))

		return sequencing.NewRandSeq(n, mode, cfg.ItemsPerSeq, gen)
	}

	return sequencing.NewVirtualSequence(topName, policy,
		seq("EncSeq", vai.Encrypt),
		seq("DecSeq", vai.Decrypt),
	)
}

func (b Builder) attachRecorder(e *Env) {
	e.recorder = NewRecorder(e.runID, b.recorder, e.kernel)

	e.scoreboard.AcceptHook(e.recorder)
	e.bfm.AcceptHook(e.recorder)
}

func (b Builder) registerWithMonitor(e *Env) {
	m := b.monitor

	m.RegisterEngine(e.engine)

	m.RegisterComponent(e.bfm)
	m.RegisterComponent(e.core)
	m.RegisterComponent(e.seqr)
	m.RegisterComponent(e.driver)
	m.RegisterComponent(e.scoreboard)
	m.RegisterComponent(e.coverage)

	m.RegisterBuffer(e.bfm.DriverQueue())
	m.RegisterBuffer(e.bfm.InputQueue())
	m.RegisterBuffer(e.bfm.OutputQueue())
	m.RegisterBuffer(e.scoreboard.InputExport().Queue())
	m.RegisterBuffer(e.scoreboard.OutputExport().Queue())

	m.RegisterStatus("scoreboard", func() any {
		return e.scoreboard.Stats()
	})
	m.RegisterStatus("coverage", func() any {
		return coverage.Snapshot(e.coverage.Group(), e.runID)
	})

	e.seqr.AcceptHook(NewProgressHook(m))
}
