package env

import (
	"context"
	"log"

	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/coverage"
	"github.com/sarchlab/vaiverif/datarecording"
	"github.com/sarchlab/vaiverif/scoreboard"
	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/timing"
	"github.com/sarchlab/vaiverif/vai"
)

// The tables that a Recorder writes.
const (
	CheckTable       = "checks"
	ObservationTable = "observations"
	CoverageBinTable = "coverage_bins"
	RunTable         = "runs"
)

// A CheckEntry is one row of the checks table.
type CheckEntry struct {
	RunID    string
	Seq      int
	Mode     string
	KeyHex   string
	DataHex  string
	Expected string
	Actual   string
	Outcome  string
	SimTime  float64
}

// An ObservationEntry is one row of the observations table. Side is either
// "input" or "output". Output rows only carry DataHex.
type ObservationEntry struct {
	RunID   string
	Side    string
	Mode    string
	KeyHex  string
	DataHex string
	SimTime float64
}

// A CoverageBinEntry is one row of the coverage_bins table.
type CoverageBinEntry struct {
	RunID      string
	Covergroup string
	Kind       string
	Point      string
	Bin        string
	Hits       int
}

// A RunEntry is one row of the runs table.
type RunEntry struct {
	RunID      string
	Seed       int64
	Policy     string
	Items      int
	Checks     int
	Passes     int
	Mismatches int
	Faults     int
	Coverage   float64
	Passed     bool
	SimTime    float64
}

// A Recorder is a hook that stores the checks and the observations of a
// run, and at the end the coverage bins and the summary of the run.
type Recorder struct {
	runID      string
	recorder   datarecording.DataRecorder
	timeTeller timing.TimeTeller
}

// NewRecorder creates the tables and returns the recorder.
func NewRecorder(
	runID string,
	recorder datarecording.DataRecorder,
	timeTeller timing.TimeTeller,
) *Recorder {
	recorder.CreateTable(CheckTable, CheckEntry{})
	recorder.CreateTable(ObservationTable, ObservationEntry{})
	recorder.CreateTable(CoverageBinTable, CoverageBinEntry{})
	recorder.CreateTable(RunTable, RunEntry{})

	return &Recorder{
		runID:      runID,
		recorder:   recorder,
		timeTeller: timeTeller,
	}
}

// Func records checks and observations.
func (r *Recorder) Func(ctx hooking.HookCtx) {
	now := float64(r.timeTeller.Now())

	switch ctx.Pos {
	case scoreboard.HookPosCheck:
		rec := ctx.Item.(scoreboard.CheckRecord)
		r.recorder.InsertData(CheckTable, CheckEntry{
			RunID:    r.runID,
			Seq:      rec.Index,
			Mode:     rec.Op.Mode.String(),
			KeyHex:   vai.Hex(rec.Op.Key),
			DataHex:  vai.Hex(rec.Op.Data),
			Expected: vai.Hex(rec.Expected),
			Actual:   vai.Hex(rec.Actual),
			Outcome:  rec.Outcome.String(),
			SimTime:  now,
		})
	case vai.HookPosInputObserved:
		op := ctx.Item.(vai.Operation)
		r.recorder.InsertData(ObservationTable, ObservationEntry{
			RunID:   r.runID,
			Side:    "input",
			Mode:    op.Mode.String(),
			KeyHex:  vai.Hex(op.Key),
			DataHex: vai.Hex(op.Data),
			SimTime: now,
		})
	case vai.HookPosOutputObserved:
		result := ctx.Item.(uint128.Uint128)
		r.recorder.InsertData(ObservationTable, ObservationEntry{
			RunID:   r.runID,
			Side:    "output",
			DataHex: vai.Hex(result),
			SimTime: now,
		})
	}
}

// RecordCoverage stores every bin of a coverage snapshot.
func (r *Recorder) RecordCoverage(db coverage.DB) {
	for _, b := range db.Bins {
		r.recorder.InsertData(CoverageBinTable, CoverageBinEntry{
			RunID:      r.runID,
			Covergroup: b.Group,
			Kind:       string(b.Kind),
			Point:      b.Point,
			Bin:        b.Bin,
			Hits:       int(b.Hits),
		})
	}
}

// RecordRun stores the summary of a run and flushes the recorder.
func (r *Recorder) RecordRun(res Result) {
	if res.RunID != r.runID {
		log.Panicf("result of run %s given to the recorder of run %s",
			res.RunID, r.runID)
	}

	r.recorder.InsertData(RunTable, RunEntry{
		RunID:      r.runID,
		Seed:       int64(res.Seed),
		Policy:     res.Policy,
		Items:      res.Items,
		Checks:     res.Stats.Checks,
		Passes:     res.Stats.Passes,
		Mismatches: res.Stats.Mismatches,
		Faults:     res.Stats.Faults,
		Coverage:   res.Coverage,
		Passed:     res.Err == nil,
		SimTime:    float64(res.SimTime),
	})

	r.recorder.Flush()
}

// ReadRuns returns the runs stored in a database, in the order they were
// recorded.
func ReadRuns(
	ctx context.Context,
	r datarecording.DataReader,
) ([]RunEntry, error) {
	return datarecording.QueryAll[RunEntry](ctx, r, RunTable,
		datarecording.QueryParams{OrderBy: "rowid"})
}

// ReadFailedChecks returns the checks of a run that did not pass, in check
// order.
func ReadFailedChecks(
	ctx context.Context,
	r datarecording.DataReader,
	runID string,
) ([]CheckEntry, error) {
	return datarecording.QueryAll[CheckEntry](ctx, r, CheckTable,
		datarecording.QueryParams{
			Where:   "RunID = ? AND Outcome != ?",
			Args:    []any{runID, scoreboard.Pass.String()},
			OrderBy: "Seq",
		})
}
