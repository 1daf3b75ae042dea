package env

import (
	"github.com/sarchlab/vaiverif/monitoring"
	"github.com/sarchlab/vaiverif/sequencing"
	"github.com/sarchlab/vaiverif/sim/hooking"
)

// A ProgressHook keeps one monitor progress bar per running sequence that
// knows its number of items.
type ProgressHook struct {
	monitor *monitoring.Monitor
	bars    map[string]*monitoring.ProgressBar
}

// NewProgressHook creates a hook that reports to the monitor.
func NewProgressHook(m *monitoring.Monitor) *ProgressHook {
	return &ProgressHook{
		monitor: m,
		bars:    make(map[string]*monitoring.ProgressBar),
	}
}

// Func updates the progress bars on sequencer events.
func (h *ProgressHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case sequencing.HookPosSequenceStart:
		seq, ok := ctx.Item.(countedSeq)
		if !ok {
			return
		}

		h.bars[seq.Name()] = h.monitor.CreateProgressBar(
			seq.Name(), uint64(seq.Count()))
	case sequencing.HookPosSequenceEnd:
		seq := ctx.Item.(sequencing.Sequence)
		if bar, ok := h.bars[seq.Name()]; ok {
			h.monitor.CompleteProgressBar(bar)
			delete(h.bars, seq.Name())
		}
	case sequencing.HookPosItemGranted:
		if bar := h.barOf(ctx.Item); bar != nil {
			bar.Grant(1)
		}
	case sequencing.HookPosItemDone:
		if bar := h.barOf(ctx.Item); bar != nil {
			bar.Finish(1)
		}
	}
}

type countedSeq interface {
	sequencing.Sequence
	Count() int
}

func (h *ProgressHook) barOf(item any) *monitoring.ProgressBar {
	return h.bars[item.(*sequencing.Item).Sequence]
}
