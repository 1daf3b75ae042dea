package sequencing

import (
	"context"
	"fmt"
	"strings"

	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/naming"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/stimulus"
	"github.com/sarchlab/vaiverif/vai"
)

// HookPosSequenceStart is triggered when a sequence starts on a sequencer.
var HookPosSequenceStart = &hooking.HookPos{Name: "SequenceStart"}

// HookPosSequenceEnd is triggered when a sequence ends.
var HookPosSequenceEnd = &hooking.HookPos{Name: "SequenceEnd"}

// A Sequence produces items on a sequencer.
type Sequence interface {
	naming.Named

	// Body sends the items of the sequence.
	Body(ctx context.Context, seqr *Sequencer) error
}

// Start runs the sequence on the sequencer and returns when its body
// returns.
func Start(ctx context.Context, seq Sequence, seqr *Sequencer) error {
	seqr.invokeSequence(HookPosSequenceStart, seq, nil)

	err := seq.Body(ctx, seqr)

	seqr.invokeSequence(HookPosSequenceEnd, seq, err)

	return err
}

func (s *Sequencer) invokeSequence(pos *hooking.HookPos, seq Sequence, err error) {
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    pos,
		Item:   seq,
		Detail: err,
	})
}

// RandSeq sends a fixed number of operations of one mode with random keys
// and data.
type RandSeq struct {
	naming.NamedBase

	mode  vai.Mode
	count int
	gen   *stimulus.Generator
}

// NewRandSeq creates a random sequence.
func NewRandSeq(
	name string,
	mode vai.Mode,
	count int,
	gen *stimulus.Generator,
) *RandSeq {
	return &RandSeq{
		NamedBase: naming.MakeNamedBase(name),
		mode:      mode,
		count:     count,
		gen:       gen,
	}
}

// Mode returns the mode of every item of the sequence.
func (s *RandSeq) Mode() vai.Mode {
	return s.mode
}

// Count returns the number of items of the sequence.
func (s *RandSeq) Count() int {
	return s.count
}

// Body sends the items. Each item is only randomized after the driver has
// granted it, and the next one is only started after the driver is done.
func (s *RandSeq) Body(ctx context.Context, seqr *Sequencer) error {
	for i := 0; i < s.count; i++ {
		item := NewItem(fmt.Sprintf("%s.Item[%d]", s.Name(), i))
		item.Sequence = s.Name()
		item.Index = i

		if err := seqr.StartItem(ctx, item); err != nil {
			return err
		}

		key, data := s.gen.Randomize()
		item.Op = vai.Operation{Mode: s.mode, Key: key, Data: data}

		if err := seqr.FinishItem(ctx, item); err != nil {
			return err
		}
	}

	return nil
}

// Policy decides how a virtual sequence runs its sub-sequences.
type Policy int

// The policies.
const (
	// Serial runs the sub-sequences one after the other.
	Serial Policy = iota
	// Parallel runs all the sub-sequences at the same time and waits for
	// all of them.
	Parallel
)

func (p Policy) String() string {
	switch p {
	case Serial:
		return "serial"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts "serial" or "parallel" to a policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "serial":
		return Serial, nil
	case "parallel":
		return Parallel, nil
	default:
		return Serial, fmt.Errorf("unknown policy %q", s)
	}
}

// A VirtualSequence runs other sequences on the same sequencer.
type VirtualSequence struct {
	naming.NamedBase

	policy Policy
	seqs   []Sequence
}

// NewVirtualSequence creates a virtual sequence.
func NewVirtualSequence(
	name string,
	policy Policy,
	seqs ...Sequence,
) *VirtualSequence {
	return &VirtualSequence{
		NamedBase: naming.MakeNamedBase(name),
		policy:    policy,
		seqs:      seqs,
	}
}

// Policy returns the policy of the virtual sequence.
func (v *VirtualSequence) Policy() Policy {
	return v.policy
}

// Sequences returns the sub-sequences.
func (v *VirtualSequence) Sequences() []Sequence {
	return v.seqs
}

// Body runs the sub-sequences according to the policy.
func (v *VirtualSequence) Body(ctx context.Context, seqr *Sequencer) error {
	if v.policy == Serial {
		for _, seq := range v.seqs {
			if err := Start(ctx, seq, seqr); err != nil {
				return err
			}
		}

		return nil
	}

	kernel := process.Current(ctx).Kernel()
	procs := make([]*process.Process, 0, len(v.seqs))

	for _, seq := range v.seqs {
		procs = append(procs, kernel.Spawn(seq.Name(),
			func(ctx context.Context) error {
				return Start(ctx, seq, seqr)
			}))
	}

	return process.JoinAll(ctx, procs...)
}
