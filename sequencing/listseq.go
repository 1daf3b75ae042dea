package sequencing

import (
	"context"
	"fmt"

	"github.com/sarchlab/vaiverif/sim/naming"
	"github.com/sarchlab/vaiverif/vai"
)

// A ListSeq sends a fixed list of operations, in order. It is used for
// directed scenarios such as corner keys.
type ListSeq struct {
	naming.NamedBase

	ops []vai.Operation
}

// NewListSeq creates a sequence that sends the given operations.
func NewListSeq(name string, ops ...vai.Operation) *ListSeq {
	return &ListSeq{
		NamedBase: naming.MakeNamedBase(name),
		ops:       ops,
	}
}

// Count returns the number of items of the sequence.
func (s *ListSeq) Count() int {
	return len(s.ops)
}

// Body sends the operations.
func (s *ListSeq) Body(ctx context.Context, seqr *Sequencer) error {
	for i, op := range s.ops {
		item := NewItem(fmt.Sprintf("%s.Item[%d]", s.Name(), i))
		item.Sequence = s.Name()
		item.Index = i

		if err := seqr.StartItem(ctx, item); err != nil {
			return err
		}

		item.Op = op

		if err := seqr.FinishItem(ctx, item); err != nil {
			return err
		}
	}

	return nil
}
