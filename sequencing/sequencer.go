package sequencing

import (
	"context"
	"log"

	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/sim/queueing"
)

// HookPosItemGranted is triggered when the driver picks the item of a
// sequence.
var HookPosItemGranted = &hooking.HookPos{Name: "ItemGranted"}

// HookPosItemDone is triggered when the driver finishes an item.
var HookPosItemDone = &hooking.HookPos{Name: "ItemDone"}

// A Sequencer arbitrates between the sequences that want to send items and
// hands the items to a driver one at a time. Requests are granted in the
// order they were made.
//
// A sequence calls StartItem, fills the item once it is granted, then calls
// FinishItem, which returns after the driver has called ItemDone. The driver
// calls GetNextItem and ItemDone in turns.
type Sequencer struct {
	hooking.HookableBase

	name     string
	requests *queueing.Queue[*Item]
	current  *Item
	finished int
}

// NewSequencer creates a sequencer.
func NewSequencer(name string) *Sequencer {
	return &Sequencer{
		name:     name,
		requests: queueing.NewQueue[*Item](name+".Requests", queueing.Unbounded),
	}
}

// Name returns the name of the sequencer.
func (s *Sequencer) Name() string {
	return s.name
}

// StartItem waits until the driver is ready for the item.
func (s *Sequencer) StartItem(ctx context.Context, item *Item) error {
	s.requests.Push(item)

	return item.granted.Wait(ctx)
}

// FinishItem hands the filled item to the driver and waits until the driver
// is done with it.
func (s *Sequencer) FinishItem(ctx context.Context, item *Item) error {
	if !item.granted.IsSet() {
		log.Panicf("item %s finished before being started", item.Name)
	}

	item.ready.Set()

	return item.done.Wait(ctx)
}

// GetNextItem grants the oldest request and returns the item once its
// sequence has filled it.
func (s *Sequencer) GetNextItem(ctx context.Context) (*Item, error) {
	if s.current != nil {
		log.Panicf("sequencer %s: GetNextItem called before ItemDone",
			s.name)
	}

	item, err := s.requests.Get(ctx)
	if err != nil {
		return nil, err
	}

	s.current = item
	item.granted.Set()
	s.invoke(HookPosItemGranted, item)

	if err := item.ready.Wait(ctx); err != nil {
		return nil, err
	}

	return item, nil
}

// ItemDone releases the sequence that sent the current item.
func (s *Sequencer) ItemDone() {
	item := s.current
	if item == nil {
		log.Panicf("sequencer %s: ItemDone without an item", s.name)
	}

	s.current = nil
	s.finished++
	item.done.Set()
	s.invoke(HookPosItemDone, item)
}

// Current returns the item the driver is working on, or nil.
func (s *Sequencer) Current() *Item {
	return s.current
}

// Pending returns the number of sequences waiting for a grant.
func (s *Sequencer) Pending() int {
	return s.requests.Size()
}

// Finished returns the number of items the driver has completed.
func (s *Sequencer) Finished() int {
	return s.finished
}

func (s *Sequencer) invoke(pos *hooking.HookPos, item *Item) {
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    pos,
		Item:   item,
	})
}
