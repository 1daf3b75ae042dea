package queueing

import (
	"github.com/sarchlab/vaiverif/sim/hooking"
)

// HookPosPipelineAccept marks when an element enters a pipeline.
var HookPosPipelineAccept = &hooking.HookPos{Name: "Pipeline Accept"}

// A Pipeline moves elements through a fixed number of stages, in order, and
// delivers them into a post-pipeline buffer. An element that stalls in a
// stage holds back every element behind it.
type Pipeline[T any] struct {
	hooking.HookableBase

	name            string
	numStage        int
	cyclePerStage   int
	stages          []pipelineStage[T]
	postPipelineBuf *Buffer[T]
}

type pipelineStage[T any] struct {
	elem      T
	occupied  bool
	cycleLeft int
}

// Name returns the name of the pipeline.
func (p *Pipeline[T]) Name() string {
	return p.name
}

// NumStage returns the number of stages.
func (p *Pipeline[T]) NumStage() int {
	return p.numStage
}

// Clear discards all the items in the pipeline.
func (p *Pipeline[T]) Clear() {
	p.stages = make([]pipelineStage[T], p.numStage)
}

// Occupancy returns the number of elements inside the stages.
func (p *Pipeline[T]) Occupancy() int {
	n := 0
	for _, s := range p.stages {
		if s.occupied {
			n++
		}
	}

	return n
}

// Tick moves elements in the pipeline forward by one cycle.
func (p *Pipeline[T]) Tick() (madeProgress bool) {
	for i := p.numStage - 1; i >= 0; i-- {
		stage := &p.stages[i]

		if !stage.occupied {
			continue
		}

		if stage.cycleLeft > 0 {
			stage.cycleLeft--
			madeProgress = true

			continue
		}

		if i == p.numStage-1 {
			madeProgress = p.tryMoveToPostPipelineBuffer(stage) || madeProgress
		} else {
			madeProgress = p.tryMoveToNextStage(i) || madeProgress
		}
	}

	return madeProgress
}

func (p *Pipeline[T]) tryMoveToPostPipelineBuffer(
	stage *pipelineStage[T],
) (succeed bool) {
	if !p.postPipelineBuf.CanPush() {
		return false
	}

	p.postPipelineBuf.Push(stage.elem)
	*stage = pipelineStage[T]{}

	return true
}

func (p *Pipeline[T]) tryMoveToNextStage(stageNum int) (succeed bool) {
	stage := &p.stages[stageNum]
	nextStage := &p.stages[stageNum+1]

	if nextStage.occupied {
		return false
	}

	*nextStage = pipelineStage[T]{
		elem:      stage.elem,
		occupied:  true,
		cycleLeft: p.cyclePerStage - 1,
	}
	*stage = pipelineStage[T]{}

	return true
}

// CanAccept checks if the pipeline can accept a new element.
func (p *Pipeline[T]) CanAccept() bool {
	if p.numStage == 0 {
		return p.postPipelineBuf.CanPush()
	}

	return !p.stages[0].occupied
}

// Accept adds an element to the first stage. It panics if the first stage is
// occupied.
func (p *Pipeline[T]) Accept(elem T) {
	p.AcceptWithExtraCycles(elem, 0)
}

// AcceptWithExtraCycles adds an element that stays extra cycles in the first
// stage before moving on.
func (p *Pipeline[T]) AcceptWithExtraCycles(elem T, extra int) {
	if p.NumHooks() > 0 {
		p.InvokeHook(hooking.HookCtx{
			Domain: p,
			Pos:    HookPosPipelineAccept,
			Item:   elem,
			Detail: extra,
		})
	}

	if p.numStage == 0 {
		p.postPipelineBuf.Push(elem)
		return
	}

	if p.stages[0].occupied {
		panic("pipeline is not free. Use can accept before accepting.")
	}

	p.stages[0] = pipelineStage[T]{
		elem:      elem,
		occupied:  true,
		cycleLeft: p.cyclePerStage - 1 + extra,
	}
}

// A PipelineBuilder can build pipelines.
type PipelineBuilder[T any] struct {
	numStage        int
	cyclePerStage   int
	postPipelineBuf *Buffer[T]
}

// MakePipelineBuilder creates a default builder
func MakePipelineBuilder[T any]() PipelineBuilder[T] {
	return PipelineBuilder[T]{
		numStage:      5,
		cyclePerStage: 1,
	}
}

// WithNumStage sets the number of pipeline stages
func (b PipelineBuilder[T]) WithNumStage(n int) PipelineBuilder[T] {
	b.numStage = n
	return b
}

// WithCyclePerStage sets the the number of cycles that each element needs to
// stay in each stage.
func (b PipelineBuilder[T]) WithCyclePerStage(n int) PipelineBuilder[T] {
	b.cyclePerStage = n
	return b
}

// WithPostPipelineBuffer sets the buffer that the elements are pushed to
// after passing through the pipeline.
func (b PipelineBuilder[T]) WithPostPipelineBuffer(
	buf *Buffer[T],
) PipelineBuilder[T] {
	b.postPipelineBuf = buf
	return b
}

// Build builds a pipeline.
func (b PipelineBuilder[T]) Build(name string) *Pipeline[T] {
	if b.postPipelineBuf == nil {
		panic("pipeline " + name + " needs a post-pipeline buffer")
	}

	p := &Pipeline[T]{
		name:            name,
		numStage:        b.numStage,
		cyclePerStage:   b.cyclePerStage,
		postPipelineBuf: b.postPipelineBuf,
	}

	p.Clear()

	return p
}
