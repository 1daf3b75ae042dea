// Package coverage tracks which parts of the stimulus space a run has
// exercised.
package coverage

import (
	"fmt"
	"strings"
)

// A Bin counts the samples that satisfy a predicate. A bin is hit once it has
// counted a sample, and it never becomes unhit.
type Bin[T any] struct {
	name  string
	match func(T) bool
	hits  uint64
}

// NewBin creates a bin.
func NewBin[T any](name string, match func(T) bool) *Bin[T] {
	return &Bin[T]{name: name, match: match}
}

// Name returns the label of the bin.
func (b *Bin[T]) Name() string {
	return b.name
}

// Hits returns the number of samples counted by the bin.
func (b *Bin[T]) Hits() uint64 {
	return b.hits
}

// Hit tells if the bin has counted at least one sample.
func (b *Bin[T]) Hit() bool {
	return b.hits > 0
}

// A Coverpoint is a named set of bins over a sampled value.
type Coverpoint[T any] struct {
	name string
	bins []*Bin[T]
}

// Name returns the name of the coverpoint.
func (p *Coverpoint[T]) Name() string {
	return p.name
}

// Bins returns the bins of the coverpoint.
func (p *Coverpoint[T]) Bins() []*Bin[T] {
	return p.bins
}

// Coverage returns the percentage of hit bins.
func (p *Coverpoint[T]) Coverage() float64 {
	return percent(p.bins)
}

func (p *Coverpoint[T]) sample(t T) {
	for _, b := range p.bins {
		if b.match(t) {
			b.hits++
		}
	}
}

// A Cross has one bin for every combination of the bins of its coverpoints.
// A cross bin counts a sample only when all the bins of the combination
// match that same sample.
type Cross[T any] struct {
	name  string
	bins  []*Bin[T]
	parts [][]*Bin[T]
}

func newCross[T any](name string, points []*Coverpoint[T]) *Cross[T] {
	c := &Cross[T]{name: name}

	combos := [][]*Bin[T]{nil}
	for _, p := range points {
		var next [][]*Bin[T]
		for _, combo := range combos {
			for _, b := range p.bins {
				next = append(next, append(combo[:len(combo):len(combo)], b))
			}
		}
		combos = next
	}

	for _, combo := range combos {
		names := make([]string, len(combo))
		for i, b := range combo {
			names[i] = b.name
		}

		c.parts = append(c.parts, combo)
		c.bins = append(c.bins, &Bin[T]{name: strings.Join(names, "X")})
	}

	return c
}

// Name returns the name of the cross.
func (c *Cross[T]) Name() string {
	return c.name
}

// Bins returns the cross bins, in the order of the combinations.
func (c *Cross[T]) Bins() []*Bin[T] {
	return c.bins
}

// Coverage returns the percentage of hit cross bins.
func (c *Cross[T]) Coverage() float64 {
	return percent(c.bins)
}

func (c *Cross[T]) sample(t T) {
	for i, combo := range c.parts {
		all := true
		for _, b := range combo {
			if !b.match(t) {
				all = false
				break
			}
		}

		if all {
			c.bins[i].hits++
		}
	}
}

// A Covergroup samples values into coverpoints and crosses.
type Covergroup[T any] struct {
	name    string
	points  []*Coverpoint[T]
	crosses []*Cross[T]
	samples uint64
}

// NewCovergroup creates an empty covergroup.
func NewCovergroup[T any](name string) *Covergroup[T] {
	return &Covergroup[T]{name: name}
}

// Name returns the name of the covergroup.
func (g *Covergroup[T]) Name() string {
	return g.name
}

// AddCoverpoint adds a coverpoint with the given bins.
func (g *Covergroup[T]) AddCoverpoint(
	name string,
	bins ...*Bin[T],
) *Coverpoint[T] {
	if len(bins) == 0 {
		panic(fmt.Sprintf("coverpoint %s has no bins", name))
	}

	p := &Coverpoint[T]{name: name, bins: bins}
	g.points = append(g.points, p)

	return p
}

// AddCross adds a cross of at least two coverpoints of the group.
func (g *Covergroup[T]) AddCross(
	name string,
	points ...*Coverpoint[T],
) *Cross[T] {
	if len(points) < 2 {
		panic(fmt.Sprintf("cross %s needs at least two coverpoints", name))
	}

	c := newCross(name, points)
	g.crosses = append(g.crosses, c)

	return c
}

// Coverpoints returns the coverpoints in the order they were added.
func (g *Covergroup[T]) Coverpoints() []*Coverpoint[T] {
	return g.points
}

// Crosses returns the crosses in the order they were added.
func (g *Covergroup[T]) Crosses() []*Cross[T] {
	return g.crosses
}

// Sample counts a value in every bin it matches.
func (g *Covergroup[T]) Sample(t T) {
	g.samples++

	for _, p := range g.points {
		p.sample(t)
	}

	for _, c := range g.crosses {
		c.sample(t)
	}
}

// Samples returns the number of sampled values.
func (g *Covergroup[T]) Samples() uint64 {
	return g.samples
}

// Coverage returns the percentage of hit bins among all the bins of the
// coverpoints and crosses.
func (g *Covergroup[T]) Coverage() float64 {
	hit, total := 0, 0

	for _, r := range g.Bins() {
		total++
		if r.Hits > 0 {
			hit++
		}
	}

	if total == 0 {
		return 0
	}

	return 100 * float64(hit) / float64(total)
}

// Kind tells if a bin belongs to a coverpoint or a cross.
type Kind string

// The bin kinds.
const (
	KindCoverpoint Kind = "coverpoint"
	KindCross      Kind = "cross"
)

// A BinRecord is the state of one bin.
type BinRecord struct {
	Group string `json:"group"`
	Kind  Kind   `json:"kind"`
	Point string `json:"point"`
	Bin   string `json:"bin"`
	Hits  uint64 `json:"hits"`
}

// Hit tells if the bin has been hit.
func (r BinRecord) Hit() bool {
	return r.Hits > 0
}

// Bins dumps the state of every bin, coverpoints first.
func (g *Covergroup[T]) Bins() []BinRecord {
	var records []BinRecord

	for _, p := range g.points {
		for _, b := range p.bins {
			records = append(records, BinRecord{
				Group: g.name, Kind: KindCoverpoint,
				Point: p.name, Bin: b.name, Hits: b.hits,
			})
		}
	}

	for _, c := range g.crosses {
		for _, b := range c.bins {
			records = append(records, BinRecord{
				Group: g.name, Kind: KindCross,
				Point: c.name, Bin: b.name, Hits: b.hits,
			})
		}
	}

	return records
}

func percent[T any](bins []*Bin[T]) float64 {
	if len(bins) == 0 {
		return 0
	}

	hit := 0
	for _, b := range bins {
		if b.Hit() {
			hit++
		}
	}

	return 100 * float64(hit) / float64(len(bins))
}
