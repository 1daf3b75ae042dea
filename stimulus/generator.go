package stimulus

import (
	"math/rand/v2"

	"github.com/dchest/siphash"
	"lukechampine.com/uint128"
)

// A Generator draws the key and the data of operations from their
// distributions. Two generators with the same seed produce the same values.
type Generator struct {
	seed uint64
	rng  *rand.Rand
	key  *Dist
	data *Dist
}

// NewGenerator creates a generator with the default key and data
// distributions.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, DeriveSeed(seed, "stream"))),
		key:  KeyDist(),
		data: DataDist(),
	}
}

// WithKeyDist replaces the key distribution.
func (g *Generator) WithKeyDist(d *Dist) *Generator {
	g.key = d
	return g
}

// WithDataDist replaces the data distribution.
func (g *Generator) WithDataDist(d *Dist) *Generator {
	g.data = d
	return g
}

// Seed returns the seed of the generator.
func (g *Generator) Seed() uint64 {
	return g.seed
}

// Randomize draws a key and a data value.
func (g *Generator) Randomize() (key, data uint128.Uint128) {
	key = g.key.Sample(g.rng)
	data = g.data.Sample(g.rng)

	return key, data
}

// DeriveSeed computes a seed for a named sub-stream, so that every sequence
// of a run gets its own reproducible values.
func DeriveSeed(seed uint64, name string) uint64 {
	return siphash.Hash(seed, ^seed, []byte(name))
}
