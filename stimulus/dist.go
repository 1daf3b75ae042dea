// Package stimulus produces the random operands of the operations.
package stimulus

import (
	"fmt"
	"math/bits"
	"math/rand/v2"

	"lukechampine.com/uint128"
)

// A WeightedRange is an inclusive range of values with a relative weight.
type WeightedRange struct {
	Lo     uint128.Uint128
	Hi     uint128.Uint128
	Weight uint64
}

// Point returns a range holding a single value.
func Point(v uint128.Uint128, weight uint64) WeightedRange {
	return WeightedRange{Lo: v, Hi: v, Weight: weight}
}

// Range returns the inclusive range [lo, hi].
func Range(lo, hi uint128.Uint128, weight uint64) WeightedRange {
	return WeightedRange{Lo: lo, Hi: hi, Weight: weight}
}

// Dist is a weighted distribution over 128 bit values. A range is picked
// with probability proportional to its weight, then a value is picked
// uniformly inside the range.
type Dist struct {
	ranges []WeightedRange
	total  uint64
}

// NewDist creates a distribution. Every range must be non-empty and have a
// positive weight.
func NewDist(ranges ...WeightedRange) (*Dist, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("distribution needs at least one range")
	}

	d := &Dist{}

	for i, r := range ranges {
		if r.Weight == 0 {
			return nil, fmt.Errorf("range %d has zero weight", i)
		}

		if r.Lo.Cmp(r.Hi) > 0 {
			return nil, fmt.Errorf("range %d is empty", i)
		}

		if d.total+r.Weight < d.total {
			return nil, fmt.Errorf("total weight overflows")
		}

		d.total += r.Weight
		d.ranges = append(d.ranges, r)
	}

	return d, nil
}

// MustNewDist is like NewDist but panics on invalid ranges.
func MustNewDist(ranges ...WeightedRange) *Dist {
	d, err := NewDist(ranges...)
	if err != nil {
		panic(err)
	}

	return d
}

// Ranges returns the ranges of the distribution.
func (d *Dist) Ranges() []WeightedRange {
	return append([]WeightedRange(nil), d.ranges...)
}

// Probability returns the chance that a sample comes from the i-th range.
func (d *Dist) Probability(i int) float64 {
	return float64(d.ranges[i].Weight) / float64(d.total)
}

// Sample draws one value.
func (d *Dist) Sample(rng *rand.Rand) uint128.Uint128 {
	pick := rng.Uint64N(d.total)

	for _, r := range d.ranges {
		if pick < r.Weight {
			return Uniform(rng, r.Lo, r.Hi)
		}

		pick -= r.Weight
	}

	panic("weights do not add up")
}

// Uniform draws a value uniformly from the inclusive range [lo, hi].
func Uniform(rng *rand.Rand, lo, hi uint128.Uint128) uint128.Uint128 {
	span := hi.Sub(lo)
	if span.Equals(uint128.Max) {
		return random(rng)
	}

	mask := coveringMask(span)

	for {
		v := random(rng)
		v = uint128.New(v.Lo&mask.Lo, v.Hi&mask.Hi)

		if v.Cmp(span) <= 0 {
			return lo.Add(v)
		}
	}
}

func random(rng *rand.Rand) uint128.Uint128 {
	return uint128.New(rng.Uint64(), rng.Uint64())
}

// coveringMask returns the smallest all-ones value that is not less than v.
func coveringMask(v uint128.Uint128) uint128.Uint128 {
	if v.Hi != 0 {
		n := bits.Len64(v.Hi)
		if n == 64 {
			return uint128.Max
		}

		return uint128.New(^uint64(0), uint64(1)<<n-1)
	}

	n := bits.Len64(v.Lo)
	if n == 64 {
		return uint128.New(^uint64(0), 0)
	}

	return uint128.New(uint64(1)<<n-1, 0)
}

// KeyDist returns the key distribution: 0 with weight 15, the values in
// between with weight 70, and all ones with weight 15.
func KeyDist() *Dist {
	return MustNewDist(
		Point(uint128.Zero, 15),
		Range(uint128.From64(1), uint128.Max.Sub(uint128.From64(1)), 70),
		Point(uint128.Max, 15),
	)
}

// DataDist returns the uniform distribution over all 128 bit values.
func DataDist() *Dist {
	return MustNewDist(Range(uint128.Zero, uint128.Max, 1))
}
