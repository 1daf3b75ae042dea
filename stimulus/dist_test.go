package stimulus

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gmeasure"
	"lukechampine.com/uint128"
)

var _ = Describe("Dist", func() {
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewPCG(7, 11))
	})

	It("should reject invalid ranges", func() {
		_, err := NewDist()
		Expect(err).To(HaveOccurred())

		_, err = NewDist(Point(uint128.Zero, 0))
		Expect(err).To(HaveOccurred())

		_, err = NewDist(Range(uint128.From64(2), uint128.From64(1), 1))
		Expect(err).To(HaveOccurred())

		Expect(func() { MustNewDist() }).To(Panic())
	})

	It("should stay inside a small range", func() {
		lo, hi := uint128.From64(10), uint128.From64(12)
		seen := map[uint64]bool{}

		for i := 0; i < 300; i++ {
			v := Uniform(rng, lo, hi)
			Expect(v.Cmp(lo)).To(BeNumerically(">=", 0))
			Expect(v.Cmp(hi)).To(BeNumerically("<=", 0))
			seen[v.Lo] = true
		}

		Expect(seen).To(HaveLen(3))
	})

	It("should stay inside a range that crosses 64 bits", func() {
		lo := uint128.New(^uint64(0)-3, 0)
		hi := uint128.New(3, 1)

		for i := 0; i < 300; i++ {
			v := Uniform(rng, lo, hi)
			Expect(v.Cmp(lo)).To(BeNumerically(">=", 0))
			Expect(v.Cmp(hi)).To(BeNumerically("<=", 0))
		}
	})

	It("should return the point of a single value range", func() {
		Expect(Uniform(rng, uint128.Max, uint128.Max)).To(Equal(uint128.Max))
	})

	It("should cover the full range", func() {
		highHalf := 0
		for i := 0; i < 1000; i++ {
			if Uniform(rng, uint128.Zero, uint128.Max).Hi>>63 == 1 {
				highHalf++
			}
		}

		Expect(highHalf).To(BeNumerically("~", 500, 100))
	})

	It("should weight the key edges", func() {
		d := KeyDist()

		Expect(d.Ranges()).To(HaveLen(3))
		Expect(d.Probability(0)).To(BeNumerically("~", 0.15, 1e-9))
		Expect(d.Probability(1)).To(BeNumerically("~", 0.70, 1e-9))
		Expect(d.Probability(2)).To(BeNumerically("~", 0.15, 1e-9))
	})

	It("should hit both key edges in 1000 samples", func() {
		gen := NewGenerator(2024)
		zeros, ones := 0, 0

		for i := 0; i < 1000; i++ {
			key, _ := gen.Randomize()
			switch {
			case key.IsZero():
				zeros++
			case key.Equals(uint128.Max):
				ones++
			}
		}

		Expect(zeros).To(BeNumerically(">", 0))
		Expect(ones).To(BeNumerically(">", 0))
	})

	It("should produce the configured key shares", func() {
		experiment := gmeasure.NewExperiment("key distribution")
		AddReportEntry(experiment.Name, experiment)

		experiment.Sample(func(idx int) {
			gen := NewGenerator(uint64(idx))
			zeros, ones := 0, 0

			for i := 0; i < 2000; i++ {
				key, _ := gen.Randomize()
				switch {
				case key.IsZero():
					zeros++
				case key.Equals(uint128.Max):
					ones++
				}
			}

			experiment.RecordValue("zero key %", float64(zeros)/20)
			experiment.RecordValue("all-ones key %", float64(ones)/20)
		}, gmeasure.SamplingConfig{N: 10})

		zeroStats := experiment.GetStats("zero key %")
		onesStats := experiment.GetStats("all-ones key %")

		Expect(zeroStats.ValueFor(gmeasure.StatMean)).
			To(BeNumerically("~", 15, 1.5))
		Expect(onesStats.ValueFor(gmeasure.StatMean)).
			To(BeNumerically("~", 15, 1.5))
	})
})

var _ = Describe("Generator", func() {
	It("should be reproducible", func() {
		a := NewGenerator(99)
		b := NewGenerator(99)

		for i := 0; i < 20; i++ {
			ka, da := a.Randomize()
			kb, db := b.Randomize()
			Expect(ka).To(Equal(kb))
			Expect(da).To(Equal(db))
		}
	})

	It("should derive distinct seeds per name", func() {
		Expect(DeriveSeed(1, "Env.EncSeq")).
			To(Equal(DeriveSeed(1, "Env.EncSeq")))
		Expect(DeriveSeed(1, "Env.EncSeq")).
			NotTo(Equal(DeriveSeed(1, "Env.DecSeq")))
		Expect(DeriveSeed(1, "Env.EncSeq")).
			NotTo(Equal(DeriveSeed(2, "Env.EncSeq")))
	})

	It("should accept custom distributions", func() {
		gen := NewGenerator(5).
			WithKeyDist(MustNewDist(Point(uint128.From64(3), 1))).
			WithDataDist(MustNewDist(Point(uint128.From64(4), 1)))

		key, data := gen.Randomize()

		Expect(key).To(Equal(uint128.From64(3)))
		Expect(data).To(Equal(uint128.From64(4)))
		Expect(gen.Seed()).To(Equal(uint64(5)))
	})
})
