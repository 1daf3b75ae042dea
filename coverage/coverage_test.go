package coverage

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/reporting"
	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/stimulus"
	"github.com/sarchlab/vaiverif/vai"
)

func hits(g *Covergroup[vai.Operation]) map[string]uint64 {
	m := map[string]uint64{}
	for _, r := range g.Bins() {
		m[r.Bin] = r.Hits
	}
	return m
}

var _ = Describe("Covergroup", func() {
	type pair struct{ a, b int }

	It("should build the product of the bins of a cross", func() {
		g := NewCovergroup[pair]("pairs")
		a := g.AddCoverpoint("a",
			NewBin("a0", func(p pair) bool { return p.a == 0 }),
			NewBin("a1", func(p pair) bool { return p.a == 1 }))
		b := g.AddCoverpoint("b",
			NewBin("b0", func(p pair) bool { return p.b == 0 }),
			NewBin("b1", func(p pair) bool { return p.b == 1 }),
			NewBin("b2", func(p pair) bool { return p.b == 2 }))
		c := g.AddCross("aXb", a, b)

		var names []string
		for _, bin := range c.Bins() {
			names = append(names, bin.Name())
		}
		Expect(names).To(Equal([]string{
			"a0Xb0", "a0Xb1", "a0Xb2", "a1Xb0", "a1Xb1", "a1Xb2",
		}))

		g.Sample(pair{1, 2})
		Expect(c.Bins()[5].Hits()).To(Equal(uint64(1)))
		Expect(c.Coverage()).To(BeNumerically("~", 100.0/6, 1e-9))
		Expect(a.Coverage()).To(Equal(50.0))
		Expect(g.Coverage()).To(BeNumerically("~", 100.0*3/11, 1e-9))
	})

	It("should panic on malformed groups", func() {
		g := NewCovergroup[pair]("pairs")
		Expect(func() { g.AddCoverpoint("a") }).To(Panic())

		a := g.AddCoverpoint("a",
			NewBin("a0", func(p pair) bool { return p.a == 0 }))
		Expect(func() { g.AddCross("a", a) }).To(Panic())
	})
})

var _ = Describe("AES covergroup", func() {
	var g *Covergroup[vai.Operation]

	BeforeEach(func() {
		g = NewAESCovergroup("aes")
	})

	It("should declare eight bins", func() {
		Expect(g.Bins()).To(HaveLen(8))
		Expect(g.Coverage()).To(Equal(0.0))
	})

	It("should hit the zero key bins", func() {
		g.Sample(vai.Operation{
			Mode: vai.Encrypt,
			Key:  uint128.Zero,
			Data: uint128.From64(1),
		})

		h := hits(g)
		Expect(h["enc"]).To(Equal(uint64(1)))
		Expect(h["key0"]).To(Equal(uint64(1)))
		Expect(h["encXkey0"]).To(Equal(uint64(1)))
		Expect(h["dec"]).To(BeZero())
		Expect(h["decXkey0"]).To(BeZero())
		Expect(g.Coverage()).To(Equal(37.5))
	})

	It("should need both predicates for a cross", func() {
		g.Sample(vai.Operation{Mode: vai.Encrypt, Key: uint128.From64(5)})
		g.Sample(vai.Operation{Mode: vai.Decrypt, Key: uint128.Max})

		h := hits(g)
		Expect(h["keyF"]).To(Equal(uint64(1)))
		Expect(h["decXkeyF"]).To(Equal(uint64(1)))
		Expect(h["encXkeyF"]).To(BeZero())
	})

	It("should never lose coverage", func() {
		gen := stimulus.NewGenerator(7)
		last := 0.0

		for i := 0; i < 200; i++ {
			key, data := gen.Randomize()
			g.Sample(vai.Operation{Mode: vai.Mode(i % 2), Key: key, Data: data})

			Expect(g.Coverage()).To(BeNumerically(">=", last))
			last = g.Coverage()
		}

		Expect(last).To(Equal(100.0))
		Expect(g.Samples()).To(Equal(uint64(200)))
	})
})

var _ = Describe("Collector", func() {
	var (
		out    *bytes.Buffer
		logger *reporting.Logger
		c      *Collector
	)

	BeforeEach(func() {
		out = new(bytes.Buffer)
		logger = reporting.NewLogger(out, "Env.Coverage")
		c = NewCollector("aes", logger)
	})

	It("should warn about incomplete coverage", func() {
		c.Write(vai.Operation{Mode: vai.Decrypt})
		c.Report()

		Expect(c.Complete()).To(BeFalse())
		Expect(logger.Count(reporting.Warning)).To(Equal(1))
		Expect(out.String()).To(ContainSubstring("Functional coverage incomplete"))
	})

	It("should stay quiet when errors are disabled", func() {
		c.DisableErrors(true)
		c.Report()

		Expect(c.ErrorsDisabled()).To(BeTrue())
		Expect(out.String()).To(BeEmpty())
	})

	It("should report full coverage", func() {
		for _, mode := range []vai.Mode{vai.Encrypt, vai.Decrypt} {
			for _, key := range []uint128.Uint128{uint128.Zero, uint128.Max} {
				c.Write(vai.Operation{Mode: mode, Key: key})
			}
		}
		c.Report()

		Expect(c.Complete()).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("Covered all operations"))
	})

	It("should publish the coverage after every sample", func() {
		var seen []float64
		c.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			seen = append(seen, ctx.Detail.(float64))
		}))

		c.Write(vai.Operation{Mode: vai.Encrypt, Key: uint128.Zero})
		c.Write(vai.Operation{Mode: vai.Encrypt, Key: uint128.Zero})

		Expect(seen).To(Equal([]float64{37.5, 37.5}))
	})
})

var _ = Describe("Coverage database", func() {
	var (
		dir string
		g   *Covergroup[vai.Operation]
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		g = NewAESCovergroup("aes")
		g.Sample(vai.Operation{Mode: vai.Decrypt, Key: uint128.Max})
	})

	for _, name := range []string{"fcover.json", "fcover.json.zst"} {
		It("should store and read back "+name, func() {
			path := filepath.Join(dir, name)
			db := Snapshot(g, "")

			Expect(db.RunID).NotTo(BeEmpty())
			Expect(WriteDB(path, db)).To(Succeed())

			read, err := ReadDB(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(read.RunID).To(Equal(db.RunID))
			Expect(read.Samples).To(Equal(uint64(1)))
			Expect(read.Coverage).To(Equal(37.5))
			Expect(read.Bins).To(Equal(db.Bins))
			Expect(read.Created).To(BeTemporally("==", db.Created))
		})
	}

	It("should tell the formats apart", func() {
		path := filepath.Join(dir, "fcover.json.zst")
		Expect(WriteDB(path, Snapshot(g, "run"))).To(Succeed())

		raw, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw[:4]).To(Equal([]byte{0x28, 0xb5, 0x2f, 0xfd}))
	})

	for _, name := range []string{"full.json", "full.json.zst"} {
		It("should report a failed write of "+name, func() {
			if _, err := os.Stat("/dev/full"); err != nil {
				Skip("no /dev/full on this system")
			}

			path := filepath.Join(dir, name)
			Expect(os.Symlink("/dev/full", path)).To(Succeed())

			Expect(WriteDB(path, Snapshot(g, "run"))).NotTo(Succeed())
		})
	}

	It("should fail on a broken file", func() {
		path := filepath.Join(dir, "broken.json")
		Expect(os.WriteFile(path, []byte("{"), 0o644)).To(Succeed())

		_, err := ReadDB(path)
		Expect(err).To(HaveOccurred())
	})

	It("should append reports", func() {
		path := filepath.Join(dir, "fcover.txt")
		db := Snapshot(g, "run")

		Expect(AppendReport(path, db)).To(Succeed())
		Expect(AppendReport(path, db)).To(Succeed())

		raw, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		text := string(raw)
		Expect(text).To(ContainSubstring("    CVP keyF : 100.00%\n        keyF : 1\n"))
		Expect(text).To(ContainSubstring("    CROSS encXkey0 : 0.00%\n"))
		Expect(bytes.Count(raw, []byte("TYPE aes"))).To(Equal(2))
	})
})
