package env

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/config"
	"github.com/sarchlab/vaiverif/coverage"
	"github.com/sarchlab/vaiverif/monitoring"
	"github.com/sarchlab/vaiverif/refmodel"
	"github.com/sarchlab/vaiverif/scoreboard"
	"github.com/sarchlab/vaiverif/sequencing"
	"github.com/sarchlab/vaiverif/sim/hooking"
	"github.com/sarchlab/vaiverif/vai"
)

func binHits(e *Env) map[string]uint64 {
	hits := map[string]uint64{}
	for _, b := range e.Coverage().Group().Bins() {
		hits[b.Point+"."+b.Bin] = b.Hits
	}

	return hits
}

var _ = Describe("Env", func() {
	var (
		cfg config.Config
		out *bytes.Buffer
	)

	BeforeEach(func() {
		cfg = config.Default()
		cfg.ItemsPerSeq = 5
		cfg.ResultsDir = GinkgoT().TempDir()
		out = new(bytes.Buffer)
	})

	build := func(b Builder) *Env {
		return b.WithConfig(cfg).WithLogOutput(out).Build("Env")
	}

	listTop := func(ops ...vai.Operation) func(e *Env) sequencing.Sequence {
		return func(e *Env) sequencing.Sequence {
			return sequencing.NewListSeq("Env.DirectedSeq", ops...)
		}
	}

	It("should check a zero key encryption", func() {
		e := build(MakeBuilder().WithTop(listTop(vai.Operation{
			Mode: vai.Encrypt,
			Key:  uint128.Zero,
			Data: uint128.From64(1),
		})))

		res, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats).To(Equal(scoreboard.Stats{Checks: 1, Passes: 1}))
		Expect(out.String()).To(ContainSubstring(
			"PASSED: Encrypt 0x00000000000000000000000000000001 " +
				"with key 0x00000000000000000000000000000000 = " +
				"0x58e2fccefa7e3061367f1d57a4e7455a"))

		hits := binHits(e)
		Expect(hits["key0.key0"]).To(Equal(uint64(1)))
		Expect(hits["encXkey0.encXkey0"]).To(Equal(uint64(1)))
		Expect(hits["decXkey0.decXkey0"]).To(BeZero())
	})

	It("should run the parallel test to full coverage", func() {
		cfg.Policy = "parallel"
		cfg.ItemsPerSeq = 20

		complete := false
		for seed := uint64(1); seed <= 10 && !complete; seed++ {
			cfg.Seed = seed
			out.Reset()

			res, err := build(MakeBuilder()).Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Items).To(Equal(40))
			Expect(res.Stats.Checks).To(Equal(40))
			Expect(res.Stats.Passes).To(Equal(40))
			Expect(res.Stats.Faults).To(BeZero())
			Expect(res.Unmatched).To(BeZero())

			complete = res.Coverage == 100
		}

		Expect(complete).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("Covered all operations"))
	})

	It("should send all encryptions first with the serial policy", func() {
		e := build(MakeBuilder())

		var modes []vai.Mode
		e.Scoreboard().AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			modes = append(modes, ctx.Item.(scoreboard.CheckRecord).Op.Mode)
		}))

		_, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(modes).To(Equal([]vai.Mode{
			vai.Encrypt, vai.Encrypt, vai.Encrypt, vai.Encrypt, vai.Encrypt,
			vai.Decrypt, vai.Decrypt, vai.Decrypt, vai.Decrypt, vai.Decrypt,
		}))
	})

	It("should check results as they arrive when live checking", func() {
		cfg.LiveCheck = true
		e := build(MakeBuilder())

		var checkedAt []float64
		e.Scoreboard().AcceptHook(hooking.HookFunc(func(hooking.HookCtx) {
			checkedAt = append(checkedAt, e.Kernel().Now())
		}))

		res, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.Checks).To(Equal(10))
		Expect(checkedAt).To(HaveLen(10))
		Expect(checkedAt[0]).To(BeNumerically("<", float64(res.SimTime)))
	})

	It("should be reproducible", func() {
		record := func() ([]scoreboard.CheckRecord, Result) {
			e := build(MakeBuilder())

			var records []scoreboard.CheckRecord
			e.Scoreboard().AcceptHook(hooking.HookFunc(
				func(ctx hooking.HookCtx) {
					records = append(records,
						ctx.Item.(scoreboard.CheckRecord))
				}))

			res, err := e.Run()
			Expect(err).NotTo(HaveOccurred())

			return records, res
		}

		first, firstRes := record()
		second, secondRes := record()

		Expect(second).To(Equal(first))
		Expect(secondRes.SimTime).To(Equal(firstRes.SimTime))
		Expect(secondRes.Coverage).To(Equal(firstRes.Coverage))
	})

	It("should fail the run when the core computes wrong results", func() {
		e := build(MakeBuilder().WithCorruption(
			func(_ vai.Operation, r uint128.Uint128) uint128.Uint128 {
				return r.Xor64(1)
			}))

		res, err := e.Run()

		Expect(errors.Is(err, ErrTestFailed)).To(BeTrue())
		Expect(errors.Is(err, scoreboard.ErrFailed)).To(BeTrue())
		Expect(errors.Is(res.Err, scoreboard.ErrFailed)).To(BeTrue())
		Expect(res.Stats.Checks).To(Equal(10))
		Expect(res.Stats.Mismatches).To(Equal(10))
		Expect(out.String()).To(ContainSubstring("FAILED:"))
		Expect(out.String()).To(ContainSubstring("TEST FAILED"))
	})

	It("should ask the reference model once per result", func() {
		ctrl := gomock.NewController(GinkgoT())
		reference := refmodel.NewMockCipher(ctrl)
		ecb := refmodel.NewECB()
		reference.EXPECT().
			Decrypt(gomock.Any(), gomock.Any()).
			DoAndReturn(ecb.Decrypt).
			Times(2)

		e := build(MakeBuilder().
			WithReference(reference).
			WithTop(listTop(
				vai.Operation{Mode: vai.Decrypt, Key: uint128.Max},
				vai.Operation{Mode: vai.Decrypt, Data: uint128.Max},
			)))

		res, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.Passes).To(Equal(2))
		Expect(binHits(e)["decXkeyF.decXkeyF"]).To(Equal(uint64(1)))
	})

	It("should stop a run that exceeds the cycle limit", func() {
		cfg.MaxCycles = 30
		e := build(MakeBuilder())

		res, err := e.Run()

		Expect(errors.Is(err, ErrTestFailed)).To(BeTrue())
		Expect(errors.Is(err, ErrCycleLimit)).To(BeTrue())
		Expect(res.Cycles).To(BeNumerically("<=", 31))
		Expect(out.String()).To(ContainSubstring("did not end within 30 cycles"))
	})

	It("should write the coverage report and database", func() {
		e := build(MakeBuilder())

		res, err := e.Run()
		Expect(err).NotTo(HaveOccurred())

		db, err := coverage.ReadDB(filepath.Join(cfg.ResultsDir, CoverageDBFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(db.RunID).To(Equal(e.RunID()))
		Expect(db.Samples).To(Equal(uint64(10)))
		Expect(db.Coverage).To(Equal(res.Coverage))
		Expect(filepath.Join(cfg.ResultsDir, ReportFile)).To(BeAnExistingFile())
	})

	It("should report to the monitor", func() {
		m := monitoring.NewMonitor()
		e := build(MakeBuilder().WithMonitor(m))

		_, err := e.Run()
		Expect(err).NotTo(HaveOccurred())

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			m.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		w := get("/api/status/scoreboard")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"Checks":10`))

		w = get("/api/list_components")
		Expect(w.Body.String()).To(ContainSubstring("Env.Scoreboard"))

		w = get("/api/progress")
		Expect(w.Body.String()).To(MatchJSON("[]"))
	})

	It("should panic on invalid settings", func() {
		cfg.Policy = "random"
		Expect(func() { build(MakeBuilder()) }).To(Panic())
	})

	It("should only run once", func() {
		e := build(MakeBuilder())
		_, err := e.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(func() { _, _ = e.Run() }).To(Panic())
	})
})

var _ = Describe("DefaultTop", func() {
	It("should name the sequences after the env", func() {
		cfg := config.Default()
		cfg.Policy = "parallel"

		top := DefaultTop("Env", cfg)

		Expect(top.Name()).To(Equal("Env.TestAllSeq"))
		Expect(top.Policy()).To(Equal(sequencing.Parallel))
		Expect(top.Sequences()).To(HaveLen(2))
		Expect(top.Sequences()[0].Name()).To(Equal("Env.TestAllSeq.EncSeq"))
		Expect(top.Sequences()[1].(*sequencing.RandSeq).Mode()).
			To(Equal(vai.Decrypt))
	})
})
