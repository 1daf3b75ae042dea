package env

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vaiverif/config"
	"github.com/sarchlab/vaiverif/vai"
)

var _ = Describe("RunDirected", func() {
	var (
		cfg config.Config
		out *bytes.Buffer
	)

	BeforeEach(func() {
		cfg = config.Default()
		out = new(bytes.Buffer)
	})

	DescribeTable("should pass every operation",
		func(mode vai.Mode) {
			res, err := RunDirected(cfg, mode, 10, out)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Mode).To(Equal(mode))
			Expect(res.Passed).To(Equal(10))
			Expect(out.String()).To(ContainSubstring("Hold reset"))
			Expect(out.String()).To(ContainSubstring("Released reset"))
			Expect(out.String()).To(ContainSubstring("sending data: 0x"))
			Expect(out.String()).To(ContainSubstring("received data: 0x"))
		},
		Entry("encryption", vai.Encrypt),
		Entry("decryption", vai.Decrypt),
	)

	It("should hold reset for the configured time", func() {
		cfg.ResetNS = 200
		short, err := RunDirected(cfg, vai.Encrypt, 1, out)
		Expect(err).NotTo(HaveOccurred())

		cfg.ResetNS = 400
		long, err := RunDirected(cfg, vai.Encrypt, 1, out)
		Expect(err).NotTo(HaveOccurred())

		Expect(long.SimTime - short.SimTime).To(BeNumerically("~", 200e-9, 1e-12))
	})

	It("should reject invalid settings", func() {
		cfg.ClockPeriodNS = 0

		_, err := RunDirected(cfg, vai.Encrypt, 1, out)

		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, ErrTestFailed)).To(BeFalse())
	})
})
