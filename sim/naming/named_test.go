package naming

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Name", func() {
	It("should parse hierarchical names", func() {
		tokens, err := Parse("Env.Seq[1][2].Gen")

		Expect(err).NotTo(HaveOccurred())
		Expect(tokens).To(Equal([]Token{
			{Elem: "Env"},
			{Elem: "Seq", Index: []int{1, 2}},
			{Elem: "Gen"},
		}))
	})

	DescribeTable("invalid names",
		func(name string) {
			Expect(func() { NameMustBeValid(name) }).To(Panic())
		},
		Entry("empty", ""),
		Entry("empty element", "Env..Seq"),
		Entry("trailing dot", "Env."),
		Entry("underscore", "Env.Seq_1"),
		Entry("dash", "Env-1"),
		Entry("lower case", "env"),
		Entry("unmatched bracket", "Seq[1"),
		Entry("non integer index", "Seq[a]"),
	)

	It("should build names", func() {
		Expect(BuildName("", "Env")).To(Equal("Env"))
		Expect(BuildName("Env", "Seqr")).To(Equal("Env.Seqr"))
		Expect(BuildNameWithIndex("Env", "Seq", 3)).To(Equal("Env.Seq[3]"))
		Expect(MakeNamedBase("Env.Seqr").Name()).To(Equal("Env.Seqr"))
	})
})
