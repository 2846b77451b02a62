package dev

import (
	"strings"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Names", func() {
	ginkgo.It("should keep short names intact", func() {
		name, truncated := TruncateName("nvram")

		Expect(name).To(Equal("nvram"))
		Expect(truncated).To(BeFalse())
	})

	ginkgo.It("should truncate long names", func() {
		name, truncated := TruncateName(strings.Repeat("a", 100))

		Expect(name).To(Equal(strings.Repeat("a", MaxNameLength)))
		Expect(truncated).To(BeTrue())
	})

	ginkgo.It("should build tree paths", func() {
		Expect(BuildName("", "root")).To(Equal("root"))
		Expect(BuildName("root.bus", "disk")).To(Equal("root.bus.disk"))
	})
})

var _ = ginkgo.Describe("Flags", func() {
	ginkgo.It("should test bits", func() {
		f := FlagAdded | FlagUnbound

		Expect(f.Has(FlagAdded)).To(BeTrue())
		Expect(f.Has(FlagUnbound)).To(BeTrue())
		Expect(f.Has(FlagDead)).To(BeFalse())
		Expect(f.Has(FlagAdded | FlagDead)).To(BeFalse())
	})

	ginkgo.It("should print flag names", func() {
		Expect(Flag(0).String()).To(Equal("None"))
		Expect(FlagDead.String()).To(Equal("Dead"))
		Expect((FlagAdded | FlagInvisible).String()).
			To(Equal("Added|Invisible"))
	})
})
