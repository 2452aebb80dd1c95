package timing

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should get period", func() {
		var f = 1 * GHz
		Expect(f.Period()).To(BeNumerically("==", 1e-9))
	})

	It("should panic on zero frequency", func() {
		var f Freq
		Expect(func() { f.Period() }).To(Panic())
	})

	It("should convert time to cycle", func() {
		var f = 1 * GHz
		Expect(f.Cycle(0.000000031)).To(Equal(VCycle(31)))
	})

	It("should convert cycle to time", func() {
		var f = 100 * MHz
		Expect(f.TimeOf(3)).To(BeNumerically("~", 3e-8, 1e-15))
	})

	It("should round trip between cycles and time", func() {
		var f = 300 * MHz
		Expect(f.Cycle(f.TimeOf(12345))).To(Equal(VCycle(12345)))
	})

	It("should give the period as a duration", func() {
		Expect((1 * GHz).PeriodDuration()).To(Equal(time.Nanosecond))
		Expect((250 * MHz).PeriodDuration()).To(Equal(4 * time.Nanosecond))
	})
})
