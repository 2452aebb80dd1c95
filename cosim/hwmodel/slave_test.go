package hwmodel

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cosim/cosim"
	"github.com/sarchlab/cosim/cosim/ctrlregs"
	"github.com/sarchlab/cosim/sim/timing"
)

var _ = Describe("ControlSlave", func() {
	var (
		slave  *ControlSlave
		driver *cosim.Driver
		client *ctrlregs.Client
	)

	build := func(b Builder) {
		slave = b.BuildControlSlave("Slave")
		driver = cosim.MakeBuilder().Build("Driver", slave)
		client = ctrlregs.NewClient(driver)
	}

	BeforeEach(func() {
		build(MakeBuilder())
	})

	It("should list the clock and the bus lines", func() {
		Expect(slave.Signals()).To(ContainElements(
			cosim.Clock, cosim.AWReady, cosim.RData, cosim.BReady))
		Expect(slave.Signals()).To(HaveLen(18))
	})

	It("should refuse to drive outputs", func() {
		Expect(func() { slave.Poke(cosim.AWReady, 1) }).To(Panic())
		Expect(func() { slave.Peek("nothing") }).To(Panic())
	})

	It("should round trip every host-writable field", func() {
		pattern := uint64(0x0123456789abcdef)

		for _, f := range ctrlregs.Fields() {
			if f.Direction() == ctrlregs.ReadOnly {
				continue
			}

			Expect(client.Write(f, pattern&f.Mask())).To(Succeed(), f.Name())
		}

		for _, f := range ctrlregs.Fields() {
			if f.Direction() == ctrlregs.ReadOnly {
				continue
			}

			Expect(client.Read(f)).To(Equal(pattern&f.Mask()), f.Name())
			Expect(slave.Field(f)).To(Equal(pattern & f.Mask()))
		}
	})

	It("should complete a write and a read in two cycles each", func() {
		Expect(driver.WriteRegister(0x34, 9)).To(Succeed())
		Expect(driver.Now()).To(Equal(timing.VCycle(2)))

		Expect(driver.ReadRegister(0x34)).To(Equal(uint32(9)))
		Expect(driver.Now()).To(Equal(timing.VCycle(4)))
	})

	It("should ignore host writes to read-only fields", func() {
		slave.SetField(ctrlregs.BootCycles, 77)

		Expect(driver.WriteRegister(ctrlregs.BootCycles.Offset(), 5)).
			To(Succeed())

		Expect(client.Read(ctrlregs.BootCycles)).To(Equal(uint64(77)))
	})

	It("should let the device set read-only fields", func() {
		slave.SetField(ctrlregs.VCycles, 0x1_0000_0003)
		slave.SetField(ctrlregs.ExceptID2, 0xfffff)

		Expect(client.Read(ctrlregs.VCycles)).To(Equal(uint64(0x1_0000_0003)))
		Expect(client.Read(ctrlregs.ExceptID2)).To(Equal(uint64(0xffff)))
	})

	It("should read unmapped offsets as zero", func() {
		Expect(driver.WriteRegister(0x04, 1)).To(Succeed())
		Expect(driver.ReadRegister(0x04)).To(Equal(uint32(0)))
	})

	Context("with strict decoding", func() {
		BeforeEach(func() {
			build(MakeBuilder().WithStrictDecode())
		})

		It("should answer unmapped offsets with DECERR", func() {
			_, err := driver.ReadRegister(0x04)

			var respErr *cosim.ResponseError
			Expect(errors.As(err, &respErr)).To(BeTrue())
			Expect(respErr.Resp).To(Equal(cosim.RespDecErr))

			Expect(errors.Is(driver.WriteRegister(0x08, 1), cosim.ErrResponse)).
				To(BeTrue())
		})
	})

	Context("with ready latencies", func() {
		BeforeEach(func() {
			build(MakeBuilder().
				WithWriteAddressLatency(3).
				WithReadAddressLatency(4))
		})

		It("should wait for the slave", func() {
			Expect(driver.ReadRegister(0x34)).To(Equal(uint32(0)))
			Expect(driver.Now()).To(Equal(timing.VCycle(6)))

			Expect(driver.WriteRegister(0x34, 3)).To(Succeed())
			Expect(driver.Now()).To(Equal(timing.VCycle(11)))
			Expect(slave.Field(ctrlregs.SchedLen)).To(Equal(uint64(3)))
		})
	})

	Context("when the latency exceeds the retry ceiling", func() {
		BeforeEach(func() {
			build(MakeBuilder().WithReadAddressLatency(25))
		})

		It("should time out", func() {
			_, err := driver.ReadRegister(0x34)

			Expect(errors.Is(err, cosim.ErrTimeout)).To(BeTrue())
			Expect(driver.Now()).To(Equal(timing.VCycle(20)))
		})
	})

	Context("when stalled", func() {
		BeforeEach(func() {
			build(MakeBuilder().WithStall())
		})

		It("should time out after exactly twenty cycles", func() {
			err := driver.WriteRegister(0x10, 0x1234)

			var timeout *cosim.TimeoutError
			Expect(errors.As(err, &timeout)).To(BeTrue())
			Expect(timeout.Offset).To(Equal(uint32(0x10)))
			Expect(timeout.Value).To(Equal(uint32(0x1234)))
			Expect(timeout.Cycles).To(Equal(uint64(20)))
			Expect(driver.Now()).To(Equal(timing.VCycle(20)))

			Expect(slave.Peek(cosim.AWValid)).To(Equal(uint64(0)))
			Expect(slave.Field(ctrlregs.InstBase)).To(Equal(uint64(0)))
		})
	})
})
