package hwmodel

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cosim/cosim"
	"github.com/sarchlab/cosim/cosim/ctrlregs"
	"github.com/sarchlab/cosim/mem/membank"
	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/tracing"
)

var _ = Describe("Kernel", func() {
	const (
		schedBase = uint64(0x1000)
		logBase   = uint64(0x1800)
	)

	var (
		bank   *membank.Bank[uint64]
		kernel *Kernel
		driver *cosim.Driver
		client *ctrlregs.Client
	)

	launch := func(instBase uint64, schedule []uint64) {
		Expect(bank.LoadWords(schedBase, schedule)).To(Succeed())
		Expect(client.Write(ctrlregs.InstBase, instBase)).To(Succeed())
		Expect(client.Write(ctrlregs.VcdLogBase, logBase)).To(Succeed())
		Expect(client.Write(ctrlregs.SchedLen, uint64(len(schedule)))).
			To(Succeed())
		Expect(client.Start()).To(Succeed())
		Expect(client.WaitDone(50)).To(Succeed())
	}

	BeforeEach(func() {
		bank = membank.MakeBuilder[uint64]().
			WithCapacity(8192).
			WithBaseAddress(schedBase).
			Build("Bank")
		kernel = MakeBuilder().BuildKernel("Kernel", bank)
		driver = cosim.MakeBuilder().Build("Driver", kernel)
		client = ctrlregs.NewClient(driver)
	})

	It("should panic without a bank", func() {
		Expect(func() { MakeBuilder().BuildKernel("Kernel", nil) }).To(Panic())
	})

	It("should start idle", func() {
		Expect(client.Read(ctrlregs.Control)).To(Equal(ctrlregs.ApIdle))
		Expect(kernel.Busy()).To(BeFalse())
	})

	It("should read back what the host wrote to its arguments", func() {
		for _, f := range ctrlregs.Fields() {
			if f == ctrlregs.Control || f.Direction() == ctrlregs.ReadOnly {
				continue
			}

			Expect(client.Write(f, 0x5a)).To(Succeed())
			Expect(client.Read(f)).To(Equal(uint64(0x5a)), f.Name())
		}
	})

	It("should clear exceptions only when the clear flag rises", func() {
		Expect(client.Write(ctrlregs.ClearException, 1)).To(Succeed())

		launch(schedBase, []uint64{Encode(OpExcept, 3)})

		Expect(client.Write(ctrlregs.ClearException, 1)).To(Succeed())
		Expect(client.Exceptions()).To(Equal([4]uint16{3, 0, 0, 0}))

		Expect(client.Write(ctrlregs.ClearException, 0)).To(Succeed())
		Expect(client.Write(ctrlregs.ClearException, 1)).To(Succeed())
		Expect(client.Exceptions()).To(Equal([4]uint16{}))
		Expect(client.Read(ctrlregs.ClearException)).To(Equal(uint64(1)))
	})

	It("should run a schedule", func() {
		launch(schedBase, []uint64{
			Encode(OpLog, 0xdead),
			Encode(OpNop, 0),
			Encode(OpLog, 0xbeef),
		})

		Expect(client.Read(ctrlregs.BootCycles)).To(Equal(uint64(3)))
		Expect(client.Read(ctrlregs.VCycles)).To(Equal(uint64(1)))
		Expect(client.Read(ctrlregs.Status)).To(Equal(uint64(0)))
		Expect(bank.DumpWords(logBase, 2)).
			To(Equal([]uint64{0xdead, 0xbeef}))
	})

	It("should clear ap_done when it is read", func() {
		launch(schedBase, []uint64{Encode(OpNop, 0)})

		ctrl, err := client.Read(ctrlregs.Control)
		Expect(err).NotTo(HaveOccurred())
		Expect(ctrl & ctrlregs.ApDone).To(BeZero())
		Expect(ctrl & ctrlregs.ApIdle).NotTo(BeZero())
	})

	It("should count one virtual cycle per run", func() {
		launch(schedBase, []uint64{Encode(OpNop, 0)})
		launch(schedBase, []uint64{Encode(OpNop, 0)})

		Expect(client.Read(ctrlregs.VCycles)).To(Equal(uint64(2)))
	})

	It("should finish an empty schedule", func() {
		launch(schedBase, nil)

		Expect(client.Read(ctrlregs.BootCycles)).To(Equal(uint64(0)))
		Expect(client.Read(ctrlregs.VCycles)).To(Equal(uint64(1)))
	})

	It("should record exceptions", func() {
		launch(schedBase, []uint64{
			Encode(OpExcept, 7),
			Encode(OpExcept, 9),
		})

		Expect(client.Exceptions()).To(Equal([4]uint16{7, 9, 0, 0}))
		Expect(client.Read(ctrlregs.Status)).To(Equal(StatusException))

		Expect(client.ClearException()).To(Succeed())

		Expect(client.Exceptions()).To(Equal([4]uint16{}))
		Expect(client.Read(ctrlregs.Status)).To(Equal(uint64(0)))
		Expect(client.Read(ctrlregs.ClearException)).To(Equal(uint64(0)))
	})

	It("should flag exceptions that do not fit", func() {
		schedule := make([]uint64, 5)
		for i := range schedule {
			schedule[i] = Encode(OpExcept, uint64(i+1))
		}

		launch(schedBase, schedule)

		Expect(client.Exceptions()).To(Equal([4]uint16{1, 2, 3, 4}))
		Expect(client.Read(ctrlregs.Status)).
			To(Equal(StatusException | StatusExceptFull))
	})

	It("should stop on an illegal instruction", func() {
		launch(schedBase, []uint64{
			Encode(Opcode(0x7f), 0),
			Encode(OpLog, 1),
		})

		Expect(client.Read(ctrlregs.Status)).To(Equal(StatusIllegalOp))
		Expect(bank.ReadWord(logBase)).To(Equal(uint64(0)))
		Expect(client.Read(ctrlregs.VCycles)).To(Equal(uint64(0)))
	})

	It("should stop when the schedule runs past the bank", func() {
		last := bank.LastAddress() - 7
		Expect(bank.WriteWord(last, Encode(OpNop, 0))).To(Succeed())

		Expect(client.Write(ctrlregs.InstBase, last)).To(Succeed())
		Expect(client.Write(ctrlregs.SchedLen, 3)).To(Succeed())
		Expect(client.Start()).To(Succeed())
		Expect(client.WaitDone(50)).To(Succeed())

		Expect(client.Read(ctrlregs.Status)).To(Equal(StatusMemoryFault))
		Expect(client.Read(ctrlregs.BootCycles)).To(Equal(uint64(2)))
	})

	It("should keep running with auto restart", func() {
		Expect(bank.LoadWords(schedBase, []uint64{Encode(OpNop, 0)})).
			To(Succeed())
		Expect(client.Write(ctrlregs.InstBase, schedBase)).To(Succeed())
		Expect(client.Write(ctrlregs.SchedLen, 1)).To(Succeed())
		Expect(client.Write(ctrlregs.Control,
			ctrlregs.ApStart|ctrlregs.ApAutoRestart)).To(Succeed())

		driver.TickN(30)

		Expect(client.Read(ctrlregs.VCycles)).To(BeNumerically(">", 3))
	})

	It("should fetch through its memory ports", func() {
		ports := kernel.MemoryPorts()
		Expect(ports).To(HaveLen(2))

		fetches := 0
		ports[0].AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == tracing.HookPosTaskStart {
				fetches++
			}
		}))

		launch(schedBase, []uint64{Encode(OpNop, 0), Encode(OpNop, 0)})

		Expect(fetches).To(Equal(2))
		Expect(ports[0].Pointer()).To(Equal(schedBase))
		Expect(ports[1].Pointer()).To(Equal(logBase))
	})

	It("should not let the host clear ap_start", func() {
		Expect(client.Write(ctrlregs.SchedLen, 1)).To(Succeed())
		kernel.SetField(ctrlregs.Control, ctrlregs.ApStart)

		Expect(kernel.hostWrite(ctrlregs.Control, ctrlregs.ApStart, 0)).
			To(Equal(ctrlregs.ApStart))
	})
})
