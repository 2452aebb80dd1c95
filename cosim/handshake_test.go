package cosim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/sim/timing"
	"github.com/sarchlab/cosim/tracing"
)

type taskCollector struct {
	started []tracing.Task
	ended   []tracing.Task
}

func (c *taskCollector) StartTask(task tracing.Task) {
	c.started = append(c.started, task)
}

func (c *taskCollector) StepTask(_ tracing.Task) {}

func (c *taskCollector) EndTask(task tracing.Task) {
	c.ended = append(c.ended, task)
}

var _ = Describe("Register access", func() {
	var (
		mockCtrl *gomock.Controller
		model    *MockModel
		inputs   map[Signal]uint64
		outputs  map[Signal]uint64
		d        *Driver
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		model = NewMockModel(mockCtrl)
		inputs = make(map[Signal]uint64)
		outputs = make(map[Signal]uint64)

		model.EXPECT().Eval().AnyTimes()
		model.EXPECT().
			Poke(gomock.Any(), gomock.Any()).
			Do(func(s Signal, v uint64) { inputs[s] = v }).
			AnyTimes()
		model.EXPECT().
			Peek(gomock.Any()).
			DoAndReturn(func(s Signal) uint64 { return outputs[s] }).
			AnyTimes()

		d = MakeBuilder().Build("Driver", model)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when the slave is never ready", func() {
		It("should time out a write after exactly the retry ceiling", func() {
			err := d.WriteRegister(0x10, 0xbeef)

			var timeout *TimeoutError
			Expect(errors.As(err, &timeout)).To(BeTrue())
			Expect(errors.Is(err, ErrTimeout)).To(BeTrue())
			Expect(timeout.Access).To(Equal(AccessWrite))
			Expect(timeout.Offset).To(Equal(uint32(0x10)))
			Expect(timeout.Value).To(Equal(uint32(0xbeef)))
			Expect(timeout.Cycles).To(Equal(uint64(20)))
			Expect(timeout.Waiting).To(Equal(AWReady))
			Expect(d.Now()).To(Equal(timing.VCycle(20)))
			Expect(err.Error()).To(ContainSubstring("0x10"))
			Expect(err.Error()).To(ContainSubstring("0xbeef"))
		})

		It("should release the lines it drove", func() {
			Expect(d.WriteRegister(0x10, 1)).NotTo(Succeed())

			Expect(inputs[AWValid]).To(Equal(uint64(0)))
			Expect(inputs[WValid]).To(Equal(uint64(0)))
			Expect(inputs[BReady]).To(Equal(uint64(0)))
		})

		It("should time out a read", func() {
			_, err := d.ReadRegister(0x44)

			var timeout *TimeoutError
			Expect(errors.As(err, &timeout)).To(BeTrue())
			Expect(timeout.Access).To(Equal(AccessRead))
			Expect(timeout.Waiting).To(Equal(ARReady))
			Expect(timeout.Cycles).To(Equal(uint64(20)))
			Expect(d.Now()).To(Equal(timing.VCycle(20)))
			Expect(inputs[ARValid]).To(Equal(uint64(0)))
			Expect(inputs[RReady]).To(Equal(uint64(0)))
		})

		It("should honour an injected retry ceiling", func() {
			d.maxRetries = 5

			_, err := d.ReadRegister(0)

			Expect(errors.Is(err, ErrTimeout)).To(BeTrue())
			Expect(d.Now()).To(Equal(timing.VCycle(5)))
		})

		It("should allow issuing again after a timeout", func() {
			Expect(d.WriteRegister(0x10, 1)).NotTo(Succeed())
			Expect(d.WriteRegister(0x10, 1)).NotTo(Succeed())

			Expect(d.Now()).To(Equal(timing.VCycle(40)))
		})
	})

	Context("when the slave is always ready", func() {
		BeforeEach(func() {
			outputs[AWReady] = 1
			outputs[WReady] = 1
			outputs[BValid] = 1
			outputs[ARReady] = 1
			outputs[RValid] = 1
		})

		It("should write in two cycles", func() {
			Expect(d.WriteRegister(0x34, 42)).To(Succeed())

			Expect(d.Now()).To(Equal(timing.VCycle(2)))
			Expect(inputs[AWAddr]).To(Equal(uint64(0x34)))
			Expect(inputs[WData]).To(Equal(uint64(42)))
			Expect(inputs[WStrb]).To(Equal(uint64(0xf)))
			Expect(inputs[AWValid]).To(Equal(uint64(0)))
			Expect(inputs[WValid]).To(Equal(uint64(0)))
			Expect(inputs[BReady]).To(Equal(uint64(0)))
		})

		It("should read in two cycles", func() {
			outputs[RData] = 0xcafe

			Expect(d.ReadRegister(0x50)).To(Equal(uint32(0xcafe)))
			Expect(d.Now()).To(Equal(timing.VCycle(2)))
			Expect(inputs[ARAddr]).To(Equal(uint64(0x50)))
			Expect(inputs[ARValid]).To(Equal(uint64(0)))
			Expect(inputs[RReady]).To(Equal(uint64(0)))
		})

		It("should report an error write response", func() {
			outputs[BResp] = RespSlvErr

			err := d.WriteRegister(0x34, 42)

			var respErr *ResponseError
			Expect(errors.As(err, &respErr)).To(BeTrue())
			Expect(errors.Is(err, ErrResponse)).To(BeTrue())
			Expect(respErr.Offset).To(Equal(uint32(0x34)))
			Expect(respErr.Resp).To(Equal(RespSlvErr))
		})

		It("should report an error read response", func() {
			outputs[RResp] = RespDecErr

			_, err := d.ReadRegister(0x04)

			var respErr *ResponseError
			Expect(errors.As(err, &respErr)).To(BeTrue())
			Expect(respErr.Access).To(Equal(AccessRead))
			Expect(respErr.Resp).To(Equal(RespDecErr))
		})

		It("should only count waiting cycles against the ceiling", func() {
			outputs[BValid] = 0

			err := d.WriteRegister(0x34, 42)

			var timeout *TimeoutError
			Expect(errors.As(err, &timeout)).To(BeTrue())
			Expect(timeout.Waiting).To(Equal(BValid))
			Expect(timeout.Cycles).To(Equal(uint64(21)))
		})

		It("should trace transactions", func() {
			collector := &taskCollector{}
			tracing.CollectTrace(d, collector)
			outputs[RData] = 7

			Expect(d.WriteRegister(0x10, 1)).To(Succeed())
			_, err := d.ReadRegister(0x10)
			Expect(err).NotTo(HaveOccurred())

			Expect(collector.started).To(HaveLen(2))
			Expect(collector.started[0].Kind).To(Equal("reg_write"))
			Expect(collector.started[0].What).To(Equal("0x10"))
			Expect(collector.started[0].Location).To(Equal("Driver"))
			Expect(collector.started[1].Kind).To(Equal("reg_read"))
			Expect(collector.ended).To(HaveLen(2))
			Expect(collector.ended[1].Detail).To(Equal(uint32(7)))
		})
	})

	It("should refuse a transaction from inside another one", func() {
		outputs[AWReady] = 1
		outputs[WReady] = 1
		outputs[BValid] = 1

		d.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos != HookPosTick {
				return
			}

			Expect(func() { _ = d.WriteRegister(0, 0) }).To(Panic())
		}))

		Expect(d.WriteRegister(0x10, 1)).To(Succeed())
	})
})
