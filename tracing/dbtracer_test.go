package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/sim/timing"
)

type fixedCycle struct {
	now timing.VCycle
}

func (c *fixedCycle) Now() timing.VCycle {
	return c.now
}

type tracedDomain struct {
	hooking.HookableBase
	name string
}

func (d *tracedDomain) Name() string {
	return d.name
}

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		clock    *fixedCycle
		domain   *tracedDomain
		tracer   *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)
		clock = &fixedCycle{}
		domain = &tracedDomain{name: "Driver"}

		recorder.EXPECT().CreateTable(TaskTableName, taskTableEntry{})
		tracer = NewDBTracer(clock, recorder)
		CollectTrace(domain, tracer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should write a task with its start and end cycles", func() {
		clock.now = 3
		StartTask("1", "", domain, "reg_write", "InstBase", nil)

		clock.now = 7
		recorder.EXPECT().InsertData(TaskTableName, taskTableEntry{
			ID:         "1",
			Kind:       "reg_write",
			What:       "InstBase",
			Location:   "Driver",
			Detail:     "ok",
			StartCycle: 3,
			EndCycle:   7,
		})
		EndTask("1", domain, "ok")

		Expect(tracer.NumTasksWritten()).To(Equal(1))
	})

	It("should ignore tasks that never started", func() {
		EndTask("404", domain, nil)

		Expect(tracer.NumTasksWritten()).To(BeZero())
	})

	It("should not attach the same tracer twice", func() {
		Expect(func() { CollectTrace(domain, tracer) }).To(Panic())
	})

	It("should reject tasks without a kind", func() {
		Expect(func() {
			StartTask("1", "", domain, "", "InstBase", nil)
		}).To(Panic())
	})

	It("should flush on terminate", func() {
		StartTask("1", "", domain, "reg_read", "Status", nil)
		recorder.EXPECT().Flush()

		tracer.Terminate()
		EndTask("1", domain, nil)

		Expect(tracer.NumTasksWritten()).To(BeZero())
	})
})

var _ = Describe("Tracing API", func() {
	It("should not build tasks when nobody listens", func() {
		domain := &tracedDomain{}

		Expect(func() {
			StartTask("", "", domain, "", "", nil)
			EndTask("", domain, nil)
		}).NotTo(Panic())
	})

	It("should report steps", func() {
		domain := &tracedDomain{name: "Backend"}
		var steps []string
		domain.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosTaskStep {
				steps = append(steps, ctx.Item.(Task).Steps[0].What)
			}
		}))

		AddTaskStep("1", domain, "store")
		AddTaskStep("1", domain, "load")

		Expect(steps).To(Equal([]string{"store", "load"}))
	})
})
