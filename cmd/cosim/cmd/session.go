package cmd

import (
	"errors"
	"fmt"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/cosim/cosim"
	"github.com/sarchlab/cosim/cosim/ctrlregs"
	"github.com/sarchlab/cosim/cosim/hwmodel"
	"github.com/sarchlab/cosim/datarecording"
	"github.com/sarchlab/cosim/mem/membank"
	"github.com/sarchlab/cosim/monitoring"
	"github.com/sarchlab/cosim/sim/timing"
	"github.com/sarchlab/cosim/tracing"
	"github.com/sarchlab/cosim/waveform"
)

// A session is a bank, a kernel model and the driver that owns it, plus the
// optional recorders and monitor.
type session struct {
	cfg      config
	bank     *membank.Bank[uint64]
	kernel   *hwmodel.Kernel
	driver   *cosim.Driver
	client   *ctrlregs.Client
	recorder datarecording.DataRecorder
	tracer   *tracing.DBTracer
	monitor  *monitoring.Monitor
	closed   bool
}

// runResult is what the host reads back after a run.
type runResult struct {
	BootCycles uint64
	VCycles    uint64
	Status     uint64
	Exceptions [4]uint16
	Log        []uint64
	Cycles     timing.VCycle
}

func newSession(cfg config) (*session, error) {
	s := &session{cfg: cfg}

	s.bank = membank.MakeBuilder[uint64]().
		WithCapacity(cfg.bankCapacity).
		WithBaseAddress(cfg.bankBase).
		Build("Bank")
	s.kernel = hwmodel.MakeBuilder().BuildKernel("Kernel", s.bank)

	sink, err := s.buildSink()
	if err != nil {
		return nil, err
	}

	builder := cosim.MakeBuilder().WithMaxRetries(cfg.maxRetries)
	if sink != nil {
		builder = builder.WithWaveformSink(sink)
	}

	s.driver = builder.Build("Driver", s.kernel)
	s.client = ctrlregs.NewClient(s.driver)

	if s.recorder != nil {
		s.tracer = tracing.NewDBTracer(s.driver, s.recorder)
		tracing.CollectTrace(s.driver, s.tracer)

		for _, port := range s.kernel.MemoryPorts() {
			tracing.CollectTrace(port, s.tracer)
		}
	}

	if cfg.monitor {
		s.startMonitor()
	}

	atexit.Register(func() { _ = s.close() })

	return s, nil
}

func (s *session) buildSink() (cosim.WaveformSink, error) {
	var sinks waveform.Tee

	if s.cfg.vcdPath != "" {
		vcd, err := waveform.MakeVCDBuilder().
			WithFreq(timing.Freq(s.cfg.freqMHz) * timing.MHz).
			WithScope("kernel").
			BuildFile(s.cfg.vcdPath)
		if err != nil {
			return nil, err
		}

		sinks = append(sinks, vcd)
	}

	if s.cfg.recordPath != "" {
		s.recorder = datarecording.NewDataRecorder(s.cfg.recordPath)
		sinks = append(sinks, waveform.NewRecorder(s.recorder))
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func (s *session) startMonitor() {
	s.monitor = monitoring.NewMonitor().WithPortNumber(s.cfg.monitorPort)
	if s.cfg.openBrowser {
		s.monitor.WithBrowser()
	}

	s.monitor.RegisterClock(s.driver)

	for _, port := range s.kernel.MemoryPorts() {
		s.monitor.RegisterDomain(port)
	}

	s.monitor.StartServer()
}

// run loads a schedule at the start of the bank, with the log buffer right
// after it, and runs the kernel once.
func (s *session) run(sched schedule) (runResult, error) {
	var res runResult

	start := s.driver.Now()
	instBase := s.bank.BaseAddress()
	logBase := instBase + uint64(len(sched.words))*s.bank.WordSize()

	if err := s.bank.LoadWords(instBase, sched.words); err != nil {
		return res, err
	}

	if sched.numLog > 0 && !s.bank.Contains(
		logBase+uint64(sched.numLog)*s.bank.WordSize()-1) {
		return res, fmt.Errorf("no room for %d log words after the schedule",
			sched.numLog)
	}

	args := []struct {
		field ctrlregs.Field
		value uint64
	}{
		{ctrlregs.InstBase, instBase},
		{ctrlregs.VcdLogBase, logBase},
		{ctrlregs.SchedLen, uint64(len(sched.words))},
	}

	for _, a := range args {
		if err := s.client.Write(a.field, a.value); err != nil {
			return res, err
		}
	}

	err := s.client.Start()
	if err != nil {
		return res, err
	}

	if err = s.client.WaitDone(s.cfg.maxPolls); err != nil {
		return res, err
	}

	if err = s.readResult(&res); err != nil {
		return res, err
	}

	res.Log, err = s.bank.DumpWords(logBase, uint64(sched.numLog))
	res.Cycles = s.driver.Now() - start

	return res, err
}

func (s *session) readResult(res *runResult) error {
	var err error

	if res.BootCycles, err = s.client.Read(ctrlregs.BootCycles); err != nil {
		return err
	}

	if res.VCycles, err = s.client.Read(ctrlregs.VCycles); err != nil {
		return err
	}

	if res.Status, err = s.client.Read(ctrlregs.Status); err != nil {
		return err
	}

	res.Exceptions, err = s.client.Exceptions()

	return err
}

// close releases the driver and flushes the recorders. It is safe to call
// more than once.
func (s *session) close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	err := s.driver.Close()

	if s.tracer != nil {
		s.tracer.Terminate()
	}

	if s.recorder != nil {
		err = errors.Join(err, s.recorder.Close())
	}

	return err
}
