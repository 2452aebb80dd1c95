// Package hwmodel provides behavioural models of the accelerator that the
// cosimulation driver can step when no generated model is available.
package hwmodel

import (
	"fmt"

	"github.com/sarchlab/cosim/cosim"
	"github.com/sarchlab/cosim/cosim/ctrlregs"
)

var inputSignals = []cosim.Signal{
	cosim.Clock,
	cosim.AWAddr, cosim.AWValid,
	cosim.WData, cosim.WStrb, cosim.WValid,
	cosim.BReady,
	cosim.ARAddr, cosim.ARValid,
	cosim.RReady,
}

var outputSignals = []cosim.Signal{
	cosim.AWReady,
	cosim.WReady,
	cosim.BResp, cosim.BValid,
	cosim.ARReady,
	cosim.RData, cosim.RResp, cosim.RValid,
}

// device is the logic behind the register file. It sees every host access
// and is clocked after the bus.
type device interface {
	hostWrite(f ctrlregs.Field, old, value uint64) uint64
	hostRead(f ctrlregs.Field)
	risingEdge()
}

// A ControlSlave is an AXI4-Lite slave in front of the control register
// space. Its state changes on the rising edge of the clock. The ready lines
// are combinational.
type ControlSlave struct {
	name    string
	inputs  map[cosim.Signal]uint64
	outputs map[cosim.Signal]uint64
	clock   uint64
	regs    map[ctrlregs.Field]uint64
	device  device

	awLatency    int
	wLatency     int
	arLatency    int
	stalled      bool
	strictDecode bool

	awWaited, wWaited, arWaited int
	awAccepted, wAccepted       bool
	awAddr, wData, wStrb        uint32

	bValid bool
	bResp  uint64
	rValid bool
	rData  uint32
	rResp  uint64
}

func newControlSlave(name string) *ControlSlave {
	s := &ControlSlave{
		name:    name,
		inputs:  make(map[cosim.Signal]uint64),
		outputs: make(map[cosim.Signal]uint64),
		regs:    make(map[ctrlregs.Field]uint64),
	}

	for _, sig := range inputSignals {
		s.inputs[sig] = 0
	}

	s.settle()

	return s
}

// Name returns the name of the slave.
func (s *ControlSlave) Name() string {
	return s.name
}

// Signals lists the clock and the control bus lines.
func (s *ControlSlave) Signals() []cosim.Signal {
	signals := make([]cosim.Signal, 0, len(inputSignals)+len(outputSignals))
	signals = append(signals, inputSignals...)
	signals = append(signals, outputSignals...)

	return signals
}

// Poke drives an input line. Driving an output or an unknown line panics.
func (s *ControlSlave) Poke(sig cosim.Signal, value uint64) {
	if _, ok := s.inputs[sig]; !ok {
		panic(fmt.Sprintf("%s: cannot drive %s", s.name, sig))
	}

	s.inputs[sig] = value
}

// Peek samples an input or an output line.
func (s *ControlSlave) Peek(sig cosim.Signal) uint64 {
	if v, ok := s.outputs[sig]; ok {
		return v
	}

	if v, ok := s.inputs[sig]; ok {
		return v
	}

	panic(fmt.Sprintf("%s: no line named %s", s.name, sig))
}

// Eval settles the slave. A rising clock edge since the last Eval updates the
// bus and register state first.
func (s *ControlSlave) Eval() {
	clock := s.inputs[cosim.Clock] & 1
	if s.clock == 0 && clock == 1 {
		s.risingEdge()
	}

	s.clock = clock
	s.settle()
}

// Field returns the value the device holds for f.
func (s *ControlSlave) Field(f ctrlregs.Field) uint64 {
	return s.regs[f]
}

// SetField sets a field from the device side. Read-only fields can only be
// changed this way.
func (s *ControlSlave) SetField(f ctrlregs.Field, value uint64) {
	s.regs[f] = value & f.Mask()
}

func (s *ControlSlave) high(sig cosim.Signal) bool {
	return s.inputs[sig]&1 == 1
}

func (s *ControlSlave) awReady() bool {
	return s.high(cosim.AWValid) && !s.stalled &&
		!s.awAccepted && !s.bValid &&
		s.awWaited >= s.awLatency
}

func (s *ControlSlave) wReady() bool {
	return s.high(cosim.WValid) && !s.stalled &&
		!s.wAccepted && !s.bValid &&
		s.wWaited >= s.wLatency
}

func (s *ControlSlave) arReady() bool {
	return s.high(cosim.ARValid) && !s.stalled &&
		!s.rValid &&
		s.arWaited >= s.arLatency
}

func (s *ControlSlave) risingEdge() {
	awFire := s.awReady()
	wFire := s.wReady()
	arFire := s.arReady()
	bFire := s.bValid && s.high(cosim.BReady)
	rFire := s.rValid && s.high(cosim.RReady)

	if bFire {
		s.bValid = false
	}

	if rFire {
		s.rValid = false
	}

	s.clockWriteAddress(awFire)
	s.clockWriteData(wFire)

	if s.awAccepted && s.wAccepted {
		s.bResp = s.write(s.awAddr, s.wData, s.wStrb)
		s.bValid = true
		s.awAccepted = false
		s.wAccepted = false
	}

	s.clockReadAddress(arFire)

	if s.device != nil {
		s.device.risingEdge()
	}
}

func (s *ControlSlave) clockWriteAddress(fire bool) {
	switch {
	case fire:
		s.awAccepted = true
		s.awAddr = uint32(s.inputs[cosim.AWAddr])
		s.awWaited = 0
	case s.high(cosim.AWValid) && !s.awAccepted:
		s.awWaited++
	}
}

func (s *ControlSlave) clockWriteData(fire bool) {
	switch {
	case fire:
		s.wAccepted = true
		s.wData = uint32(s.inputs[cosim.WData])
		s.wStrb = uint32(s.inputs[cosim.WStrb])
		s.wWaited = 0
	case s.high(cosim.WValid) && !s.wAccepted:
		s.wWaited++
	}
}

func (s *ControlSlave) clockReadAddress(fire bool) {
	switch {
	case fire:
		s.rData, s.rResp = s.read(uint32(s.inputs[cosim.ARAddr]))
		s.rValid = true
		s.arWaited = 0
	case s.high(cosim.ARValid) && !s.rValid:
		s.arWaited++
	}
}

func (s *ControlSlave) settle() {
	s.outputs[cosim.AWReady] = boolToLine(s.awReady())
	s.outputs[cosim.WReady] = boolToLine(s.wReady())
	s.outputs[cosim.ARReady] = boolToLine(s.arReady())

	s.outputs[cosim.BValid] = boolToLine(s.bValid)
	s.outputs[cosim.BResp] = 0
	if s.bValid {
		s.outputs[cosim.BResp] = s.bResp
	}

	s.outputs[cosim.RValid] = boolToLine(s.rValid)
	s.outputs[cosim.RData] = 0
	s.outputs[cosim.RResp] = 0
	if s.rValid {
		s.outputs[cosim.RData] = uint64(s.rData)
		s.outputs[cosim.RResp] = s.rResp
	}
}

func (s *ControlSlave) unmapped() uint64 {
	if s.strictDecode {
		return cosim.RespDecErr
	}

	return cosim.RespOkay
}

// write merges the strobed bytes of data into the field that owns addr.
// Writes to read-only fields are dropped.
func (s *ControlSlave) write(addr, data, strb uint32) uint64 {
	f, word, ok := ctrlregs.Lookup(addr)
	if !ok {
		return s.unmapped()
	}

	if f.Direction() == ctrlregs.ReadOnly {
		return cosim.RespOkay
	}

	old := s.regs[f]
	value := old
	shift := 32 * word

	for i := 0; i < 4; i++ {
		if strb&(1<<i) == 0 {
			continue
		}

		byteMask := uint64(0xff) << (shift + 8*i)
		value = value&^byteMask | (uint64(data)<<shift)&byteMask
	}

	value &= f.Mask()

	if s.device != nil {
		value = s.device.hostWrite(f, old, value)
	}

	s.regs[f] = value

	return cosim.RespOkay
}

func (s *ControlSlave) read(addr uint32) (uint32, uint64) {
	f, word, ok := ctrlregs.Lookup(addr)
	if !ok {
		return 0, s.unmapped()
	}

	data := uint32(s.regs[f] >> (32 * word))

	if s.device != nil {
		s.device.hostRead(f)
	}

	return data, cosim.RespOkay
}

func boolToLine(b bool) uint64 {
	if b {
		return 1
	}

	return 0
}
