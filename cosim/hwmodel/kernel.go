package hwmodel

import (
	"errors"
	"log"

	"github.com/sarchlab/cosim/cosim/ctrlregs"
	"github.com/sarchlab/cosim/mem/cachebackend"
	"github.com/sarchlab/cosim/mem/membank"
)

// Opcode is the top byte of a schedule word.
type Opcode uint8

// The instructions the kernel understands.
const (
	// OpNop does nothing for one cycle.
	OpNop Opcode = iota

	// OpLog appends the low 32 bits of the word to the log buffer at
	// VcdLogBase.
	OpLog

	// OpExcept records the low 16 bits of the word as an exception id.
	OpExcept
)

// Bits of the Status field.
const (
	StatusException   uint64 = 1 << 0
	StatusMemoryFault uint64 = 1 << 1
	StatusIllegalOp   uint64 = 1 << 2
	StatusExceptFull  uint64 = 1 << 3
)

const hostControlBits = ctrlregs.ApStart | ctrlregs.ApAutoRestart

// Encode builds a schedule word.
func Encode(op Opcode, operand uint64) uint64 {
	return uint64(op)<<56 | operand&(1<<56-1)
}

type kernelState int

const (
	kernelIdle kernelState = iota
	kernelBoot
	kernelRun
)

// A Kernel is a behavioural model of the accelerator. After ap_start, it
// fetches SchedLen schedule words from InstBase, one per cycle, and then runs
// them, one per cycle. Each run is one virtual cycle.
type Kernel struct {
	*ControlSlave

	bank  *membank.Bank[uint64]
	state kernelState

	sched    *cachebackend.Gateway[uint64]
	logBuf   *cachebackend.Gateway[uint64]
	schedule []uint64
	pc       int
	logLen   uint64
	boot     uint64

	numExceptions int
}

// Bank returns the memory the kernel fetches from.
func (k *Kernel) Bank() *membank.Bank[uint64] {
	return k.bank
}

// MemoryPorts returns the gateways the kernel fetches its schedule and writes
// its log through.
func (k *Kernel) MemoryPorts() []*cachebackend.Gateway[uint64] {
	return []*cachebackend.Gateway[uint64]{k.sched, k.logBuf}
}

// Busy tells if the kernel is booting or running.
func (k *Kernel) Busy() bool {
	return k.state != kernelIdle
}

func (k *Kernel) hostWrite(f ctrlregs.Field, old, value uint64) uint64 {
	switch f {
	case ctrlregs.Control:
		return old&^ctrlregs.ApAutoRestart | value&hostControlBits
	case ctrlregs.ClearException:
		if old&1 == 0 && value&1 != 0 {
			k.clearExceptions()
		}

		return value
	default:
		return value
	}
}

func (k *Kernel) hostRead(f ctrlregs.Field) {
	if f == ctrlregs.Control {
		k.regs[f] &^= ctrlregs.ApDone
	}
}

func (k *Kernel) clearExceptions() {
	k.numExceptions = 0
	k.SetField(ctrlregs.Status, 0)

	for i := 0; i < 4; i++ {
		k.SetField(ctrlregs.ExceptID0+ctrlregs.Field(i), 0)
	}
}

func (k *Kernel) risingEdge() {
	switch k.state {
	case kernelIdle:
		if k.Field(ctrlregs.Control)&ctrlregs.ApStart != 0 {
			k.begin()
		}
	case kernelBoot:
		k.fetch()
	case kernelRun:
		k.execute()
	}
}

func (k *Kernel) begin() {
	ctrl := k.Field(ctrlregs.Control)
	ctrl &^= ctrlregs.ApStart | ctrlregs.ApIdle | ctrlregs.ApDone
	k.SetField(ctrlregs.Control, ctrl|ctrlregs.ApReady)

	k.sched.SetPointer(k.Field(ctrlregs.InstBase))
	k.logBuf.SetPointer(k.Field(ctrlregs.VcdLogBase))

	k.schedule = k.schedule[:0]
	k.pc = 0
	k.logLen = 0
	k.boot = 0
	k.SetField(ctrlregs.BootCycles, 0)

	k.state = kernelBoot
	if k.Field(ctrlregs.SchedLen) == 0 {
		k.state = kernelRun
	}
}

func (k *Kernel) fetch() {
	k.boot++
	k.SetField(ctrlregs.BootCycles, k.boot)

	index := uint64(len(k.schedule))

	word, err := k.sched.Serve(cachebackend.GatewayRequest[uint64]{Addr: index})
	if err != nil {
		k.fault(StatusMemoryFault, err)
		return
	}

	k.schedule = append(k.schedule, word)
	if uint64(len(k.schedule)) == k.Field(ctrlregs.SchedLen) {
		k.state = kernelRun
	}
}

func (k *Kernel) execute() {
	if k.pc == len(k.schedule) {
		k.SetField(ctrlregs.VCycles, k.Field(ctrlregs.VCycles)+1)
		k.finish()

		return
	}

	word := k.schedule[k.pc]
	k.pc++

	switch Opcode(word >> 56) {
	case OpNop:
	case OpLog:
		_, err := k.logBuf.Serve(cachebackend.GatewayRequest[uint64]{
			Addr:        k.logLen,
			WriteEnable: true,
			WData:       word & 0xffffffff,
		})
		if err != nil {
			k.fault(StatusMemoryFault, err)
			return
		}

		k.logLen++
	case OpExcept:
		k.raise(uint16(word))
	default:
		k.fault(StatusIllegalOp, errors.New("illegal opcode"))
	}
}

func (k *Kernel) raise(exceptionID uint16) {
	k.SetField(ctrlregs.Status, k.Field(ctrlregs.Status)|StatusException)

	if k.numExceptions == 4 {
		k.SetField(ctrlregs.Status, k.Field(ctrlregs.Status)|StatusExceptFull)
		return
	}

	k.SetField(ctrlregs.ExceptID0+ctrlregs.Field(k.numExceptions),
		uint64(exceptionID))
	k.numExceptions++
}

func (k *Kernel) fault(status uint64, err error) {
	log.Printf("%s: fault at pc %d: %v", k.name, k.pc, err)

	k.SetField(ctrlregs.Status, k.Field(ctrlregs.Status)|status)
	k.finish()
}

func (k *Kernel) finish() {
	ctrl := k.Field(ctrlregs.Control)
	ctrl &^= ctrlregs.ApReady
	ctrl |= ctrlregs.ApDone | ctrlregs.ApIdle

	if ctrl&ctrlregs.ApAutoRestart != 0 {
		ctrl |= ctrlregs.ApStart
	}

	k.SetField(ctrlregs.Control, ctrl)
	k.state = kernelIdle
}
