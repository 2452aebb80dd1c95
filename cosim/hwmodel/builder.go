package hwmodel

import (
	"github.com/sarchlab/cosim/cosim/ctrlregs"
	"github.com/sarchlab/cosim/mem/cachebackend"
	"github.com/sarchlab/cosim/mem/membank"
)

// A Builder can build control slaves and kernels.
type Builder struct {
	awLatency    int
	wLatency     int
	arLatency    int
	stalled      bool
	strictDecode bool
}

// MakeBuilder creates a builder with default parameters. By default, the
// slave accepts every request in the cycle it is issued.
func MakeBuilder() Builder {
	return Builder{}
}

// WithWriteAddressLatency sets how many cycles AWVALID must be held before
// AWREADY rises.
func (b Builder) WithWriteAddressLatency(n int) Builder {
	b.awLatency = n
	return b
}

// WithWriteDataLatency sets how many cycles WVALID must be held before WREADY
// rises.
func (b Builder) WithWriteDataLatency(n int) Builder {
	b.wLatency = n
	return b
}

// WithReadAddressLatency sets how many cycles ARVALID must be held before
// ARREADY rises.
func (b Builder) WithReadAddressLatency(n int) Builder {
	b.arLatency = n
	return b
}

// WithStall makes the slave never ready.
func (b Builder) WithStall() Builder {
	b.stalled = true
	return b
}

// WithStrictDecode makes accesses to unmapped offsets return DECERR instead
// of being ignored.
func (b Builder) WithStrictDecode() Builder {
	b.strictDecode = true
	return b
}

// BuildControlSlave creates a bare register file behind a control bus.
func (b Builder) BuildControlSlave(name string) *ControlSlave {
	b.parametersMustBeValid()

	s := newControlSlave(name)
	s.awLatency = b.awLatency
	s.wLatency = b.wLatency
	s.arLatency = b.arLatency
	s.stalled = b.stalled
	s.strictDecode = b.strictDecode

	return s
}

// BuildKernel creates a kernel that fetches from bank.
func (b Builder) BuildKernel(name string, bank *membank.Bank[uint64]) *Kernel {
	if bank == nil {
		panic("kernel needs a memory bank")
	}

	k := &Kernel{
		ControlSlave: b.BuildControlSlave(name),
		bank:         bank,
		sched:        cachebackend.NewGateway(name+".Sched", bank, 0),
		logBuf:       cachebackend.NewGateway(name+".Log", bank, 0),
	}
	k.device = k
	k.SetField(ctrlregs.Control, ctrlregs.ApIdle)
	k.settle()

	return k
}

func (b Builder) parametersMustBeValid() {
	if b.awLatency < 0 || b.wLatency < 0 || b.arLatency < 0 {
		panic("latency cannot be negative")
	}
}
