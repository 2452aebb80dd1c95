package cachebackend

import (
	"github.com/sarchlab/cosim/mem/membank"
	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/sim/id"
	"github.com/sarchlab/cosim/tracing"
)

// A Gateway is the narrow memory interface: one address and a write-enable
// bit. It has no write-back command.
type Gateway[W membank.Word] struct {
	hooking.HookableBase

	name    string
	bank    *membank.Bank[W]
	pointer uint64
}

// NewGateway creates a gateway whose word 0 is at pointer.
func NewGateway[W membank.Word](
	name string,
	bank *membank.Bank[W],
	pointer uint64,
) *Gateway[W] {
	if bank == nil {
		panic("gateway needs a memory bank")
	}

	return &Gateway[W]{
		name:    name,
		bank:    bank,
		pointer: pointer,
	}
}

// Name returns the name of the gateway.
func (g *Gateway[W]) Name() string {
	return g.name
}

// Pointer returns the address of word 0.
func (g *Gateway[W]) Pointer() uint64 {
	return g.pointer
}

// SetPointer moves word 0 to pointer. Kernels set their memory pointers once
// per invocation.
func (g *Gateway[W]) SetPointer(pointer uint64) {
	g.pointer = pointer
}

// Serve writes WData to Addr when WriteEnable is set and returns the zero
// word. Otherwise, it returns the word at Addr.
func (g *Gateway[W]) Serve(req GatewayRequest[W]) (W, error) {
	what := "Read"
	if req.WriteEnable {
		what = "Write"
	}

	taskID := id.Generate()
	tracing.StartTask(taskID, "", g, "req_in", what, req)

	data, err := g.serve(req)
	tracing.EndTask(taskID, g, err)

	return data, err
}

func (g *Gateway[W]) serve(req GatewayRequest[W]) (W, error) {
	var data W

	addr, err := g.bank.WordAddress(g.pointer, req.Addr)
	if err != nil {
		return data, err
	}

	if req.WriteEnable {
		return data, g.bank.WriteWord(addr, req.WData)
	}

	return g.bank.ReadWord(addr)
}

// ReadSingleWord returns the word the memory pointer points to.
func (g *Gateway[W]) ReadSingleWord() (W, error) {
	return g.Serve(GatewayRequest[W]{Addr: 0})
}
