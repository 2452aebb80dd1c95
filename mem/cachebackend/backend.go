package cachebackend

import (
	"fmt"

	"github.com/sarchlab/cosim/mem/membank"
	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/sim/id"
	"github.com/sarchlab/cosim/tracing"
)

// A Backend serves one request at a time against a memory bank.
type Backend[W membank.Word] struct {
	hooking.HookableBase

	name    string
	bank    *membank.Bank[W]
	pointer uint64
}

// NewBackend creates a backend whose memory pointer is the base of the bank.
func NewBackend[W membank.Word](
	name string,
	bank *membank.Bank[W],
) *Backend[W] {
	return NewBackendWithPointer(name, bank, bank.BaseAddress())
}

// NewBackendWithPointer creates a backend whose word 0 is at pointer.
func NewBackendWithPointer[W membank.Word](
	name string,
	bank *membank.Bank[W],
	pointer uint64,
) *Backend[W] {
	if bank == nil {
		panic("backend needs a memory bank")
	}

	return &Backend[W]{
		name:    name,
		bank:    bank,
		pointer: pointer,
	}
}

// Name returns the name of the backend.
func (b *Backend[W]) Name() string {
	return b.name
}

// Pointer returns the byte address of word 0.
func (b *Backend[W]) Pointer() uint64 {
	return b.pointer
}

// Serve executes a request and returns the result word.
//
// Read returns the word at RAddr. Write stores WData at WAddr and returns the
// zero word. WriteBack stores WData at WAddr first and then returns the word
// at RAddr, so when the two addresses are equal the new data comes back.
func (b *Backend[W]) Serve(req Request[W]) (W, error) {
	taskID := id.Generate()
	tracing.StartTask(taskID, "", b, "req_in", req.Cmd.String(), req)

	rline, err := b.serve(req)
	tracing.EndTask(taskID, b, err)

	return rline, err
}

func (b *Backend[W]) serve(req Request[W]) (W, error) {
	var rline W

	switch req.Cmd {
	case Read:
		return b.load(req.RAddr)
	case Write:
		return rline, b.store(req.WAddr, req.WData)
	case WriteBack:
		if err := b.store(req.WAddr, req.WData); err != nil {
			return rline, err
		}

		return b.load(req.RAddr)
	default:
		return rline, fmt.Errorf("%w: %s", ErrUnknownCommand, req.Cmd)
	}
}

func (b *Backend[W]) load(index uint64) (W, error) {
	addr, err := b.bank.WordAddress(b.pointer, index)
	if err != nil {
		var zero W
		return zero, err
	}

	return b.bank.ReadWord(addr)
}

func (b *Backend[W]) store(index uint64, data W) error {
	addr, err := b.bank.WordAddress(b.pointer, index)
	if err != nil {
		return err
	}

	return b.bank.WriteWord(addr, data)
}
