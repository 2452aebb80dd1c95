package membank

import (
	"log"
	"unsafe"
)

// DefaultCapacity is the capacity, in bytes, of a bank built without
// WithCapacity.
const DefaultCapacity = 8192

// A Builder can build memory banks.
type Builder[W Word] struct {
	capacity    uint64
	baseAddress uint64
	fixedBase   bool
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder[W Word]() Builder[W] {
	return Builder[W]{
		capacity: DefaultCapacity,
	}
}

// WithCapacity sets the capacity of the bank in bytes. Capacities that are not
// a multiple of the word size are rounded up to whole words.
func (b Builder[W]) WithCapacity(capacity uint64) Builder[W] {
	b.capacity = capacity
	return b
}

// WithBaseAddress pins the address of the first word. Without it, the bank is
// addressed by the host address of its storage, the same way the hardware
// sees a host buffer.
func (b Builder[W]) WithBaseAddress(addr uint64) Builder[W] {
	b.baseAddress = addr
	b.fixedBase = true

	return b
}

// Build creates a new bank. The storage is allocated here and never resized.
func (b Builder[W]) Build(name string) *Bank[W] {
	b.parametersMustBeValid()

	wordSize := SizeOf[W]()
	numWords := (b.capacity-1)/wordSize + 1

	bank := &Bank[W]{
		name:     name,
		capacity: b.capacity,
		wordSize: wordSize,
		storage:  make([]W, numWords),
	}

	if b.fixedBase {
		bank.base = b.baseAddress
	} else {
		bank.base = uint64(uintptr(unsafe.Pointer(&bank.storage[0])))
	}

	bank.last = bank.base + numWords*wordSize - 1
	if bank.last < bank.base {
		log.Panicf("bank %s wraps around the address space", name)
	}

	return bank
}

func (b Builder[W]) parametersMustBeValid() {
	if b.capacity == 0 {
		panic("bank capacity must be larger than 0")
	}
}
