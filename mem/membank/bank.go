// Package membank provides the memory banks that both the host-side software
// and the accelerator model address.
package membank

import (
	"log"
)

// A Bank is a contiguous, word-addressed region of memory.
//
// The addresses that a bank accepts are byte addresses in the range of
// [BaseAddress(), LastAddress()]. Any access outside of the range fails with
// an *OutOfRangeError and never touches the storage.
type Bank[W Word] struct {
	name     string
	capacity uint64
	wordSize uint64
	base     uint64
	last     uint64
	storage  []W
}

// NewBank creates a bank of 64-bit words with the given capacity in bytes.
func NewBank(name string, capacity uint64) *Bank[uint64] {
	return MakeBuilder[uint64]().WithCapacity(capacity).Build(name)
}

// Name returns the name of the bank.
func (b *Bank[W]) Name() string {
	return b.name
}

// Capacity returns the capacity requested at construction time, in bytes.
func (b *Bank[W]) Capacity() uint64 {
	return b.capacity
}

// WordSize returns the size of one word in bytes.
func (b *Bank[W]) WordSize() uint64 {
	return b.wordSize
}

// NumWords returns the number of words allocated.
func (b *Bank[W]) NumWords() uint64 {
	return uint64(len(b.storage))
}

// BaseAddress returns the address of the first word.
func (b *Bank[W]) BaseAddress() uint64 {
	return b.base
}

// LastAddress returns the address of the last byte of the last word.
func (b *Bank[W]) LastAddress() uint64 {
	return b.last
}

// Contains checks if an address can be accessed.
func (b *Bank[W]) Contains(addr uint64) bool {
	return addr >= b.base && addr <= b.last
}

// ReadWord returns the word that holds the address.
func (b *Bank[W]) ReadWord(addr uint64) (W, error) {
	if err := b.checkAddress(addr); err != nil {
		var zero W
		return zero, err
	}

	return b.storage[b.AddressToIndex(addr)], nil
}

// WriteWord overwrites the word that holds the address.
func (b *Bank[W]) WriteWord(addr uint64, word W) error {
	if err := b.checkAddress(addr); err != nil {
		return err
	}

	b.storage[b.AddressToIndex(addr)] = word

	return nil
}

// LoadWords writes consecutive words starting at addr. Either all the words
// are written or, if any of them falls out of the bank, none is.
func (b *Bank[W]) LoadWords(addr uint64, words []W) error {
	if len(words) == 0 {
		return nil
	}

	if err := b.checkSpan(addr, uint64(len(words))); err != nil {
		return err
	}

	copy(b.storage[b.AddressToIndex(addr):], words)

	return nil
}

// DumpWords returns a copy of n consecutive words starting at addr.
func (b *Bank[W]) DumpWords(addr uint64, n uint64) ([]W, error) {
	if n == 0 {
		return nil, nil
	}

	if err := b.checkSpan(addr, n); err != nil {
		return nil, err
	}

	start := b.AddressToIndex(addr)
	out := make([]W, n)
	copy(out, b.storage[start:start+n])

	return out, nil
}

// WordAddress returns the address of word index counted from pointer, the
// way a memory port computes pointer[index]. The result is not range checked,
// but an index whose address does not fit in 64 bits fails with an
// *OutOfRangeError.
func (b *Bank[W]) WordAddress(pointer, index uint64) (uint64, error) {
	if index > (^uint64(0)-pointer)/b.wordSize {
		return 0, b.report(&OutOfRangeError{
			Bank:     b.name,
			Address:  pointer,
			First:    b.base,
			Last:     b.last,
			Index:    index,
			Overflow: true,
		})
	}

	return pointer + index*b.wordSize, nil
}

// AddressToIndex converts an address to the index of the word that holds it.
// The address must have passed the range check.
func (b *Bank[W]) AddressToIndex(addr uint64) uint64 {
	return (addr - b.base) / b.wordSize
}

// GetWord returns the word at an index. No range check is performed.
func (b *Bank[W]) GetWord(index uint64) W {
	return b.storage[index]
}

// SetWord sets the word at an index. No range check is performed.
func (b *Bank[W]) SetWord(index uint64, word W) {
	b.storage[index] = word
}

func (b *Bank[W]) checkSpan(addr uint64, n uint64) error {
	if err := b.checkAddress(addr); err != nil {
		return err
	}

	lastIndex := b.AddressToIndex(addr) + n - 1
	if n > b.NumWords() || lastIndex >= b.NumWords() {
		return b.outOfRange(addr + (n-1)*b.wordSize)
	}

	return nil
}

func (b *Bank[W]) checkAddress(addr uint64) error {
	if addr < b.base || addr > b.last {
		return b.outOfRange(addr)
	}

	return nil
}

func (b *Bank[W]) outOfRange(addr uint64) error {
	return b.report(&OutOfRangeError{
		Bank:    b.name,
		Address: addr,
		First:   b.base,
		Last:    b.last,
	})
}

func (b *Bank[W]) report(err *OutOfRangeError) error {
	log.Print(err.Error())

	return err
}
