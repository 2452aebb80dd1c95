package membank

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is the error all out-of-range accesses wrap.
var ErrOutOfRange = errors.New("out of bound memory access")

// OutOfRangeError reports an address that falls outside of a bank.
//
// When Overflow is set, the address of word Index counted from Address does
// not fit in 64 bits.
type OutOfRangeError struct {
	Bank     string
	Address  uint64
	First    uint64
	Last     uint64
	Index    uint64
	Overflow bool
}

func (e *OutOfRangeError) Error() string {
	if e.Overflow {
		return fmt.Sprintf(
			"word %d from address 0x%x out of range (0x%x, 0x%x) in %s",
			e.Index, e.Address, e.First, e.Last, e.Bank)
	}

	return fmt.Sprintf("address 0x%x out of range (0x%x, 0x%x) in %s",
		e.Address, e.First, e.Last, e.Bank)
}

// Unwrap allows errors.Is(err, ErrOutOfRange).
func (e *OutOfRangeError) Unwrap() error {
	return ErrOutOfRange
}
