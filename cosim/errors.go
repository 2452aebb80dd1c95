package cosim

import (
	"errors"
	"fmt"
)

// Sentinel errors of the register access protocol.
var (
	ErrTimeout  = errors.New("register access timed out")
	ErrResponse = errors.New("register access returned an error response")
)

// Access is the direction of a register transaction.
type Access uint8

// The register transaction directions.
const (
	AccessRead Access = iota
	AccessWrite
)

func (a Access) String() string {
	if a == AccessWrite {
		return "write"
	}

	return "read"
}

// TimeoutError reports a register transaction that did not see the ready or
// valid signal it waited for within the retry ceiling.
type TimeoutError struct {
	Access  Access
	Offset  uint32
	Value   uint32
	Cycles  uint64
	Waiting Signal
}

func (e *TimeoutError) Error() string {
	if e.Access == AccessWrite {
		return fmt.Sprintf(
			"timed out writing register after %d cycles waiting for %s "+
				"(offset = 0x%x and value = 0x%x)",
			e.Cycles, e.Waiting, e.Offset, e.Value)
	}

	return fmt.Sprintf(
		"timed out reading register after %d cycles waiting for %s "+
			"(offset = 0x%x)",
		e.Cycles, e.Waiting, e.Offset)
}

// Unwrap allows errors.Is(err, ErrTimeout).
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// ResponseError reports a SLVERR or DECERR response.
type ResponseError struct {
	Access Access
	Offset uint32
	Resp   uint64
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("register %s at offset 0x%x got response %d",
		e.Access, e.Offset, e.Resp)
}

// Unwrap allows errors.Is(err, ErrResponse).
func (e *ResponseError) Unwrap() error {
	return ErrResponse
}
