// Package cachebackend models the backends that serve the accelerator's cache
// misses out of a memory bank.
//
// Two hardware-facing contracts are provided. Backend is the canonical one and
// understands Read, Write and WriteBack. Gateway is a narrower contract that
// carries a single address and a write-enable bit. The two agree on plain
// reads and writes only.
package cachebackend

import (
	"errors"
	"fmt"

	"github.com/sarchlab/cosim/mem/membank"
)

// Command selects what a backend does with a request. The values match the
// encoding on the hardware command line.
type Command uint8

// The commands of the canonical backend.
const (
	Read      Command = 0
	Write     Command = 1
	WriteBack Command = 2
)

func (c Command) String() string {
	switch c {
	case Read:
		return "Read"
	case Write:
		return "Write"
	case WriteBack:
		return "WriteBack"
	default:
		return fmt.Sprintf("Command(%d)", uint8(c))
	}
}

// ErrUnknownCommand is returned for command tags outside of Read, Write and
// WriteBack.
var ErrUnknownCommand = errors.New("unknown cache backend command")

// Request is a single request to a Backend.
//
// RAddr and WAddr are word indices relative to the backend's memory pointer.
// Read only uses RAddr, Write only uses WAddr and WData, and WriteBack uses
// all three.
type Request[W membank.Word] struct {
	Cmd   Command
	RAddr uint64
	WAddr uint64
	WData W
}

// GatewayRequest is a single request to a Gateway. Addr is a word index
// relative to the gateway's memory pointer.
type GatewayRequest[W membank.Word] struct {
	Addr        uint64
	WriteEnable bool
	WData       W
}
