package membank

import "unsafe"

// CacheLine is a 256-bit word, the unit the cache backends move between the
// accelerator and host memory.
type CacheLine [4]uint64

// Word lists the storage unit types a Bank can hold. The simulation model uses
// 64-bit words; hardware-facing variants use narrower words or whole lines.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | CacheLine
}

// SizeOf returns the size of one W in bytes.
func SizeOf[W Word]() uint64 {
	var w W
	return uint64(unsafe.Sizeof(w))
}
