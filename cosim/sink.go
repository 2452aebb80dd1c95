package cosim

import "github.com/sarchlab/cosim/sim/timing"

// SignalValue is the value of one line at the end of a cycle.
type SignalValue struct {
	Signal Signal
	Value  uint64
}

// A Snapshot holds the values of the lines of a model at one cycle.
type Snapshot []SignalValue

// A WaveformSink receives one snapshot per tick. Dump must not block the cycle
// loop; sinks that can fail keep the error and report it from Close.
type WaveformSink interface {
	Dump(cycle timing.VCycle, snapshot Snapshot)
	Close() error
}
