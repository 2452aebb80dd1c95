package waveform

import (
	"errors"

	"github.com/sarchlab/cosim/cosim"
	"github.com/sarchlab/cosim/sim/timing"
)

// Tee hands every snapshot to all of its sinks.
type Tee []cosim.WaveformSink

// Dump forwards the snapshot to the sinks in order.
func (t Tee) Dump(cycle timing.VCycle, snapshot cosim.Snapshot) {
	for _, s := range t {
		s.Dump(cycle, snapshot)
	}
}

// Close closes all the sinks and joins their errors.
func (t Tee) Close() error {
	errs := make([]error, 0, len(t))
	for _, s := range t {
		errs = append(errs, s.Close())
	}

	return errors.Join(errs...)
}
