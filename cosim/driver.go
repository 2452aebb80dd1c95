// Package cosim drives a cycle-stepped model of the accelerator kernel the way
// a host drives the physical device.
//
// The Driver owns the model and is the only thing that moves simulated time.
// Register accesses are AXI4-Lite transactions on the control bundle; each one
// runs to completion, or to a timeout, before the call returns.
package cosim

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/sim/timing"
)

// HookPosTick is triggered after each tick. The item is the cycle that has
// just completed.
var HookPosTick = &hooking.HookPos{Name: "Tick"}

// A Driver steps a hardware model and talks to its control registers.
type Driver struct {
	hooking.HookableBase

	name       string
	model      Model
	sink       WaveformSink
	maxRetries int

	cycle  atomic.Uint64
	busy   bool
	closed bool
}

// Name returns the name of the driver.
func (d *Driver) Name() string {
	return d.name
}

// Now returns the number of ticks since the driver was built.
func (d *Driver) Now() timing.VCycle {
	return timing.VCycle(d.cycle.Load())
}

// MaxRetries returns the retry ceiling of register transactions.
func (d *Driver) MaxRetries() int {
	return d.maxRetries
}

// Model returns the model owned by the driver.
func (d *Driver) Model() Model {
	return d.model
}

// Tick runs one clock cycle: a falling edge, a rising edge, an optional
// waveform snapshot, and one step of the cycle counter.
//
// The snapshot is taken once per cycle, after the rising edge, so it holds
// every signal except the clock. Clock edges are not visible in the waveform.
func (d *Driver) Tick() {
	d.mustBeOpen()

	d.model.Poke(Clock, 0)
	d.model.Eval()
	d.model.Poke(Clock, 1)
	d.model.Eval()

	now := d.Now()

	if d.sink != nil {
		d.sink.Dump(now, d.snapshot())
	}

	d.cycle.Add(1)

	if d.NumHooks() > 0 {
		d.InvokeHook(hooking.HookCtx{
			Domain: d,
			Pos:    HookPosTick,
			Item:   now,
		})
	}
}

// TickN runs n clock cycles.
func (d *Driver) TickN(n int) {
	for i := 0; i < n; i++ {
		d.Tick()
	}
}

// Update settles the model for newly driven inputs without moving the clock.
func (d *Driver) Update() {
	d.mustBeOpen()
	d.model.Eval()
}

func (d *Driver) snapshot() Snapshot {
	signals := d.model.Signals()
	snapshot := make(Snapshot, 0, len(signals))

	for _, s := range signals {
		if s == Clock {
			continue
		}

		snapshot = append(snapshot, SignalValue{Signal: s, Value: d.model.Peek(s)})
	}

	return snapshot
}

// Close releases the waveform sink and, if it can be closed, the model. The
// driver cannot be used afterwards.
func (d *Driver) Close() error {
	if d.closed {
		return nil
	}

	d.closed = true

	var errs []error

	if d.sink != nil {
		errs = append(errs, d.sink.Close())
	}

	if closer, ok := d.model.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}

	return errors.Join(errs...)
}

func (d *Driver) mustBeOpen() {
	if d.closed {
		panic("driver " + d.name + " is closed")
	}
}
