package cosim

import (
	"fmt"

	"github.com/sarchlab/cosim/sim/id"
	"github.com/sarchlab/cosim/sim/timing"
	"github.com/sarchlab/cosim/tracing"
)

// transaction tracks the cycles a register access has spent waiting.
type transaction struct {
	d      *Driver
	access Access
	offset uint32
	value  uint32
	start  timing.VCycle
	waited int
}

// wait spends one cycle waiting for sig, unless the retry ceiling has been
// reached.
func (t *transaction) wait(sig Signal) error {
	if t.waited >= t.d.maxRetries {
		return &TimeoutError{
			Access:  t.access,
			Offset:  t.offset,
			Value:   t.value,
			Cycles:  uint64(t.d.Now() - t.start),
			Waiting: sig,
		}
	}

	t.d.Tick()
	t.waited++

	return nil
}

func (d *Driver) begin(access Access, offset, value uint32) *transaction {
	d.mustBeOpen()

	if d.busy {
		panic("register transaction issued while another is in flight")
	}

	d.busy = true

	return &transaction{
		d:      d,
		access: access,
		offset: offset,
		value:  value,
		start:  d.Now(),
	}
}

func (d *Driver) end() {
	d.busy = false
}

// release drops the given lines after a failed transaction so that the model
// is not left with a half-issued request.
func (d *Driver) release(signals ...Signal) {
	for _, s := range signals {
		d.model.Poke(s, 0)
	}

	d.model.Eval()
}

// WriteRegister writes a 32-bit word to the control register at offset.
func (d *Driver) WriteRegister(offset uint32, value uint32) error {
	t := d.begin(AccessWrite, offset, value)
	defer d.end()

	taskID := id.Generate()
	tracing.StartTask(taskID, "", d, "reg_write",
		fmt.Sprintf("0x%02x", offset), value)

	err := d.writeRegister(t)
	if err != nil {
		d.release(AWValid, WValid, BReady)
	}

	tracing.EndTask(taskID, d, err)

	return err
}

func (d *Driver) writeRegister(t *transaction) error {
	m := d.model

	m.Poke(AWAddr, uint64(t.offset))
	m.Poke(AWValid, 1)
	m.Poke(WData, uint64(t.value))
	m.Poke(WStrb, 0xf)
	m.Poke(WValid, 1)
	m.Poke(BReady, 1)
	d.Update()

	awPending, wPending := true, true
	for awPending || wPending {
		awFire := awPending && m.Peek(AWReady) != 0
		wFire := wPending && m.Peek(WReady) != 0

		if !awFire && !wFire {
			waiting := AWReady
			if !awPending {
				waiting = WReady
			}

			if err := t.wait(waiting); err != nil {
				return err
			}

			continue
		}

		d.Tick()

		if awFire {
			m.Poke(AWValid, 0)
			awPending = false
		}

		if wFire {
			m.Poke(WValid, 0)
			wPending = false
		}

		d.Update()
	}

	for m.Peek(BValid) == 0 {
		if err := t.wait(BValid); err != nil {
			return err
		}
	}

	resp := m.Peek(BResp)

	d.Tick()
	m.Poke(BReady, 0)
	d.Update()

	if resp != RespOkay && resp != RespExOkay {
		return &ResponseError{Access: AccessWrite, Offset: t.offset, Resp: resp}
	}

	return nil
}

// ReadRegister reads the 32-bit word of the control register at offset.
func (d *Driver) ReadRegister(offset uint32) (uint32, error) {
	t := d.begin(AccessRead, offset, 0)
	defer d.end()

	taskID := id.Generate()
	tracing.StartTask(taskID, "", d, "reg_read",
		fmt.Sprintf("0x%02x", offset), nil)

	value, err := d.readRegister(t)
	if err != nil {
		d.release(ARValid, RReady)
		tracing.EndTask(taskID, d, err)
	} else {
		tracing.EndTask(taskID, d, value)
	}

	return value, err
}

func (d *Driver) readRegister(t *transaction) (uint32, error) {
	m := d.model

	m.Poke(ARAddr, uint64(t.offset))
	m.Poke(ARValid, 1)
	m.Poke(RReady, 1)
	d.Update()

	for m.Peek(ARReady) == 0 {
		if err := t.wait(ARReady); err != nil {
			return 0, err
		}
	}

	d.Tick()
	m.Poke(ARValid, 0)
	d.Update()

	for m.Peek(RValid) == 0 {
		if err := t.wait(RValid); err != nil {
			return 0, err
		}
	}

	data := uint32(m.Peek(RData))
	resp := m.Peek(RResp)

	d.Tick()
	m.Poke(RReady, 0)
	d.Update()

	if resp != RespOkay && resp != RespExOkay {
		return 0, &ResponseError{Access: AccessRead, Offset: t.offset, Resp: resp}
	}

	return data, nil
}
