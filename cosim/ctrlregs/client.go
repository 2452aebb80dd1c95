package ctrlregs

import (
	"errors"
	"fmt"
)

// Errors reported by the client before any bus transaction is issued.
var (
	ErrReadOnlyField = errors.New("field is read-only")
	ErrValueTooWide  = errors.New("value does not fit in field")
	ErrKernelTimeout = errors.New("kernel did not finish")
)

// A RegisterAccessor moves 32-bit words to and from the control register
// space.
type RegisterAccessor interface {
	WriteRegister(offset uint32, value uint32) error
	ReadRegister(offset uint32) (uint32, error)
}

// A Client reads and writes whole fields through a RegisterAccessor.
type Client struct {
	bus RegisterAccessor
}

// NewClient creates a client that talks over bus.
func NewClient(bus RegisterAccessor) *Client {
	if bus == nil {
		panic("client needs a register accessor")
	}

	return &Client{bus: bus}
}

// Write writes a field. 64-bit fields are written low word first.
func (c *Client) Write(f Field, value uint64) error {
	if f.Direction() == ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, f)
	}

	if value&^f.Mask() != 0 {
		return fmt.Errorf("%w: 0x%x in %d-bit field %s",
			ErrValueTooWide, value, f.Width(), f)
	}

	for i, offset := range f.WordOffsets() {
		word := uint32(value >> (32 * i))
		if err := c.bus.WriteRegister(offset, word); err != nil {
			return err
		}
	}

	return nil
}

// Read reads a field. 64-bit fields are read low word first.
func (c *Client) Read(f Field) (uint64, error) {
	var value uint64

	for i, offset := range f.WordOffsets() {
		word, err := c.bus.ReadRegister(offset)
		if err != nil {
			return 0, err
		}

		value |= uint64(word) << (32 * i)
	}

	return value & f.Mask(), nil
}

// Start sets ap_start.
func (c *Client) Start() error {
	return c.Write(Control, ApStart)
}

// WaitDone polls the control word until ap_done is set, at most maxPolls
// times.
func (c *Client) WaitDone(maxPolls int) error {
	for i := 0; i < maxPolls; i++ {
		ctrl, err := c.Read(Control)
		if err != nil {
			return err
		}

		if ctrl&ApDone != 0 {
			return nil
		}
	}

	return fmt.Errorf("%w after %d polls", ErrKernelTimeout, maxPolls)
}

// ClearException requests the device to clear its exception state. The
// device acts when the flag goes from 0 to 1, so the flag is pulsed and left
// at 0.
func (c *Client) ClearException() error {
	if err := c.Write(ClearException, 1); err != nil {
		return err
	}

	return c.Write(ClearException, 0)
}

// Exceptions reads the four exception identifier slots.
func (c *Client) Exceptions() ([4]uint16, error) {
	var ids [4]uint16

	for i, f := range []Field{ExceptID0, ExceptID1, ExceptID2, ExceptID3} {
		v, err := c.Read(f)
		if err != nil {
			return ids, err
		}

		ids[i] = uint16(v)
	}

	return ids, nil
}

// Snapshot reads every field.
func (c *Client) Snapshot() (map[Field]uint64, error) {
	values := make(map[Field]uint64, numFields)

	for _, f := range Fields() {
		v, err := c.Read(f)
		if err != nil {
			return nil, err
		}

		values[f] = v
	}

	return values, nil
}
