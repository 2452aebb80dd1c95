// Package ctrlregs describes the control register space of the accelerator
// kernel and provides typed access to it.
//
// The layout follows the s_axilite convention of the HLS tools: a 32-bit data
// bus, the block-level control word at 0x00, and the arguments packed from
// 0x10 in declaration order. A 64-bit argument occupies a low word, a high word
// and a reserved word. Narrower arguments occupy one data word and one
// reserved word.
package ctrlregs

import "fmt"

// Direction tells who may write a field.
type Direction uint8

// The field directions, seen from the host.
const (
	ReadWrite Direction = iota
	ReadOnly
)

func (d Direction) String() string {
	if d == ReadOnly {
		return "ReadOnly"
	}

	return "ReadWrite"
}

// Field is one of the named control/status fields. The set is closed.
type Field uint8

// The fields of the control register space. Host-written fields come first,
// then the fields the device writes.
const (
	Control Field = iota
	InstBase
	VcdSymTabBase
	VcdLogBase
	SchedLen
	ClearException
	VCycles
	BootCycles
	ExceptID0
	ExceptID1
	ExceptID2
	ExceptID3
	Status

	numFields
)

// Bits of the Control field.
const (
	ApStart       uint64 = 1 << 0
	ApDone        uint64 = 1 << 1
	ApIdle        uint64 = 1 << 2
	ApReady       uint64 = 1 << 3
	ApAutoRestart uint64 = 1 << 7
)

type fieldInfo struct {
	name   string
	offset uint32
	width  uint8
	dir    Direction
}

var fieldTable = [numFields]fieldInfo{
	Control:        {"ap_ctrl", 0x00, 8, ReadWrite},
	InstBase:       {"h_inst_base", 0x10, 64, ReadWrite},
	VcdSymTabBase:  {"h_vcd_sym_tab_base", 0x1c, 64, ReadWrite},
	VcdLogBase:     {"h_vcd_log_base", 0x28, 64, ReadWrite},
	SchedLen:       {"h_sched_len", 0x34, 32, ReadWrite},
	ClearException: {"h_clear_exception", 0x3c, 8, ReadWrite},
	VCycles:        {"d_vcycles", 0x44, 64, ReadOnly},
	BootCycles:     {"d_bootcycles", 0x50, 32, ReadOnly},
	ExceptID0:      {"d_except_id_0", 0x58, 16, ReadOnly},
	ExceptID1:      {"d_except_id_1", 0x60, 16, ReadOnly},
	ExceptID2:      {"d_except_id_2", 0x68, 16, ReadOnly},
	ExceptID3:      {"d_except_id_3", 0x70, 16, ReadOnly},
	Status:         {"d_status", 0x78, 32, ReadOnly},
}

// Fields returns all the fields in offset order.
func Fields() []Field {
	fields := make([]Field, 0, numFields)
	for f := Field(0); f < numFields; f++ {
		fields = append(fields, f)
	}

	return fields
}

// Valid tells if f is one of the defined fields.
func (f Field) Valid() bool {
	return f < numFields
}

func (f Field) info() fieldInfo {
	if !f.Valid() {
		panic(fmt.Sprintf("invalid control register field %d", uint8(f)))
	}

	return fieldTable[f]
}

// Name returns the port name of the field.
func (f Field) Name() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", uint8(f))
	}

	return fieldTable[f].name
}

func (f Field) String() string {
	return f.Name()
}

// Offset returns the offset of the first data word of the field.
func (f Field) Offset() uint32 {
	return f.info().offset
}

// Width returns the width of the field in bits.
func (f Field) Width() uint8 {
	return f.info().width
}

// Direction returns who may write the field.
func (f Field) Direction() Direction {
	return f.info().dir
}

// Mask returns the bits the field can hold.
func (f Field) Mask() uint64 {
	w := f.Width()
	if w == 64 {
		return ^uint64(0)
	}

	return (uint64(1) << w) - 1
}

// NumWords returns the number of 32-bit data words the field spans.
func (f Field) NumWords() int {
	if f.Width() > 32 {
		return 2
	}

	return 1
}

// WordOffsets returns the offsets of the data words, low word first.
func (f Field) WordOffsets() []uint32 {
	offsets := []uint32{f.Offset()}
	if f.NumWords() == 2 {
		offsets = append(offsets, f.Offset()+4)
	}

	return offsets
}

// Lookup finds the field that owns a data word offset. It also returns the
// index of the word within the field, 0 for the low word.
func Lookup(offset uint32) (field Field, word int, ok bool) {
	for f := Field(0); f < numFields; f++ {
		for i, o := range f.WordOffsets() {
			if o == offset {
				return f, i, true
			}
		}
	}

	return 0, 0, false
}
