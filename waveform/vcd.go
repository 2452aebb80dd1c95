// Package waveform provides sinks that store the per-cycle snapshots of the
// cosimulation driver.
package waveform

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sarchlab/cosim/cosim"
	"github.com/sarchlab/cosim/sim/timing"
)

var defaultWidths = map[cosim.Signal]int{
	cosim.Clock:   1,
	cosim.AWAddr:  32,
	cosim.AWValid: 1,
	cosim.AWReady: 1,
	cosim.WData:   32,
	cosim.WStrb:   4,
	cosim.WValid:  1,
	cosim.WReady:  1,
	cosim.BResp:   2,
	cosim.BValid:  1,
	cosim.BReady:  1,
	cosim.ARAddr:  32,
	cosim.ARValid: 1,
	cosim.ARReady: 1,
	cosim.RData:   32,
	cosim.RResp:   2,
	cosim.RValid:  1,
	cosim.RReady:  1,
}

// A VCDBuilder can build VCD writers.
type VCDBuilder struct {
	freq   timing.Freq
	scope  string
	widths map[cosim.Signal]int
}

// MakeVCDBuilder creates a builder with default parameters.
func MakeVCDBuilder() VCDBuilder {
	return VCDBuilder{
		freq:   1 * timing.GHz,
		scope:  "top",
		widths: map[cosim.Signal]int{},
	}
}

// WithFreq sets the clock frequency used to place the cycles on the time
// axis.
func (b VCDBuilder) WithFreq(freq timing.Freq) VCDBuilder {
	b.freq = freq
	return b
}

// WithScope sets the module scope that holds the variables.
func (b VCDBuilder) WithScope(scope string) VCDBuilder {
	b.scope = scope
	return b
}

// WithWidth sets the width of a line. Lines without a known width are dumped
// as 64-bit vectors.
func (b VCDBuilder) WithWidth(s cosim.Signal, bits int) VCDBuilder {
	widths := make(map[cosim.Signal]int, len(b.widths)+1)
	for k, v := range b.widths {
		widths[k] = v
	}

	widths[s] = bits
	b.widths = widths

	return b
}

// Build creates a writer that writes to w. The writer takes ownership of w
// and closes it on Close if it can be closed.
func (b VCDBuilder) Build(w io.Writer) *VCDWriter {
	if b.freq <= 0 {
		panic("frequency must be positive")
	}

	widths := make(map[cosim.Signal]int, len(defaultWidths)+len(b.widths))
	for k, v := range defaultWidths {
		widths[k] = v
	}

	for k, v := range b.widths {
		if v < 1 || v > 64 {
			panic(fmt.Sprintf("invalid width %d for %s", v, k))
		}

		widths[k] = v
	}

	closer, _ := w.(io.Closer)

	return &VCDWriter{
		w:          bufio.NewWriter(w),
		closer:     closer,
		psPerCycle: uint64(math.Round(float64(b.freq.Period()) * 1e12)),
		scope:      b.scope,
		widths:     widths,
		ids:        make(map[cosim.Signal]string),
		last:       make(map[cosim.Signal]uint64),
	}
}

// BuildFile creates a writer that writes to a new file at path.
func (b VCDBuilder) BuildFile(path string) (*VCDWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return b.Build(f), nil
}

// A VCDWriter writes snapshots in the Value Change Dump format. The header
// is written with the first snapshot. Later snapshots only write the lines
// that changed. Write errors are kept and returned by Close.
type VCDWriter struct {
	w          *bufio.Writer
	closer     io.Closer
	psPerCycle uint64
	scope      string
	widths     map[cosim.Signal]int
	ids        map[cosim.Signal]string
	order      []cosim.Signal
	last       map[cosim.Signal]uint64
	closed     bool
}

// Dump writes the lines of a snapshot that changed since the last one.
func (v *VCDWriter) Dump(cycle timing.VCycle, snapshot cosim.Snapshot) {
	if v.closed {
		return
	}

	if v.order == nil {
		v.writeHeader(snapshot)
		v.writeInitialValues(cycle, snapshot)

		return
	}

	stamped := false

	for _, sv := range snapshot {
		id, ok := v.ids[sv.Signal]
		if !ok {
			continue
		}

		value := v.mask(sv.Signal, sv.Value)
		if v.last[sv.Signal] == value {
			continue
		}

		if !stamped {
			v.writeTime(cycle)
			stamped = true
		}

		v.writeValue(sv.Signal, id, value)
	}
}

func (v *VCDWriter) writeHeader(snapshot cosim.Snapshot) {
	fmt.Fprintf(v.w, "$version cosim $end\n")
	fmt.Fprintf(v.w, "$timescale 1ps $end\n")
	fmt.Fprintf(v.w, "$scope module %s $end\n", v.scope)

	v.order = make([]cosim.Signal, 0, len(snapshot))

	for _, sv := range snapshot {
		if _, dup := v.ids[sv.Signal]; dup {
			continue
		}

		id := identifier(len(v.order))
		v.ids[sv.Signal] = id
		v.order = append(v.order, sv.Signal)

		fmt.Fprintf(v.w, "$var wire %d %s %s $end\n",
			v.width(sv.Signal), id, sv.Signal)
	}

	fmt.Fprintf(v.w, "$upscope $end\n")
	fmt.Fprintf(v.w, "$enddefinitions $end\n")
}

func (v *VCDWriter) writeInitialValues(
	cycle timing.VCycle,
	snapshot cosim.Snapshot,
) {
	v.writeTime(cycle)
	fmt.Fprintf(v.w, "$dumpvars\n")

	for _, sv := range snapshot {
		v.writeValue(sv.Signal, v.ids[sv.Signal], v.mask(sv.Signal, sv.Value))
	}

	fmt.Fprintf(v.w, "$end\n")
}

func (v *VCDWriter) writeTime(cycle timing.VCycle) {
	fmt.Fprintf(v.w, "#%d\n", uint64(cycle)*v.psPerCycle)
}

func (v *VCDWriter) writeValue(s cosim.Signal, id string, value uint64) {
	v.last[s] = value

	if v.width(s) == 1 {
		fmt.Fprintf(v.w, "%d%s\n", value, id)
		return
	}

	fmt.Fprintf(v.w, "b%b %s\n", value, id)
}

func (v *VCDWriter) width(s cosim.Signal) int {
	if w, ok := v.widths[s]; ok {
		return w
	}

	return 64
}

func (v *VCDWriter) mask(s cosim.Signal, value uint64) uint64 {
	w := v.width(s)
	if w == 64 {
		return value
	}

	return value & (uint64(1)<<w - 1)
}

// Close flushes the buffered output and closes the underlying file, if any.
func (v *VCDWriter) Close() error {
	if v.closed {
		return nil
	}

	v.closed = true

	err := v.w.Flush()

	if v.closer != nil {
		if cerr := v.closer.Close(); err == nil {
			err = cerr
		}
	}

	return err
}

// identifier returns the short code of the n-th variable. Codes use the
// printable characters from '!' to '~'.
func identifier(n int) string {
	const first, numChars = '!', '~' - '!' + 1

	var id []byte
	for {
		id = append(id, byte(first+n%numChars))
		n /= numChars

		if n == 0 {
			return string(id)
		}
	}
}
