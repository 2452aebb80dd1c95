package waveform

import (
	"context"

	"github.com/sarchlab/cosim/cosim"
	"github.com/sarchlab/cosim/datarecording"
	"github.com/sarchlab/cosim/sim/timing"
)

// TableName is the table the recorder writes to.
const TableName = "waveform"

// A Sample is a line value that changed at a cycle. Value holds the bit
// pattern of the line value, since SQLite integers are signed.
type Sample struct {
	Cycle  uint64
	Signal string
	Value  int64
}

// A Recorder stores value changes into a data recorder. The data recorder
// may be shared, so closing the Recorder only flushes it.
type Recorder struct {
	recorder datarecording.DataRecorder
	last     map[cosim.Signal]uint64
	started  bool
	closed   bool
}

// NewRecorder creates a recorder that writes to r.
func NewRecorder(r datarecording.DataRecorder) *Recorder {
	r.CreateTable(TableName, Sample{})

	return &Recorder{
		recorder: r,
		last:     make(map[cosim.Signal]uint64),
	}
}

// Dump records the lines that changed. All lines are recorded for the first
// snapshot.
func (r *Recorder) Dump(cycle timing.VCycle, snapshot cosim.Snapshot) {
	if r.closed {
		return
	}

	for _, sv := range snapshot {
		last, seen := r.last[sv.Signal]
		if r.started && seen && last == sv.Value {
			continue
		}

		r.last[sv.Signal] = sv.Value
		r.recorder.InsertData(TableName, Sample{
			Cycle:  uint64(cycle),
			Signal: string(sv.Signal),
			Value:  int64(sv.Value),
		})
	}

	r.started = true
}

// Close flushes the recorded samples.
func (r *Recorder) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true
	r.recorder.Flush()

	return nil
}

// LoadSamples reads back the samples of a line in cycle order.
func LoadSamples(
	ctx context.Context,
	reader datarecording.DataReader,
	s cosim.Signal,
) ([]Sample, error) {
	reader.MapTable(TableName, Sample{})

	results, _, err := reader.Query(ctx, TableName, datarecording.QueryParams{
		Where:   "Signal = ?",
		Args:    []any{string(s)},
		OrderBy: "Cycle ASC",
	})
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(results))
	for _, res := range results {
		samples = append(samples, *res.(*Sample))
	}

	return samples, nil
}
