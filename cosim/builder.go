package cosim

// DefaultMaxRetries is the number of cycles a register transaction may wait
// for the other side before timing out.
const DefaultMaxRetries = 20

// A Builder can build drivers.
type Builder struct {
	maxRetries int
	sink       WaveformSink
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		maxRetries: DefaultMaxRetries,
	}
}

// WithMaxRetries sets how many cycles a register transaction may wait.
func (b Builder) WithMaxRetries(n int) Builder {
	b.maxRetries = n
	return b
}

// WithWaveformSink sets the sink that receives one snapshot per tick. The
// driver takes ownership of the sink.
func (b Builder) WithWaveformSink(sink WaveformSink) Builder {
	b.sink = sink
	return b
}

// Build creates a driver that owns the model. The model must be fully
// constructed; Build settles it once before returning.
func (b Builder) Build(name string, model Model) *Driver {
	b.parametersMustBeValid(model)

	d := &Driver{
		name:       name,
		model:      model,
		sink:       b.sink,
		maxRetries: b.maxRetries,
	}

	d.model.Eval()

	return d
}

func (b Builder) parametersMustBeValid(model Model) {
	if model == nil {
		panic("driver needs a hardware model")
	}

	if b.maxRetries < 0 {
		panic("max retries cannot be negative")
	}
}
