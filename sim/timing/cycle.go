package timing

// VCycle counts simulated clock cycles since the start of a run.
type VCycle uint64

// A CycleTeller can tell the current cycle.
//
// Only the owner of the hardware model advances the cycle counter. Everything
// else can only read it.
type CycleTeller interface {
	Now() VCycle
}
