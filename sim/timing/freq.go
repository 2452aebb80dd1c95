package timing

import (
	"log"
	"math"
	"time"
)

// VTimeInSec defines the time in the simulated space in the unit of second.
type VTimeInSec = float64

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(t VTimeInSec) VCycle {
	if math.IsNaN(t) || t < 0 {
		log.Panic("invalid time")
	}

	return VCycle(math.Round(t * float64(f)))
}

// TimeOf returns the simulated time at which the given cycle starts.
func (f Freq) TimeOf(c VCycle) VTimeInSec {
	return VTimeInSec(c) * f.Period()
}

// PeriodDuration returns the clock period rounded to the closest wall-clock
// duration. Frequencies above 1 THz are not representable and panic.
func (f Freq) PeriodDuration() time.Duration {
	d := time.Duration(math.Round(f.Period() * float64(time.Second)))
	if d <= 0 {
		log.Panic("frequency too high to be represented as a duration")
	}

	return d
}
