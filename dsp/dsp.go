// Package dsp has the small per-sample building blocks shared by the clock and
// the sequencer: edge detection, sample decimation and fixed-width pulses.
package dsp

const (
	// TriggerHigh and TriggerLow are the Schmitt thresholds of all the gate,
	// clock and reset inputs, in volts.
	TriggerHigh = 2
	TriggerLow  = 1
)

type (
	// SchmittTrigger detects rising edges of a voltage with hysteresis: the
	// state goes high above TriggerHigh and low again below TriggerLow. The
	// zero value is low.
	SchmittTrigger struct {
		high bool
	}

	// Divider fires once every n calls to Step. The first call fires. The zero
	// value fires on every call.
	Divider struct {
		n       int
		counter int
	}

	// PulseGenerator produces a fixed-width pulse that is retriggerable.
	PulseGenerator struct {
		remaining int
	}
)

// Process feeds one voltage and returns true on a rising edge.
func (s *SchmittTrigger) Process(v float32) (rising bool) {
	switch {
	case !s.high && v >= TriggerHigh:
		s.high = true
		return true
	case s.high && v <= TriggerLow:
		s.high = false
	}
	return false
}

// High returns the current state of the trigger.
func (s *SchmittTrigger) High() bool { return s.high }

func (s *SchmittTrigger) Reset() { s.high = false }

// SetDivisor sets n; values below 1 are treated as 1.
func (d *Divider) SetDivisor(n int) {
	d.n = max(n, 1)
	d.counter = 0
}

func (d *Divider) Divisor() int { return max(d.n, 1) }

func (d *Divider) Step() bool {
	fire := d.counter == 0
	d.counter++
	if d.counter >= d.n {
		d.counter = 0
	}
	return fire
}

// Trigger starts a pulse of the given width in samples. A running pulse is
// only ever lengthened.
func (p *PulseGenerator) Trigger(samples int) {
	p.remaining = max(p.remaining, samples)
}

// Process advances the pulse by one sample and returns whether the pulse was
// high for that sample.
func (p *PulseGenerator) Process() bool {
	if p.remaining <= 0 {
		return false
	}
	p.remaining--
	return true
}
