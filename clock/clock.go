// Package clock converts a run signal, a reset signal and either an internal
// tempo or an external pulse train into elapsed musical time, measured in
// quarter notes.
package clock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/squinkylabs/seq4/dsp"
)

type (
	// Rate is the clock division: the number of clock pulses per quarter
	// note. It is stored as a power of two, X1 being 1 pulse per quarter.
	Rate int

	// Source selects what advances the clock.
	Source int

	// Clock is updated by the audio thread once per (decimated) sample. It is
	// not safe for concurrent use.
	Clock struct {
		rate       Rate
		source     Source
		tempo      float64
		sampleTime float64

		metricTime     float64
		clockTrig      dsp.SchmittTrigger
		resetTrig      dsp.SchmittTrigger
		resetRequested bool
		lockoutSamples int
		lockout        int
	}

	// Result is returned by Update. DidReset is true for exactly one update
	// per reset edge; callers re-zero all playback positions when they see it.
	Result struct {
		DidReset         bool
		TotalElapsedTime float64
	}
)

const (
	X1 Rate = iota
	X2
	X4
	X8
	X16
	X32
	X64
	NumRates
)

const (
	Internal Source = iota
	External
)

const (
	DefaultTempo      = 120
	DefaultSampleRate = 44100
	// DefaultExternalRate is the rate assumed for the "external" setting when
	// no rate is given.
	DefaultExternalRate = X4
	// lockoutTime is how long external clock edges are ignored after a reset,
	// in seconds. Reset and clock pulses that arrive together must not skip
	// the first step.
	lockoutTime = 0.001
)

var ErrInvalidSetting = errors.New("invalid clock setting")

// ClocksPerQuarter returns 1, 2, 4 ... 64.
func (r Rate) ClocksPerQuarter() int {
	return 1 << r.clamp()
}

func (r Rate) clamp() Rate {
	return max(min(r, NumRates-1), X1)
}

func (r Rate) String() string {
	return fmt.Sprintf("x%d", r.ClocksPerQuarter())
}

// ParseRate parses "x1" .. "x64".
func ParseRate(s string) (Rate, error) {
	for r := X1; r < NumRates; r++ {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("rate %q: %w", s, ErrInvalidSetting)
}

func (s Source) String() string {
	if s == External {
		return "external"
	}
	return "internal"
}

// ParseSetting parses a clock setting as written in configuration: "x1" ..
// "x64" select the internal clock at that rate, "external" selects the
// external clock at DefaultExternalRate and "external:x16" the external clock
// at an explicit rate.
func ParseSetting(s string) (Rate, Source, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if rest, ok := strings.CutPrefix(s, "external"); ok {
		if rest == "" {
			return DefaultExternalRate, External, nil
		}
		r, err := ParseRate(strings.TrimPrefix(rest, ":"))
		if err != nil || !strings.HasPrefix(rest, ":") {
			return 0, 0, fmt.Errorf("clock %q: %w", s, ErrInvalidSetting)
		}
		return r, External, nil
	}
	r, err := ParseRate(s)
	if err != nil {
		return 0, 0, err
	}
	return r, Internal, nil
}

// New returns a stopped clock at time 0 with the default tempo and sample
// rate, running from the internal source at x4.
func New() *Clock {
	c := &Clock{}
	c.Setup(X4, DefaultTempo, 1.0/DefaultSampleRate)
	return c
}

// Setup configures the rate, the internal tempo in beats per minute and the
// duration of one sample in seconds. The elapsed time is not changed.
func (c *Clock) Setup(rate Rate, tempo float64, sampleTime float64) {
	c.rate = rate.clamp()
	c.tempo = max(tempo, 0)
	c.sampleTime = sampleTime
	c.lockoutSamples = 0
	if sampleTime > 0 {
		c.lockoutSamples = int(lockoutTime/sampleTime + 0.5)
	}
}

func (c *Clock) SetSource(s Source) {
	if s != External {
		s = Internal
	}
	c.source = s
}

func (c *Clock) Rate() Rate          { return c.rate }
func (c *Clock) Source() Source      { return c.source }
func (c *Clock) Tempo() float64      { return c.tempo }
func (c *Clock) SampleTime() float64 { return c.sampleTime }

// Time returns the current elapsed time without updating the clock.
func (c *Clock) Time() float64 { return c.metricTime }

// MetricTimePerClock is the length of one clock pulse in quarter notes.
func (c *Clock) MetricTimePerClock() float64 {
	return 1 / float64(c.rate.ClocksPerQuarter())
}

// ResetRequest makes the next Update reset the clock, exactly as a reset edge
// would. Several requests before the next Update result in a single reset.
func (c *Clock) ResetRequest() {
	c.resetRequested = true
}

// Update advances the clock by samplesElapsed samples. externalClock and
// reset are input voltages; both are edge detected with the dsp trigger
// thresholds. Reset edges are detected even when not running, and the update
// that sees one returns time 0 without advancing. With the
// external source each rising clock edge while running advances the time by
// MetricTimePerClock; edges while stopped are consumed without advancing.
func (c *Clock) Update(samplesElapsed int, externalClock float32, running bool, reset float32) Result {
	didReset := false
	if c.resetTrig.Process(reset) || c.resetRequested {
		c.resetRequested = false
		c.metricTime = 0
		c.lockout = c.lockoutSamples
		didReset = true
	}
	edge := c.clockTrig.Process(externalClock)
	if c.lockout > 0 {
		c.lockout = max(c.lockout-samplesElapsed, 0)
		edge = false
	}
	if running && !didReset {
		switch c.source {
		case External:
			if edge {
				c.metricTime += c.MetricTimePerClock()
			}
		default:
			c.metricTime += float64(samplesElapsed) * c.sampleTime * c.tempo / 60
		}
	}
	return Result{DidReset: didReset, TotalElapsedTime: c.metricTime}
}
