package player

import (
	"fmt"
	"strings"

	"github.com/squinkylabs/seq4"
)

type (
	// AssignMode decides which idle voice gets the next note.
	AssignMode int

	voice struct {
		gate      bool    // a note is sounding on this voice
		cv        float32 // pitch of the last note, held after the note ends
		onTime    float64 // absolute metric time of the note-on
		offTime   float64 // absolute metric time the note ends
		firedAt   float64 // the update time at which the note-on was processed
		retrigger int     // samples left with the output gate forced low
		lastGate  bool    // the gate emitted in the previous sample
	}

	voices struct {
		v         [seq4.MaxVoices]voice
		n         int
		next      int // round robin position
		mode      AssignMode
		retrigger int // width of the retrigger gap in samples
	}
)

const (
	RoundRobin AssignMode = iota
	Lowest
)

const gateHigh = 10

func (m AssignMode) String() string {
	if m == Lowest {
		return "lowest"
	}
	return "roundrobin"
}

func ParseAssignMode(s string) (AssignMode, error) {
	switch strings.ToLower(s) {
	case "roundrobin", "round-robin", "":
		return RoundRobin, nil
	case "lowest":
		return Lowest, nil
	}
	return 0, fmt.Errorf("unknown voice assign mode %q", s)
}

func (v *voice) output() bool {
	return v.gate && v.retrigger == 0
}

func (vs *voices) setNum(n int) {
	n = max(min(n, seq4.MaxVoices), 1)
	for i := n; i < len(vs.v); i++ {
		vs.v[i].gate = false
		vs.v[i].retrigger = 0
	}
	vs.n = n
	if vs.next >= n {
		vs.next = 0
	}
}

// allocate picks the voice for a note-on. An idle voice is preferred; if all
// voices are sounding, the one that was triggered the longest time ago is
// stolen.
func (vs *voices) allocate() int {
	switch vs.mode {
	case Lowest:
		for i := 0; i < vs.n; i++ {
			if !vs.v[i].gate {
				return i
			}
		}
	default:
		for k := 0; k < vs.n; k++ {
			i := (vs.next + k) % vs.n
			if !vs.v[i].gate {
				vs.next = (i + 1) % vs.n
				return i
			}
		}
	}
	oldest := 0
	for i := 1; i < vs.n; i++ {
		if vs.v[i].onTime < vs.v[oldest].onTime {
			oldest = i
		}
	}
	return oldest
}

// noteOn starts a note at metric time at, processed by the update at now.
func (vs *voices) noteOn(pitch float32, at, duration, now float64) {
	i := vs.allocate()
	v := &vs.v[i]
	if v.gate || v.lastGate {
		// back-to-back notes on one voice need a gap to retrigger envelopes
		v.retrigger = vs.retrigger
	}
	v.gate = true
	v.cv = pitch
	v.onTime = at
	v.offTime = at + duration
	v.firedAt = now
}

// releasable reports if the voice may be released by the update at now. A
// note is never released by the update that started it, so a note shorter
// than one clock still gets a gate until the time moves on.
func (v *voice) releasable(now float64) bool {
	return v.gate && v.firedAt != now
}

// releaseBefore ends the notes whose end time is strictly before t.
func (vs *voices) releaseBefore(t, now float64) {
	for i := 0; i < vs.n; i++ {
		if vs.v[i].releasable(now) && vs.v[i].offTime < t {
			vs.v[i].gate = false
		}
	}
}

// releaseUpTo ends the notes whose end time is at or before t.
func (vs *voices) releaseUpTo(t float64) {
	for i := 0; i < vs.n; i++ {
		if vs.v[i].releasable(t) && vs.v[i].offTime <= t {
			vs.v[i].gate = false
		}
	}
}

func (vs *voices) allOff() {
	for i := range vs.v {
		vs.v[i].gate = false
		vs.v[i].retrigger = 0
	}
}

func (vs *voices) active() (ret int) {
	for i := 0; i < vs.n; i++ {
		if vs.v[i].output() {
			ret++
		}
	}
	return
}

func (vs *voices) updateSampleCount(samples int) {
	for i := range vs.v {
		v := &vs.v[i]
		v.lastGate = v.output()
		if v.retrigger > 0 {
			v.retrigger = max(v.retrigger-samples, 0)
		}
	}
}
