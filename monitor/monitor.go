// Package monitor makes the sequencer audible: it runs the sequencer once per
// audio frame and renders the CV and gate outputs of the four tracks with
// simple oscillators, so that a song can be listened to without a host.
package monitor

import (
	"math"
	"sync/atomic"

	"github.com/squinkylabs/seq4"
	"github.com/squinkylabs/seq4/composite"
	"github.com/squinkylabs/seq4/gomidi"
	"github.com/squinkylabs/seq4/tracker"
	"github.com/viterin/vek/vek32"
)

type (
	// Monitor is a seq4.AudioSource. All methods except Peak and Frame must
	// be called from the audio thread.
	Monitor struct {
		seq        *composite.Seq4
		ports      *composite.Ports
		broker     *tracker.Broker
		midi       tracker.MIDIContext
		notes      *gomidi.NoteInput
		sampleRate float32
		frame      atomic.Int64

		voices     [seq4.NumTracks][seq4.MaxVoices]oscillator
		trackBufs  [seq4.NumTracks][]float32
		left, tmp  []float32
		right      []float32
		pan        [seq4.NumTracks][2]float32
		gain       float32
		attack     float32
		release    float32
		peaks      peakDetector
		lastPeak   atomic.Pointer[PeakResult]
		notesDirty bool
	}

	oscillator struct {
		phase float32
		level float32
	}
)

const (
	c4Frequency = 261.6256
	voiceGain   = 0.15
	attackTime  = 0.002
	releaseTime = 0.05
)

// New returns a monitor rendering the given sequencer, which must be driving
// ports. MIDI notes from the context, if any, are fed to the select inputs
// and, when a recording is running, to broker.ToRecorder.
func New(seq *composite.Seq4, ports *composite.Ports, broker *tracker.Broker, midi tracker.MIDIContext, sampleRate int) *Monitor {
	if midi == nil {
		midi = tracker.NullMIDIContext{}
	}
	m := &Monitor{
		seq:        seq,
		ports:      ports,
		broker:     broker,
		midi:       midi,
		notes:      gomidi.NewNoteInput(seq4.MaxVoices),
		sampleRate: float32(sampleRate),
		gain:       1,
		attack:     onePole(attackTime, sampleRate),
		release:    onePole(releaseTime, sampleRate),
		peaks:      makePeakDetector(),
	}
	// tracks are spread from left to right
	for t := range seq4.NumTracks {
		p := float64(t) / float64(seq4.NumTracks-1) * math.Pi / 2
		m.pan[t] = [2]float32{float32(math.Cos(p)), float32(math.Sin(p))}
	}
	seq.SetSampleRate(sampleRate)
	return m
}

func onePole(seconds float64, sampleRate int) float32 {
	return float32(1 - math.Exp(-1/(seconds*float64(sampleRate))))
}

// SetGain sets the master gain of the mix.
func (m *Monitor) SetGain(gain float32) { m.gain = gain }

// Frame returns the number of frames rendered so far.
func (m *Monitor) Frame() int { return int(m.frame.Load()) }

// Peak returns the peak levels of the last completed 100 ms block. Safe to
// call from any goroutine.
func (m *Monitor) Peak() (PeakResult, bool) {
	if p := m.lastPeak.Load(); p != nil {
		return *p, true
	}
	return PeakResult{}, false
}

// ResetPeak restarts the integrated peak.
func (m *Monitor) ResetPeak() {
	m.peaks.reset()
	m.lastPeak.Store(nil)
}

// Process renders the buffer. It never fails; the error is there to satisfy
// seq4.AudioSource.
func (m *Monitor) Process(buf seq4.AudioBuffer) error {
	n := len(buf)
	for t := range m.trackBufs {
		setSliceLength(&m.trackBufs[t], n)
	}
	setSliceLength(&m.left, n)
	setSliceLength(&m.right, n)
	setSliceLength(&m.tmp, n)
	start := m.Frame()
	ev, ok := m.midi.NextEvent(0)
	for i := range n {
		for ok && ev.Frame <= i {
			m.notes.HandleEvent(ev)
			m.notesDirty = true
			if m.broker != nil {
				ev.Frame += start
				tracker.TrySend(m.broker.ToRecorder, ev)
			}
			ev, ok = m.midi.NextEvent(i)
		}
		if m.notesDirty {
			m.notes.Apply(m.ports)
			m.notesDirty = false
		}
		m.seq.Process()
		for t := range seq4.NumTracks {
			m.trackBufs[t][i] = m.renderTrack(t)
		}
	}
	m.midi.FinishBlock(n)
	m.frame.Add(int64(n))
	// mix the tracks into left and right
	vek32.Zeros_Into(m.left, n)
	vek32.Zeros_Into(m.right, n)
	for t := range seq4.NumTracks {
		vek32.MulNumber_Into(m.tmp, m.trackBufs[t], m.pan[t][0]*m.gain)
		vek32.Add_Inplace(m.left, m.tmp)
		vek32.MulNumber_Into(m.tmp, m.trackBufs[t], m.pan[t][1]*m.gain)
		vek32.Add_Inplace(m.right, m.tmp)
	}
	for i := range buf {
		buf[i] = [2]float32{m.left[i], m.right[i]}
	}
	if p, ok := m.peaks.update(buf); ok {
		m.lastPeak.Store(&p)
	}
	return nil
}

// renderTrack renders one sample of the voices of a track: a triangle wave at
// the pitch of the CV output with an envelope following the gate output.
func (m *Monitor) renderTrack(t int) (out float32) {
	cv, gate := composite.OutputCV0+composite.OutputID(t), composite.OutputGate0+composite.OutputID(t)
	for v := range seq4.MaxVoices {
		osc := &m.voices[t][v]
		target, coeff := float32(0), m.release
		if m.ports.Output(gate, v) > 1 {
			target, coeff = 1, m.attack
		}
		osc.level += (target - osc.level) * coeff
		if osc.level < 1e-4 && target == 0 {
			osc.level = 0
			continue
		}
		freq := c4Frequency * float32(math.Exp2(float64(m.ports.Output(cv, v))))
		osc.phase += freq / m.sampleRate
		osc.phase -= float32(math.Floor(float64(osc.phase)))
		tri := 4*float32(math.Abs(float64(osc.phase-0.5))) - 1
		out += tri * osc.level * voiceGain
	}
	return
}

func setSliceLength[T any](slice *[]T, length int) {
	if len(*slice) < length {
		*slice = append(*slice, make([]T, length-len(*slice))...)
	}
	*slice = (*slice)[:length]
}
