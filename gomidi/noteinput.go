package gomidi

import (
	"github.com/squinkylabs/seq4"
	"github.com/squinkylabs/seq4/composite"
	"github.com/squinkylabs/seq4/tracker"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// NoteInput turns MIDI notes into the polyphonic select CV and gate of
	// the sequencer, like a MIDI-CV converter patched into the select inputs.
	// Each held key occupies one channel: the CV is the 1V/octave pitch of
	// the key and the gate is high while the key is down. With the select
	// octave at 4, keys C4 to D#5 select the sixteen sections.
	NoteInput struct {
		channels [seq4.MaxVoices]noteChannel
		num      int
		next     int
		age      int
	}

	noteChannel struct {
		key uint8
		on  bool
		age int
	}
)

// NewNoteInput returns a NoteInput with the given number of channels, clamped
// to 1..seq4.MaxVoices.
func NewNoteInput(channels int) *NoteInput {
	return &NoteInput{num: max(min(channels, seq4.MaxVoices), 1)}
}

// HandleEvent applies a note event. Channel of the event is ignored.
func (n *NoteInput) HandleEvent(ev tracker.MIDINoteEvent) {
	if ev.On && ev.Velocity > 0 {
		n.noteOn(ev.Note)
	} else {
		n.noteOff(ev.Note)
	}
}

// HandleMessage applies a raw MIDI message; returns false if it was not a
// note message.
func (n *NoteInput) HandleMessage(msg midi.Message) bool {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		n.noteOn(key)
	case msg.GetNoteEnd(&channel, &key):
		n.noteOff(key)
	default:
		return false
	}
	return true
}

func (n *NoteInput) noteOn(key uint8) {
	n.age++
	for i := range n.num {
		if c := &n.channels[i]; c.on && c.key == key {
			c.age = n.age
			return
		}
	}
	// free channels are taken round robin, so that a key released and a new
	// one pressed right after do not share a channel; if all are taken, the
	// oldest note is stolen
	ch := -1
	for i := range n.num {
		j := (n.next + i) % n.num
		if !n.channels[j].on {
			ch = j
			break
		}
	}
	if ch < 0 {
		ch = 0
		for i := 1; i < n.num; i++ {
			if n.channels[i].age < n.channels[ch].age {
				ch = i
			}
		}
	}
	n.channels[ch] = noteChannel{key: key, on: true, age: n.age}
	n.next = (ch + 1) % n.num
}

func (n *NoteInput) noteOff(key uint8) {
	for i := range n.num {
		if c := &n.channels[i]; c.on && c.key == key {
			c.on = false
		}
	}
}

// Held returns the number of keys currently down.
func (n *NoteInput) Held() (ret int) {
	for i := range n.num {
		if n.channels[i].on {
			ret++
		}
	}
	return
}

// Apply writes the select CV and gate inputs of the ports.
func (n *NoteInput) Apply(p *composite.Ports) {
	for i := range n.num {
		c := n.channels[i]
		gate := float32(0)
		if c.on {
			gate = 10
		}
		p.SetInput(composite.InputSelectCV, i, seq4.SemitoneToPitch(int(c.key)))
		p.SetInput(composite.InputSelectGate, i, gate)
	}
}
