package tracker

import "strings"

type (
	// MIDINoteEvent is a MIDI event triggering or releasing a note. In
	// processing, the Frame is relative to the start of the current buffer. In
	// a Recording, the Frame is relative to the start of the recording.
	MIDINoteEvent struct {
		Frame    int
		On       bool
		Channel  int
		Note     byte
		Velocity byte
	}

	// MIDIContext gives the note events that happen during the audio buffer
	// being processed. It is implemented by gomidi.RTMIDIContext when cgo is
	// available.
	MIDIContext interface {
		NextEvent(frame int) (event MIDINoteEvent, ok bool)
		FinishBlock(frame int)
		Inputs(yield func(input MIDIInputDevice) bool)
		Close()
		Support() MIDISupport
	}

	MIDIInputDevice interface {
		Open() error
		String() string
	}

	MIDISupport int
)

const (
	MIDISupportNotCompiled MIDISupport = iota
	MIDISupportNoDriver
	MIDISupported
)

func (s MIDISupport) String() string {
	switch s {
	case MIDISupportNoDriver:
		return "no driver"
	case MIDISupported:
		return "supported"
	}
	return "not compiled"
}

// NullMIDIContext is a mockup MIDIContext if you don't want to create a real
// one.
type NullMIDIContext struct{}

func (m NullMIDIContext) NextEvent(frame int) (MIDINoteEvent, bool)     { return MIDINoteEvent{}, false }
func (m NullMIDIContext) FinishBlock(frame int)                         {}
func (m NullMIDIContext) Inputs(yield func(input MIDIInputDevice) bool) {}
func (m NullMIDIContext) Close()                                        {}
func (m NullMIDIContext) Support() MIDISupport                          { return MIDISupportNotCompiled }

// OpenMIDIInput opens the first input whose name starts with namePrefix, or
// the first input at all if takeFirst is set.
func OpenMIDIInput(c MIDIContext, namePrefix string, takeFirst bool) (MIDIInputDevice, bool) {
	if namePrefix == "" && !takeFirst {
		return nil, false
	}
	for input := range c.Inputs {
		if takeFirst || strings.HasPrefix(input.String(), namePrefix) {
			if err := input.Open(); err != nil {
				return nil, false
			}
			return input, true
		}
	}
	return nil, false
}

