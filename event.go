package seq4

import (
	"fmt"
	"math"
)

type (
	// Event is a single timestamped item of a Track. It is a sum type over the
	// closed set of event kinds: Type tells which of the fields are
	// meaningful. Start is measured in quarter notes from the beginning of the
	// track. For NoteEvent, Pitch is a 1V/octave control voltage (0V = C4) and
	// Duration is in quarter notes. EndEvent only uses Start; it marks the
	// exclusive end of the track, i.e. the loop point.
	Event struct {
		Type     EventType
		Start    float64
		Pitch    float32
		Duration float64
	}

	EventType int
)

const (
	NoteEvent EventType = iota
	EndEvent
)

// NewNote returns a note event.
func NewNote(start float64, pitch float32, duration float64) Event {
	return Event{Type: NoteEvent, Start: start, Pitch: pitch, Duration: duration}
}

// NewEnd returns an end event at the given time.
func NewEnd(start float64) Event {
	return Event{Type: EndEvent, Start: start}
}

func (t EventType) String() string {
	switch t {
	case NoteEvent:
		return "note"
	case EndEvent:
		return "end"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// ParseEventType is the inverse of EventType.String.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "note":
		return NoteEvent, nil
	case "end":
		return EndEvent, nil
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// sameKey reports if inserting e2 should replace e: notes share a key when
// they start at the same time with the same pitch, and there is only ever one
// end event.
func (e Event) sameKey(e2 Event) bool {
	if e.Type != e2.Type {
		return false
	}
	switch e.Type {
	case EndEvent:
		return true
	default:
		return e.Start == e2.Start && e.Pitch == e2.Pitch
	}
}

func (e Event) String() string {
	switch e.Type {
	case NoteEvent:
		return fmt.Sprintf("note@%g %s dur %g", e.Start, PitchName(e.Pitch), e.Duration)
	case EndEvent:
		return fmt.Sprintf("end@%g", e.Start)
	}
	return e.Type.String()
}

// PitchToSemitone converts a 1V/octave pitch to a MIDI note number, rounding
// to the nearest semitone. 0V is C4 = MIDI note 60.
func PitchToSemitone(pitch float32) int {
	return int(math.Round(float64(pitch)*12)) + 60
}

// SemitoneToPitch converts a MIDI note number to a 1V/octave pitch.
func SemitoneToPitch(note int) float32 {
	return float32(note-60) / 12
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName returns the note name of the pitch, e.g. "C4" or "F#2".
func PitchName(pitch float32) string {
	n := PitchToSemitone(pitch)
	octave := n/12 - 1
	if n < 0 {
		octave = (n-11)/12 - 1
	}
	return fmt.Sprintf("%s%d", noteNames[((n%12)+12)%12], octave)
}
