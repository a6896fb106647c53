package seq4

import (
	"errors"
	"fmt"
	"sort"
)

// Track is one clip of a song: an ordered list of note events terminated by
// exactly one end event. The events are kept sorted by start time; events
// starting at the same time stay in insertion order.
//
// A Track that has been put into a Song should be treated as immutable: the
// audio thread may be walking its events. Editing is done by making a Copy,
// modifying the copy and swapping it into the song with Song.SetTrack.
type Track struct {
	events []Event
}

var (
	ErrNoEndEvent       = errors.New("track has no end event")
	ErrMultipleEnd      = errors.New("track has more than one end event")
	ErrEndNotLast       = errors.New("end event is not the last event of the track")
	ErrEventsOutOfOrder = errors.New("track events are not sorted by start time")
	ErrNegativeTime     = errors.New("event has negative start time or duration")
)

// NewTrack returns an empty track of the given length in quarter notes.
func NewTrack(length float64) *Track {
	return &Track{events: []Event{NewEnd(length)}}
}

// InsertEvent inserts the event keeping the time order. Inserting a note with
// the same start time and pitch as an existing note replaces the old note;
// inserting an end event replaces the previous end event. Last write wins.
func (t *Track) InsertEvent(ev Event) {
	for i, e := range t.events {
		if !e.sameKey(ev) {
			continue
		}
		if e.Start == ev.Start {
			t.events[i] = ev
			return
		}
		t.events = append(t.events[:i], t.events[i+1:]...)
		break
	}
	i := sort.Search(len(t.events), func(i int) bool {
		e := t.events[i]
		if e.Start != ev.Start {
			return e.Start > ev.Start
		}
		// notes go before an end event at the same time
		return e.Type == EndEvent && ev.Type != EndEvent
	})
	t.events = append(t.events, Event{})
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = ev
}

// DeleteEvent removes the first event equal to ev. Returns false if no such
// event was found. The end event cannot be deleted; use SetLength instead.
func (t *Track) DeleteEvent(ev Event) bool {
	if ev.Type == EndEvent {
		return false
	}
	for i, e := range t.events {
		if e == ev {
			t.events = append(t.events[:i], t.events[i+1:]...)
			return true
		}
	}
	return false
}

// Length returns the start time of the end event, i.e. the loop length of the
// track in quarter notes. A track without an end event has length 0.
func (t *Track) Length() float64 {
	if len(t.events) == 0 {
		return 0
	}
	last := t.events[len(t.events)-1]
	if last.Type != EndEvent {
		return 0
	}
	return last.Start
}

// SetLength moves the end event. Notes starting at or after the new length
// are removed.
func (t *Track) SetLength(length float64) {
	kept := make([]Event, 0, len(t.events)+1)
	for _, e := range t.events {
		if e.Type == NoteEvent && e.Start < length {
			kept = append(kept, e)
		}
	}
	t.events = append(kept, NewEnd(length))
}

// Len returns the number of events, including the end event.
func (t *Track) Len() int {
	return len(t.events)
}

// At returns the event at index i, which must be in range 0 <= i < Len().
func (t *Track) At(i int) Event {
	return t.events[i]
}

// Events can be iterated to get all the events in time order.
func (t *Track) Events(yield func(Event) bool) {
	for _, e := range t.events {
		if !yield(e) {
			return
		}
	}
}

// NoteCount returns the number of note events.
func (t *Track) NoteCount() (ret int) {
	for _, e := range t.events {
		if e.Type == NoteEvent {
			ret++
		}
	}
	return
}

// SeekAfter returns the index of the first event whose start time is strictly
// greater than time. Used to resume playback in the middle of a track.
func (t *Track) SeekAfter(time float64) int {
	return sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Start > time
	})
}

// Seek returns the index of the first event whose start time is at or after
// time.
func (t *Track) Seek(time float64) int {
	return sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Start >= time
	})
}

// AssertValid checks that the track has exactly one end event, as the last
// entry, and that the events are sorted by start time with no note at or past
// the end.
func (t *Track) AssertValid() error {
	ends := 0
	for i, e := range t.events {
		if e.Start < 0 || e.Duration < 0 {
			return fmt.Errorf("event %d (%v): %w", i, e, ErrNegativeTime)
		}
		if i > 0 && t.events[i-1].Start > e.Start {
			return fmt.Errorf("event %d (%v): %w", i, e, ErrEventsOutOfOrder)
		}
		if e.Type == EndEvent {
			ends++
		}
	}
	switch {
	case ends == 0:
		return ErrNoEndEvent
	case ends > 1:
		return ErrMultipleEnd
	case t.events[len(t.events)-1].Type != EndEvent:
		return ErrEndNotLast
	}
	if n := len(t.events); n > 1 && t.events[n-2].Start >= t.events[n-1].Start {
		return fmt.Errorf("note at %g is not before the end at %g: %w", t.events[n-2].Start, t.events[n-1].Start, ErrEndNotLast)
	}
	return nil
}

// MustBeValid panics if AssertValid fails. Tracks are only ever built by this
// program, so an invalid track is a programming error.
func (t *Track) MustBeValid() {
	if err := t.AssertValid(); err != nil {
		panic(fmt.Sprintf("seq4: invalid track: %v", err))
	}
}

// Copy makes a deep copy of a Track.
func (t *Track) Copy() *Track {
	events := make([]Event, len(t.events))
	copy(events, t.events)
	return &Track{events: events}
}

// Equal reports if the two tracks have identical events in identical order.
func (t *Track) Equal(t2 *Track) bool {
	if t == nil || t2 == nil {
		return t == t2
	}
	if len(t.events) != len(t2.events) {
		return false
	}
	for i := range t.events {
		if t.events[i] != t2.events[i] {
			return false
		}
	}
	return true
}
