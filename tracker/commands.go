package tracker

import (
	"errors"
	"fmt"

	"github.com/squinkylabs/seq4"
)

type (
	// Command is an undoable edit of a song. Do may only change the song
	// through Song.SetTrack and Song.SetOptions, never by mutating a track
	// that is already in the song. Name identifies the kind of the command;
	// consecutive commands of some kinds are merged into one undo step.
	Command interface {
		Do(song *seq4.Song) error
		Name() string
	}

	// SetTrack puts a track into a slot; a nil track empties the slot.
	SetTrack struct {
		Track, Section int
		T              *seq4.Track
	}

	// ClearSlot empties a slot.
	ClearSlot struct {
		Track, Section int
	}

	// NewSection puts an empty track of the given length into a slot.
	NewSection struct {
		Track, Section int
		Length         float64
	}

	InsertNote struct {
		Track, Section int
		Note           seq4.Event
	}

	DeleteNote struct {
		Track, Section int
		Note           seq4.Event
	}

	// SetLength moves the end of a track. Notes starting at or after the new
	// length are dropped.
	SetLength struct {
		Track, Section int
		Length         float64
	}

	SetRepeats struct {
		Track, Section int
		Repeats        int
	}

	// Transpose shifts every note of a slot by a number of semitones.
	Transpose struct {
		Track, Section int
		Semitones      int
	}

	// CopySlot copies the track and options of one slot to another.
	CopySlot struct {
		FromTrack, FromSection int
		ToTrack, ToSection     int
	}
)

var (
	ErrEmptySlot     = errors.New("slot is empty")
	ErrNoSuchNote    = errors.New("no such note in the track")
	ErrInvalidLength = errors.New("track length must be positive")
	ErrNotANote      = errors.New("event is not a note")
)

func (c SetTrack) Name() string   { return "SetTrack" }
func (c ClearSlot) Name() string  { return "ClearSlot" }
func (c NewSection) Name() string { return "NewSection" }
func (c InsertNote) Name() string { return "InsertNote" }
func (c DeleteNote) Name() string { return "DeleteNote" }
func (c SetLength) Name() string  { return "SetLength" }
func (c SetRepeats) Name() string { return "SetRepeats" }
func (c Transpose) Name() string  { return "Transpose" }
func (c CopySlot) Name() string   { return "CopySlot" }

func (c SetTrack) Do(song *seq4.Song) error {
	if c.T != nil {
		if err := c.T.AssertValid(); err != nil {
			return err
		}
	}
	return song.SetTrack(c.Track, c.Section, c.T)
}

func (c ClearSlot) Do(song *seq4.Song) error {
	return song.SetTrack(c.Track, c.Section, nil)
}

func (c NewSection) Do(song *seq4.Song) error {
	if c.Length <= 0 {
		return ErrInvalidLength
	}
	return song.SetTrack(c.Track, c.Section, seq4.NewTrack(c.Length))
}

func (c InsertNote) Do(song *seq4.Song) error {
	if c.Note.Type != seq4.NoteEvent {
		return ErrNotANote
	}
	return editTrack(song, c.Track, c.Section, func(t *seq4.Track) error {
		t.InsertEvent(c.Note)
		return nil
	})
}

func (c DeleteNote) Do(song *seq4.Song) error {
	return editTrack(song, c.Track, c.Section, func(t *seq4.Track) error {
		if !t.DeleteEvent(c.Note) {
			return fmt.Errorf("%v: %w", c.Note, ErrNoSuchNote)
		}
		return nil
	})
}

func (c SetLength) Do(song *seq4.Song) error {
	if c.Length <= 0 {
		return ErrInvalidLength
	}
	return editTrack(song, c.Track, c.Section, func(t *seq4.Track) error {
		t.SetLength(c.Length)
		return nil
	})
}

func (c SetRepeats) Do(song *seq4.Song) error {
	if song.Track(c.Track, c.Section) == nil {
		return ErrEmptySlot
	}
	return song.SetOptions(c.Track, c.Section, seq4.Options{Repeats: c.Repeats})
}

func (c Transpose) Do(song *seq4.Song) error {
	return editTrack(song, c.Track, c.Section, func(t *seq4.Track) error {
		var notes []seq4.Event
		for e := range t.Events {
			if e.Type == seq4.NoteEvent {
				notes = append(notes, e)
			}
		}
		for _, e := range notes {
			t.DeleteEvent(e)
		}
		for _, e := range notes {
			e.Pitch += float32(c.Semitones) / 12
			t.InsertEvent(e)
		}
		return nil
	})
}

func (c CopySlot) Do(song *seq4.Song) error {
	t := song.Track(c.FromTrack, c.FromSection)
	if t == nil {
		return ErrEmptySlot
	}
	o, _ := song.Options(c.FromTrack, c.FromSection)
	if err := song.SetTrack(c.ToTrack, c.ToSection, t.Copy()); err != nil {
		return err
	}
	return song.SetOptions(c.ToTrack, c.ToSection, o)
}

// editTrack runs edit on a copy of the track in a slot and swaps the copy in
// if the result is valid.
func editTrack(song *seq4.Song, track, section int, edit func(t *seq4.Track) error) error {
	old := song.Track(track, section)
	if old == nil {
		return ErrEmptySlot
	}
	t := old.Copy()
	if err := edit(t); err != nil {
		return err
	}
	if err := t.AssertValid(); err != nil {
		return err
	}
	return song.SetTrack(track, section, t)
}
