package seq4_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/squinkylabs/seq4"
)

func events(t *seq4.Track) []seq4.Event {
	return slices.Collect(t.Events)
}

func TestInsertEventKeepsOrder(t *testing.T) {
	tr := seq4.NewTrack(4)
	tr.InsertEvent(seq4.NewNote(2, 0, 1))
	tr.InsertEvent(seq4.NewNote(0, 0, 1))
	tr.InsertEvent(seq4.NewNote(1, 0.5, 1))
	tr.InsertEvent(seq4.NewNote(1, 0.25, 1)) // chord with the previous note
	want := []seq4.Event{
		seq4.NewNote(0, 0, 1),
		seq4.NewNote(1, 0.5, 1),
		seq4.NewNote(1, 0.25, 1),
		seq4.NewNote(2, 0, 1),
		seq4.NewEnd(4),
	}
	if got := events(tr); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if err := tr.AssertValid(); err != nil {
		t.Errorf("expected a valid track, got %v", err)
	}
}

func TestInsertEventLastWriteWins(t *testing.T) {
	tr := seq4.NewTrack(4)
	tr.InsertEvent(seq4.NewNote(1, 0, 1))
	tr.InsertEvent(seq4.NewNote(1, 0, 2))
	if tr.NoteCount() != 1 || tr.At(0).Duration != 2 {
		t.Errorf("expected the second note to replace the first, got %v", events(tr))
	}
	tr.InsertEvent(seq4.NewEnd(8))
	if tr.Length() != 8 || tr.Len() != 2 {
		t.Errorf("expected the end to move to 8, got %v", events(tr))
	}
	tr.InsertEvent(seq4.NewEnd(2))
	if tr.Length() != 2 || tr.At(tr.Len()-1).Type != seq4.EndEvent {
		t.Errorf("expected the end to move back to 2, got %v", events(tr))
	}
}

func TestInsertEventAtEndTime(t *testing.T) {
	tr := seq4.NewTrack(4)
	tr.InsertEvent(seq4.NewNote(4, 0, 1))
	// the note is sorted before the end, but it is not before the end
	if err := tr.AssertValid(); !errors.Is(err, seq4.ErrEndNotLast) {
		t.Errorf("expected ErrEndNotLast, got %v", err)
	}
}

func TestDeleteEvent(t *testing.T) {
	tr := seq4.NewTrack(4)
	n := seq4.NewNote(1, 0, 1)
	tr.InsertEvent(n)
	if tr.DeleteEvent(seq4.NewNote(1, 0, 2)) {
		t.Errorf("expected no match for a different duration")
	}
	if tr.DeleteEvent(seq4.NewEnd(4)) {
		t.Errorf("the end event must not be deletable")
	}
	if !tr.DeleteEvent(n) || tr.NoteCount() != 0 {
		t.Errorf("expected the note to be deleted")
	}
}

func TestSetLength(t *testing.T) {
	tr := seq4.NewTrack(4)
	tr.InsertEvent(seq4.NewNote(0, 0, 1))
	tr.InsertEvent(seq4.NewNote(2, 0, 1))
	tr.InsertEvent(seq4.NewNote(3, 0, 1))
	tr.SetLength(2)
	want := []seq4.Event{seq4.NewNote(0, 0, 1), seq4.NewEnd(2)}
	if got := events(tr); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSeek(t *testing.T) {
	tr := seq4.NewTrack(4)
	tr.InsertEvent(seq4.NewNote(0, 0, 1))
	tr.InsertEvent(seq4.NewNote(1, 0, 1))
	tr.InsertEvent(seq4.NewNote(2, 0, 1))
	if got := tr.Seek(1); got != 1 {
		t.Errorf("Seek(1) = %d, want 1", got)
	}
	if got := tr.SeekAfter(1); got != 2 {
		t.Errorf("SeekAfter(1) = %d, want 2", got)
	}
	if got := tr.SeekAfter(4); got != tr.Len() {
		t.Errorf("SeekAfter(4) = %d, want %d", got, tr.Len())
	}
}

func TestAssertValid(t *testing.T) {
	if err := (&seq4.Track{}).AssertValid(); !errors.Is(err, seq4.ErrNoEndEvent) {
		t.Errorf("expected ErrNoEndEvent for an empty track, got %v", err)
	}
	tr := seq4.NewTrack(4)
	tr.InsertEvent(seq4.NewNote(-1, 0, 1))
	if err := tr.AssertValid(); !errors.Is(err, seq4.ErrNegativeTime) {
		t.Errorf("expected ErrNegativeTime, got %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("expected MustBeValid to panic")
		}
	}()
	tr.MustBeValid()
}

func TestTrackCopyIsDeep(t *testing.T) {
	tr := seq4.NewTrack(4)
	tr.InsertEvent(seq4.NewNote(0, 0, 1))
	c := tr.Copy()
	if !c.Equal(tr) {
		t.Fatalf("expected the copy to be equal")
	}
	c.InsertEvent(seq4.NewNote(1, 0, 1))
	if c.Equal(tr) || tr.NoteCount() != 1 {
		t.Errorf("modifying the copy changed the original")
	}
	var nilTrack *seq4.Track
	if nilTrack.Equal(tr) || !nilTrack.Equal(nil) {
		t.Errorf("unexpected nil track equality")
	}
}
