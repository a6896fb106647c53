package seq4_test

import (
	"errors"
	"testing"

	"github.com/squinkylabs/seq4"
)

func TestSetTrackKeepsOptions(t *testing.T) {
	s := seq4.NewEmptySong()
	if !s.Empty() {
		t.Fatalf("expected a new song to be empty")
	}
	if err := s.SetOptions(1, 1, seq4.Options{Repeats: 2}); err == nil {
		t.Errorf("expected SetOptions to fail on an empty slot")
	}
	s.SetTrack(1, 1, seq4.NewTrack(4))
	if o, ok := s.Options(1, 1); !ok || o.Repeats != 0 {
		t.Errorf("expected default options for a new track, got %+v, %v", o, ok)
	}
	if err := s.SetOptions(1, 1, seq4.Options{Repeats: 2}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	s.SetTrack(1, 1, seq4.NewTrack(8))
	if o, _ := s.Options(1, 1); o.Repeats != 2 {
		t.Errorf("expected the options to survive replacing the track, got %+v", o)
	}
	s.SetTrack(1, 1, nil)
	if _, ok := s.Options(1, 1); ok || !s.Empty() {
		t.Errorf("expected the slot to be empty after setting a nil track")
	}
	if err := s.AssertValid(); err != nil {
		t.Errorf("expected a valid song, got %v", err)
	}
}

func TestSlotOutOfRange(t *testing.T) {
	s := seq4.NewEmptySong()
	if err := s.SetTrack(seq4.NumTracks, 0, seq4.NewTrack(1)); !errors.Is(err, seq4.ErrSlotOutOfRange) {
		t.Errorf("expected ErrSlotOutOfRange, got %v", err)
	}
	if err := s.SetOptions(0, -1, seq4.Options{}); !errors.Is(err, seq4.ErrSlotOutOfRange) {
		t.Errorf("expected ErrSlotOutOfRange, got %v", err)
	}
	if s.Track(0, seq4.NumSections) != nil {
		t.Errorf("expected nil for a slot out of range")
	}
}

func TestSongCopyAssignEqual(t *testing.T) {
	s := seq4.NewSongWithNote(0.5, 1, 4)
	s.SetTrack(3, 2, seq4.NewTrack(2))
	s.SetOptions(3, 2, seq4.Options{Repeats: 1})
	c := s.Copy()
	if !c.Equal(s) {
		t.Fatalf("expected the copy to be equal")
	}
	c.SetOptions(3, 2, seq4.Options{Repeats: 5})
	if c.Equal(s) {
		t.Errorf("expected different options to make the songs unequal")
	}
	if o, _ := s.Options(3, 2); o.Repeats != 1 {
		t.Errorf("modifying the copy changed the original options")
	}
	dst := seq4.NewEmptySong()
	dst.Assign(s)
	if !dst.Equal(s) {
		t.Errorf("expected an assigned song to be equal")
	}
	if dst.Track(0, 0) != s.Track(0, 0) {
		t.Errorf("expected Assign to share the tracks")
	}
	dst.SetOptions(0, 0, seq4.Options{Repeats: 3})
	if o, _ := s.Options(0, 0); o.Repeats != 0 {
		t.Errorf("expected Assign to copy the options")
	}
}

func TestSongAssertValid(t *testing.T) {
	s := seq4.NewEmptySong()
	bad := seq4.NewTrack(1)
	bad.InsertEvent(seq4.NewNote(2, 0, 1))
	s.SetTrack(2, 3, bad)
	if err := s.AssertValid(); !errors.Is(err, seq4.ErrEventsOutOfOrder) && !errors.Is(err, seq4.ErrEndNotLast) {
		t.Errorf("expected an invalid track error, got %v", err)
	}
}
