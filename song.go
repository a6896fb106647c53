package seq4

import (
	"errors"
	"fmt"
	"sync"
)

const (
	NumTracks   = 4
	NumSections = 4
	MaxVoices   = 16
)

type (
	// Song is a fixed grid of NumTracks tracks times NumSections sections.
	// Each slot holds an optional Track and, for every non-nil track, its
	// Options. The slot arrays are guarded by an embedded mutex: the editing
	// side takes it (through SetTrack) while swapping a track pointer and the
	// audio thread takes it with TryLock while reading the pointers, so that
	// a track is never swapped in the middle of a read. The lock is only ever
	// held for O(1) pointer work.
	Song struct {
		mu      sync.Mutex
		tracks  [NumTracks][NumSections]*Track
		options [NumTracks][NumSections]*Options
	}

	// Options are the per-slot playback options. Repeats is the number of
	// times the section loops after its first pass before the player holds;
	// 0 means loop forever.
	Options struct {
		Repeats int
	}
)

var (
	ErrSlotOutOfRange = errors.New("track or section index out of range")
	ErrSlotMismatch   = errors.New("track and options slots do not match")
)

// NewEmptySong returns a song with all slots empty.
func NewEmptySong() *Song {
	return &Song{}
}

// NewSongWithNote returns a song with one section on track 0 containing a
// single note, which is convenient for tests and as the default song.
func NewSongWithNote(pitch float32, duration, length float64) *Song {
	t := NewTrack(length)
	t.InsertEvent(NewNote(0, pitch, duration))
	s := NewEmptySong()
	s.SetTrack(0, 0, t)
	return s
}

func inRange(track, section int) bool {
	return track >= 0 && track < NumTracks && section >= 0 && section < NumSections
}

// Track returns the track in a slot, or nil if the slot is empty or out of
// range. Takes the lock; do not call from the audio thread.
func (s *Song) Track(track, section int) *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.TrackLocked(track, section)
}

// Options returns a copy of the slot options; ok is false for an empty slot.
func (s *Song) Options(track, section int) (o Options, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.OptionsLocked(track, section)
}

// TryLock tries to acquire the slot lock without blocking. The audio thread
// uses it together with TrackLocked and Unlock.
func (s *Song) TryLock() bool {
	return s.mu.TryLock()
}

// Unlock releases a lock acquired with TryLock.
func (s *Song) Unlock() {
	s.mu.Unlock()
}

// TrackLocked is like Track but assumes the caller holds the lock.
func (s *Song) TrackLocked(track, section int) *Track {
	if !inRange(track, section) {
		return nil
	}
	return s.tracks[track][section]
}

// OptionsLocked is like Options but assumes the caller holds the lock.
func (s *Song) OptionsLocked(track, section int) (Options, bool) {
	if !inRange(track, section) || s.options[track][section] == nil {
		return Options{}, false
	}
	return *s.options[track][section], true
}

// SetTrack replaces the track in a slot wholesale. A nil track empties the
// slot. The slot keeps its options if it already had a track, otherwise it
// gets default options. This is the only way to change the slots of a song,
// and it takes the lock internally.
func (s *Song) SetTrack(track, section int, t *Track) error {
	if !inRange(track, section) {
		return fmt.Errorf("SetTrack(%d, %d): %w", track, section, ErrSlotOutOfRange)
	}
	var opts *Options
	if t != nil {
		opts = &Options{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != nil && s.options[track][section] != nil {
		opts = s.options[track][section]
	}
	s.tracks[track][section] = t
	s.options[track][section] = opts
	return nil
}

// SetOptions sets the options of a non-empty slot.
func (s *Song) SetOptions(track, section int, o Options) error {
	if !inRange(track, section) {
		return fmt.Errorf("SetOptions(%d, %d): %w", track, section, ErrSlotOutOfRange)
	}
	if o.Repeats < 0 {
		o.Repeats = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracks[track][section] == nil {
		return fmt.Errorf("SetOptions(%d, %d): slot is empty", track, section)
	}
	// replace instead of mutate, the audio thread might be reading the old one
	s.options[track][section] = &o
	return nil
}

// Empty reports if no slot of the song has a track.
func (s *Song) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.tracks {
		for _, tr := range s.tracks[t] {
			if tr != nil {
				return false
			}
		}
	}
	return true
}

// AssertValid checks the slot invariant and the validity of every track.
func (s *Song) AssertValid() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := 0; t < NumTracks; t++ {
		for sec := 0; sec < NumSections; sec++ {
			tr, o := s.tracks[t][sec], s.options[t][sec]
			if (tr == nil) != (o == nil) {
				return fmt.Errorf("slot (%d, %d): %w", t, sec, ErrSlotMismatch)
			}
			if tr == nil {
				continue
			}
			if err := tr.AssertValid(); err != nil {
				return fmt.Errorf("slot (%d, %d): %w", t, sec, err)
			}
		}
	}
	return nil
}

// Copy makes a deep copy of the song. The copy has its own lock.
func (s *Song) Copy() *Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := &Song{}
	for t := range s.tracks {
		for sec, tr := range s.tracks[t] {
			if tr == nil {
				continue
			}
			ret.tracks[t][sec] = tr.Copy()
			o := *s.options[t][sec]
			ret.options[t][sec] = &o
		}
	}
	return ret
}

// Assign replaces all the slots of s with those of src, taking the lock once.
// Tracks are shared, not copied; they are immutable once in a song.
func (s *Song) Assign(src *Song) {
	src.mu.Lock()
	tracks, options := src.tracks, src.options
	src.mu.Unlock()
	for t := range options {
		for sec, o := range options[t] {
			if o != nil {
				c := *o
				options[t][sec] = &c
			}
		}
	}
	s.mu.Lock()
	s.tracks, s.options = tracks, options
	s.mu.Unlock()
}

// Equal reports if both songs have equal tracks and options in every slot.
func (s *Song) Equal(s2 *Song) bool {
	a, b := s.Copy(), s2.Copy()
	for t := range a.tracks {
		for sec := range a.tracks[t] {
			if !a.tracks[t][sec].Equal(b.tracks[t][sec]) {
				return false
			}
			oa, ob := a.options[t][sec], b.options[t][sec]
			if (oa == nil) != (ob == nil) || (oa != nil && *oa != *ob) {
				return false
			}
		}
	}
	return true
}
