package seq4

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is the version written by Record. Version 1 files stored
// pitches as MIDI note numbers; they are migrated on load.
const SchemaVersion = 2

var ErrUnknownSchema = errors.New("unknown song schema version")

type (
	// SongRecord is the persisted form of a Song: one SlotRecord for every
	// non-empty slot, in track-major order. Empty slots are not written.
	SongRecord struct {
		Version int
		Slots   []SlotRecord `yaml:",omitempty" json:",omitempty"`
	}

	SlotRecord struct {
		Track   int
		Section int
		Repeats int `yaml:",omitempty" json:",omitempty"`
		Events  []EventRecord
	}

	// EventRecord is a flat Event. Pitch and Duration are only present for
	// notes. Note is only present in version 1 records.
	EventRecord struct {
		Type     string
		Start    float64
		Pitch    *float32 `yaml:",omitempty" json:",omitempty"`
		Duration *float64 `yaml:",omitempty" json:",omitempty"`
		Note     *int     `yaml:",omitempty" json:",omitempty"`
	}
)

// Record converts the song to its persisted form.
func (s *Song) Record() SongRecord {
	c := s.Copy()
	ret := SongRecord{Version: SchemaVersion}
	for t := 0; t < NumTracks; t++ {
		for sec := 0; sec < NumSections; sec++ {
			tr := c.tracks[t][sec]
			if tr == nil {
				continue
			}
			slot := SlotRecord{Track: t, Section: sec, Repeats: c.options[t][sec].Repeats}
			for e := range tr.Events {
				slot.Events = append(slot.Events, eventToRecord(e))
			}
			ret.Slots = append(ret.Slots, slot)
		}
	}
	return ret
}

func eventToRecord(e Event) EventRecord {
	r := EventRecord{Type: e.Type.String(), Start: e.Start}
	if e.Type == NoteEvent {
		p, d := e.Pitch, e.Duration
		r.Pitch, r.Duration = &p, &d
	}
	return r
}

// Migrate upgrades an older record to SchemaVersion in place.
func (r *SongRecord) Migrate() error {
	switch r.Version {
	case SchemaVersion:
		return nil
	case 1:
		for i := range r.Slots {
			for j := range r.Slots[i].Events {
				e := &r.Slots[i].Events[j]
				if e.Note != nil && e.Pitch == nil {
					p := SemitoneToPitch(*e.Note)
					e.Pitch = &p
				}
				e.Note = nil
			}
		}
		r.Version = SchemaVersion
		return nil
	}
	return fmt.Errorf("version %d: %w", r.Version, ErrUnknownSchema)
}

// Song builds a Song from the record, migrating it first if needed. Every
// track is checked with AssertValid.
func (r SongRecord) Song() (*Song, error) {
	if err := r.Migrate(); err != nil {
		return nil, err
	}
	s := NewEmptySong()
	for _, slot := range r.Slots {
		if !inRange(slot.Track, slot.Section) {
			return nil, fmt.Errorf("slot (%d, %d): %w", slot.Track, slot.Section, ErrSlotOutOfRange)
		}
		t := &Track{events: make([]Event, 0, len(slot.Events))}
		for i, er := range slot.Events {
			typ, err := ParseEventType(er.Type)
			if err != nil {
				return nil, fmt.Errorf("slot (%d, %d) event %d: %w", slot.Track, slot.Section, i, err)
			}
			e := Event{Type: typ, Start: er.Start}
			if typ == NoteEvent {
				if er.Pitch != nil {
					e.Pitch = *er.Pitch
				}
				if er.Duration != nil {
					e.Duration = *er.Duration
				}
			}
			// records are written in order, so appending keeps the order and
			// AssertValid below catches hand-edited files
			t.events = append(t.events, e)
		}
		if err := t.AssertValid(); err != nil {
			return nil, fmt.Errorf("slot (%d, %d): %w", slot.Track, slot.Section, err)
		}
		s.tracks[slot.Track][slot.Section] = t
		s.options[slot.Track][slot.Section] = &Options{Repeats: max(slot.Repeats, 0)}
	}
	return s, nil
}

// MarshalYAML lets yaml.v3 encode a Song directly.
func (s *Song) MarshalYAML() (interface{}, error) {
	return s.Record(), nil
}

// UnmarshalYAML lets yaml.v3 decode directly into a Song.
func (s *Song) UnmarshalYAML(value *yaml.Node) error {
	var r SongRecord
	if err := value.Decode(&r); err != nil {
		return err
	}
	song, err := r.Song()
	if err != nil {
		return err
	}
	s.Assign(song)
	return nil
}

func (s *Song) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

func (s *Song) UnmarshalJSON(data []byte) error {
	var r SongRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	song, err := r.Song()
	if err != nil {
		return err
	}
	s.Assign(song)
	return nil
}

// ReadSong reads a song file, trying first JSON and then YAML.
func ReadSong(r io.Reader) (*Song, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read song: %w", err)
	}
	s := NewEmptySong()
	if errJSON := json.Unmarshal(b, s); errJSON != nil {
		if errYaml := yaml.Unmarshal(b, s); errYaml != nil {
			return nil, fmt.Errorf("the song could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	return s, nil
}

// WriteSong writes the song as YAML, or JSON if asJSON is set.
func WriteSong(w io.Writer, s *Song, asJSON bool) error {
	var contents []byte
	var err error
	if asJSON {
		contents, err = json.MarshalIndent(s, "", "  ")
	} else {
		contents, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("could not marshal song: %w", err)
	}
	if _, err := w.Write(contents); err != nil {
		return fmt.Errorf("could not write song: %w", err)
	}
	return nil
}
