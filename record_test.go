package seq4_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/squinkylabs/seq4"
)

func fullSong() *seq4.Song {
	s := seq4.NewEmptySong()
	for tr := range seq4.NumTracks {
		for sec := range seq4.NumSections {
			t := seq4.NewTrack(float64(sec + 1))
			t.InsertEvent(seq4.NewNote(0, float32(tr)/12, 0.5))
			if sec > 0 {
				t.InsertEvent(seq4.NewNote(0.75, -1, 0.25))
			}
			s.SetTrack(tr, sec, t)
			s.SetOptions(tr, sec, seq4.Options{Repeats: tr})
		}
	}
	return s
}

func TestWriteReadSong(t *testing.T) {
	for _, asJSON := range []bool{false, true} {
		name := "YAML"
		if asJSON {
			name = "JSON"
		}
		t.Run(name, func(t *testing.T) {
			s := fullSong()
			var buf bytes.Buffer
			if err := seq4.WriteSong(&buf, s, asJSON); err != nil {
				t.Fatalf("WriteSong failed: %v", err)
			}
			got, err := seq4.ReadSong(&buf)
			if err != nil {
				t.Fatalf("ReadSong failed: %v", err)
			}
			if !got.Equal(s) {
				t.Errorf("song changed in the round trip")
			}
		})
	}
}

func TestReadEmptySong(t *testing.T) {
	var buf bytes.Buffer
	if err := seq4.WriteSong(&buf, seq4.NewEmptySong(), false); err != nil {
		t.Fatalf("WriteSong failed: %v", err)
	}
	got, err := seq4.ReadSong(&buf)
	if err != nil {
		t.Fatalf("ReadSong failed: %v", err)
	}
	if !got.Empty() {
		t.Errorf("expected an empty song")
	}
}

func TestMigrateVersion1(t *testing.T) {
	const v1 = `version: 1
slots:
  - track: 1
    section: 2
    repeats: 3
    events:
      - type: note
        start: 0
        note: 72
        duration: 1
      - type: end
        start: 4
`
	s, err := seq4.ReadSong(strings.NewReader(v1))
	if err != nil {
		t.Fatalf("ReadSong failed: %v", err)
	}
	tr := s.Track(1, 2)
	if tr == nil || tr.NoteCount() != 1 {
		t.Fatalf("expected one note in track 1 section 2")
	}
	if n := tr.At(0); n.Pitch != 1 || n.Duration != 1 {
		t.Errorf("expected C5 with duration 1, got %v", n)
	}
	if o, _ := s.Options(1, 2); o.Repeats != 3 {
		t.Errorf("expected 3 repeats, got %d", o.Repeats)
	}
	if r := s.Record(); r.Version != seq4.SchemaVersion {
		t.Errorf("expected the record to be written as version %d, got %d", seq4.SchemaVersion, r.Version)
	}
}

func TestUnknownSchema(t *testing.T) {
	r := seq4.SongRecord{Version: 99}
	if _, err := r.Song(); !errors.Is(err, seq4.ErrUnknownSchema) {
		t.Errorf("expected ErrUnknownSchema, got %v", err)
	}
	if _, err := seq4.ReadSong(strings.NewReader("{")); err == nil {
		t.Errorf("expected an error for a broken file")
	}
}

func TestInvalidRecord(t *testing.T) {
	r := seq4.SongRecord{Version: seq4.SchemaVersion, Slots: []seq4.SlotRecord{
		{Track: 0, Section: 0, Events: []seq4.EventRecord{{Type: "note", Start: 1}}},
	}}
	if _, err := r.Song(); !errors.Is(err, seq4.ErrNoEndEvent) {
		t.Errorf("expected ErrNoEndEvent, got %v", err)
	}
	r.Slots[0].Track = 7
	if _, err := r.Song(); !errors.Is(err, seq4.ErrSlotOutOfRange) {
		t.Errorf("expected ErrSlotOutOfRange, got %v", err)
	}
}

func TestWavExport(t *testing.T) {
	buf := make(seq4.AudioBuffer, 100)
	buf.Fill(func(b seq4.AudioBuffer) int {
		n := min(len(b), 30)
		for i := range n {
			b[i] = [2]float32{0.5, -2}
		}
		return n
	})
	if buf[99] != [2]float32{0.5, -2} {
		t.Errorf("expected Fill to fill the whole buffer")
	}
	wav, err := buf.Wav(true, 44100)
	if err != nil {
		t.Fatalf("Wav failed: %v", err)
	}
	if len(wav) != 44+100*4 || string(wav[:4]) != "RIFF" {
		t.Errorf("unexpected 16-bit wav of %d bytes", len(wav))
	}
	raw, _ := buf.Raw(false)
	if len(raw) != 100*8 {
		t.Errorf("expected %d bytes of raw float data, got %d", 100*8, len(raw))
	}
}
