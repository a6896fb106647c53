package gomidi

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/squinkylabs/seq4"
	"github.com/squinkylabs/seq4/tracker"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TicksPerQuarter is the resolution of the exported MIDI files.
const TicksPerQuarter = 960

const defaultBPM = 120

type ImportOptions struct {
	Track           int     // index of the SMF track to import, -1 merges all tracks
	Channel         int     // MIDI channel to import, -1 takes all channels
	Length          float64 // length of the resulting track in quarter notes, 0 fits the file
	StepsPerQuarter int     // quantization grid; 0 means 16 steps per quarter note
}

var (
	ErrNoMetricTicks = errors.New("MIDI file does not use metric ticks")
	ErrNoSuchTrack   = errors.New("MIDI file has no such track")
)

func DefaultImportOptions() ImportOptions {
	return ImportOptions{Track: -1, Channel: -1}
}

// ReadTrack reads a Standard MIDI File and converts its notes into a track.
// The first tempo of the file rounded to 0.01 BPM, or 120 BPM if it has none,
// is returned along with the track.
func ReadTrack(r io.Reader, opts ImportOptions) (*seq4.Track, float64, error) {
	file, err := smf.ReadFrom(r)
	if err != nil {
		return nil, 0, fmt.Errorf("could not read MIDI file: %w", err)
	}
	ticks, ok := file.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, 0, ErrNoMetricTicks
	}
	bpm := float64(defaultBPM)
	if tc := file.TempoChanges(); len(tc) > 0 && tc[0].BPM > 0 {
		// the file stores microseconds per quarter note, so e.g. 90 BPM
		// comes back as 89.99995
		bpm = math.Round(tc[0].BPM*100) / 100
	}
	if opts.Track >= len(file.Tracks) {
		return nil, 0, fmt.Errorf("track %d of %d: %w", opts.Track, len(file.Tracks), ErrNoSuchTrack)
	}
	steps := opts.StepsPerQuarter
	if steps <= 0 {
		steps = 16
	}
	// The notes are collected into a Recording whose frames are ticks: with
	// SampleRate = ticks per quarter and BPM = 60, one second is one quarter.
	rec := tracker.Recording{BPM: 60, SampleRate: int(ticks.Ticks4th())}
	for i, track := range file.Tracks {
		if opts.Track >= 0 && i != opts.Track {
			continue
		}
		var tick int
		for _, ev := range track {
			tick += int(ev.Delta)
			rec.TotalFrames = max(rec.TotalFrames, tick)
			var channel, key, velocity uint8
			switch {
			case ev.Message.GetNoteStart(&channel, &key, &velocity):
				rec.Events = append(rec.Events, tracker.MIDINoteEvent{Frame: tick, On: true, Channel: int(channel), Note: key, Velocity: velocity})
			case ev.Message.GetNoteEnd(&channel, &key):
				rec.Events = append(rec.Events, tracker.MIDINoteEvent{Frame: tick, Channel: int(channel), Note: key})
			}
		}
	}
	sort.SliceStable(rec.Events, func(i, j int) bool { return rec.Events[i].Frame < rec.Events[j].Frame })
	t, err := rec.Track(opts.Length, steps, opts.Channel)
	if err != nil {
		return nil, 0, fmt.Errorf("could not convert MIDI file: %w", err)
	}
	return t, bpm, nil
}

type tickEvent struct {
	tick uint32
	on   bool
	key  uint8
}

// WriteTrack writes the track as a Standard MIDI File of type 1: a tempo track
// followed by one track with the notes on the given channel. Pitches are
// rounded to the nearest semitone and clamped to the MIDI note range.
func WriteTrack(w io.Writer, t *seq4.Track, bpm float64, channel uint8) error {
	if err := t.AssertValid(); err != nil {
		return fmt.Errorf("could not export track: %w", err)
	}
	if bpm <= 0 {
		bpm = defaultBPM
	}
	toTick := func(q float64) uint32 {
		return uint32(math.Round(max(q, 0) * TicksPerQuarter))
	}
	var events []tickEvent
	for ev := range t.Events {
		if ev.Type != seq4.NoteEvent {
			continue
		}
		key := uint8(max(min(seq4.PitchToSemitone(ev.Pitch), 127), 0))
		on := toTick(ev.Start)
		events = append(events,
			tickEvent{tick: on, on: true, key: key},
			tickEvent{tick: max(toTick(ev.Start+ev.Duration), on+1), key: key})
	}
	// a note off goes before a note on at the same tick, so that a repeated
	// key is released before it is triggered again
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})
	file := smf.New()
	file.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := file.Add(tempo); err != nil {
		return fmt.Errorf("error adding tempo track: %w", err)
	}
	var notes smf.Track
	var last uint32
	for _, e := range events {
		if e.on {
			notes.Add(e.tick-last, midi.NoteOn(channel, e.key, 100))
		} else {
			notes.Add(e.tick-last, midi.NoteOff(channel, e.key))
		}
		last = e.tick
	}
	end := toTick(t.Length())
	notes.Close(max(end, last) - last)
	if err := file.Add(notes); err != nil {
		return fmt.Errorf("error adding note track: %w", err)
	}
	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}
