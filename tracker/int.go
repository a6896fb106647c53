package tracker

import "github.com/squinkylabs/seq4"

type (
	Int struct {
		IntData
	}

	IntData interface {
		Value() int
		Range() intRange

		setValue(int)
	}

	intRange struct {
		Min, Max int
	}

	TrackVoices     Model
	Repeats         Model
	SelectedTrack   Model
	SelectedSection Model
	RecordQuantize  Model
)

func (v Int) Add(delta int) (ok bool) {
	return v.Set(v.Value() + delta)
}

func (v Int) Set(value int) (ok bool) {
	r := v.Range()
	value = r.Clamp(value)
	if value == v.Value() || value < r.Min || value > r.Max {
		return false
	}
	v.setValue(value)
	return true
}

func (r intRange) Clamp(value int) int {
	return max(min(value, r.Max), r.Min)
}

// Model methods

func (m *Model) TrackVoices() *TrackVoices         { return (*TrackVoices)(m) }
func (m *Model) Repeats() *Repeats                 { return (*Repeats)(m) }
func (m *Model) SelectedTrack() *SelectedTrack     { return (*SelectedTrack)(m) }
func (m *Model) SelectedSection() *SelectedSection { return (*SelectedSection)(m) }
func (m *Model) RecordQuantize() *RecordQuantize   { return (*RecordQuantize)(m) }

// TrackVoicesInt is the polyphony of the selected track.

func (v *TrackVoices) Int() Int           { return Int{v} }
func (v *TrackVoices) Value() int         { return v.voices[v.d.Track] }
func (v *TrackVoices) setValue(value int) { (*Model)(v).SetVoices(v.d.Track, value) }
func (v *TrackVoices) Range() intRange    { return intRange{1, seq4.MaxVoices} }

// RepeatsInt is the repeat count of the selected slot. Changing it is an
// undoable command.

func (v *Repeats) Int() Int { return Int{v} }
func (v *Repeats) Value() int {
	o, _ := v.d.Song.Options(v.d.Track, v.d.Section)
	return o.Repeats
}
func (v *Repeats) setValue(value int) {
	(*Model)(v).Do(SetRepeats{Track: v.d.Track, Section: v.d.Section, Repeats: value})
}
func (v *Repeats) Range() intRange {
	if v.d.Song.Track(v.d.Track, v.d.Section) == nil {
		return intRange{0, 0}
	}
	return intRange{0, 99}
}

// SelectedTrackInt

func (v *SelectedTrack) Int() Int           { return Int{v} }
func (v *SelectedTrack) Value() int         { return v.d.Track }
func (v *SelectedTrack) setValue(value int) { v.d.Track = value }
func (v *SelectedTrack) Range() intRange    { return intRange{0, NumTracks - 1} }

// SelectedSectionInt

func (v *SelectedSection) Int() Int           { return Int{v} }
func (v *SelectedSection) Value() int         { return v.d.Section }
func (v *SelectedSection) setValue(value int) { v.d.Section = value }
func (v *SelectedSection) Range() intRange    { return intRange{0, seq4.NumSections - 1} }

// RecordQuantizeInt is the number of recording steps per quarter note.

func (v *RecordQuantize) Int() Int           { return Int{v} }
func (v *RecordQuantize) Value() int         { return v.record.StepsPerQuarter }
func (v *RecordQuantize) setValue(value int) { v.record.StepsPerQuarter = value }
func (v *RecordQuantize) Range() intRange {
	if v.recording {
		return intRange{v.record.StepsPerQuarter, v.record.StepsPerQuarter}
	}
	return intRange{1, 32}
}
