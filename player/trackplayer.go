package player

import (
	"fmt"
	"math"
	"strings"

	"github.com/squinkylabs/seq4"
)

type (
	// State of a TrackPlayer. A player that is waiting for the end of its
	// section to switch to a requested one is Playing with a non-zero
	// NextSectionRequest.
	State int

	// CVInputMode tells how the auxiliary CV input of a track controls
	// section changes.
	CVInputMode int

	// Notice is an anomaly the player recovered from on its own. They are
	// reported through the Notify callback, which is called on the audio
	// thread and must not block.
	Notice int

	// TrackPlayer plays one track of a song: it walks the events of the
	// current section against the metric time, allocates voices and keeps
	// track of section changes and repeats. All the methods are meant to be
	// called from the audio thread only.
	TrackPlayer struct {
		song       *seq4.Song
		trackIndex int

		state        State
		section      int // 1-based, 0 = none
		startSection int // 1-based
		nextSection  int // pending request, 0 = none
		requestDir   int // +1 or -1, the direction to search if the request is empty
		immediate    int // pending immediate switch, 0 = none

		track       *seq4.Track // the track being walked; nil if the slot is empty
		cursor      int         // index of the next event of track
		loopStart   float64     // metric time of the start of the current iteration
		repeatCount int
		eoc         bool

		voices voices
		cvMode CVInputMode

		Notify func(track int, n Notice)
	}
)

const (
	Idle State = iota
	Playing
	Holding
)

const (
	Poly CVInputMode = iota
	Next
	Previous
	Set
	NumCVInputModes
)

const (
	// NoticeTrackRemoved: the slot being played was emptied; gates were
	// forced off.
	NoticeTrackRemoved Notice = iota
	// NoticeHolding: the repeats of the section ran out and no other section
	// was requested.
	NoticeHolding
	// NoticeLockBusy: the song was being edited, so event processing was
	// skipped for one tick.
	NoticeLockBusy
)

// DefaultRetriggerTime is the length of the gate gap between back-to-back
// notes on the same voice, in seconds.
const DefaultRetriggerTime = 0.001

// RetriggerSamples returns DefaultRetriggerTime in samples at the given rate.
func RetriggerSamples(rate int) int {
	return int(DefaultRetriggerTime*float64(rate) + 0.5)
}

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Holding:
		return "holding"
	}
	return "idle"
}

var cvInputModeNames = [NumCVInputModes]string{"poly", "next", "previous", "set"}

func (m CVInputMode) String() string {
	if m < 0 || m >= NumCVInputModes {
		return fmt.Sprintf("CVInputMode(%d)", int(m))
	}
	return cvInputModeNames[m]
}

func ParseCVInputMode(s string) (CVInputMode, error) {
	for i, n := range cvInputModeNames {
		if strings.EqualFold(s, n) {
			return CVInputMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown CV input mode %q", s)
}

func (n Notice) String() string {
	switch n {
	case NoticeTrackRemoved:
		return "track removed while playing"
	case NoticeHolding:
		return "repeats exhausted, holding"
	case NoticeLockBusy:
		return "song busy, tick skipped"
	}
	return fmt.Sprintf("Notice(%d)", int(n))
}

// NewTrackPlayer returns an idle player of one voice, starting from section
// 1, with a retrigger gap for the default sample rate.
func NewTrackPlayer(song *seq4.Song, trackIndex int) *TrackPlayer {
	p := &TrackPlayer{}
	p.init(song, trackIndex)
	return p
}

func (p *TrackPlayer) init(song *seq4.Song, trackIndex int) {
	p.song = song
	p.trackIndex = trackIndex
	p.startSection = 1
	p.voices.setNum(1)
	p.SetRetriggerSamples(RetriggerSamples(44100))
}

// SetSong binds the player to a song and hard resets it.
func (p *TrackPlayer) SetSong(song *seq4.Song, trackIndex int) {
	p.song = song
	p.trackIndex = trackIndex
	p.Reset(true, true)
}

// SetNextSectionRequest queues a switch to section (1-based) at the end of the
// current section. 0 cancels a pending request. If the section is empty when
// the switch happens, the next non-empty section after it is used instead.
func (p *TrackPlayer) SetNextSectionRequest(section int) {
	p.setRequest(section, 1)
}

// RequestNext queues the section after the current one, wrapping.
func (p *TrackPlayer) RequestNext() {
	p.setRequest(wrapSection(p.requestBase()+1), 1)
}

// RequestPrevious queues the section before the current one, wrapping.
func (p *TrackPlayer) RequestPrevious() {
	p.setRequest(wrapSection(p.requestBase()-1), -1)
}

func (p *TrackPlayer) requestBase() int {
	if p.nextSection != 0 {
		return p.nextSection
	}
	return max(p.section, 1)
}

func (p *TrackPlayer) setRequest(section, dir int) {
	if section < 0 || section > seq4.NumSections {
		return
	}
	p.nextSection = section
	p.requestDir = dir
}

func wrapSection(s int) int {
	return (s-1+seq4.NumSections)%seq4.NumSections + 1
}

// RequestImmediate switches to section on the next update, restarting it at
// the current time instead of waiting for the end of the current section.
func (p *TrackPlayer) RequestImmediate(section int) {
	if section < 1 || section > seq4.NumSections {
		return
	}
	p.immediate = section
	p.nextSection = 0
}

func (p *TrackPlayer) NextSectionRequest() int { return p.nextSection }

// Section returns the section being played, 1-based; 0 means none.
func (p *TrackPlayer) Section() int { return p.section }

// SetStartSection sets the section played after a hard reset, 1-based.
func (p *TrackPlayer) SetStartSection(section int) {
	p.startSection = max(min(section, seq4.NumSections), 1)
}

func (p *TrackPlayer) StartSection() int { return p.startSection }

// SetNumVoices sets the polyphony, clamped to 1..16. Voices at index n and
// above are forced off; sounding voices below n are left alone.
func (p *TrackPlayer) SetNumVoices(n int) { p.voices.setNum(n) }

func (p *TrackPlayer) NumVoices() int { return p.voices.n }

// SetRetriggerSamples sets the width of the gate gap between back-to-back
// notes on the same voice. It is recomputed from the sample rate.
func (p *TrackPlayer) SetRetriggerSamples(n int) { p.voices.retrigger = max(n, 0) }

func (p *TrackPlayer) SetAssignMode(m AssignMode) { p.voices.mode = m }

func (p *TrackPlayer) SetCVInputMode(m CVInputMode) {
	p.cvMode = max(min(m, NumCVInputModes-1), Poly)
}

func (p *TrackPlayer) CVInputMode() CVInputMode { return p.cvMode }

func (p *TrackPlayer) State() State { return p.state }

// RepeatCount is the number of times the current section has looped since it
// was entered.
func (p *TrackPlayer) RepeatCount() int { return p.repeatCount }

// EndOfCycle returns true once after the end of the current section was
// reached while playing.
func (p *TrackPlayer) EndOfCycle() bool {
	ret := p.eoc
	p.eoc = false
	return ret
}

// Gate returns the gate voltage of voice v: 10V or 0V.
func (p *TrackPlayer) Gate(v int) float32 {
	if v < 0 || v >= p.voices.n || !p.voices.v[v].output() {
		return 0
	}
	return gateHigh
}

// CV returns the pitch of the last note of voice v.
func (p *TrackPlayer) CV(v int) float32 {
	if v < 0 || v >= len(p.voices.v) {
		return 0
	}
	return p.voices.v[v].cv
}

// ActiveVoices returns the number of voices with the gate high.
func (p *TrackPlayer) ActiveVoices() int { return p.voices.active() }

// AllGatesOff ends all the notes immediately.
func (p *TrackPlayer) AllGatesOff() { p.voices.allOff() }

// UpdateSampleCount tells the player that samples output samples have been
// emitted. It counts down the retrigger gaps.
func (p *TrackPlayer) UpdateSampleCount(samples int) {
	p.voices.updateSampleCount(samples)
}

// Reset stops the player. A hard reset also forgets the current section and
// any pending request, so playback resumes from the start section; a soft
// reset restarts the current section. clearGates ends all sounding notes.
func (p *TrackPlayer) Reset(hard, clearGates bool) {
	if clearGates {
		p.voices.allOff()
	}
	p.state = Idle
	p.track = nil
	p.cursor = 0
	p.loopStart = 0
	p.repeatCount = 0
	p.eoc = false
	p.immediate = 0
	if hard {
		p.section = 0
		p.nextSection = 0
		p.voices.next = 0
	}
}

// UpdateToMetricTime advances the player to metric time now, firing all the
// events up to and including now. It takes the song lock without blocking;
// if the lock is busy the events are not walked during this update.
func (p *TrackPlayer) UpdateToMetricTime(now, metricTimePerClock float64, running bool) {
	if p.song == nil {
		p.updateUnlocked(now, running)
		return
	}
	if !p.song.TryLock() {
		p.notify(NoticeLockBusy)
		p.updateUnlocked(now, running)
		return
	}
	defer p.song.Unlock()
	p.updateLocked(now, metricTimePerClock, running)
}

// updateUnlocked is the part of an update that does not look at the song.
func (p *TrackPlayer) updateUnlocked(now float64, running bool) {
	if !running {
		p.voices.allOff()
		return
	}
	p.voices.releaseUpTo(now)
}

// updateLocked must be called with the song lock held.
func (p *TrackPlayer) updateLocked(now, metricTimePerClock float64, running bool) {
	if !running {
		p.voices.allOff()
		return
	}
	if p.immediate != 0 {
		p.switchImmediately(now, metricTimePerClock)
	}
	if p.state == Idle {
		p.start(now, metricTimePerClock)
	}
	p.walk(now)
	p.voices.releaseUpTo(now)
}

func (p *TrackPlayer) start(now, metricTimePerClock float64) {
	section := p.section
	if section == 0 {
		section = p.startSection
	}
	p.enter(p.resolve(section, 1), alignToClock(now, metricTimePerClock))
}

func (p *TrackPlayer) switchImmediately(now, metricTimePerClock float64) {
	section := p.resolve(p.immediate, 1)
	p.immediate = 0
	if section == 0 {
		return
	}
	p.voices.allOff()
	p.enter(section, alignToClock(now, metricTimePerClock))
}

// enter starts playing section from its beginning at metric time at.
func (p *TrackPlayer) enter(section int, at float64) {
	p.state = Playing
	p.section = section
	p.repeatCount = 0
	p.loopStart = at
	p.cursor = 0
	p.track = p.slot(section)
}

func alignToClock(t, metricTimePerClock float64) float64 {
	if metricTimePerClock <= 0 {
		return t
	}
	return math.Floor(t/metricTimePerClock) * metricTimePerClock
}

func (p *TrackPlayer) slot(section int) *seq4.Track {
	if p.song == nil || section < 1 {
		return nil
	}
	return p.song.TrackLocked(p.trackIndex, section-1)
}

// resolve returns section if it has a track, or else the first non-empty
// section found stepping in dir, wrapping. Returns section if all are empty,
// or 0 if section is 0.
func (p *TrackPlayer) resolve(section, dir int) int {
	if section == 0 {
		return 0
	}
	for i := 0; i < seq4.NumSections; i++ {
		s := wrapSection(section + i*dir)
		if p.slot(s) != nil {
			return s
		}
	}
	return section
}

func (p *TrackPlayer) walk(now float64) {
	for {
		t := p.slot(p.section)
		if t == nil {
			if p.track != nil {
				p.voices.allOff()
				p.notify(NoticeTrackRemoved)
			}
			p.track = nil
			return
		}
		if t != p.track {
			// the slot was edited: continue from the same position in the new
			// track
			p.track = t
			p.cursor = t.SeekAfter(now - p.loopStart)
		}
		if t.Len() == 0 || t.Length() <= 0 {
			p.voices.allOff()
			return
		}
		if p.cursor >= t.Len() {
			p.cursor = t.Len() - 1
		}
		ev := t.At(p.cursor)
		at := p.loopStart + ev.Start
		if at > now {
			return
		}
		switch ev.Type {
		case seq4.NoteEvent:
			p.cursor++
			if p.state == Holding {
				continue
			}
			p.voices.releaseBefore(at, now)
			p.voices.noteOn(ev.Pitch, at, ev.Duration, now)
		case seq4.EndEvent:
			p.endOfSection(at, ev.Start, now)
		default:
			p.cursor++
		}
	}
}

// endOfSection is called when the end event of the current section at
// metric time at has been reached.
func (p *TrackPlayer) endOfSection(at, length, now float64) {
	if p.state == Playing {
		p.eoc = true
	}
	next := at
	if next+length <= now {
		// far behind, e.g. after the track was swapped for a shorter one
		next = now
	}
	if p.nextSection != 0 {
		section := p.resolve(p.nextSection, p.requestDir)
		p.nextSection = 0
		if p.slot(section) != nil {
			p.enter(section, next)
			return
		}
	}
	p.loopStart = next
	p.cursor = 0
	if p.state == Holding {
		return
	}
	o, _ := p.song.OptionsLocked(p.trackIndex, p.section-1)
	if o.Repeats == 0 || p.repeatCount < o.Repeats {
		p.repeatCount++
		return
	}
	p.state = Holding
	p.notify(NoticeHolding)
}

func (p *TrackPlayer) notify(n Notice) {
	if p.Notify != nil {
		p.Notify(p.trackIndex, n)
	}
}
