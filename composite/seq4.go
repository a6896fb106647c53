// Package composite is the real-time entry point of the sequencer. Seq4 ties
// the clock and the song player to the ports of the host and is run once per
// sample on the audio thread.
package composite

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/squinkylabs/seq4"
	"github.com/squinkylabs/seq4/clock"
	"github.com/squinkylabs/seq4/dsp"
	"github.com/squinkylabs/seq4/player"
	"github.com/squinkylabs/seq4/tracker"
)

type Seq4 struct {
	ports  PortAccess
	broker *tracker.Broker

	song    atomic.Pointer[seq4.Song] // set from any thread with SetSong
	current *seq4.Song                // the song the player is bound to
	toggle  atomic.Bool

	clock  *clock.Clock
	player *player.SongPlayer

	divider       dsp.Divider // runs the expensive part every decimation samples
	statusDivider dsp.Divider // counts ticks between status messages
	eoc           dsp.PulseGenerator
	eocSamples    int

	params      [NumParams]float32
	paramsValid bool

	running    bool // the run state when the run input is not connected
	isRunning  bool // the effective run state of the last tick
	modTrigs   [seq4.NumTracks][3]dsp.SchmittTrigger
	setSection [seq4.NumTracks][2]int // last section selected by CV in Set mode / Poly channel 2
	selectTrig [seq4.MaxVoices]dsp.SchmittTrigger

	// alerts are boxed once in New so that sending them does not allocate
	removedAlerts [seq4.NumTracks]tracker.MsgToModel
	holdingAlerts [seq4.NumTracks]tracker.MsgToModel
	lockAlert     tracker.MsgToModel
}

const (
	decimation = 4
	// statusInterval is the number of ticks between status messages
	statusInterval = 64
	eocTime        = 0.001 // seconds
	gateHigh       = 10
)

// New returns a sequencer reading and writing ports, bound to an empty song.
// Requests from the model arrive through broker.ToPlayer; status and alerts
// are sent to broker.ToModel. broker can be nil.
func New(ports PortAccess, broker *tracker.Broker) *Seq4 {
	s := &Seq4{
		ports:  ports,
		broker: broker,
		clock:  clock.New(),
	}
	s.current = seq4.NewEmptySong()
	s.song.Store(s.current)
	s.player = player.NewSongPlayer(s.current)
	s.player.SetNotify(s.notify)
	for t := range seq4.NumTracks {
		s.removedAlerts[t] = alertMsg(fmt.Sprintf("TrackRemoved%d", t), fmt.Sprintf("Track %d: %v", t+1, player.NoticeTrackRemoved), tracker.Warning)
		s.holdingAlerts[t] = alertMsg(fmt.Sprintf("Holding%d", t), fmt.Sprintf("Track %d: %v", t+1, player.NoticeHolding), tracker.Info)
	}
	s.lockAlert = alertMsg("LockBusy", "Song was busy, updates were skipped", tracker.Warning)
	s.divider.SetDivisor(decimation)
	s.statusDivider.SetDivisor(statusInterval)
	s.SetSampleRate(clock.DefaultSampleRate)
	s.clock.ResetRequest()
	return s
}

// SetSampleRate recomputes everything that is measured in samples. Must not
// be called concurrently with Process.
func (s *Seq4) SetSampleRate(rate int) {
	rate = max(rate, 1)
	s.clock.Setup(s.clock.Rate(), s.clock.Tempo(), 1/float64(rate))
	s.player.SetRetriggerSamples(player.RetriggerSamples(rate))
	s.eocSamples = max(int(eocTime*float64(rate)+0.5), 1)
}

// SetSong replaces the song played. It can be called from any goroutine; the
// sequencer picks the new song up on its next tick and resets.
func (s *Seq4) SetSong(song *seq4.Song) {
	if song == nil {
		song = seq4.NewEmptySong()
	}
	s.song.Store(song)
}

func (s *Seq4) Song() *seq4.Song { return s.song.Load() }

// ToggleRunStop flips the internal run state on the next tick. It can be
// called from any goroutine. Has no audible effect while the run input is
// connected.
func (s *Seq4) ToggleRunStop() { s.toggle.Store(true) }

// Running returns the run state as of the last tick.
func (s *Seq4) Running() bool { return s.isRunning }

// Player returns the song player, for inspection from the audio thread.
func (s *Seq4) Player() *player.SongPlayer { return s.player }

// Clock returns the clock, for inspection from the audio thread.
func (s *Seq4) Clock() *clock.Clock { return s.clock }

// Process runs one sample.
func (s *Seq4) Process() {
	if s.divider.Step() {
		s.tick()
	}
	s.writeOutputs()
	s.player.UpdateSampleCount(1)
}

func (s *Seq4) tick() {
	s.processMessages()
	if song := s.song.Load(); song != s.current {
		s.current = song
		s.player.SetSong(song)
		s.clock.ResetRequest()
	}
	s.applyParams()
	if s.toggle.Swap(false) {
		s.running = !s.running
	}
	running := s.running
	if s.ports.InputChannels(InputRun) > 0 {
		running = s.ports.Input(InputRun, 0) > dsp.TriggerHigh
	}
	s.isRunning = running
	res := s.clock.Update(decimation, s.ports.Input(InputClock, 0), running, s.ports.Input(InputReset, 0))
	if res.DidReset {
		s.player.Reset(true, true)
	}
	immediate := s.ports.Param(ParamTriggerImmediate) > 0.5
	s.processModInputs(immediate)
	s.processSelectInput(immediate)
	s.player.UpdateToMetricTime(res.TotalElapsedTime, s.clock.MetricTimePerClock(), running)
	if s.player.EndOfCycle() {
		s.eoc.Trigger(s.eocSamples)
	}
	if s.statusDivider.Step() {
		s.sendStatus(res.TotalElapsedTime)
	}
}

func (s *Seq4) processMessages() {
	if s.broker == nil {
		return
	}
loop:
	for { // process new message
		select {
		case msg := <-s.broker.ToPlayer:
			switch m := msg.(type) {
			case tracker.SectionRequestMsg:
				if m.Track < 0 || m.Track >= seq4.NumTracks {
					continue
				}
				if m.Immediate {
					s.player.Track(m.Track).RequestImmediate(m.Section)
				} else {
					s.player.SetNextSectionRequest(m.Track, m.Section)
				}
			case tracker.ResetMsg:
				if m.Hard {
					s.clock.ResetRequest()
				} else {
					s.player.Reset(false, true)
				}
			case tracker.NumVoicesMsg:
				s.player.SetNumVoices(m.Track, m.Voices)
			case tracker.RunMsg:
				s.running = m.Running
			case *seq4.Song:
				s.SetSong(m)
			default:
				// ignore unknown messages
			}
		default:
			break loop
		}
	}
}

// applyParams applies the params that changed since the last tick, so that
// settings changed by messages stick until the knob is moved.
func (s *Seq4) applyParams() {
	for id := ParamID(0); id < NumParams; id++ {
		v := s.ports.Param(id)
		if s.paramsValid && v == s.params[id] {
			continue
		}
		s.params[id] = v
		s.applyParam(id, v)
	}
	s.paramsValid = true
}

func (s *Seq4) applyParam(id ParamID, v float32) {
	switch {
	case id == ParamClockRate:
		rate := clock.Rate(clampRound(v, 0, int(clock.NumRates)-1))
		s.clock.Setup(rate, s.clock.Tempo(), s.clock.SampleTime())
	case id == ParamClockSource:
		s.clock.SetSource(clock.Source(clampRound(v, 0, int(clock.External))))
	case id == ParamTempo:
		tempo := math.Max(math.Min(float64(v), 999), 1)
		s.clock.Setup(s.clock.Rate(), tempo, s.clock.SampleTime())
	case id == ParamRunning:
		s.running = v > 0.5
	case id >= ParamNumVoices0 && id <= ParamNumVoices3:
		s.player.SetNumVoices(int(id-ParamNumVoices0), clampRound(v, 1, seq4.MaxVoices))
	case id >= ParamCVMode0 && id <= ParamCVMode3:
		s.player.SetCVInputMode(int(id-ParamCVMode0), player.CVInputMode(clampRound(v, 0, int(player.NumCVInputModes)-1)))
	case id == ParamAssignMode:
		s.player.SetAssignMode(player.AssignMode(clampRound(v, 0, int(player.Lowest))))
	}
}

func clampRound(v float32, lo, hi int) int {
	return max(min(int(math.Round(float64(v))), hi), lo)
}

// processModInputs turns the per-track mod inputs into section requests,
// according to the CV input mode of each track.
func (s *Seq4) processModInputs(immediate bool) {
	for t := 0; t < seq4.NumTracks; t++ {
		id := InputMod0 + InputID(t)
		channels := s.ports.InputChannels(id)
		if channels == 0 {
			continue
		}
		tp := s.player.Track(t)
		switch tp.CVInputMode() {
		case player.Poly:
			if s.modTrigs[t][0].Process(s.ports.Input(id, 0)) {
				s.step(t, 1, immediate)
			}
			if channels > 1 && s.modTrigs[t][1].Process(s.ports.Input(id, 1)) {
				s.step(t, -1, immediate)
			}
			if channels > 2 {
				s.setFromCV(t, 1, s.ports.Input(id, 2), immediate)
			}
		case player.Next:
			if s.modTrigs[t][0].Process(s.ports.Input(id, 0)) {
				s.step(t, 1, immediate)
			}
		case player.Previous:
			if s.modTrigs[t][0].Process(s.ports.Input(id, 0)) {
				s.step(t, -1, immediate)
			}
		case player.Set:
			s.setFromCV(t, 0, s.ports.Input(id, 0), immediate)
		}
	}
}

// setFromCV requests section round(cv) when it changes and is in 1..4.
func (s *Seq4) setFromCV(t, slot int, cv float32, immediate bool) {
	section := int(math.Round(float64(cv)))
	if section == s.setSection[t][slot] {
		return
	}
	s.setSection[t][slot] = section
	if section >= 1 && section <= seq4.NumSections {
		s.request(t, section, immediate)
	}
}

// neighbour returns the section after (dir = 1) or before (dir = -1) the one
// a track is heading to, wrapping.
func neighbour(tp *player.TrackPlayer, dir int) int {
	base := tp.NextSectionRequest()
	if base == 0 {
		base = max(tp.Section(), 1)
	}
	return (base-1+dir+seq4.NumSections)%seq4.NumSections + 1
}

// step requests the next (dir = 1) or previous (dir = -1) section.
func (s *Seq4) step(t, dir int, immediate bool) {
	tp := s.player.Track(t)
	switch {
	case immediate:
		tp.RequestImmediate(neighbour(tp, dir))
	case dir < 0:
		tp.RequestPrevious()
	default:
		tp.RequestNext()
	}
}

func (s *Seq4) request(t, section int, immediate bool) {
	if immediate {
		s.player.Track(t).RequestImmediate(section)
		return
	}
	s.player.SetNextSectionRequest(t, section)
}

// processSelectInput handles the select CV/gate pair: on a rising gate, the
// semitone of the CV relative to C of the select octave picks a track and a
// section, four sections per track starting from C.
func (s *Seq4) processSelectInput(immediate bool) {
	gates := s.ports.InputChannels(InputSelectGate)
	cvs := s.ports.InputChannels(InputSelectCV)
	octave := float32(clampRound(s.ports.Param(ParamSelectOctave), 0, 9))
	for c := 0; c < gates; c++ {
		if !s.selectTrig[c].Process(s.ports.Input(InputSelectGate, c)) {
			continue
		}
		cv := s.ports.Input(InputSelectCV, min(c, max(cvs-1, 0)))
		k := int(math.Round(float64((cv - (octave - 4)) * 12)))
		if k < 0 || k >= seq4.NumTracks*seq4.NumSections {
			continue
		}
		s.request(k/seq4.NumSections, k%seq4.NumSections+1, immediate)
	}
}

func (s *Seq4) writeOutputs() {
	for t := 0; t < seq4.NumTracks; t++ {
		tp := s.player.Track(t)
		n := tp.NumVoices()
		cv, gate := OutputCV0+OutputID(t), OutputGate0+OutputID(t)
		s.ports.SetOutputChannels(cv, n)
		s.ports.SetOutputChannels(gate, n)
		for v := 0; v < n; v++ {
			s.ports.SetOutput(cv, v, tp.CV(v))
			s.ports.SetOutput(gate, v, tp.Gate(v))
		}
	}
	var eoc float32
	if s.eoc.Process() {
		eoc = gateHigh
	}
	s.ports.SetOutputChannels(OutputEOC, 1)
	s.ports.SetOutput(OutputEOC, 0, eoc)
	var light float32
	if s.isRunning {
		light = 1
	}
	s.ports.SetLight(LightRun, light)
}

func (s *Seq4) notify(track int, n player.Notice) {
	switch n {
	case player.NoticeTrackRemoved:
		s.sendAlert(s.removedAlerts[track])
	case player.NoticeHolding:
		s.sendAlert(s.holdingAlerts[track])
	}
}

func alertMsg(name, message string, priority tracker.AlertPriority) tracker.MsgToModel {
	return tracker.MsgToModel{Data: tracker.Alert{Name: name, Message: message, Priority: priority}}
}

func (s *Seq4) sendAlert(msg tracker.MsgToModel) {
	if s.broker == nil {
		return
	}
	tracker.TrySend(s.broker.ToModel, msg)
}

func (s *Seq4) sendStatus(now float64) {
	if s.player.LockMisses() > 0 {
		s.sendAlert(s.lockAlert)
	}
	if s.broker == nil {
		return
	}
	st := tracker.Status{Running: s.isRunning, Time: now}
	for t := 0; t < seq4.NumTracks; t++ {
		tp := s.player.Track(t)
		st.Sections[t] = tp.Section()
		st.Requests[t] = tp.NextSectionRequest()
		st.ActiveVoices[t] = tp.ActiveVoices()
		st.Repeats[t] = tp.RepeatCount()
		st.Holding[t] = tp.State() == player.Holding
	}
	tracker.TrySend(s.broker.ToModel, tracker.MsgToModel{HasStatus: true, Status: st})
}
