package tracker

import (
	"fmt"
	"os"

	"github.com/squinkylabs/seq4"
)

// Model implements the mutable state of the editing side of the sequencer.
//
// The song is shared with the audio thread: the Model and the sequencer hold
// the same *seq4.Song. The Model never mutates a track that is in the song;
// every edit is a Command that builds new tracks and swaps them in with
// Song.SetTrack, which takes the song lock. Everything else is communicated
// through the Broker.
type (
	// modelData is the part of the model that gets saved to the recovery file
	modelData struct {
		Song                 *seq4.Song
		Track                int
		Section              int
		Octave               int
		FilePath             string
		ChangedSinceSave     bool
		RecoveryFilePath     string
		ChangedSinceRecovery bool
	}

	Model struct {
		d      modelData
		broker *Broker
		alerts Alerts
		status Status

		playing   bool
		recording bool
		record    RecordSettings
		voices    [NumTracks]int

		prevUndoKind    string
		undoSkipCounter int
		undoStack       []*seq4.Song
		redoStack       []*seq4.Song
	}

	// RecordSettings tell how a Recording is turned into a track when the
	// recorder finishes. The track goes to the selected slot.
	RecordSettings struct {
		BPM             float64
		SampleRate      int
		StepsPerQuarter int
		Channel         int     // -1 records all channels
		Length          float64 // 0 or less sizes the track to the recording
	}
)

const NumTracks = seq4.NumTracks

const maxUndo = 64
const RecoveryFile = ".seq4_recovery"

// undoSkip tells how many consecutive commands of the same kind are merged
// into one undo step.
var undoSkip = map[string]int{
	"Transpose":  10,
	"SetRepeats": 10,
}

// NewModel returns a model editing song. If a recovery file exists at
// recoveryFilePath, its contents replace the song.
func NewModel(broker *Broker, song *seq4.Song, recoveryFilePath string) *Model {
	m := &Model{broker: broker}
	m.d.Song = song
	m.d.Octave = 4
	m.d.RecoveryFilePath = recoveryFilePath
	m.record = RecordSettings{BPM: 120, SampleRate: 44100, StepsPerQuarter: 4, Channel: -1}
	for i := range m.voices {
		m.voices[i] = 1
	}
	if recoveryFilePath != "" {
		if b, err := os.ReadFile(recoveryFilePath); err == nil {
			m.History().UnmarshalRecovery(b)
		}
	}
	return m
}

func (m *Model) Song() *seq4.Song { return m.d.Song }
func (m *Model) Alerts() *Alerts  { return &m.alerts }
func (m *Model) Status() Status   { return m.status }
func (m *Model) Broker() *Broker  { return m.broker }

func (m *Model) FilePath() string               { return m.d.FilePath }
func (m *Model) SetFilePath(value string)       { m.d.FilePath = value }
func (m *Model) ChangedSinceSave() bool         { return m.d.ChangedSinceSave }
func (m *Model) RecordSettings() RecordSettings { return m.record }

// SetRecordSettings changes how the next recording is converted. Cannot be
// changed while recording.
func (m *Model) SetRecordSettings(s RecordSettings) {
	if m.recording {
		return
	}
	m.record = s
}

// Cursor returns the selected slot, 0-based.
func (m *Model) Cursor() (track, section int) { return m.d.Track, m.d.Section }

func (m *Model) SetCursor(track, section int) {
	m.d.Track = max(min(track, NumTracks-1), 0)
	m.d.Section = max(min(section, seq4.NumSections-1), 0)
}

// Do runs the command against the song. A snapshot of the song is taken
// before, so that the command can be undone; if the command fails, the song
// is restored from the snapshot and the error is both returned and shown as
// an alert.
func (m *Model) Do(c Command) error {
	snapshot := m.d.Song.Copy()
	if err := c.Do(m.d.Song); err != nil {
		m.d.Song.Assign(snapshot)
		err = fmt.Errorf("%s: %w", c.Name(), err)
		m.alerts.Add(err.Error(), Error)
		return err
	}
	m.saveUndo(c.Name(), undoSkip[c.Name()], snapshot)
	return nil
}

// ProcessMsg handles a message from the sequencer or the recorder. Should be
// called for every message received on Broker.ToModel.
func (m *Model) ProcessMsg(msg MsgToModel) {
	if msg.HasStatus {
		m.status = msg.Status
		m.playing = msg.Status.Running
	}
	switch e := msg.Data.(type) {
	case Alert:
		m.alerts.AddAlert(e)
	case *Recording:
		m.recording = false
		t, err := e.Track(m.record.Length, m.record.StepsPerQuarter, m.record.Channel)
		if err != nil {
			m.alerts.Add(fmt.Sprintf("Could not convert the recording: %v", err), Error)
			return
		}
		if m.Do(SetTrack{Track: m.d.Track, Section: m.d.Section, T: t}) != nil {
			return
		}
		m.alerts.AddNamed("Recording", fmt.Sprintf("Recorded %d notes to track %d, section %d", t.NoteCount(), m.d.Track+1, m.d.Section+1), Info)
	}
}

// RequestSection asks the sequencer to switch a track to a section, 1-based.
// The switch happens at the end of the current section, or right away if
// immediate is set.
func (m *Model) RequestSection(track, section int, immediate bool) error {
	if track < 0 || track >= NumTracks || section < 1 || section > seq4.NumSections {
		return fmt.Errorf("RequestSection(%d, %d): %w", track, section, seq4.ErrSlotOutOfRange)
	}
	m.sendToPlayer(SectionRequestMsg{Track: track, Section: section, Immediate: immediate})
	return nil
}

// SetVoices sets the polyphony of a track, clamped to 1..MaxVoices.
func (m *Model) SetVoices(track, voices int) {
	if track < 0 || track >= NumTracks {
		return
	}
	m.voices[track] = max(min(voices, seq4.MaxVoices), 1)
	m.sendToPlayer(NumVoicesMsg{Track: track, Voices: m.voices[track]})
}

func (m *Model) Voices(track int) int {
	if track < 0 || track >= NumTracks {
		return 0
	}
	return m.voices[track]
}

func (m *Model) sendToPlayer(msg any) {
	if m.broker == nil {
		return
	}
	if !TrySend(m.broker.ToPlayer, msg) {
		m.alerts.AddNamed("PlayerBusy", "The sequencer is not keeping up with messages", Warning)
	}
}

func (m *Model) saveUndo(kind string, undoSkipping int, snapshot *seq4.Song) {
	m.d.ChangedSinceSave = true
	m.d.ChangedSinceRecovery = true
	if m.prevUndoKind == kind && m.undoSkipCounter < undoSkipping {
		m.undoSkipCounter++
		return
	}
	m.prevUndoKind = kind
	m.undoSkipCounter = 0
	m.undoStack = append(m.undoStack, snapshot)
	m.redoStack = m.redoStack[:0]
	if len(m.undoStack) > maxUndo {
		m.undoStack = m.undoStack[len(m.undoStack)-maxUndo:]
	}
}
