package tracker_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/squinkylabs/seq4"
	"github.com/squinkylabs/seq4/player"
	"github.com/squinkylabs/seq4/tracker"
)

type modelFuzzState struct {
	model *tracker.Model
	file  []byte
}

type myWriteCloser struct {
	*bytes.Buffer
}

func (mwc *myWriteCloser) Close() error {
	// Noop
	return nil
}

func (s *modelFuzzState) Iterate(yield func(string, func(p string, t *testing.T)) bool, seed int) {
	tr, sec := s.model.Cursor()
	// Ints
	s.IterateInt("TrackVoices", s.model.TrackVoices().Int(), yield, seed)
	s.IterateInt("Repeats", s.model.Repeats().Int(), yield, seed)
	s.IterateInt("SelectedTrack", s.model.SelectedTrack().Int(), yield, seed)
	s.IterateInt("SelectedSection", s.model.SelectedSection().Int(), yield, seed)
	s.IterateInt("RecordQuantize", s.model.RecordQuantize().Int(), yield, seed)
	// Bools
	s.IterateBool("Playing", s.model.Playing().Bool(), yield, seed)
	// Actions
	s.IterateAction("Undo", s.model.History().Undo(), yield, seed)
	s.IterateAction("Redo", s.model.History().Redo(), yield, seed)
	s.IterateAction("TogglePlay", s.model.TogglePlay(), yield, seed)
	s.IterateAction("Rewind", s.model.Rewind(), yield, seed)
	// Commands
	note := seq4.NewNote(float64(seed%8)/2, float32(seed%25-12)/12, float64(seed%4+1)/4)
	s.IterateCommand("NewSection", tracker.NewSection{Track: tr, Section: sec, Length: float64(seed%8 + 1)}, yield)
	s.IterateCommand("InsertNote", tracker.InsertNote{Track: tr, Section: sec, Note: note}, yield)
	s.IterateCommand("DeleteNote", tracker.DeleteNote{Track: tr, Section: sec, Note: note}, yield)
	s.IterateCommand("SetLength", tracker.SetLength{Track: tr, Section: sec, Length: float64(seed%8) + 0.5}, yield)
	s.IterateCommand("Transpose", tracker.Transpose{Track: tr, Section: sec, Semitones: seed%5 - 2}, yield)
	s.IterateCommand("CopySlot", tracker.CopySlot{FromTrack: tr, FromSection: sec, ToTrack: seed % 4, ToSection: seed / 4 % 4}, yield)
	s.IterateCommand("ClearSlot", tracker.ClearSlot{Track: tr, Section: sec}, yield)
	// File reading
	if s.file != nil {
		yield("ReadSong", func(p string, t *testing.T) {
			reader := bytes.NewReader(s.file)
			readCloser := io.NopCloser(reader)
			s.model.ReadSong(readCloser)
		})
	}
	// File saving
	yield("WriteSong", func(p string, t *testing.T) {
		writer := bytes.NewBuffer(nil)
		writeCloser := &myWriteCloser{writer}
		s.model.WriteSong(writeCloser)
		s.file = writer.Bytes()
	})
}

func (s *modelFuzzState) IterateInt(name string, i tracker.Int, yield func(string, func(p string, t *testing.T)) bool, seed int) {
	r := i.Range()
	yield(name+".Set", func(p string, t *testing.T) {
		i.Set(seed%(r.Max-r.Min+10) - 5 + r.Min)
	})
	yield(name+".Value", func(p string, t *testing.T) {
		if v := i.Value(); v < r.Min || v > r.Max {
			r := i.Range()
			t.Errorf("Path: %s %s value out of range [%d,%d]: %d", p, name, r.Min, r.Max, v)
		}
	})
}

func (s *modelFuzzState) IterateAction(name string, a tracker.Action, yield func(string, func(p string, t *testing.T)) bool, seed int) {
	yield(name+".Do", func(p string, t *testing.T) {
		a.Do()
	})
}

func (s *modelFuzzState) IterateBool(name string, b tracker.Bool, yield func(string, func(p string, t *testing.T)) bool, seed int) {
	yield(name+".Set", func(p string, t *testing.T) {
		b.Set(seed%2 == 0)
	})
	yield(name+".Toggle", func(p string, t *testing.T) {
		b.Toggle()
	})
}

func (s *modelFuzzState) IterateCommand(name string, c tracker.Command, yield func(string, func(p string, t *testing.T)) bool) {
	yield(name+".Do", func(p string, t *testing.T) {
		s.model.Do(c)
	})
}

func FuzzModel(f *testing.F) {
	seed := make([]byte, 1)
	for i := range seed {
		seed[i] = byte(i)
	}
	f.Add(seed)
	f.Add([]byte{2, 40, 12, 80, 6, 3, 7, 9, 100, 4})
	f.Fuzz(func(t *testing.T, slice []byte) {
		reader := bytes.NewReader(slice)
		broker := tracker.NewBroker()
		song := seq4.NewEmptySong()
		model := tracker.NewModel(broker, song, "")
		sp := player.NewSongPlayer(song)
		closeChan := make(chan struct{})
		finished := make(chan struct{})
		go func() {
			defer close(finished)
			now := 0.0
			for {
				select {
				case <-closeChan:
					return
				case <-broker.ToPlayer:
				default:
					sp.UpdateToMetricTime(now, 1.0/64, true)
					sp.UpdateSampleCount(4)
					now += 0.01
				}
			}
		}()
		state := modelFuzzState{model: model}
		count := 0
		state.Iterate(func(n string, f func(p string, t *testing.T)) bool {
			count++
			return true
		}, 0)
		totalPath := ""
		for m, err := binary.ReadVarint(reader); err == nil; m, err = binary.ReadVarint(reader) {
			seed := int(m)
			if seed < 0 {
				seed = -seed
			}
			index := seed % count
			state.Iterate(func(n string, f func(p string, t *testing.T)) bool {
				if index == 0 {
					totalPath += n + ". "
					f(totalPath, t)
				}
				index--
				return index > 0
			}, seed)
			if err := song.AssertValid(); err != nil {
				t.Errorf("Path: %s song is invalid: %v", totalPath, err)
			}
		}
		closeChan <- struct{}{}
		<-finished
	})
}

func TestUndoRedo(t *testing.T) {
	song := seq4.NewEmptySong()
	model := tracker.NewModel(nil, song, "")
	if err := model.Do(tracker.NewSection{Track: 1, Section: 2, Length: 4}); err != nil {
		t.Fatalf("NewSection failed: %v", err)
	}
	if err := model.Do(tracker.InsertNote{Track: 1, Section: 2, Note: seq4.NewNote(1, 0, 1)}); err != nil {
		t.Fatalf("InsertNote failed: %v", err)
	}
	if got := song.Track(1, 2).NoteCount(); got != 1 {
		t.Fatalf("expected 1 note, got %d", got)
	}
	model.History().Undo().Do()
	if got := song.Track(1, 2).NoteCount(); got != 0 {
		t.Errorf("after one undo, expected 0 notes, got %d", got)
	}
	model.History().Undo().Do()
	if song.Track(1, 2) != nil {
		t.Errorf("after two undos, expected the slot to be empty")
	}
	if err := model.History().UndoLast(); !errors.Is(err, tracker.ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
	model.History().Redo().Do()
	model.History().Redo().Do()
	if tr := song.Track(1, 2); tr == nil || tr.NoteCount() != 1 {
		t.Errorf("after two redos, expected the note back")
	}
	if model.History().CanRedo() {
		t.Errorf("expected the redo stack to be empty")
	}
}

func TestNewCommandClearsRedo(t *testing.T) {
	song := seq4.NewEmptySong()
	model := tracker.NewModel(nil, song, "")
	model.Do(tracker.NewSection{Track: 0, Section: 0, Length: 4})
	model.History().Undo().Do()
	model.Do(tracker.NewSection{Track: 0, Section: 1, Length: 2})
	if model.History().CanRedo() {
		t.Errorf("a new command should clear the redo stack")
	}
}

func TestUndoSkipMergesRepeatedCommands(t *testing.T) {
	song := seq4.NewSongWithNote(0, 1, 4)
	model := tracker.NewModel(nil, song, "")
	for range 5 {
		if err := model.Do(tracker.Transpose{Track: 0, Section: 0, Semitones: 1}); err != nil {
			t.Fatalf("Transpose failed: %v", err)
		}
	}
	if got := seq4.PitchToSemitone(song.Track(0, 0).At(0).Pitch); got != 65 {
		t.Fatalf("expected semitone 65 after transposing, got %d", got)
	}
	model.History().Undo().Do()
	if got := seq4.PitchToSemitone(song.Track(0, 0).At(0).Pitch); got != 60 {
		t.Errorf("expected one undo to revert all the transposes, got semitone %d", got)
	}
}

func TestFailedCommandLeavesSongUntouched(t *testing.T) {
	song := seq4.NewSongWithNote(0, 1, 4)
	model := tracker.NewModel(nil, song, "")
	before := song.Copy()
	err := model.Do(tracker.InsertNote{Track: 2, Section: 0, Note: seq4.NewNote(0, 0, 1)})
	if !errors.Is(err, tracker.ErrEmptySlot) {
		t.Fatalf("expected ErrEmptySlot, got %v", err)
	}
	err = model.Do(tracker.InsertNote{Track: 0, Section: 0, Note: seq4.NewNote(5, 0, 1)})
	if !errors.Is(err, seq4.ErrEndNotLast) {
		t.Fatalf("expected a note past the end to be rejected, got %v", err)
	}
	if !song.Equal(before) {
		t.Errorf("failed commands changed the song")
	}
	if model.History().CanUndo() {
		t.Errorf("failed commands should not add undo steps")
	}
	errorAlerts := 0
	for _, a := range model.Alerts().Iterate {
		if a.Priority == tracker.Error {
			errorAlerts++
		}
	}
	if errorAlerts != 2 {
		t.Errorf("expected 2 error alerts, got %d", errorAlerts)
	}
}

func TestCommands(t *testing.T) {
	song := seq4.NewSongWithNote(0, 1, 4)
	model := tracker.NewModel(nil, song, "")
	t.Run("SetRepeats", func(t *testing.T) {
		if err := model.Do(tracker.SetRepeats{Track: 0, Section: 0, Repeats: 3}); err != nil {
			t.Fatal(err)
		}
		if o, _ := song.Options(0, 0); o.Repeats != 3 {
			t.Errorf("expected 3 repeats, got %d", o.Repeats)
		}
	})
	t.Run("CopySlot", func(t *testing.T) {
		if err := model.Do(tracker.CopySlot{FromTrack: 0, FromSection: 0, ToTrack: 3, ToSection: 3}); err != nil {
			t.Fatal(err)
		}
		if !song.Track(3, 3).Equal(song.Track(0, 0)) {
			t.Errorf("copied track differs")
		}
		if song.Track(3, 3) == song.Track(0, 0) {
			t.Errorf("copied track should not share the original")
		}
		if o, _ := song.Options(3, 3); o.Repeats != 3 {
			t.Errorf("expected copied options, got %+v", o)
		}
	})
	t.Run("SetLength", func(t *testing.T) {
		if err := model.Do(tracker.SetLength{Track: 3, Section: 3, Length: 0.5}); err != nil {
			t.Fatal(err)
		}
		if tr := song.Track(3, 3); tr.Length() != 0.5 || tr.NoteCount() != 1 {
			t.Errorf("expected length 0.5 with the note at 0 kept, got %g and %d notes", tr.Length(), tr.NoteCount())
		}
		if err := model.Do(tracker.SetLength{Track: 3, Section: 3, Length: 0}); !errors.Is(err, tracker.ErrInvalidLength) {
			t.Errorf("expected ErrInvalidLength, got %v", err)
		}
	})
	t.Run("DeleteNote", func(t *testing.T) {
		if err := model.Do(tracker.DeleteNote{Track: 3, Section: 3, Note: seq4.NewNote(0, 0, 1)}); err != nil {
			t.Fatal(err)
		}
		if err := model.Do(tracker.DeleteNote{Track: 3, Section: 3, Note: seq4.NewNote(0, 0, 1)}); !errors.Is(err, tracker.ErrNoSuchNote) {
			t.Errorf("expected ErrNoSuchNote, got %v", err)
		}
	})
	t.Run("ClearSlot", func(t *testing.T) {
		if err := model.Do(tracker.ClearSlot{Track: 3, Section: 3}); err != nil {
			t.Fatal(err)
		}
		if song.Track(3, 3) != nil {
			t.Errorf("expected the slot to be empty")
		}
	})
	if err := song.AssertValid(); err != nil {
		t.Errorf("song is invalid: %v", err)
	}
}

func TestReadWriteSong(t *testing.T) {
	song := seq4.NewSongWithNote(0.25, 1, 4)
	song.SetOptions(0, 0, seq4.Options{Repeats: 2})
	model := tracker.NewModel(nil, song, "")
	writer := &myWriteCloser{bytes.NewBuffer(nil)}
	if !model.WriteSong(writer) {
		t.Fatalf("WriteSong failed")
	}
	song2 := seq4.NewEmptySong()
	model2 := tracker.NewModel(nil, song2, "")
	if !model2.ReadSong(io.NopCloser(bytes.NewReader(writer.Bytes()))) {
		t.Fatalf("ReadSong failed")
	}
	if !song2.Equal(song) {
		t.Errorf("song differs after a write and read")
	}
	model2.History().Undo().Do()
	if !song2.Empty() {
		t.Errorf("expected undo to revert loading the song")
	}
	if model2.ReadSong(io.NopCloser(bytes.NewReader([]byte("{not a song")))) {
		t.Errorf("expected reading garbage to fail")
	}
}

func TestRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recovery", tracker.RecoveryFile)
	song := seq4.NewEmptySong()
	model := tracker.NewModel(nil, song, path)
	model.Do(tracker.NewSection{Track: 2, Section: 1, Length: 3})
	model.Do(tracker.InsertNote{Track: 2, Section: 1, Note: seq4.NewNote(1, -1, 0.5)})
	model.SetCursor(2, 1)
	if err := model.History().SaveRecovery(); err != nil {
		t.Fatalf("SaveRecovery failed: %v", err)
	}
	song2 := seq4.NewEmptySong()
	model2 := tracker.NewModel(nil, song2, path)
	if !song2.Equal(song) {
		t.Errorf("recovered song differs")
	}
	if tr, sec := model2.Cursor(); tr != 2 || sec != 1 {
		t.Errorf("expected cursor (2, 1), got (%d, %d)", tr, sec)
	}
	if model2.Song() != song2 {
		t.Errorf("the recovered model should keep the song it was given")
	}
}

func TestRequestSection(t *testing.T) {
	broker := tracker.NewBroker()
	model := tracker.NewModel(broker, seq4.NewEmptySong(), "")
	if err := model.RequestSection(1, 3, true); err != nil {
		t.Fatal(err)
	}
	msg, ok := tracker.TimeoutReceive(broker.ToPlayer, time.Second)
	if !ok {
		t.Fatalf("no message was sent to the player")
	}
	if req, ok := msg.(tracker.SectionRequestMsg); !ok || req != (tracker.SectionRequestMsg{Track: 1, Section: 3, Immediate: true}) {
		t.Errorf("unexpected message %#v", msg)
	}
	if err := model.RequestSection(4, 1, false); !errors.Is(err, seq4.ErrSlotOutOfRange) {
		t.Errorf("expected ErrSlotOutOfRange for track 4, got %v", err)
	}
	if err := model.RequestSection(0, 0, false); !errors.Is(err, seq4.ErrSlotOutOfRange) {
		t.Errorf("expected ErrSlotOutOfRange for section 0, got %v", err)
	}
}

func TestSetVoicesClamps(t *testing.T) {
	broker := tracker.NewBroker()
	model := tracker.NewModel(broker, seq4.NewEmptySong(), "")
	model.SetVoices(2, 99)
	msg := <-broker.ToPlayer
	if v, ok := msg.(tracker.NumVoicesMsg); !ok || v.Voices != seq4.MaxVoices || v.Track != 2 {
		t.Errorf("unexpected message %#v", msg)
	}
	model.SetCursor(2, 0)
	if got := model.TrackVoices().Int().Value(); got != seq4.MaxVoices {
		t.Errorf("expected %d voices, got %d", seq4.MaxVoices, got)
	}
}

func TestProcessMsg(t *testing.T) {
	model := tracker.NewModel(nil, seq4.NewEmptySong(), "")
	status := tracker.Status{Running: true, Time: 3.5}
	status.Sections[1] = 2
	model.ProcessMsg(tracker.MsgToModel{HasStatus: true, Status: status})
	if model.Status() != status {
		t.Errorf("status was not stored")
	}
	if !model.Playing().Value() {
		t.Errorf("expected the model to follow the running state")
	}
	model.ProcessMsg(tracker.MsgToModel{Data: tracker.Alert{Name: "Holding", Message: "track 1 holding", Priority: tracker.Warning}})
	if model.Alerts().Len() != 1 {
		t.Errorf("expected the alert to be added")
	}
}

func TestRecordingFlow(t *testing.T) {
	broker := tracker.NewBroker()
	song := seq4.NewEmptySong()
	model := tracker.NewModel(broker, song, "")
	model.SetCursor(1, 2)
	model.StartRecording().Do()
	if !model.IsRecording().Value() {
		t.Fatalf("expected to be recording")
	}
	broker.ToRecorder <- tracker.MIDINoteEvent{Frame: 5000, On: true, Note: 60, Velocity: 100}
	broker.ToRecorder <- tracker.MIDINoteEvent{Frame: 5000 + 11025, On: false, Note: 60}
	broker.ToRecorder <- tracker.MIDINoteEvent{Frame: 5000 + 22050, On: true, Note: 64, Velocity: 100}
	model.StopRecording().Do()
	select {
	case <-broker.FinishedRecorder:
	case <-time.After(3 * time.Second):
		t.Fatalf("the recorder did not finish")
	}
	msg, ok := tracker.TimeoutReceive(broker.ToModel, time.Second)
	if !ok {
		t.Fatalf("the recorder did not send the recording")
	}
	model.ProcessMsg(msg)
	tr := song.Track(1, 2)
	if tr == nil {
		t.Fatalf("expected the recording in the selected slot")
	}
	want := seq4.NewTrack(4)
	want.InsertEvent(seq4.NewNote(0, 0, 0.5))
	want.InsertEvent(seq4.NewNote(1, seq4.SemitoneToPitch(64), 3))
	if !tr.Equal(want) {
		t.Errorf("recorded track differs")
	}
}
