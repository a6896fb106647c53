package tracker

import (
	"errors"
	"math"

	"github.com/squinkylabs/seq4"
)

// Recording is a list of MIDI note events with frames counted from the start
// of the recording. It can be converted into a Track.
type Recording struct {
	BPM         float64 // hosts allow bpms as floats so for accurate reconstruction, keep it as float for recording
	SampleRate  int
	Events      []MIDINoteEvent
	TotalFrames int
}

var (
	ErrInvalidQuantize = errors.New("quantize must be a positive number of steps per quarter note")
	ErrInvalidTempo    = errors.New("recording has no tempo or sample rate")
)

// Track converts the recording into a track of the given length in quarter
// notes. Note starts and ends are rounded to 1/stepsPerQuarter quarter notes.
// Only the events of the given MIDI channel are used; channel -1 takes all.
// A note on is ended by the next note off or note on of the same key; notes
// that are never released last until the end of the track. If length is not
// positive, the track is made long enough for the whole recording, rounded up
// to full bars of 4 quarter notes.
func (r *Recording) Track(length float64, stepsPerQuarter, channel int) (*seq4.Track, error) {
	if stepsPerQuarter <= 0 {
		return nil, ErrInvalidQuantize
	}
	if r.BPM <= 0 || r.SampleRate <= 0 {
		return nil, ErrInvalidTempo
	}
	if length <= 0 {
		total := r.frameToStep(r.TotalFrames, stepsPerQuarter)
		bars := max((total+4*stepsPerQuarter-1)/(4*stepsPerQuarter), 1)
		length = float64(bars * 4)
	}
	lengthSteps := int(math.Round(length * float64(stepsPerQuarter)))
	t := seq4.NewTrack(length)
	for i, m := range r.Events {
		if !m.On || (channel >= 0 && m.Channel != channel) {
			continue
		}
		endFrame := math.MaxInt
		for j := i + 1; j < len(r.Events); j++ {
			if r.Events[j].Channel == m.Channel && r.Events[j].Note == m.Note {
				endFrame = r.Events[j].Frame
				break
			}
		}
		start := r.frameToStep(m.Frame, stepsPerQuarter)
		if start >= lengthSteps {
			continue
		}
		end := lengthSteps
		if endFrame != math.MaxInt {
			end = min(r.frameToStep(endFrame, stepsPerQuarter), lengthSteps)
		}
		// a note always lasts at least one step
		end = max(end, start+1)
		q := float64(stepsPerQuarter)
		t.InsertEvent(seq4.NewNote(float64(start)/q, seq4.SemitoneToPitch(int(m.Note)), float64(end-start)/q))
	}
	if err := t.AssertValid(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Recording) frameToStep(frame, stepsPerQuarter int) int {
	return int(float64(frame)/float64(r.SampleRate)/60*r.BPM*float64(stepsPerQuarter) + 0.5)
}

// RunRecorder collects the note events sent to broker.ToRecorder into a
// Recording, with frames counted from the first event. When CloseRecorder is
// signalled, the recording is sent to the model and FinishedRecorder is
// closed. Event frames are absolute frames of the audio stream.
func RunRecorder(broker *Broker, bpm float64, sampleRate int) {
	closeRecorder, finished := broker.CloseRecorder, broker.FinishedRecorder
	rec := &Recording{BPM: bpm, SampleRate: sampleRate}
	first := -1
	add := func(ev MIDINoteEvent) {
		if first < 0 {
			first = ev.Frame
		}
		ev.Frame -= first
		rec.Events = append(rec.Events, ev)
		rec.TotalFrames = max(rec.TotalFrames, ev.Frame)
	}
	for {
		select {
		case ev := <-broker.ToRecorder:
			add(ev)
		case <-closeRecorder:
		drain:
			for {
				select {
				case ev := <-broker.ToRecorder:
					add(ev)
				default:
					break drain
				}
			}
			if len(rec.Events) > 0 {
				TrySend(broker.ToModel, MsgToModel{Data: rec})
			}
			close(finished)
			return
		}
	}
}
