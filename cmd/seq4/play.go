package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/squinkylabs/seq4/composite"
	"github.com/squinkylabs/seq4/monitor"
	"github.com/squinkylabs/seq4/oto"
	"github.com/squinkylabs/seq4/tracker"
)

type playFlags struct {
	duration  time.Duration
	midiIn    string
	immediate bool
	octave    int
	record    bool
	quantize  int
	slot      slotFlags
}

func newPlayCmd(o *options) *cobra.Command {
	p := &playFlags{}
	cmd := &cobra.Command{
		Use:   "play <song>",
		Short: "Play a song through the default audio device",
		Long: `Play a song until interrupted. Notes from a MIDI input select the
sections: with the default octave, C4 to D#4 select the sections of track 1,
E4 to G4 track 2 and so on.

With --record, the notes played on the MIDI input are recorded into the
section given by --track and --section and the song is saved when playback
stops.

Examples:
  seq4 play song.yml
  seq4 play song.yml --midi-in "USB MIDI" --immediate
  seq4 play song.yml --midi-in "*" --record --track 2 --section 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), o, p, args[0])
		},
	}
	cmd.Flags().DurationVarP(&p.duration, "duration", "d", 0, "Stop after this long; 0 plays until interrupted")
	cmd.Flags().StringVar(&p.midiIn, "midi-in", "", "Open the first MIDI input whose name starts with this; \"*\" takes the first input")
	cmd.Flags().BoolVar(&p.immediate, "immediate", false, "Switch sections immediately instead of at the end of the loop")
	cmd.Flags().IntVar(&p.octave, "octave", 4, "Octave of the key selecting track 1, section 1")
	cmd.Flags().BoolVar(&p.record, "record", false, "Record the MIDI input into a section")
	cmd.Flags().IntVarP(&p.quantize, "quantize", "q", 4, "Steps per quarter note when recording")
	p.slot.register(cmd)
	return cmd
}

func runPlay(ctx context.Context, o *options, p *playFlags, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	broker := tracker.NewBroker()
	m, err := loadModel(path, broker)
	if err != nil {
		return err
	}
	if err := o.applyRepeats(m); err != nil {
		return err
	}
	ports := composite.NewPorts()
	if err := o.setParams(ports); err != nil {
		return err
	}
	ports.Params[composite.ParamSelectOctave] = float32(p.octave)
	if p.immediate {
		ports.Params[composite.ParamTriggerImmediate] = 1
	}
	track, section, err := p.slot.indexes()
	if err != nil {
		return err
	}
	seq := composite.New(ports, broker)
	seq.SetSong(m.Song())
	midiContext := newMIDIContext(o.sampleRate)
	defer midiContext.Close()
	if p.midiIn != "" {
		input, ok := tracker.OpenMIDIInput(midiContext, p.midiIn, p.midiIn == "*")
		if !ok {
			return fmt.Errorf("could not open MIDI input %q (MIDI support: %v)", p.midiIn, midiContext.Support())
		}
		log.Printf("MIDI input: %v", input)
	}
	mon := monitor.New(seq, ports, broker, midiContext, o.sampleRate)
	audioContext, err := oto.NewContext(o.sampleRate)
	if err != nil {
		return err
	}
	defer audioContext.Close()
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()
	if p.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.duration)
		defer cancel()
	}
	if p.record {
		m.SetCursor(track, section)
		m.SetRecordSettings(tracker.RecordSettings{
			BPM:             o.tempo,
			SampleRate:      o.sampleRate,
			StepsPerQuarter: p.quantize,
			Channel:         -1,
		})
		m.StartRecording().Do()
	}
	output := audioContext.Play(mon.Process)
	modelLoop(ctx, m)
	output.Close()
	if peak, ok := mon.Peak(); ok {
		log.Printf("peak level: %.1f dB / %.1f dB", peak.Integrated[0], peak.Integrated[1])
	}
	if !p.record {
		return nil
	}
	m.StopRecording().Do()
	select {
	case <-broker.FinishedRecorder:
	case <-time.After(3 * time.Second):
		return fmt.Errorf("recorder did not finish")
	}
	for {
		msg, ok := tracker.TimeoutReceive(broker.ToModel, 100*time.Millisecond)
		if !ok {
			break
		}
		m.ProcessMsg(msg)
	}
	logAlerts(m)
	if !m.ChangedSinceSave() {
		log.Printf("nothing recorded")
		return nil
	}
	return saveModel(m, path)
}

// modelLoop handles the messages of the sequencer until ctx is done.
func modelLoop(ctx context.Context, m *tracker.Model) {
	const interval = 100 * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var sections [tracker.NumTracks]int
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.Broker().ToModel:
			m.ProcessMsg(msg)
		case <-ticker.C:
			st := m.Status()
			for t, sec := range st.Sections {
				if sec != sections[t] && sec > 0 {
					log.Printf("%s at %.2f quarter notes", sectionLabel(t+1, sec), st.Time)
				}
			}
			sections = st.Sections
			logAlerts(m)
			m.Alerts().Update(interval)
		}
	}
}

var lastAlert string

func logAlerts(m *tracker.Model) {
	for _, a := range m.Alerts().Iterate {
		if a.Message != lastAlert {
			log.Printf("%v: %v", a.Priority, a.Message)
			lastAlert = a.Message
		}
		return
	}
}
