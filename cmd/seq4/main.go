package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/squinkylabs/seq4"
	"github.com/squinkylabs/seq4/clock"
	"github.com/squinkylabs/seq4/composite"
	"github.com/squinkylabs/seq4/tracker"
	"github.com/squinkylabs/seq4/version"
)

// options are the persistent flags shared by the commands
type options struct {
	sampleRate int
	tempo      float64
	clock      string
	voices     int
	repeats    int
}

var errExternalClock = errors.New("the external clock needs a host; use x1 .. x64")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "seq4",
		Short: "Four-track section sequencer",
		Long: `seq4 plays songs of four tracks with four sections each. Every track
loops its current section; sections are switched at the end of a loop from
the MIDI keyboard (C4 to D#5 select the sixteen sections) or on the fly.

Songs are .yml or .json files; sections can be imported from and exported to
standard MIDI files.`,
		Version:       version.VersionOrHash,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	f := root.PersistentFlags()
	f.IntVar(&o.sampleRate, "sample-rate", clock.DefaultSampleRate, "Sample rate of the audio in Hz")
	f.Float64Var(&o.tempo, "tempo", clock.DefaultTempo, "Tempo in beats per minute")
	f.StringVar(&o.clock, "clock", "x4", "Clock rate, x1 .. x64 clocks per quarter note")
	f.IntVar(&o.voices, "voices", 1, "Number of voices per track, 1 .. 16")
	f.IntVar(&o.repeats, "repeats", -1, "Override the repeat count of every section; 0 loops forever, negative keeps the song's own")
	root.AddCommand(
		newPlayCmd(o),
		newRenderCmd(o),
		newInfoCmd(),
		newImportCmd(),
		newExportCmd(),
		newVersionCmd(),
	)
	return root
}

func (o *options) validate() error {
	if o.sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", o.sampleRate)
	}
	if o.tempo <= 0 {
		return fmt.Errorf("invalid tempo %g", o.tempo)
	}
	if o.voices < 1 || o.voices > seq4.MaxVoices {
		return fmt.Errorf("voices must be between 1 and %d, got %d", seq4.MaxVoices, o.voices)
	}
	return nil
}

// setParams sets the knobs of the module from the flags. The sequencer is
// started running.
func (o *options) setParams(ports *composite.Ports) error {
	if err := o.validate(); err != nil {
		return err
	}
	rate, source, err := clock.ParseSetting(o.clock)
	if err != nil {
		return err
	}
	if source == clock.External {
		return errExternalClock
	}
	ports.Params[composite.ParamClockRate] = float32(rate)
	ports.Params[composite.ParamClockSource] = float32(source)
	ports.Params[composite.ParamTempo] = float32(o.tempo)
	for t := range seq4.NumTracks {
		ports.Params[composite.ParamNumVoices0+composite.ParamID(t)] = float32(o.voices)
	}
	ports.Params[composite.ParamRunning] = 1
	return nil
}

// applyRepeats overrides the repeats of all sections, if asked to.
func (o *options) applyRepeats(m *tracker.Model) error {
	if o.repeats < 0 {
		return nil
	}
	for t := range seq4.NumTracks {
		for s := range seq4.NumSections {
			if m.Song().Track(t, s) == nil {
				continue
			}
			if err := m.Do(tracker.SetRepeats{Track: t, Section: s, Repeats: o.repeats}); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadModel reads a song file into a new model.
func loadModel(path string, broker *tracker.Broker) (*tracker.Model, error) {
	m := tracker.NewModel(broker, seq4.NewEmptySong(), "")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", path, err)
	}
	if !m.ReadSong(f) {
		return nil, fmt.Errorf("could not read %v: %w", path, alertError(m))
	}
	return m, nil
}

// loadOrCreateModel is loadModel, but starts an empty song if the file does
// not exist yet.
func loadOrCreateModel(path string) (*tracker.Model, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		m := tracker.NewModel(nil, seq4.NewEmptySong(), "")
		m.SetFilePath(path)
		return m, nil
	}
	return loadModel(path, nil)
}

func saveModel(m *tracker.Model, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create directory %v: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %v: %w", path, err)
	}
	if !m.WriteSong(f) {
		return fmt.Errorf("could not write %v: %w", path, alertError(m))
	}
	return nil
}

// alertError turns the most important alert of the model into an error.
func alertError(m *tracker.Model) error {
	for _, a := range m.Alerts().Iterate {
		return errors.New(a.Message)
	}
	return errors.New("unknown error")
}

// slotFlags are the 1-based --track and --section flags of a command.
type slotFlags struct {
	track, section int
}

func (s *slotFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&s.track, "track", "t", 1, "Track, 1 .. 4")
	cmd.Flags().IntVarP(&s.section, "section", "s", 1, "Section, 1 .. 4")
}

func (s slotFlags) indexes() (track, section int, err error) {
	if s.track < 1 || s.track > seq4.NumTracks || s.section < 1 || s.section > seq4.NumSections {
		return 0, 0, fmt.Errorf("track %d, section %d: %w", s.track, s.section, seq4.ErrSlotOutOfRange)
	}
	return s.track - 1, s.section - 1, nil
}

func trimExt(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
