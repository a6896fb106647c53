package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/squinkylabs/seq4/gomidi"
	"github.com/squinkylabs/seq4/tracker"
)

func newImportCmd() *cobra.Command {
	var slot slotFlags
	opts := gomidi.DefaultImportOptions()
	var repeats int
	cmd := &cobra.Command{
		Use:   "import <song> <midi-file>",
		Short: "Import a standard MIDI file into a section of a song",
		Long: `Import the notes of a standard MIDI file into a section of a song. The
song is created if it does not exist. Note times are quantized to the grid
given by --quantize.

Examples:
  seq4 import song.yml bass.mid --track 2 --section 1
  seq4 import song.yml drums.mid -t 4 -s 2 --channel 9 --length 8`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, section, err := slot.indexes()
			if err != nil {
				return err
			}
			m, err := loadOrCreateModel(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("could not open %v: %w", args[1], err)
			}
			defer f.Close()
			t, bpm, err := gomidi.ReadTrack(f, opts)
			if err != nil {
				return fmt.Errorf("%v: %w", args[1], err)
			}
			if err := m.Do(tracker.SetTrack{Track: track, Section: section, T: t}); err != nil {
				return err
			}
			if err := m.Do(tracker.SetRepeats{Track: track, Section: section, Repeats: repeats}); err != nil {
				return err
			}
			if err := saveModel(m, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d notes, %g quarter notes (file tempo %g BPM)\n", sectionLabel(track+1, section+1), t.NoteCount(), t.Length(), bpm)
			return nil
		},
	}
	slot.register(cmd)
	cmd.Flags().IntVar(&opts.Track, "midi-track", -1, "Index of the MIDI file track to import; -1 merges all tracks")
	cmd.Flags().IntVar(&opts.Channel, "channel", -1, "MIDI channel to import, 0 .. 15; -1 takes all channels")
	cmd.Flags().Float64Var(&opts.Length, "length", 0, "Length of the section in quarter notes; 0 fits the file in full bars")
	cmd.Flags().IntVarP(&opts.StepsPerQuarter, "quantize", "q", 16, "Steps per quarter note")
	cmd.Flags().IntVar(&repeats, "section-repeats", 0, "Repeats of the imported section; 0 loops forever")
	return cmd
}

func newExportCmd() *cobra.Command {
	var slot slotFlags
	var channel uint8
	var tempo float64
	cmd := &cobra.Command{
		Use:   "export <song> <midi-file>",
		Short: "Export a section of a song as a standard MIDI file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, section, err := slot.indexes()
			if err != nil {
				return err
			}
			m, err := loadModel(args[0], nil)
			if err != nil {
				return err
			}
			if channel > 15 {
				return fmt.Errorf("invalid MIDI channel %d", channel)
			}
			t := m.Song().Track(track, section)
			if t == nil {
				return fmt.Errorf("%s: %w", sectionLabel(track+1, section+1), tracker.ErrEmptySlot)
			}
			f, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("could not create %v: %w", args[1], err)
			}
			if err := gomidi.WriteTrack(f, t, tempo, channel); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	slot.register(cmd)
	cmd.Flags().Uint8Var(&channel, "channel", 0, "MIDI channel of the notes, 0 .. 15")
	cmd.Flags().Float64Var(&tempo, "bpm", 120, "Tempo written to the file")
	return cmd
}
