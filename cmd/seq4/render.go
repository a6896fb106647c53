package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/squinkylabs/seq4"
	"github.com/squinkylabs/seq4/composite"
	"github.com/squinkylabs/seq4/monitor"
)

type renderFlags struct {
	directory string
	stdout    bool
	rawOut    bool
	wavOut    bool
	pcm       bool
	quarters  float64
	duration  time.Duration
	gain      float32
}

const renderChunk = 1024

var errEmptySong = errors.New("the song has no sections to render")

func newRenderCmd(o *options) *cobra.Command {
	r := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render <song> [song ...]",
		Short: "Render songs offline into .wav or .raw files",
		Long: `Render songs offline, with the tracks made audible by simple oscillators.
By default, one loop of the longest start section is rendered into a .wav file
in the working directory.

Examples:
  seq4 render song.yml
  seq4 render -r -c -o out --quarters 32 song.yml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !r.rawOut && !r.wavOut {
				r.wavOut = true // if the user gives nothing to output, then the default behaviour is a .wav file
			}
			var errs []error
			for _, path := range args {
				if err := renderFile(cmd, o, r, path); err != nil {
					errs = append(errs, fmt.Errorf("could not process file %v: %w", path, err))
				}
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVarP(&r.directory, "output", "o", "", "Directory where to output all files; the working directory by default")
	cmd.Flags().BoolVarP(&r.stdout, "stdout", "S", false, "Do not write files; write to standard output instead")
	cmd.Flags().BoolVarP(&r.rawOut, "raw", "r", false, "Output the rendered song as .raw file")
	cmd.Flags().BoolVarP(&r.wavOut, "wav", "w", false, "Output the rendered song as .wav file")
	cmd.Flags().BoolVarP(&r.pcm, "pcm", "c", false, "Convert audio to 16-bit signed PCM instead of float32")
	cmd.Flags().Float64Var(&r.quarters, "quarters", 0, "Length to render in quarter notes")
	cmd.Flags().DurationVarP(&r.duration, "duration", "d", 0, "Length to render in time; overrides --quarters")
	cmd.Flags().Float32Var(&r.gain, "gain", 1, "Gain of the mix")
	return cmd
}

func renderFile(cmd *cobra.Command, o *options, r *renderFlags, path string) error {
	m, err := loadModel(path, nil)
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
	seconds := r.duration.Seconds()
	if seconds <= 0 {
		quarters := r.quarters
		if quarters <= 0 {
			if quarters = startLength(m.Song()); quarters <= 0 {
				return errEmptySong
			}
		}
		seconds = quarters * 60 / o.tempo
	}
	seq := composite.New(ports, nil)
	seq.SetSong(m.Song())
	mon := monitor.New(seq, ports, nil, nil, o.sampleRate)
	mon.SetGain(r.gain)
	buffer := make(seq4.AudioBuffer, int(seconds*float64(o.sampleRate)+0.5))
	buffer.Fill(func(b seq4.AudioBuffer) int {
		n := min(len(b), renderChunk)
		mon.Process(b[:n])
		return n
	})
	output := func(extension string, contents []byte) error {
		if r.stdout {
			_, err := cmd.OutOrStdout().Write(contents)
			return err
		}
		dir := r.directory
		if dir == "" {
			var err error
			if dir, err = os.Getwd(); err != nil {
				return fmt.Errorf("could not get working directory, specify the output directory explicitly: %w", err)
			}
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %w", dir, err)
		}
		f := filepath.Join(dir, trimExt(path)+extension)
		if err := os.WriteFile(f, contents, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %w", f, err)
		}
		return nil
	}
	if r.rawOut {
		raw, err := buffer.Raw(r.pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw file: %w", err)
		}
		if err := output(".raw", raw); err != nil {
			return fmt.Errorf("error outputting .raw file: %w", err)
		}
	}
	if r.wavOut {
		wav, err := buffer.Wav(r.pcm, o.sampleRate)
		if err != nil {
			return fmt.Errorf("could not generate .wav file: %w", err)
		}
		if err := output(".wav", wav); err != nil {
			return fmt.Errorf("error outputting .wav file: %w", err)
		}
	}
	return nil
}

// startLength returns the length of the longest start section.
func startLength(song *seq4.Song) (ret float64) {
	for t := range seq4.NumTracks {
		if tr := song.Track(t, 0); tr != nil {
			ret = max(ret, tr.Length())
		}
	}
	return
}
