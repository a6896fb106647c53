package main

import (
	"fmt"
	"math"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/squinkylabs/seq4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	songInfo struct {
		Name     string
		Sections int
		Notes    int
		Tracks   [seq4.NumTracks][seq4.NumSections]sectionInfo
	}

	sectionInfo struct {
		Empty   bool
		Length  float64
		Notes   int
		Repeats int
		Lowest  string
		Highest string
	}
)

const infoTemplate = `{{ .Sections }} {{ if eq .Sections 1 }}section{{ else }}sections{{ end }}, {{ .Notes }} {{ if eq .Notes 1 }}note{{ else }}notes{{ end }}
{{- range $t, $track := .Tracks }}

{{ label (printf "track %d" (add1 $t)) }}
{{- range $s, $sec := $track }}
  {{ printf "%-10s" (label (printf "section %d:" (add1 $s))) }}
  {{- if $sec.Empty }} empty
  {{- else }} {{ $sec.Length }} quarter notes, {{ $sec.Notes }} {{ if eq $sec.Notes 1 }}note{{ else }}notes{{ end }}
    {{- if gt $sec.Notes 0 }} ({{ $sec.Lowest }}{{ if ne $sec.Lowest $sec.Highest }} .. {{ $sec.Highest }}{{ end }}){{ end }}
    {{- if eq $sec.Repeats 0 }}, loops forever{{ else }}, plays {{ add1 $sec.Repeats }} times{{ end }}
  {{- end }}
{{- end }}
{{- end }}
`

var titleCaser = cases.Title(language.English)

var infoTmpl = template.Must(template.New("info").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{"label": titleCaser.String}).
	Parse(infoTemplate))

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <song> [song ...]",
		Short: "Print a summary of songs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, path := range args {
				m, err := loadModel(path, nil)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render(trimExt(path)))
				if err := infoTmpl.Execute(cmd.OutOrStdout(), summarize(trimExt(path), m.Song())); err != nil {
					return fmt.Errorf("could not print info: %w", err)
				}
			}
			return nil
		},
	}
}

func summarize(name string, song *seq4.Song) songInfo {
	info := songInfo{Name: name}
	for t := range seq4.NumTracks {
		for s := range seq4.NumSections {
			tr := song.Track(t, s)
			if tr == nil {
				info.Tracks[t][s].Empty = true
				continue
			}
			opts, _ := song.Options(t, s)
			sec := sectionInfo{Length: tr.Length(), Notes: tr.NoteCount(), Repeats: opts.Repeats}
			low, high := float32(math.Inf(1)), float32(math.Inf(-1))
			for ev := range tr.Events {
				if ev.Type == seq4.NoteEvent {
					low, high = min(low, ev.Pitch), max(high, ev.Pitch)
				}
			}
			if sec.Notes > 0 {
				sec.Lowest, sec.Highest = seq4.PitchName(low), seq4.PitchName(high)
			}
			info.Tracks[t][s] = sec
			info.Sections++
			info.Notes += sec.Notes
		}
	}
	return info
}

// sectionLabel returns e.g. "Track 2, Section 3" for 1-based indexes.
func sectionLabel(track, section int) string {
	return titleCaser.String(fmt.Sprintf("track %d, section %d", track, section))
}
