package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/squinkylabs/seq4"
	"github.com/squinkylabs/seq4/tracker"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeSong(t *testing.T, dir, name string, song *seq4.Song) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("could not create song file: %v", err)
	}
	defer f.Close()
	if err := seq4.WriteSong(f, song, filepath.Ext(name) == ".json"); err != nil {
		t.Fatalf("could not write song file: %v", err)
	}
	return path
}

func readSong(t *testing.T, path string) *seq4.Song {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("could not open song file: %v", err)
	}
	defer f.Close()
	song, err := seq4.ReadSong(f)
	if err != nil {
		t.Fatalf("could not read song file: %v", err)
	}
	return song
}

func TestRenderWav(t *testing.T) {
	dir := t.TempDir()
	path := writeSong(t, dir, "test.yml", seq4.NewSongWithNote(0, 1, 4))
	out := filepath.Join(dir, "out")
	if _, err := execute(t, "render", "-o", out, "--quarters", "2", path); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(out, "test.wav"))
	if err != nil {
		t.Fatalf("expected a .wav file: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("RIFF")) {
		t.Errorf("expected a RIFF header")
	}
	// two quarter notes at 120 BPM is one second of stereo float32
	if want := 44100 * 2 * 4; len(b) < want || len(b) > want+100 {
		t.Errorf("expected about %d bytes, got %d", want, len(b))
	}
}

func TestRenderRawToStdout(t *testing.T) {
	dir := t.TempDir()
	path := writeSong(t, dir, "test.json", seq4.NewSongWithNote(0, 1, 4))
	out, err := execute(t, "render", "-r", "-c", "-S", "--duration", "100ms", "--sample-rate", "8000", path)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if want := 800 * 2 * 2; len(out) != want {
		t.Errorf("expected %d bytes of 16-bit audio, got %d", want, len(out))
	}
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	empty := writeSong(t, dir, "empty.yml", seq4.NewEmptySong())
	if _, err := execute(t, "render", "-o", dir, empty); !errors.Is(err, errEmptySong) {
		t.Errorf("expected errEmptySong, got %v", err)
	}
	song := writeSong(t, dir, "song.yml", seq4.NewSongWithNote(0, 1, 4))
	if _, err := execute(t, "render", "-o", dir, "--clock", "external", song); !errors.Is(err, errExternalClock) {
		t.Errorf("expected errExternalClock, got %v", err)
	}
	if _, err := execute(t, "render", "-o", dir, "--voices", "17", song); err == nil {
		t.Errorf("expected an error for too many voices")
	}
	if _, err := execute(t, "render", filepath.Join(dir, "missing.yml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestInfo(t *testing.T) {
	song := seq4.NewSongWithNote(0, 1, 4)
	tr := seq4.NewTrack(8)
	tr.InsertEvent(seq4.NewNote(0, -1, 1))
	tr.InsertEvent(seq4.NewNote(1, 7.0/12, 1))
	song.SetTrack(2, 1, tr)
	song.SetOptions(2, 1, seq4.Options{Repeats: 2})
	path := writeSong(t, t.TempDir(), "info.yml", song)
	out, err := execute(t, "info", path)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{
		"info",
		"2 sections, 3 notes",
		"Track 1",
		"Section 1: 4 quarter notes, 1 note (C4), loops forever",
		"Section 2: empty",
		"Track 3",
		"Section 2: 8 quarter notes, 2 notes (C3 .. G4), plays 3 times",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in the output:\n%s", want, out)
		}
	}
}

func TestImportExport(t *testing.T) {
	dir := t.TempDir()
	song := seq4.NewEmptySong()
	tr := seq4.NewTrack(4)
	tr.InsertEvent(seq4.NewNote(0, 0, 0.5))
	tr.InsertEvent(seq4.NewNote(0.5, 3.0/12, 0.25))
	tr.InsertEvent(seq4.NewNote(2, -5.0/12, 2))
	song.SetTrack(1, 2, tr)
	src := writeSong(t, dir, "src.yml", song)
	mid := filepath.Join(dir, "section.mid")
	if _, err := execute(t, "export", src, mid, "--track", "2", "--section", "3", "--bpm", "90"); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	dst := filepath.Join(dir, "new", "dst.yml")
	out, err := execute(t, "import", dst, mid, "-t", "4", "-s", "1", "--section-repeats", "1")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "Track 4, Section 1: 3 notes") || !strings.Contains(out, "90 BPM") {
		t.Errorf("unexpected import output %q", out)
	}
	got := readSong(t, dst)
	if !got.Track(3, 0).Equal(tr) {
		t.Errorf("expected the imported track to equal the exported one, got %v", got.Track(3, 0))
	}
	if o, ok := got.Options(3, 0); !ok || o.Repeats != 1 {
		t.Errorf("expected 1 repeat, got %+v", o)
	}
	if _, err := execute(t, "export", src, mid, "--track", "1"); !errors.Is(err, tracker.ErrEmptySlot) {
		t.Errorf("expected ErrEmptySlot for an empty section, got %v", err)
	}
	if _, err := execute(t, "export", src, mid, "--track", "5"); !errors.Is(err, seq4.ErrSlotOutOfRange) {
		t.Errorf("expected ErrSlotOutOfRange, got %v", err)
	}
}

func TestRepeatsOverride(t *testing.T) {
	song := seq4.NewSongWithNote(0, 1, 4)
	song.SetTrack(1, 1, seq4.NewTrack(4))
	path := writeSong(t, t.TempDir(), "repeats.yml", song)
	m, err := loadModel(path, nil)
	if err != nil {
		t.Fatalf("loadModel failed: %v", err)
	}
	o := &options{repeats: 3}
	if err := o.applyRepeats(m); err != nil {
		t.Fatalf("applyRepeats failed: %v", err)
	}
	for _, slot := range [][2]int{{0, 0}, {1, 1}} {
		if opts, ok := m.Song().Options(slot[0], slot[1]); !ok || opts.Repeats != 3 {
			t.Errorf("slot %v: expected 3 repeats, got %+v", slot, opts)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "seq4 ") {
		t.Errorf("unexpected version output %q", out)
	}
}
