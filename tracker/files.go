package tracker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/squinkylabs/seq4"
)

// ReadSong loads a song, JSON or YAML, into the model. The load can be undone.
// Returns false if the song could not be read; the reason is shown as an
// alert.
func (m *Model) ReadSong(r io.ReadCloser) bool {
	song, err := seq4.ReadSong(r)
	if err != nil {
		m.alerts.Add(fmt.Sprintf("Error reading a song file: %v", err), Error)
		return false
	}
	if err := r.Close(); err != nil {
		m.alerts.Add(fmt.Sprintf("Error closing a song file: %v", err), Warning)
	}
	if err := song.AssertValid(); err != nil {
		m.alerts.Add(fmt.Sprintf("Invalid song file: %v", err), Error)
		return false
	}
	snapshot := m.d.Song.Copy()
	m.d.Song.Assign(song)
	m.saveUndo("LoadSong", 0, snapshot)
	if f, ok := r.(*os.File); ok {
		m.d.FilePath = f.Name()
		// when the song is loaded from a file, we are quite confident that the file is persisted and thus
		// we can quit without worrying about losing changes
		m.d.ChangedSinceSave = false
	}
	m.sendToPlayer(ResetMsg{Hard: true})
	return true
}

// WriteSong saves the song. Files ending with .json are written as JSON,
// everything else as YAML.
func (m *Model) WriteSong(w io.WriteCloser) bool {
	path := ""
	if f, ok := w.(*os.File); ok {
		path = f.Name()
	}
	if err := seq4.WriteSong(w, m.d.Song, filepath.Ext(path) == ".json"); err != nil {
		m.alerts.Add(fmt.Sprintf("Error writing a song file: %v", err), Error)
		w.Close()
		return false
	}
	if err := w.Close(); err != nil {
		m.alerts.Add(fmt.Sprintf("Error closing a song file: %v", err), Error)
		return false
	}
	if path != "" {
		m.d.FilePath = path
		// when the song is saved to a file, we are quite confident that the file is persisted and thus
		// we can quit without worrying about losing changes
		m.d.ChangedSinceSave = false
	}
	return true
}
