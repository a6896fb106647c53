package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/squinkylabs/seq4"
)

// History returns the History view of the model, containing methods to manipulate
// the undo/redo history and saving recovery files.
func (m *Model) History() *HistoryModel { return (*HistoryModel)(m) }

type HistoryModel Model

var ErrNothingToUndo = errors.New("nothing to undo")

// Undo returns an Action to undo the last change.
func (m *HistoryModel) Undo() Action { return MakeAction((*historyUndo)(m)) }

type historyUndo HistoryModel

func (m *historyUndo) Enabled() bool { return len(m.undoStack) > 0 }
func (m *historyUndo) Do() {
	m.redoStack = append(m.redoStack, m.d.Song.Copy())
	if len(m.redoStack) >= maxUndo {
		copy(m.redoStack, m.redoStack[len(m.redoStack)-maxUndo:])
		m.redoStack = m.redoStack[:maxUndo]
	}
	m.d.Song.Assign(m.undoStack[len(m.undoStack)-1])
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.prevUndoKind = ""
	m.d.ChangedSinceSave = true
	m.d.ChangedSinceRecovery = true
}

// Redo returns an Action to redo the last undone change.
func (m *HistoryModel) Redo() Action { return MakeAction((*historyRedo)(m)) }

type historyRedo HistoryModel

func (m *historyRedo) Enabled() bool { return len(m.redoStack) > 0 }
func (m *historyRedo) Do() {
	m.undoStack = append(m.undoStack, m.d.Song.Copy())
	if len(m.undoStack) >= maxUndo {
		copy(m.undoStack, m.undoStack[len(m.undoStack)-maxUndo:])
		m.undoStack = m.undoStack[:maxUndo]
	}
	m.d.Song.Assign(m.redoStack[len(m.redoStack)-1])
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.prevUndoKind = ""
	m.d.ChangedSinceSave = true
	m.d.ChangedSinceRecovery = true
}

// UndoLast undoes the last change, or returns ErrNothingToUndo.
func (m *HistoryModel) UndoLast() error {
	a := m.Undo()
	if !a.Enabled() {
		return ErrNothingToUndo
	}
	a.Do()
	return nil
}

// ClearUndoHistory forgets all the undo and redo steps.
func (m *HistoryModel) ClearUndoHistory() {
	m.undoStack = m.undoStack[:0]
	m.redoStack = m.redoStack[:0]
	m.prevUndoKind = ""
}

func (m *HistoryModel) CanUndo() bool { return len(m.undoStack) > 0 }
func (m *HistoryModel) CanRedo() bool { return len(m.redoStack) > 0 }

// MarshalRecovery marshals the current model data to a byte slice for recovery
// saving.
func (m *HistoryModel) MarshalRecovery() []byte {
	out, err := json.Marshal(m.d)
	if err != nil {
		return nil
	}
	if m.d.RecoveryFilePath != "" {
		os.Remove(m.d.RecoveryFilePath)
	}
	m.d.ChangedSinceRecovery = false
	return out
}

// SaveRecovery saves the current model data to the recovery file on disk if
// there are unsaved changes.
func (m *HistoryModel) SaveRecovery() error {
	if !m.d.ChangedSinceRecovery {
		return nil
	}
	if m.d.RecoveryFilePath == "" {
		return errors.New("no backup file path")
	}
	out, err := json.Marshal(m.d)
	if err != nil {
		return fmt.Errorf("could not marshal recovery data: %w", err)
	}
	dir := filepath.Dir(m.d.RecoveryFilePath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		os.MkdirAll(dir, os.ModePerm)
	}
	file, err := os.Create(m.d.RecoveryFilePath)
	if err != nil {
		return fmt.Errorf("could not create recovery file: %w", err)
	}
	defer file.Close()
	_, err = file.Write(out)
	if err != nil {
		return fmt.Errorf("could not write recovery file: %w", err)
	}
	m.d.ChangedSinceRecovery = false
	return nil
}

// UnmarshalRecovery unmarshals the model data from a byte slice, then checking
// if a recovery file exists on disk and loading it instead. The song is
// assigned into the song the model already has, so the sequencer sharing it
// sees the change.
func (m *HistoryModel) UnmarshalRecovery(bytes []byte) {
	var data modelData
	if json.Unmarshal(bytes, &data) != nil {
		return
	}
	if data.RecoveryFilePath != "" && data.RecoveryFilePath != m.d.RecoveryFilePath { // check if there's a recovery file on disk and load it instead
		if bytes2, err := os.ReadFile(data.RecoveryFilePath); err == nil {
			var data2 modelData
			if json.Unmarshal(bytes2, &data2) == nil {
				data = data2
			}
		}
	}
	song := m.d.Song
	if song == nil {
		song = seq4.NewEmptySong()
	}
	if data.Song != nil {
		song.Assign(data.Song)
	}
	data.Song = song
	m.d = data
	(*Model)(m).SetCursor(m.d.Track, m.d.Section)
	m.d.ChangedSinceRecovery = false
	(*Model)(m).sendToPlayer(ResetMsg{Hard: true})
}
