/*
Package tracker contains the editing side of the seq4 sequencer: everything
that does not run on the audio thread.

The Model holds the song shared with the sequencer and edits it only through
Commands, e.g. model.Do(tracker.InsertNote{...}). Every command is undoable:
the model snapshots the song before running it, and model.History().Undo()
returns an Action restoring the previous snapshot.

The model and the sequencer never call each other. They talk through the
Broker: section requests, resets and voice counts go to the sequencer on
Broker.ToPlayer, and the sequencer sends its Status and Alerts back on
Broker.ToModel, which should be passed to model.ProcessMsg. Neither side ever
blocks on the other.

MIDI notes played while recording are collected by RunRecorder into a
Recording, which the model converts to a track in the selected slot.
*/
package tracker
