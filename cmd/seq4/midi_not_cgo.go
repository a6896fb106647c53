//go:build !cgo

package main

import (
	"github.com/squinkylabs/seq4/tracker"
)

func newMIDIContext(sampleRate int) tracker.MIDIContext {
	// with no cgo, we cannot use MIDI, so return a null context
	return tracker.NullMIDIContext{}
}
