//go:build cgo

package main

import (
	"github.com/squinkylabs/seq4/gomidi"
	"github.com/squinkylabs/seq4/tracker"
)

func newMIDIContext(sampleRate int) tracker.MIDIContext {
	return gomidi.NewContext(sampleRate)
}
