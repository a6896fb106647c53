package tracker

import (
	"time"
)

type (
	// Broker is the centralized message broker between the model (running in
	// the UI or command line goroutine) and the sequencer (running in the
	// audio thread). At the moment, the broker is just many-to-one
	// communication, implemented with one buffered channel for each
	// recipient. The audio thread only ever sends with TrySend and receives
	// without blocking, so a slow model can never stall it; messages to a
	// full channel are dropped.
	//
	// For closing the recorder goroutine, the broker has two channels:
	// CloseRecorder and FinishedRecorder. CloseRecorder has a capacity of 1,
	// so you can always send a empty message (struct{}{}) to it without
	// blocking. If the channel is already full, that means someone else has
	// already requested its closure, so dropping the message is fine.
	// FinishedRecorder is only ever closed. You can wait until the goroutine
	// is done closing with "<- FinishedRecorder", which for avoiding deadlocks
	// can be combined with a timeout:
	//    select {
	//      case <-FinishedRecorder:
	//      case <-time.After(3 * time.Second):
	//    }
	Broker struct {
		ToModel    chan MsgToModel
		ToPlayer   chan any // TODO: consider using a sum type here, for a bit more type safety. See: https://www.jerf.org/iri/post/2917/
		ToRecorder chan MIDINoteEvent

		CloseRecorder    chan struct{}
		FinishedRecorder chan struct{}
	}

	// MsgToModel is a message sent to the model. The status, which is sent
	// often, is not boxed to avoid allocations. All the infrequently passed
	// messages can be boxed & cast to any.
	MsgToModel struct {
		HasStatus bool
		Status    Status

		Data any // Alert or *Recording
	}

	// Status is a snapshot of the sequencer state, sent periodically by the
	// audio thread. Sections and Requests are 1-based, 0 meaning none.
	Status struct {
		Running      bool
		Time         float64
		Sections     [NumTracks]int
		Requests     [NumTracks]int
		ActiveVoices [NumTracks]int
		Repeats      [NumTracks]int
		Holding      [NumTracks]bool
	}

	// SectionRequestMsg asks the sequencer to switch a track to another
	// section, either at the end of the current section or immediately.
	SectionRequestMsg struct {
		Track     int
		Section   int
		Immediate bool
	}

	// ResetMsg resets the sequencer. A hard reset also rewinds the clock and
	// returns every track to its start section.
	ResetMsg struct {
		Hard bool
	}

	// NumVoicesMsg sets the polyphony of a track.
	NumVoicesMsg struct {
		Track  int
		Voices int
	}

	// RunMsg starts or stops the sequencer.
	RunMsg struct {
		Running bool
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:         make(chan any, 1024),
		ToModel:          make(chan MsgToModel, 1024),
		ToRecorder:       make(chan MIDINoteEvent, 1024),
		CloseRecorder:    make(chan struct{}, 1),
		FinishedRecorder: make(chan struct{}),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
