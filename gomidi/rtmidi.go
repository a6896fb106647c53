//go:build cgo

package gomidi

import (
	"errors"
	"fmt"

	"github.com/squinkylabs/seq4/tracker"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIContext is a tracker.MIDIContext reading live note events from an
	// rtmidi input. Messages arrive on the driver's goroutine and are
	// timestamped in frames of the audio stream.
	RTMIDIContext struct {
		driver  *rtmididrv.Driver
		devices []RTMIDIDevice
		listed  bool

		open drivers.In
		stop func()

		sampleRate int
		incoming   chan stampedMsg
		queue      eventQueue
	}

	RTMIDIDevice struct {
		ctx *RTMIDIContext
		in  drivers.In
	}

	stampedMsg struct {
		frame int
		msg   midi.Message
	}

	// eventQueue maps driver timestamps to frames of the current audio block.
	// The offset between the two clocks is learned from the first message and
	// then nudged a fifth of the error per block, so that jitter of the audio
	// callback does not show up as jitter of the notes.
	eventQueue struct {
		pending  []stampedMsg
		consumed int
		offset   int
		synced   bool
	}
)

var ErrNoDriver = errors.New("no MIDI driver available")

// NewContext opens the driver. If that fails, the context is still usable but
// has no inputs and reports tracker.MIDISupportNoDriver.
func NewContext(sampleRate int) *RTMIDIContext {
	c := &RTMIDIContext{incoming: make(chan stampedMsg, 1024), sampleRate: sampleRate}
	if d, err := rtmididrv.New(); err == nil {
		c.driver = d
	}
	return c
}

func (c *RTMIDIContext) Support() tracker.MIDISupport {
	if c.driver == nil {
		return tracker.MIDISupportNoDriver
	}
	return tracker.MIDISupported
}

// Inputs lists the input ports. The list is read from the driver once.
func (c *RTMIDIContext) Inputs(yield func(tracker.MIDIInputDevice) bool) {
	if !c.listed && c.driver != nil {
		if ins, err := c.driver.Ins(); err == nil {
			for _, in := range ins {
				c.devices = append(c.devices, RTMIDIDevice{ctx: c, in: in})
			}
			c.listed = true
		}
	}
	for _, d := range c.devices {
		if !yield(d) {
			return
		}
	}
}

// Open starts listening to the device. Only one input is open at a time; a
// previously opened one is closed first.
func (d RTMIDIDevice) Open() error {
	c := d.ctx
	if c.driver == nil {
		return ErrNoDriver
	}
	if c.open == d.in {
		return nil
	}
	c.closeInput()
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input %v failed: %w", d.in, err)
	}
	stop, err := midi.ListenTo(d.in, c.receive)
	if err != nil {
		d.in.Close()
		return fmt.Errorf("listening to MIDI input %v failed: %w", d.in, err)
	}
	c.open, c.stop = d.in, stop
	return nil
}

func (d RTMIDIDevice) String() string { return d.in.String() }

func (c *RTMIDIContext) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.open != nil && c.open.IsOpen() {
		c.open.Close()
	}
	c.open = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeInput()
	c.driver.Close()
}

// receive runs on the driver goroutine. A full channel drops the message.
func (c *RTMIDIContext) receive(msg midi.Message, timestampms int32) {
	frame := int(int64(timestampms) * int64(c.sampleRate) / 1000)
	tracker.TrySend(c.incoming, stampedMsg{frame: frame, msg: msg})
}

func (c *RTMIDIContext) NextEvent(frame int) (tracker.MIDINoteEvent, bool) {
	for {
		select {
		case m := <-c.incoming:
			c.queue.push(m)
			continue
		default:
		}
		break
	}
	return c.queue.next(frame)
}

func (c *RTMIDIContext) FinishBlock(frame int) { c.queue.finish(frame) }

func (q *eventQueue) push(m stampedMsg) {
	if !q.synced {
		q.offset, q.synced = m.frame, true
	}
	q.pending = append(q.pending, m)
}

func (q *eventQueue) next(frame int) (tracker.MIDINoteEvent, bool) {
	if q.consumed > 0 && q.consumed <= len(q.pending) {
		// the renderer takes an event only once its frame has passed, so a
		// positive lag means the last event was taken late
		lag := frame + q.offset - q.pending[q.consumed-1].frame
		q.offset -= lag / 5
	}
	for q.consumed < len(q.pending) {
		m := q.pending[q.consumed]
		q.consumed++
		var channel, key, velocity uint8
		switch {
		case m.msg.GetNoteStart(&channel, &key, &velocity):
			return tracker.MIDINoteEvent{Frame: m.frame - q.offset, On: true, Channel: int(channel), Note: key, Velocity: velocity}, true
		case m.msg.GetNoteEnd(&channel, &key):
			return tracker.MIDINoteEvent{Frame: m.frame - q.offset, Channel: int(channel), Note: key}, true
		}
	}
	q.consumed = len(q.pending) + 1
	return tracker.MIDINoteEvent{}, false
}

func (q *eventQueue) finish(frame int) {
	q.offset += frame
	if q.consumed > 0 {
		// keep the last consumed message as the reference for the lag
		q.pending = q.pending[:copy(q.pending, q.pending[q.consumed-1:])]
		if len(q.pending) > 0 {
			// messages are still waiting: pull the offset towards them
			q.offset -= (q.offset - q.pending[0].frame) / 5
		}
	}
	q.consumed = 0
}
