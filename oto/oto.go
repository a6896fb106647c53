package oto

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/squinkylabs/seq4"
)

type (
	// Context is a seq4.AudioContext playing stereo float32 audio through
	// the default output device.
	Context struct {
		ctx        *oto.Context
		sampleRate int
	}

	// Output is a source being played. It pulls the source from the audio
	// thread of oto until the source returns an error or Close is called.
	Output struct {
		player *oto.Player
		reader *sourceReader
	}

	sourceReader struct {
		src       seq4.AudioSource
		buffer    seq4.AudioBuffer
		mu        sync.Mutex
		err       error
		closed    bool
		done      chan struct{}
		closeOnce sync.Once
	}
)

const bufferDuration = 50 * time.Millisecond

// NewContext opens the audio device. Blocks until the device is ready.
func NewContext(sampleRate int) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, sampleRate: sampleRate}, nil
}

func (c *Context) SampleRate() int {
	return c.sampleRate
}

// Play starts pulling audio from the source.
func (c *Context) Play(src seq4.AudioSource) seq4.CloserWaiter {
	r := newSourceReader(src)
	p := c.ctx.NewPlayer(r)
	p.Play()
	return &Output{player: p, reader: r}
}

// Close suspends the device. oto allows only one context per process, so the
// context is not reopened after this.
func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot close oto context: %w", err)
	}
	return nil
}

// Close stops the playback.
func (o *Output) Close() error {
	o.reader.close(nil)
	o.player.Pause()
	return nil
}

// Wait blocks until the source returned an error or the output was closed.
// The error of the source is returned.
func (o *Output) Wait() error {
	return o.reader.wait()
}

func newSourceReader(src seq4.AudioSource) *sourceReader {
	return &sourceReader{src: src, done: make(chan struct{})}
}

// Read implements io.Reader for the oto player.
func (r *sourceReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, io.EOF
	}
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buffer) < frames {
		r.buffer = make(seq4.AudioBuffer, frames)
	}
	r.buffer = r.buffer[:frames]
	if err := r.src(r.buffer); err != nil {
		r.closeLocked(err)
		return 0, io.EOF
	}
	return len(BufferToFloat32LE(r.buffer, p[:0])), nil
}

func (r *sourceReader) close(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked(err)
}

func (r *sourceReader) closeLocked(err error) {
	r.closeOnce.Do(func() {
		r.closed = true
		r.err = err
		close(r.done)
	})
}

func (r *sourceReader) wait() error {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
