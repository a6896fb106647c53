package seq4

type (
	// AudioBuffer is a buffer of stereo audio samples of variable length, each
	// sample represented by [2]float32. [0] is left channel, [1] is right.
	AudioBuffer [][2]float32

	// AudioSource fills the buffer it is given. It is called from the audio
	// thread of an AudioContext.
	AudioSource func(buf AudioBuffer) error

	// AudioContext represents the low-level audio drivers. There should be at
	// most one AudioContext at a time. The interface is implemented at least
	// by oto.Context.
	AudioContext interface {
		Play(r AudioSource) CloserWaiter
		Close() error
	}

	// CloserWaiter is returned by AudioContext.Play: Close stops the playback
	// and Wait blocks until the source returned an error or was closed.
	CloserWaiter interface {
		Close() error
		Wait() error
	}
)

// Fill fills the AudioBuffer using a Synth-like render function, re-slicing
// the buffer until it is full. It is used by the offline renderers.
func (buffer AudioBuffer) Fill(render func(AudioBuffer) int) {
	for len(buffer) > 0 {
		n := render(buffer)
		if n <= 0 {
			return
		}
		buffer = buffer[n:]
	}
}
