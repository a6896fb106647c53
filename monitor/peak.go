package monitor

import (
	"math"

	"github.com/squinkylabs/seq4"
	"github.com/viterin/vek/vek32"
)

type (
	Decibel float32

	// PeakResult holds the peaks of the left and right channel: momentary
	// over the last 400 ms, and integrated since the last reset.
	PeakResult struct {
		Momentary  [2]Decibel
		Integrated [2]Decibel
	}

	peakDetector struct {
		windows  [2][]float32 // block peaks of the momentary window, per channel
		cursor   int
		maxPeak  [2]float32
		tmp      []float32
		chunk    seq4.AudioBuffer
		chunkLen int
	}
)

// peaks are collected in blocks of 100 ms at 44.1 kHz; four of them make the
// momentary window
const (
	peakBlock   = 4410
	peakWindows = 4
)

func makePeakDetector() peakDetector {
	return peakDetector{
		windows: [2][]float32{make([]float32, peakWindows), make([]float32, peakWindows)},
		chunk:   make(seq4.AudioBuffer, peakBlock),
	}
}

// update collects the buffer into blocks and returns the result after every
// completed block; ok is false if no block was completed.
func (d *peakDetector) update(buf seq4.AudioBuffer) (ret PeakResult, ok bool) {
	for len(buf) > 0 {
		n := copy(d.chunk[d.chunkLen:], buf)
		d.chunkLen += n
		buf = buf[n:]
		if d.chunkLen < peakBlock {
			break
		}
		ret, ok = d.block(d.chunk), true
		d.chunkLen = 0
	}
	return
}

func (d *peakDetector) block(chunk seq4.AudioBuffer) (ret PeakResult) {
	if len(d.tmp) < len(chunk) {
		d.tmp = append(d.tmp, make([]float32, len(chunk)-len(d.tmp))...)
	}
	for chn := range 2 {
		// deinterleave the channels
		for i := range chunk {
			d.tmp[i] = chunk[i][chn]
		}
		o := d.tmp[:len(chunk)]
		vek32.Abs_Inplace(o)
		p := vek32.Max(o)
		d.windows[chn][d.cursor] = p
		ret.Momentary[chn] = toDecibel(vek32.Max(d.windows[chn]))
		if d.maxPeak[chn] < p {
			d.maxPeak[chn] = p
		}
		ret.Integrated[chn] = toDecibel(d.maxPeak[chn])
	}
	d.cursor = (d.cursor + 1) % peakWindows
	return
}

func (d *peakDetector) reset() {
	for chn := range 2 {
		clear(d.windows[chn])
		d.maxPeak[chn] = 0
	}
	d.cursor = 0
	d.chunkLen = 0
}

func toDecibel(amplitude float32) Decibel {
	return Decibel(20 * math.Log10(float64(amplitude)))
}
