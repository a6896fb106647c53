package oto

import (
	"encoding/binary"
	"math"

	"github.com/squinkylabs/seq4"
)

// BufferToFloat32LE appends the stereo frames of the buffer to dst as
// interleaved 32-bit little-endian floats, the sample format the context is
// opened with. Samples are clipped to [-1, 1].
func BufferToFloat32LE(buffer seq4.AudioBuffer, dst []byte) []byte {
	for _, frame := range buffer {
		for _, v := range frame {
			v = max(min(v, 1), -1)
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
		}
	}
	return dst
}
