package seq4

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

type (
	// wavFormat is the fmt chunk of a WAV file, extended with a zero cbSize
	// for the float format.
	wavFormat struct {
		FormatTag      uint16
		Channels       uint16
		SampleRate     uint32
		AvgBytesPerSec uint32
		BlockAlign     uint16
		BitsPerSample  uint16
	}
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// Wav converts an AudioBuffer into a valid WAV-file, returned as a []byte
// array.
//
// If pcm16 is set to true, the samples in the WAV-file will be 16-bit signed
// integers; otherwise the samples will be 32-bit floats
func (buffer AudioBuffer) Wav(pcm16 bool, sampleRate int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := wavHeader(len(buffer), pcm16, sampleRate, buf); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	if err := buffer.rawToBuffer(pcm16, buf); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Raw converts an AudioBuffer into a raw audio file, returned as a []byte
// array. Samples are interleaved, left first.
func (buffer AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := buffer.rawToBuffer(pcm16, buf); err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (buffer AudioBuffer) rawToBuffer(pcm16 bool, buf *bytes.Buffer) error {
	var data any = buffer
	if pcm16 {
		int16data := make([][2]int16, len(buffer))
		for i, v := range buffer {
			int16data[i] = [2]int16{toInt16(v[0]), toInt16(v[1])}
		}
		data = int16data
	}
	if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %w", err)
	}
	return nil
}

func toInt16(v float32) int16 {
	return int16(max(min(int(v*math.MaxInt16), math.MaxInt16), math.MinInt16))
}

// wavHeader writes the RIFF header of a stereo WAV file with the given number
// of frames. The float format needs the extended fmt chunk and a fact chunk.
//
// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
func wavHeader(frames int, pcm16 bool, sampleRate int, buf *bytes.Buffer) error {
	const channels = 2
	bytesPerSample, tag := 4, uint16(wavFormatFloat)
	if pcm16 {
		bytesPerSample, tag = 2, wavFormatPCM
	}
	dataSize := uint32(frames * channels * bytesPerSample)
	format := wavFormat{
		FormatTag:      tag,
		Channels:       channels,
		SampleRate:     uint32(sampleRate),
		AvgBytesPerSec: uint32(sampleRate * channels * bytesPerSample),
		BlockAlign:     uint16(channels * bytesPerSample),
		BitsPerSample:  uint16(8 * bytesPerSample),
	}
	fmtSize, riffSize := uint32(16), 36+dataSize
	if !pcm16 {
		fmtSize, riffSize = 18, 50+dataSize
	}
	le := binary.LittleEndian
	buf.WriteString("RIFF")
	binary.Write(buf, le, riffSize)
	buf.WriteString("WAVEfmt ")
	binary.Write(buf, le, fmtSize)
	if err := binary.Write(buf, le, format); err != nil {
		return err
	}
	if !pcm16 {
		binary.Write(buf, le, uint16(0)) // cbSize
		buf.WriteString("fact")
		binary.Write(buf, le, uint32(4))
		binary.Write(buf, le, uint32(frames*channels))
	}
	buf.WriteString("data")
	return binary.Write(buf, le, dataSize)
}
