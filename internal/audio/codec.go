package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
)

// ErrBadChannels is returned when a channel count is not positive.
var ErrBadChannels = errors.New("audio: channel count must be positive")

// Buffer is decoded audio: one float32 slice per channel, samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the number of frames per channel.
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Decode returns the bytes of a standard base64 string. Malformed input
// yields an empty slice.
func Decode(s string) []byte {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return []byte{}
	}
	return data
}

// Encode returns the standard base64 encoding of data.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeAudioData reinterprets data as interleaved 16-bit little-endian
// signed samples and normalises each by 32768. Trailing bytes that do not
// form a whole frame are dropped.
func DecodeAudioData(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels <= 0 {
		return nil, ErrBadChannels
	}

	frames := len(data) / (2 * channels)
	buf := &Buffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channels),
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(data[off:]))
			buf.Channels[ch][i] = float32(sample) / 32768.0
		}
	}
	return buf, nil
}

// EncodePCM converts float samples to 16-bit little-endian PCM, clamping to
// [-1, 1].
func EncodePCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(floatToInt16(float64(s))))
	}
	return out
}

func floatToInt16(s float64) int16 {
	switch {
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return math.MinInt16
	}
	return int16(s * 32768.0)
}

// WAV wraps raw PCM in a RIFF/WAVE header.
func WAV(pcm []byte, f Format) []byte {
	var b bytes.Buffer
	channels := uint16(f.Channels())
	rate := uint32(f.SampleRate())
	blockAlign := channels * 2

	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, channels)
	_ = binary.Write(&b, binary.LittleEndian, rate)
	_ = binary.Write(&b, binary.LittleEndian, rate*uint32(blockAlign))
	_ = binary.Write(&b, binary.LittleEndian, blockAlign)
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}
