// Package audio converts between base64 linear PCM and sample buffers, and
// schedules decoded chunks for gapless playback.
package audio

import (
	"fmt"
	"time"
)

const (
	// L16Mono16K is 16-bit mono PCM at 16 kHz, the microphone input format.
	L16Mono16K Format = iota
	// L16Mono24K is 16-bit mono PCM at 24 kHz, the model output format.
	L16Mono24K
)

// Format is a linear PCM layout.
type Format int

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	}
	panic("audio: invalid format")
}

// Channels returns the channel count.
func (f Format) Channels() int {
	return 1
}

// FrameBytes returns the size of one frame (one sample per channel).
func (f Format) FrameBytes() int {
	return 2 * f.Channels()
}

// Duration returns the playback length of n bytes.
func (f Format) Duration(n int) time.Duration {
	frames := n / f.FrameBytes()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate())
}

// MIMEType returns the descriptor the hosted endpoints expect.
func (f Format) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate())
}

// String returns a human-readable representation of the format.
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.SampleRate(), f.Channels())
}
