package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ErrSampleRate is returned for a rate pair the resampler cannot convert.
var ErrSampleRate = errors.New("audio: unsupported sample rate")

// Resampler converts a run of consecutive mono 16-bit PCM frames from one
// sample rate to another. Filter state carries across Write calls, so a
// stream chopped into small frames comes out the same as one long buffer.
// Call Flush once the input ends. A Resampler is not safe for concurrent use.
type Resampler struct {
	from, to int
	r        resampling.Resampler
}

// NewResampler creates a resampler for from -> to. Equal rates pass audio
// through untouched.
func NewResampler(from, to int) (*Resampler, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrSampleRate, from, to)
	}
	rs := &Resampler{from: from, to: to}
	if from == to {
		return rs, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %d -> %d: %v", ErrSampleRate, from, to, err)
	}
	rs.r = r
	return rs, nil
}

// From returns the input sample rate.
func (rs *Resampler) From() int { return rs.from }

// Write resamples pcm and returns whatever output the filter has ready.
// A trailing odd byte is ignored.
func (rs *Resampler) Write(pcm []byte) ([]byte, error) {
	pcm = pcm[:len(pcm)&^1]
	if rs.r == nil {
		return pcm, nil
	}
	if len(pcm) == 0 {
		return nil, nil
	}

	n := len(pcm) / 2
	input := make([]float64, n)
	for i := 0; i < n; i++ {
		input[i] = float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}

	output, err := rs.r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	return toPCM(output), nil
}

// Flush drains the samples still held by the filter and resets it for a
// new run.
func (rs *Resampler) Flush() ([]byte, error) {
	if rs.r == nil {
		return nil, nil
	}
	output, err := rs.r.Flush()
	rs.r.Reset()
	if err != nil {
		return nil, fmt.Errorf("flush resampler: %w", err)
	}
	return toPCM(output), nil
}

// Resample converts one complete buffer of mono 16-bit PCM. Equal rates
// return the input unchanged.
func Resample(pcm []byte, from, to int) ([]byte, error) {
	if from == to && from > 0 {
		return pcm, nil
	}
	rs, err := NewResampler(from, to)
	if err != nil {
		return nil, err
	}
	out, err := rs.Write(pcm)
	if err != nil {
		return nil, err
	}
	tail, err := rs.Flush()
	if err != nil {
		return nil, err
	}
	return append(out, tail...), nil
}

func toPCM(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(floatToInt16(s)))
	}
	return out
}
