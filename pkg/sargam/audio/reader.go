package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/floats"
)

var ErrInvalidWAV = errors.New("not a valid WAV file")

// DecodeWAV reads a PCM WAV file into samples in [-1, 1]. Multi-channel
// files are averaged down to mono.
func DecodeWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	depth := int(dec.BitDepth)
	if buf.SourceBitDepth > 0 {
		depth = buf.SourceBitDepth
	}
	if depth <= 0 || depth > 32 {
		return nil, 0, fmt.Errorf("%s: unsupported bit depth %d", path, depth)
	}

	scale := math.Exp2(float64(depth - 1))
	offset := 0.0
	if depth == 8 { // 8-bit WAV is unsigned
		offset = scale
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		out[i] = sum / float64(channels)
	}

	return out, int(dec.SampleRate), nil
}

// Normalize scales samples in place so the largest magnitude is 1. Silent
// input is left as is.
func Normalize(samples []float64) {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	floats.Scale(1/peak, samples)
}
