// Package gamakam classifies the ornamentation of a note from the pitch
// values observed while it sounded. The heuristic looks only at relative
// spread and zero crossings around the mean; it is not a spectral analysis.
package gamakam

import (
	"math"

	"github.com/himanishpuri/sargam/pkg/models"
	"gonum.org/v1/gonum/stat"
)

const (
	// MinSamples is the fewest finite pitch values that can be classified.
	MinSamples = 3

	// VariationThreshold is the coefficient of variation (std/mean) above
	// which a note counts as ornamented at all.
	VariationThreshold = 0.05

	kampitamCrossingRatio = 0.3
	jantaCrossingRatio    = 0.15
)

// Classify returns the gamakam for a pitch sequence, or "" when the
// sequence is too short or too steady.
func Classify(freqs []float64) models.GamakamKind {
	valid := finite(freqs)
	if len(valid) < MinSamples {
		return ""
	}

	mean, std := stat.PopMeanStdDev(valid, nil)
	if mean == 0 || std/math.Abs(mean) <= VariationThreshold {
		return ""
	}

	n := float64(len(valid))
	crossings := float64(Oscillations(valid))
	switch {
	case crossings > kampitamCrossingRatio*n:
		return models.Kampitam
	case crossings > jantaCrossingRatio*n:
		return models.Janta
	}
	return ""
}

// Oscillations counts the positions where the sign (-1, 0 or +1) of the
// mean-detrended sequence differs from the previous position.
func Oscillations(values []float64) int {
	if len(values) < 2 {
		return 0
	}
	mean := stat.Mean(values, nil)

	count := 0
	prev := sign(values[0] - mean)
	for _, v := range values[1:] {
		cur := sign(v - mean)
		if cur != prev {
			count++
		}
		prev = cur
	}
	return count
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
