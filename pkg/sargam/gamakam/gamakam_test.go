package gamakam

import (
	"math"
	"testing"

	"github.com/himanishpuri/sargam/pkg/models"
)

func repeat(pattern []float64, times int) []float64 {
	out := make([]float64, 0, len(pattern)*times)
	for i := 0; i < times; i++ {
		out = append(out, pattern...)
	}
	return out
}

func blocks(values []float64, width int) []float64 {
	out := make([]float64, 0, len(values)*width)
	for _, v := range values {
		for i := 0; i < width; i++ {
			out = append(out, v)
		}
	}
	return out
}

func TestClassify(t *testing.T) {
	glide := make([]float64, 20)
	for i := range glide {
		glide[i] = 100 + 5*float64(i)
	}

	tests := []struct {
		name  string
		freqs []float64
		want  models.GamakamKind
	}{
		{"empty", nil, ""},
		{"too short", []float64{180, 220}, ""},
		{"too short after dropping nan", []float64{180, math.NaN(), 220, math.Inf(1)}, ""},
		{"steady", repeat([]float64{200}, 20), ""},
		{"fast wide oscillation", repeat([]float64{180, 220}, 10), models.Kampitam},
		{"slow alternating blocks", blocks([]float64{180, 220, 180, 220, 180}, 4), models.Janta},
		{"narrow oscillation", repeat([]float64{199, 201}, 10), ""},
		{"monotonic glide", glide, ""},
		{"nan values ignored", append(repeat([]float64{180, 220}, 10), math.NaN()), models.Kampitam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.freqs); got != tt.want {
				t.Errorf("Classify() = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestOscillations(t *testing.T) {
	tests := []struct {
		values []float64
		want   int
	}{
		{[]float64{1, 2, 1, 2}, 3},
		{[]float64{1, 2, 3}, 2}, // -, 0, +
		{[]float64{5, 5, 5}, 0},
		{[]float64{1}, 0},
	}

	for _, tt := range tests {
		if got := Oscillations(tt.values); got != tt.want {
			t.Errorf("Oscillations(%v) = %d, expected %d", tt.values, got, tt.want)
		}
	}
}
