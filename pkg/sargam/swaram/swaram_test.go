package swaram

import (
	"math"
	"testing"

	"github.com/himanishpuri/sargam/pkg/models"
)

func TestExactReferenceFrequencies(t *testing.T) {
	for _, tonic := range []float64{110, 131, 146.83, 261.63} {
		for _, s := range models.Swarams {
			for _, o := range models.Octaves {
				ref, ok := ReferenceFrequency(s, o, tonic)
				if !ok {
					t.Fatalf("ReferenceFrequency(%s, %s) not ok", s, o)
				}
				gotS, gotO, ok := FrequencyToSwaram(ref, tonic)
				if !ok {
					t.Errorf("tonic %.2f: %s/%s at %.3f Hz not classified", tonic, s, o, ref)
					continue
				}
				if gotS != s || gotO != o {
					t.Errorf("tonic %.2f: %.3f Hz classified as %s/%s, expected %s/%s", tonic, ref, gotS, gotO, s, o)
				}
			}
		}
	}
}

func TestKnownValues(t *testing.T) {
	tests := []struct {
		name   string
		freq   float64
		tonic  float64
		swaram models.SwaramName
		octave models.Octave
	}{
		{"madhya sa", 131, 131, models.Sa, models.Madhya},
		{"mandra sa", 65.5, 131, models.Sa, models.Mandra},
		{"tara sa", 262, 131, models.Sa, models.Tara},
		{"madhya pa", 131 * math.Pow(2, 702.0/1200), 131, models.Pa, models.Madhya},
		{"pa plus 8 cents", 131 * math.Pow(2, 710.0/1200), 131, models.Pa, models.Madhya},
		{"ni3 minus 9 cents", 131 * math.Pow(2, 1079.0/1200), 131, models.Ni3, models.Madhya},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, o, ok := FrequencyToSwaram(tt.freq, tt.tonic)
			if !ok {
				t.Fatalf("FrequencyToSwaram(%.3f, %.1f) not classified", tt.freq, tt.tonic)
			}
			if s != tt.swaram || o != tt.octave {
				t.Errorf("got %s/%s, expected %s/%s", s, o, tt.swaram, tt.octave)
			}
		})
	}
}

func TestOutOfToleranceIsUnclassified(t *testing.T) {
	const tonic = 131.0
	// Halfway between Sa (0) and Ri1 (112) is at least 56 cents from both.
	for _, cents := range []float64{56, 11, -11, 160, 260, 1150} {
		f := tonic * math.Pow(2, cents/1200)
		if s, o, ok := FrequencyToSwaram(f, tonic); ok {
			t.Errorf("%.0f cents above tonic classified as %s/%s, expected none", cents, s, o)
		}
	}
}

func TestInvalidInputs(t *testing.T) {
	tests := []struct {
		name  string
		freq  float64
		tonic float64
	}{
		{"zero frequency", 0, 131},
		{"negative frequency", -131, 131},
		{"nan frequency", math.NaN(), 131},
		{"inf frequency", math.Inf(1), 131},
		{"zero tonic", 131, 0},
		{"nan tonic", 131, math.NaN()},
		{"far below range", 10, 131},
		{"far above range", 5000, 131},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := FrequencyToSwaram(tt.freq, tt.tonic); ok {
				t.Errorf("expected no classification for freq=%v tonic=%v", tt.freq, tt.tonic)
			}
		})
	}
}

func TestMapperTolerance(t *testing.T) {
	const tonic = 131.0
	f := tonic * math.Pow(2, 25.0/1200) // 25 cents sharp of Sa

	if _, _, ok := NewMapper(10).Classify(f, tonic); ok {
		t.Error("10-cent mapper should reject a 25-cent deviation")
	}
	s, _, ok := NewMapper(30).Classify(f, tonic)
	if !ok || s != models.Sa {
		t.Errorf("30-cent mapper: got %q ok=%v, expected Sa", s, ok)
	}
	if got := NewMapper(0).Tolerance(); got != DefaultToleranceCents {
		t.Errorf("NewMapper(0).Tolerance() = %v, expected %v", got, DefaultToleranceCents)
	}
}

func TestClosestCandidateWins(t *testing.T) {
	const tonic = 131.0
	// With a wide tolerance both Ga2 (316) and Ga3 (386) are eligible for
	// 360 cents; Ga3 is closer.
	f := tonic * math.Pow(2, 360.0/1200)
	s, _, ok := NewMapper(50).Classify(f, tonic)
	if !ok || s != models.Ga3 {
		t.Errorf("got %q ok=%v, expected Ga3", s, ok)
	}
}

func TestDisplayOctave(t *testing.T) {
	tests := []struct {
		freq float64
		want models.Octave
		ok   bool
	}{
		{100, models.Mandra, true},
		{220, models.Madhya, true},
		{439.9, models.Madhya, true},
		{600, models.Tara, true},
		{50, "", false},
		{900, "", false},
	}

	for _, tt := range tests {
		got, ok := DisplayOctave(tt.freq)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DisplayOctave(%v) = %q,%v, expected %q,%v", tt.freq, got, ok, tt.want, tt.ok)
		}
	}
}
