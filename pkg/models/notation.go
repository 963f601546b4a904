package models

import "math"

// SwaramName is one of the twelve Carnatic scale degrees.
// The empty value means the frame or note could not be classified.
type SwaramName string

const (
	Sa  SwaramName = "Sa"
	Ri1 SwaramName = "Ri1"
	Ri2 SwaramName = "Ri2"
	Ga2 SwaramName = "Ga2"
	Ga3 SwaramName = "Ga3"
	Ma1 SwaramName = "Ma1"
	Ma2 SwaramName = "Ma2"
	Pa  SwaramName = "Pa"
	Da1 SwaramName = "Da1"
	Da2 SwaramName = "Da2"
	Ni2 SwaramName = "Ni2"
	Ni3 SwaramName = "Ni3"
)

// Swarams lists every swaram in table order (ascending cents from Sa).
var Swarams = []SwaramName{Sa, Ri1, Ri2, Ga2, Ga3, Ma1, Ma2, Pa, Da1, Da2, Ni2, Ni3}

// Valid reports whether s names one of the twelve swarams.
func (s SwaramName) Valid() bool {
	for _, known := range Swarams {
		if s == known {
			return true
		}
	}
	return false
}

// Octave is the register of a note relative to the tonic.
type Octave string

const (
	Mandra Octave = "Mandra" // lower
	Madhya Octave = "Madhya" // middle
	Tara   Octave = "Tara"   // upper
)

// Octaves lists the registers from lowest to highest.
var Octaves = []Octave{Mandra, Madhya, Tara}

// GamakamKind names a detected ornamentation. Empty means none.
type GamakamKind string

const (
	Kampitam GamakamKind = "kampitam" // vibrato-like oscillation
	Janta    GamakamKind = "janta"    // repeated-note pattern
)

// PitchFrame is one analysis frame from the pitch tracker.
type PitchFrame struct {
	Time      float64 `json:"time"`      // seconds from the start of the recording
	Frequency float64 `json:"frequency"` // Hz; 0 or NaN when unvoiced
	Voicing   float64 `json:"voicing"`   // voicing probability in [0,1]
}

// Voiced reports whether the frame carries a usable frequency estimate.
func (f PitchFrame) Voiced() bool {
	return f.Frequency > 0 && !math.IsInf(f.Frequency, 0)
}

// NoteEvent is a transcribed note spanning [Start, End).
type NoteEvent struct {
	Start      float64     `json:"start"`
	End        float64     `json:"end"`
	Swaram     SwaramName  `json:"swaram"`
	Octave     Octave      `json:"octave"`
	Gamakam    GamakamKind `json:"gamakam,omitempty"`
	Confidence float64     `json:"confidence"`
}

// Duration returns the note length in seconds.
func (n NoteEvent) Duration() float64 {
	return n.End - n.Start
}
