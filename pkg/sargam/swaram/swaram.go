// Package swaram maps frequencies to Carnatic swarams using a fixed
// just-intonation table relative to a tonic (Sa).
package swaram

import (
	"math"

	"github.com/himanishpuri/sargam/pkg/models"
)

// DefaultToleranceCents is the maximum distance from a reference pitch for
// a frequency to be classified.
const DefaultToleranceCents = 10.0

// Cents from Sa, in table order.
var centsTable = [...]float64{
	0,    // Sa
	112,  // Ri1 shuddha rishabha
	204,  // Ri2 chatushruti rishabha
	316,  // Ga2 sadharana gandhara
	386,  // Ga3 antara gandhara
	498,  // Ma1 shuddha madhyama
	590,  // Ma2 prati madhyama
	702,  // Pa
	814,  // Da1 shuddha dhaivata
	906,  // Da2 chatushruti dhaivata
	1018, // Ni2 kaishiki nishada
	1088, // Ni3 kakali nishada
}

var octaveMultipliers = map[models.Octave]float64{
	models.Mandra: 0.5,
	models.Madhya: 1.0,
	models.Tara:   2.0,
}

// OctaveRange is a display band in Hz, [Low, High).
type OctaveRange struct {
	Low  float64
	High float64
}

// OctaveRanges are the display bounds of each register for a typical
// vocal range. They do not affect classification.
var OctaveRanges = map[models.Octave]OctaveRange{
	models.Mandra: {Low: 80, High: 220},
	models.Madhya: {Low: 220, High: 440},
	models.Tara:   {Low: 440, High: 880},
}

// DisplayOctave returns the display band containing f.
func DisplayOctave(f float64) (models.Octave, bool) {
	for _, o := range models.Octaves {
		r := OctaveRanges[o]
		if f >= r.Low && f < r.High {
			return o, true
		}
	}
	return "", false
}

// Cents returns the offset of s from Sa in cents.
func Cents(s models.SwaramName) (float64, bool) {
	for i, name := range models.Swarams {
		if name == s {
			return centsTable[i], true
		}
	}
	return 0, false
}

// ReferenceFrequency is the frequency of swaram s in octave o for the
// given tonic: tonic * multiplier * 2^(cents/1200).
func ReferenceFrequency(s models.SwaramName, o models.Octave, tonic float64) (float64, bool) {
	cents, ok := Cents(s)
	if !ok {
		return 0, false
	}
	mult, ok := octaveMultipliers[o]
	if !ok {
		return 0, false
	}
	return tonic * mult * math.Pow(2, cents/1200), true
}

// CentsBetween returns the signed distance from ref to f in cents.
func CentsBetween(f, ref float64) float64 {
	return 1200 * math.Log2(f/ref)
}

// Mapper classifies frequencies with a fixed tolerance.
type Mapper struct {
	toleranceCents float64
}

// NewMapper returns a mapper with the given tolerance. Non-positive
// values fall back to DefaultToleranceCents.
func NewMapper(toleranceCents float64) *Mapper {
	if !(toleranceCents > 0) {
		toleranceCents = DefaultToleranceCents
	}
	return &Mapper{toleranceCents: toleranceCents}
}

// Tolerance returns the classification tolerance in cents.
func (m *Mapper) Tolerance() float64 {
	return m.toleranceCents
}

// Classify returns the swaram and octave closest to freq within the
// tolerance. Ties go to the earlier table entry (swaram order, then
// Mandra, Madhya, Tara). ok is false for non-positive, non-finite or
// out-of-tolerance input and for an invalid tonic.
func (m *Mapper) Classify(freq, tonic float64) (s models.SwaramName, o models.Octave, ok bool) {
	if !validPositive(freq) || !validPositive(tonic) {
		return "", "", false
	}

	best := math.Inf(1)
	for i, name := range models.Swarams {
		for _, octave := range models.Octaves {
			ref := tonic * octaveMultipliers[octave] * math.Pow(2, centsTable[i]/1200)
			dist := math.Abs(CentsBetween(freq, ref))
			if dist <= m.toleranceCents && dist < best {
				best = dist
				s, o, ok = name, octave, true
			}
		}
	}
	return s, o, ok
}

var defaultMapper = NewMapper(DefaultToleranceCents)

// FrequencyToSwaram classifies freq with the default tolerance.
func FrequencyToSwaram(freq, tonic float64) (models.SwaramName, models.Octave, bool) {
	return defaultMapper.Classify(freq, tonic)
}

func validPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
