package models

// Tradition is the musical tradition a raaga belongs to.
type Tradition string

const (
	Carnatic   Tradition = "Carnatic"
	Hindustani Tradition = "Hindustani"
)

// Valid reports whether t is a known tradition.
func (t Tradition) Valid() bool {
	return t == Carnatic || t == Hindustani
}

// RaagaDefinition is one catalog entry. Arohana and Avarohana both begin
// and end on Sa.
type RaagaDefinition struct {
	Name        string       `json:"name"`
	Tradition   Tradition    `json:"type"`
	Arohana     []SwaramName `json:"arohana"`
	Avarohana   []SwaramName `json:"avarohana"`
	Description string       `json:"characteristics"`
}

// Clone returns a deep copy so callers cannot mutate catalog state.
func (d RaagaDefinition) Clone() RaagaDefinition {
	d.Arohana = append([]SwaramName(nil), d.Arohana...)
	d.Avarohana = append([]SwaramName(nil), d.Avarohana...)
	return d
}

// RaagaMatch is the best catalog match for a transcription.
type RaagaMatch struct {
	Name        string       `json:"name"`
	Tradition   Tradition    `json:"type"`
	Confidence  float64      `json:"confidence"`
	Arohana     []SwaramName `json:"arohana"`
	Avarohana   []SwaramName `json:"avarohana"`
	Description string       `json:"characteristics"`
}
