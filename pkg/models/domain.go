package models

import "errors"

// ErrInvalidInput is wrapped by every contract violation: malformed pitch
// frames, a non-positive tonic, unknown swaram names, out-of-range audio.
// Callers test for it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Transcription is the full result of transcribing one recording.
type Transcription struct {
	RequestID   string      // Unique id of the request that produced it
	Source      string      // File name or URL that was transcribed
	Tonic       float64     // Sa frequency used, in Hz
	DurationSec float64     // Length of the analysed audio
	Swarams     []NoteEvent // Ordered note events; empty when no signal was found
	Raaga       *RaagaMatch // Best raaga match, nil when none qualified
	Lyrics      []LyricLine // Lyrics, when the source carries them
}

// LyricLine is one timed lyric syllable or line.
type LyricLine struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
