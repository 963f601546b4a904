// Package midifile reads a Standard MIDI File as a monophonic melody with
// optional lyric events, and samples that melody into pitch frames.
package midifile

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/himanishpuri/sargam/pkg/models"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Note is one sounding key in seconds from the start of the file.
type Note struct {
	Key   uint8
	Start float64
	End   float64
}

// Frequency is the equal-tempered pitch of the key with A4 = 440 Hz.
func (n Note) Frequency() float64 {
	return KeyFrequency(n.Key)
}

func KeyFrequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

// Score is the melody and lyrics of a file, both ordered by start time.
type Score struct {
	Notes  []Note
	Lyrics []models.LyricLine
}

// Duration is the end of the last note.
func (s *Score) Duration() float64 {
	if len(s.Notes) == 0 {
		return 0
	}
	return s.Notes[len(s.Notes)-1].End
}

type eventKind int

const (
	noteStart eventKind = iota
	noteEnd
	lyric
)

type event struct {
	at   float64
	kind eventKind
	key  uint8
	text string
}

// Parse reads every track of the file at path.
func Parse(path string) (*Score, error) {
	var events []event

	err := smf.ReadTracks(path).Do(func(ev smf.TrackEvent) {
		at := float64(ev.AbsMicroSeconds) / 1e6
		msg := midi.Message(ev.Message)

		var ch, key, vel uint8
		var text string
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			events = append(events, event{at: at, kind: noteStart, key: key})
		case msg.GetNoteEnd(&ch, &key):
			events = append(events, event{at: at, kind: noteEnd, key: key})
		case ev.Message.GetMetaLyric(&text):
			events = append(events, event{at: at, kind: lyric, text: text})
		}
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("read midi %s: %w", path, err)
	}

	return assemble(events), nil
}

// assemble folds events into a score. Tracks are merged by time; at equal
// times note-offs are applied before note-ons. A note-on while another key
// sounds ends that key.
func assemble(events []event) *Score {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return events[i].kind == noteEnd && events[j].kind != noteEnd
	})

	s := &Score{Notes: []Note{}, Lyrics: []models.LyricLine{}}
	var sounding *Note

	closeAt := func(at float64) {
		if sounding != nil && at > sounding.Start {
			sounding.End = at
			s.Notes = append(s.Notes, *sounding)
		}
		sounding = nil
	}

	for _, e := range events {
		switch e.kind {
		case noteStart:
			closeAt(e.at)
			sounding = &Note{Key: e.key, Start: e.at}
		case noteEnd:
			if sounding != nil && sounding.Key == e.key {
				closeAt(e.at)
			}
		case lyric:
			text := strings.TrimSpace(e.text)
			if text != "" {
				s.Lyrics = append(s.Lyrics, models.LyricLine{Text: text, Start: e.at})
			}
		}
	}
	if sounding != nil && len(events) > 0 {
		closeAt(events[len(events)-1].at)
	}

	end := s.Duration()
	for i := range s.Lyrics {
		if i+1 < len(s.Lyrics) {
			s.Lyrics[i].End = s.Lyrics[i+1].Start
		} else {
			s.Lyrics[i].End = math.Max(s.Lyrics[i].Start, end)
		}
	}
	return s
}

// PitchFrames samples the melody every hop seconds from 0 to the end of
// the last note. Frames inside a note carry its frequency with voicing 1;
// all others are unvoiced with voicing 0.
func (s *Score) PitchFrames(hop float64) ([]models.PitchFrame, error) {
	if !(hop > 0) || math.IsInf(hop, 0) {
		return nil, fmt.Errorf("%w: hop must be a positive duration, got %v", models.ErrInvalidInput, hop)
	}
	if len(s.Notes) == 0 {
		return []models.PitchFrame{}, nil
	}

	n := int(s.Duration()/hop) + 1
	frames := make([]models.PitchFrame, n)
	j := 0
	for i := range frames {
		t := float64(i) * hop
		for j < len(s.Notes) && s.Notes[j].End <= t {
			j++
		}
		frames[i].Time = t
		if j < len(s.Notes) && s.Notes[j].Start <= t {
			frames[i].Frequency = s.Notes[j].Frequency()
			frames[i].Voicing = 1
		}
	}
	return frames, nil
}
