// Package segment turns a pitch contour into an ordered sequence of note
// events. It is a two-state machine: either no note is open, or one note
// is open and collecting pitch values until the classified swaram changes.
package segment

import (
	"fmt"
	"math"

	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam/gamakam"
	"github.com/himanishpuri/sargam/pkg/sargam/swaram"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultConfidenceWindow is how many frames of voicing probability
	// are averaged into a note's confidence.
	DefaultConfidenceWindow = 10

	// DefaultConfidence is used when no frames precede a boundary, and at
	// end of stream for inputs no longer than the confidence window.
	DefaultConfidence = 0.5

	// DefaultFrameDuration is one hop of 512 samples at 44.1 kHz. It only
	// matters when a note opens on the final frame of a single-frame input.
	DefaultFrameDuration = 512.0 / 44100.0

	// EmptyEventDuration closes a note when no frame time is available.
	EmptyEventDuration = 0.5

	// spacingTolerance is the allowed relative deviation of a frame gap
	// from the first gap.
	spacingTolerance = 0.01
)

// Segmenter converts pitch frames into note events. It holds only
// configuration and is safe for concurrent use.
type Segmenter struct {
	mapper        *swaram.Mapper
	window        int
	frameDuration float64
}

type Option func(*Segmenter)

// WithMapper sets the frequency classifier.
func WithMapper(m *swaram.Mapper) Option {
	return func(s *Segmenter) {
		if m != nil {
			s.mapper = m
		}
	}
}

// WithConfidenceWindow sets how many frames feed a note's confidence.
func WithConfidenceWindow(frames int) Option {
	return func(s *Segmenter) {
		if frames > 0 {
			s.window = frames
		}
	}
}

// WithFrameDuration sets the hop used when it cannot be observed.
func WithFrameDuration(seconds float64) Option {
	return func(s *Segmenter) {
		if seconds > 0 {
			s.frameDuration = seconds
		}
	}
}

func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		mapper:        swaram.NewMapper(swaram.DefaultToleranceCents),
		window:        DefaultConfidenceWindow,
		frameDuration: DefaultFrameDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment validates frames and tonic, then runs the state machine over
// every frame. Empty or fully unvoiced input yields an empty slice and a
// nil error.
func (s *Segmenter) Segment(frames []models.PitchFrame, tonic float64) ([]models.NoteEvent, error) {
	if err := Validate(frames, tonic); err != nil {
		return nil, err
	}

	m := s.NewMachine(tonic)
	for _, f := range frames {
		m.Step(f)
	}
	return m.Finish(), nil
}

// Validate checks the frame contract: positive finite tonic, finite
// strictly increasing evenly spaced timestamps, voicing in [0,1], and no
// infinite frequencies. NaN and non-positive frequencies mean unvoiced.
func Validate(frames []models.PitchFrame, tonic float64) error {
	if !(tonic > 0) || math.IsInf(tonic, 0) {
		return fmt.Errorf("%w: tonic must be a positive frequency, got %v", models.ErrInvalidInput, tonic)
	}

	var hop float64
	for i, f := range frames {
		if math.IsNaN(f.Time) || math.IsInf(f.Time, 0) {
			return fmt.Errorf("%w: frame %d has non-finite time %v", models.ErrInvalidInput, i, f.Time)
		}
		if math.IsInf(f.Frequency, 0) {
			return fmt.Errorf("%w: frame %d has infinite frequency", models.ErrInvalidInput, i)
		}
		if math.IsNaN(f.Voicing) || f.Voicing < 0 || f.Voicing > 1 {
			return fmt.Errorf("%w: frame %d voicing %v outside [0,1]", models.ErrInvalidInput, i, f.Voicing)
		}
		if i == 0 {
			continue
		}

		gap := f.Time - frames[i-1].Time
		if gap <= 0 {
			return fmt.Errorf("%w: frame %d time %.6f is not after %.6f", models.ErrInvalidInput, i, f.Time, frames[i-1].Time)
		}
		if i == 1 {
			hop = gap
			continue
		}
		if math.Abs(gap-hop) > spacingTolerance*hop {
			return fmt.Errorf("%w: frame %d gap %.6fs differs from hop %.6fs", models.ErrInvalidInput, i, gap, hop)
		}
	}
	return nil
}

type openNote struct {
	swaram  models.SwaramName
	octave  models.Octave
	start   float64
	pitches []float64
}

// Machine is one run of the segmenter over a frame stream. Step feeds
// frames in time order; Finish closes any open note and returns the
// events. A Machine is not safe for concurrent use.
type Machine struct {
	seg   *Segmenter
	tonic float64

	current *openNote
	recent  []float64 // voicing of up to seg.window most recent frames

	frames    int
	firstTime float64
	lastTime  float64
	hop       float64

	events []models.NoteEvent
}

// NewMachine starts an empty run. The caller is responsible for feeding
// frames that satisfy Validate.
func (s *Segmenter) NewMachine(tonic float64) *Machine {
	return &Machine{
		seg:    s,
		tonic:  tonic,
		recent: make([]float64, 0, s.window),
		events: make([]models.NoteEvent, 0),
	}
}

// Open reports whether a note is currently open.
func (m *Machine) Open() bool {
	return m.current != nil
}

// Events returns the notes closed so far.
func (m *Machine) Events() []models.NoteEvent {
	return m.events
}

// Step processes one frame. A change of classified swaram, including a
// change to or from unclassified, closes the open note at f.Time.
func (m *Machine) Step(f models.PitchFrame) {
	s, o, ok := m.seg.mapper.Classify(f.Frequency, m.tonic)

	if m.changed(s, ok) {
		if m.current != nil {
			m.closeAtBoundary(f.Time)
		}
		if ok {
			m.current = &openNote{swaram: s, octave: o, start: f.Time}
		}
	}

	if f.Frequency > 0 && m.current != nil {
		m.current.pitches = append(m.current.pitches, f.Frequency)
	}

	m.observe(f)
}

// Finish closes the open note, if any, at the last frame time and returns
// every event of the run.
func (m *Machine) Finish() []models.NoteEvent {
	if m.current == nil {
		return m.events
	}

	var end float64
	if m.frames == 0 {
		end = m.current.start + EmptyEventDuration
	} else {
		end = m.lastTime
	}
	if end <= m.current.start {
		end = m.current.start + m.frameDuration()
	}

	m.emit(end, m.finalConfidence())
	return m.events
}

// TODO: add an opt-in grace period that merges a note with the same swaram
// across a short unclassified gap; today a brief tracking dropout splits a
// sustained note in two.
func (m *Machine) changed(s models.SwaramName, ok bool) bool {
	if m.current == nil {
		return ok
	}
	return !ok || s != m.current.swaram
}

// closeAtBoundary finalizes the open note at end. Confidence averages the
// voicing of the frames preceding the boundary frame.
func (m *Machine) closeAtBoundary(end float64) {
	m.emit(end, m.confidence())
}

func (m *Machine) emit(end, confidence float64) {
	n := m.current
	var kind models.GamakamKind
	if len(n.pitches) > 0 {
		kind = gamakam.Classify(n.pitches)
	}

	m.events = append(m.events, models.NoteEvent{
		Start:      n.start,
		End:        end,
		Swaram:     n.swaram,
		Octave:     n.octave,
		Gamakam:    kind,
		Confidence: clamp01(confidence),
	})
	m.current = nil
}

func (m *Machine) confidence() float64 {
	if len(m.recent) == 0 {
		return DefaultConfidence
	}
	return stat.Mean(m.recent, nil)
}

// finalConfidence averages the trailing window only once the input has
// outgrown it; shorter inputs get DefaultConfidence.
func (m *Machine) finalConfidence() float64 {
	if m.frames <= m.seg.window {
		return DefaultConfidence
	}
	return m.confidence()
}

func (m *Machine) observe(f models.PitchFrame) {
	switch m.frames {
	case 0:
		m.firstTime = f.Time
	case 1:
		m.hop = f.Time - m.firstTime
	}
	m.frames++
	m.lastTime = f.Time

	if len(m.recent) < m.seg.window {
		m.recent = append(m.recent, f.Voicing)
		return
	}
	copy(m.recent, m.recent[1:])
	m.recent[len(m.recent)-1] = f.Voicing
}

func (m *Machine) frameDuration() float64 {
	if m.hop > 0 {
		return m.hop
	}
	return m.seg.frameDuration
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
