package raaga

import (
	"fmt"
	"math"

	"github.com/himanishpuri/sargam/pkg/models"
)

const (
	// MinNotes is the fewest classified notes the matcher will score.
	MinNotes = 5

	// MatchThreshold is the total score a raaga must exceed to be reported.
	MatchThreshold = 0.3

	overlapWeight = 0.6
	patternWeight = 0.4
)

// Score is one raaga's breakdown for a note sequence.
type Score struct {
	Name       string           `json:"name"`
	Tradition  models.Tradition `json:"type"`
	Overlap    float64          `json:"overlap"`
	Ascending  float64          `json:"ascending"`
	Descending float64          `json:"descending"`
	Total      float64          `json:"total"`
}

// Pattern returns the better of the two order scores.
func (s Score) Pattern() float64 {
	return math.Max(s.Ascending, s.Descending)
}

// Matcher scores note sequences against a catalog. It keeps no per-call
// state and is safe for concurrent use.
type Matcher struct {
	catalog *Catalog
}

// NewMatcher returns a matcher over c, or over DefaultCatalog when c is nil.
func NewMatcher(c *Catalog) *Matcher {
	if c == nil {
		c = DefaultCatalog()
	}
	return &Matcher{catalog: c}
}

// Catalog returns the catalog the matcher scores against.
func (m *Matcher) Catalog() *Catalog {
	return m.catalog
}

// Match returns the best raaga for events, or nil when fewer than MinNotes
// events carry a swaram or no raaga scores above MatchThreshold.
func (m *Matcher) Match(events []models.NoteEvent) (*models.RaagaMatch, error) {
	scores, err := m.Scores(events)
	if err != nil || scores == nil {
		return nil, err
	}

	best := -1
	for i, s := range scores {
		if best < 0 || s.Total > scores[best].Total {
			best = i
		}
	}
	if best < 0 || !(scores[best].Total > MatchThreshold) {
		return nil, nil
	}

	def := m.catalog.defs[best].Clone()
	return &models.RaagaMatch{
		Name:        def.Name,
		Tradition:   def.Tradition,
		Confidence:  math.Min(scores[best].Total, 1),
		Arohana:     def.Arohana,
		Avarohana:   def.Avarohana,
		Description: def.Description,
	}, nil
}

// Scores returns every raaga's score in catalog order. It returns nil
// without error when fewer than MinNotes events carry a swaram.
func (m *Matcher) Scores(events []models.NoteEvent) ([]Score, error) {
	seq, err := Sequence(events)
	if err != nil {
		return nil, err
	}
	if len(seq) < MinNotes {
		return nil, nil
	}

	used := make(map[models.SwaramName]struct{}, len(seq))
	for _, s := range seq {
		used[s] = struct{}{}
	}

	scores := make([]Score, 0, m.catalog.Len())
	m.catalog.each(func(_ int, d *models.RaagaDefinition) {
		s := Score{
			Name:       d.Name,
			Tradition:  d.Tradition,
			Overlap:    overlap(d, used),
			Ascending:  GreedyScore(seq, d.Arohana),
			Descending: GreedyScore(seq, reversed(d.Avarohana)),
		}
		s.Total = overlapWeight*s.Overlap + patternWeight*s.Pattern()
		scores = append(scores, s)
	})
	return scores, nil
}

// Sequence extracts the ordered swarams of events, skipping unclassified
// ones. An event naming an unknown swaram is an input error.
func Sequence(events []models.NoteEvent) ([]models.SwaramName, error) {
	seq := make([]models.SwaramName, 0, len(events))
	for i, e := range events {
		if e.Swaram == "" {
			continue
		}
		if !e.Swaram.Valid() {
			return nil, fmt.Errorf("%w: event %d has unknown swaram %q", models.ErrInvalidInput, i, e.Swaram)
		}
		seq = append(seq, e.Swaram)
	}
	return seq, nil
}

// GreedyScore walks seq once with a pointer into pattern, advancing on
// every element equal to the pattern element under the pointer. It returns
// the fraction of pattern consumed. Only a prefix of pattern is ever
// credited: once an element never appears, nothing after it counts.
func GreedyScore(seq, pattern []models.SwaramName) float64 {
	if len(pattern) == 0 {
		return 0
	}
	p := 0
	for _, s := range seq {
		if p == len(pattern) {
			break
		}
		if s == pattern[p] {
			p++
		}
	}
	return float64(p) / float64(len(pattern))
}

func overlap(d *models.RaagaDefinition, used map[models.SwaramName]struct{}) float64 {
	members := make(map[models.SwaramName]struct{}, len(d.Arohana)+len(d.Avarohana))
	for _, s := range d.Arohana {
		members[s] = struct{}{}
	}
	for _, s := range d.Avarohana {
		members[s] = struct{}{}
	}

	common := 0
	for s := range members {
		if _, ok := used[s]; ok {
			common++
		}
	}
	return float64(common) / float64(len(members))
}

func reversed(p []models.SwaramName) []models.SwaramName {
	out := make([]models.SwaramName, len(p))
	for i, s := range p {
		out[len(p)-1-i] = s
	}
	return out
}
