package raaga

import (
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/sargam/pkg/models"
)

func events(seq ...models.SwaramName) []models.NoteEvent {
	out := make([]models.NoteEvent, len(seq))
	for i, s := range seq {
		out[i] = models.NoteEvent{
			Start:      float64(i) * 0.25,
			End:        float64(i+1) * 0.25,
			Swaram:     s,
			Octave:     models.Madhya,
			Confidence: 0.9,
		}
	}
	return out
}

func twice(p []models.SwaramName) []models.SwaramName {
	return append(append([]models.SwaramName(nil), p...), p...)
}

func TestDefaultCatalogOrder(t *testing.T) {
	want := []string{"Mayamalavagowla", "Shankarabharanam", "Kalyani", "Bhairavi", "Yaman", "Darbari"}

	defs := DefaultCatalog().Definitions()
	if len(defs) != len(want) {
		t.Fatalf("expected %d raagas, got %d", len(want), len(defs))
	}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Errorf("position %d: got %s, expected %s", i, d.Name, want[i])
		}
		if len(d.Arohana) != 8 || len(d.Avarohana) != 8 {
			t.Errorf("%s: pattern lengths %d/%d, expected 8/8", d.Name, len(d.Arohana), len(d.Avarohana))
		}
		for j := range d.Arohana {
			if d.Arohana[j] != d.Avarohana[len(d.Avarohana)-1-j] {
				t.Errorf("%s: avarohana is not the reversed arohana", d.Name)
				break
			}
		}
	}

	if DefaultCatalog() != DefaultCatalog() {
		t.Error("DefaultCatalog should return the same instance")
	}
}

func TestCatalogIsImmutable(t *testing.T) {
	c := DefaultCatalog()

	defs := c.Definitions()
	defs[0].Name = "Changed"
	defs[0].Arohana[1] = models.Ni2

	got, ok := c.Lookup("mayamalavagowla")
	if !ok {
		t.Fatal("Lookup should ignore case")
	}
	if got.Arohana[1] != models.Ri1 {
		t.Errorf("catalog was mutated through a returned copy: %v", got.Arohana)
	}
	if c.Definitions()[0].Name != "Mayamalavagowla" {
		t.Error("catalog name was mutated through a returned copy")
	}

	if _, ok := c.Lookup("Hamsadhwani"); ok {
		t.Error("Lookup of an unknown raaga should fail")
	}
}

func TestNewCatalogValidation(t *testing.T) {
	valid := BuiltinDefinitions()[1]

	noName := valid.Clone()
	noName.Name = " "

	badTradition := valid.Clone()
	badTradition.Tradition = "Western"

	badSwaram := valid.Clone()
	badSwaram.Arohana[2] = "Ga4"

	noSa := valid.Clone()
	noSa.Avarohana = noSa.Avarohana[:len(noSa.Avarohana)-1]

	tests := []struct {
		name string
		defs []models.RaagaDefinition
	}{
		{"empty", nil},
		{"no name", []models.RaagaDefinition{noName}},
		{"unknown tradition", []models.RaagaDefinition{badTradition}},
		{"unknown swaram", []models.RaagaDefinition{badSwaram}},
		{"pattern not ending on sa", []models.RaagaDefinition{noSa}},
		{"duplicate name", []models.RaagaDefinition{valid, valid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.defs)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("NewCatalog error = %v, expected ErrInvalidInput", err)
			}
		})
	}

	c, err := NewCatalog([]models.RaagaDefinition{valid})
	if err != nil {
		t.Fatalf("NewCatalog(valid) error: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, expected 1", c.Len())
	}
}

func TestMatchShankarabharanam(t *testing.T) {
	def, _ := DefaultCatalog().Lookup("Shankarabharanam")

	m, err := NewMatcher(nil).Match(events(twice(def.Arohana)...))
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.Name != "Shankarabharanam" {
		t.Errorf("matched %s, expected Shankarabharanam", m.Name)
	}
	if m.Confidence < MatchThreshold || m.Confidence > 1 {
		t.Errorf("confidence %v outside [%v, 1]", m.Confidence, MatchThreshold)
	}
	if m.Tradition != models.Carnatic || m.Description == "" {
		t.Errorf("match missing catalog details: %+v", m)
	}
}

func TestMatchTieGoesToEarlierRaaga(t *testing.T) {
	// Kalyani and Yaman share their patterns; Kalyani comes first.
	def, _ := DefaultCatalog().Lookup("Yaman")

	m, err := NewMatcher(nil).Match(events(twice(def.Arohana)...))
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if m == nil || m.Name != "Kalyani" {
		t.Errorf("got %+v, expected Kalyani", m)
	}
}

func TestMatchNoResult(t *testing.T) {
	matcher := NewMatcher(nil)

	tests := []struct {
		name   string
		events []models.NoteEvent
	}{
		{"empty", nil},
		{"four notes", events(models.Sa, models.Ri2, models.Ga3, models.Ma1)},
		{"five events but one unclassified", events(models.Sa, models.Ri2, "", models.Ga3, models.Ma1)},
		{"sa and ga2 only", events(models.Sa, models.Ga2, models.Sa, models.Ga2, models.Sa, models.Ga2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := matcher.Match(tt.events)
			if err != nil {
				t.Fatalf("Match error: %v", err)
			}
			if m != nil {
				t.Errorf("expected no match, got %+v", m)
			}
		})
	}
}

func TestMatchUnknownSwaram(t *testing.T) {
	_, err := NewMatcher(nil).Match(events(models.Sa, models.Ri2, "Xa", models.Ga3, models.Ma1, models.Pa))
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Match error = %v, expected ErrInvalidInput", err)
	}
}

func TestScoresBreakdown(t *testing.T) {
	def, _ := DefaultCatalog().Lookup("Shankarabharanam")

	scores, err := NewMatcher(nil).Scores(events(twice(def.Arohana)...))
	if err != nil {
		t.Fatalf("Scores error: %v", err)
	}
	if len(scores) != DefaultCatalog().Len() {
		t.Fatalf("expected one score per raaga, got %d", len(scores))
	}

	byName := make(map[string]Score, len(scores))
	for _, s := range scores {
		byName[s.Name] = s
	}

	sh := byName["Shankarabharanam"]
	if sh.Overlap != 1 || sh.Ascending != 1 || math.Abs(sh.Total-1) > 1e-12 {
		t.Errorf("Shankarabharanam score = %+v, expected a perfect score", sh)
	}

	// Kalyani misses only Ma2: overlap 6/7, and the ascending walk stops
	// after Sa Ri2 Ga3.
	ka := byName["Kalyani"]
	wantTotal := overlapWeight*6.0/7.0 + patternWeight*3.0/8.0
	if math.Abs(ka.Total-wantTotal) > 1e-12 {
		t.Errorf("Kalyani total = %v, expected %v", ka.Total, wantTotal)
	}
}

func TestGreedyScore(t *testing.T) {
	pattern := []models.SwaramName{models.Sa, models.Ri2, models.Ga3, models.Ma1}

	tests := []struct {
		name string
		seq  []models.SwaramName
		want float64
	}{
		{"exact", pattern, 1},
		{"insertions tolerated", []models.SwaramName{models.Sa, models.Pa, models.Ri2, models.Ni3, models.Ga3, models.Ma1}, 1},
		{"reordering not credited", []models.SwaramName{models.Ri2, models.Sa, models.Ma1, models.Ga3}, 0.25},
		{"missing element stops the walk", []models.SwaramName{models.Sa, models.Ga3, models.Ma1}, 0.25},
		{"empty sequence", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GreedyScore(tt.seq, pattern); got != tt.want {
				t.Errorf("GreedyScore() = %v, expected %v", got, tt.want)
			}
		})
	}

	if got := GreedyScore(pattern, nil); got != 0 {
		t.Errorf("GreedyScore against an empty pattern = %v, expected 0", got)
	}
}
