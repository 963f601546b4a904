// Package raaga holds the raaga knowledge base and the matcher that scores
// a transcribed note sequence against it.
//
// A Catalog is immutable once built. The built-in catalog is created on
// first use by DefaultCatalog and shared by every caller for the life of
// the process; extended catalogs (for example one loaded from the SQLite
// store) are built with NewCatalog.
package raaga

import (
	"fmt"
	"strings"
	"sync"

	"github.com/himanishpuri/sargam/pkg/models"
)

// Catalog is an ordered, read-only list of raaga definitions. Order is
// significant: the matcher breaks ties in favour of the earlier entry.
type Catalog struct {
	defs   []models.RaagaDefinition
	byName map[string]int
}

// NewCatalog validates defs and returns a catalog holding deep copies of
// them in the given order.
func NewCatalog(defs []models.RaagaDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: catalog has no raagas", models.ErrInvalidInput)
	}

	c := &Catalog{
		defs:   make([]models.RaagaDefinition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		if err := ValidateDefinition(d); err != nil {
			return nil, fmt.Errorf("raaga %d: %w", i, err)
		}
		key := strings.ToLower(d.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("%w: duplicate raaga name %q", models.ErrInvalidInput, d.Name)
		}
		c.byName[key] = len(c.defs)
		c.defs = append(c.defs, d.Clone())
	}
	return c, nil
}

// ValidateDefinition checks a single definition: a name, a known
// tradition, and non-empty patterns of valid swarams that begin and end
// on Sa.
func ValidateDefinition(d models.RaagaDefinition) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: raaga name is empty", models.ErrInvalidInput)
	}
	if !d.Tradition.Valid() {
		return fmt.Errorf("%w: raaga %s has unknown tradition %q", models.ErrInvalidInput, d.Name, d.Tradition)
	}
	if err := validatePattern(d.Name, "arohana", d.Arohana); err != nil {
		return err
	}
	return validatePattern(d.Name, "avarohana", d.Avarohana)
}

func validatePattern(name, label string, p []models.SwaramName) error {
	if len(p) < 2 {
		return fmt.Errorf("%w: raaga %s %s needs at least two swarams", models.ErrInvalidInput, name, label)
	}
	for _, s := range p {
		if !s.Valid() {
			return fmt.Errorf("%w: raaga %s %s has unknown swaram %q", models.ErrInvalidInput, name, label, s)
		}
	}
	if p[0] != models.Sa || p[len(p)-1] != models.Sa {
		return fmt.Errorf("%w: raaga %s %s must start and end on Sa", models.ErrInvalidInput, name, label)
	}
	return nil
}

// Len returns the number of raagas.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// Definitions returns copies of every definition in catalog order.
func (c *Catalog) Definitions() []models.RaagaDefinition {
	out := make([]models.RaagaDefinition, len(c.defs))
	for i, d := range c.defs {
		out[i] = d.Clone()
	}
	return out
}

// Lookup finds a raaga by name, ignoring case.
func (c *Catalog) Lookup(name string) (models.RaagaDefinition, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return models.RaagaDefinition{}, false
	}
	return c.defs[i].Clone(), true
}

// each visits the stored definitions without copying. The callback must
// not retain or modify them.
func (c *Catalog) each(fn func(i int, d *models.RaagaDefinition)) {
	for i := range c.defs {
		fn(i, &c.defs[i])
	}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the built-in catalog. It is built on the first
// call and never changes afterwards.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := NewCatalog(BuiltinDefinitions())
		if err != nil {
			panic(fmt.Sprintf("raaga: built-in catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// BuiltinDefinitions returns a fresh copy of the built-in raagas in
// catalog order.
func BuiltinDefinitions() []models.RaagaDefinition {
	return []models.RaagaDefinition{
		define("Mayamalavagowla", models.Carnatic,
			"A fundamental raaga used for teaching, with symmetric arohana and avarohana.",
			models.Ri1, models.Ga3, models.Ma1, models.Pa, models.Da1, models.Ni3),
		define("Shankarabharanam", models.Carnatic,
			"A major raaga, equivalent to Western major scale. Very popular and versatile.",
			models.Ri2, models.Ga3, models.Ma1, models.Pa, models.Da2, models.Ni3),
		define("Kalyani", models.Carnatic,
			"A bright and auspicious raaga with Prati Madhyama, often used in morning concerts.",
			models.Ri2, models.Ga3, models.Ma2, models.Pa, models.Da2, models.Ni3),
		define("Bhairavi", models.Carnatic,
			"A versatile raaga suitable for all times, often used in devotional music.",
			models.Ri1, models.Ga2, models.Ma1, models.Pa, models.Da1, models.Ni2),
		define("Yaman", models.Hindustani,
			"A serene evening raaga in Hindustani music, equivalent to Kalyani in Carnatic.",
			models.Ri2, models.Ga3, models.Ma2, models.Pa, models.Da2, models.Ni3),
		define("Darbari", models.Hindustani,
			"A deep and profound raaga, typically performed in late evening or night.",
			models.Ri1, models.Ga2, models.Ma1, models.Pa, models.Da1, models.Ni2),
	}
}

// define builds a sampurna raaga from the swarams between the two Sa's of
// the arohana. The avarohana is the arohana reversed.
func define(name string, tradition models.Tradition, description string, inner ...models.SwaramName) models.RaagaDefinition {
	aro := make([]models.SwaramName, 0, len(inner)+2)
	aro = append(aro, models.Sa)
	aro = append(aro, inner...)
	aro = append(aro, models.Sa)

	ava := make([]models.SwaramName, len(aro))
	for i, s := range aro {
		ava[len(aro)-1-i] = s
	}

	return models.RaagaDefinition{
		Name:        name,
		Tradition:   tradition,
		Arohana:     aro,
		Avarohana:   ava,
		Description: description,
	}
}
