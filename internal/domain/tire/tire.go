// Package tire defines the static catalog of tire compounds.
// This package is PURE and must NOT import any infrastructure packages.
package tire

import (
	"fmt"
	"sort"
)

// Well-known compound names.
const (
	Soft   = "Soft"
	Medium = "Medium"
	Hard   = "Hard"
)

// Compound is an immutable tire type.
type Compound struct {
	Name          string  `json:"name"`
	PaceAdvantage float64 `json:"pace_advantage"` // seconds subtracted from every lap
	WearRate      float64 `json:"wear_rate"`      // multiplier on base wear per lap
}

// Catalog is a read-only lookup of compounds by name. It always holds a
// Hard entry, which is the fallback for unknown names and emergency stops.
type Catalog struct {
	compounds map[string]Compound
}

// NewCatalog validates and indexes compounds.
func NewCatalog(compounds ...Compound) (*Catalog, error) {
	c := &Catalog{compounds: make(map[string]Compound, len(compounds))}
	for _, cp := range compounds {
		if cp.Name == "" {
			return nil, fmt.Errorf("compound name is required")
		}
		if _, dup := c.compounds[cp.Name]; dup {
			return nil, fmt.Errorf("duplicate compound %q", cp.Name)
		}
		if cp.PaceAdvantage < 0 {
			return nil, fmt.Errorf("compound %q: pace advantage must be >= 0, got %v", cp.Name, cp.PaceAdvantage)
		}
		if cp.WearRate <= 0 {
			return nil, fmt.Errorf("compound %q: wear rate must be > 0, got %v", cp.Name, cp.WearRate)
		}
		c.compounds[cp.Name] = cp
	}
	if _, ok := c.compounds[Hard]; !ok {
		return nil, fmt.Errorf("catalog must contain a %q compound", Hard)
	}
	return c, nil
}

// DefaultCatalog returns the standard three-compound catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Compound{Name: Soft, PaceAdvantage: 1.2, WearRate: 1.6},
		Compound{Name: Medium, PaceAdvantage: 0.6, WearRate: 1.0},
		Compound{Name: Hard, PaceAdvantage: 0.0, WearRate: 0.7},
	)
	if err != nil {
		panic("tire: default catalog invalid: " + err.Error())
	}
	return c
}

// Lookup returns the named compound. Names match exactly.
func (c *Catalog) Lookup(name string) (Compound, bool) {
	cp, ok := c.compounds[name]
	return cp, ok
}

// Hard returns the fallback compound.
func (c *Catalog) Hard() Compound {
	return c.compounds[Hard]
}

// Resolve returns the named compound, or Hard when the name is unknown.
func (c *Catalog) Resolve(name string) Compound {
	if cp, ok := c.compounds[name]; ok {
		return cp
	}
	return c.Hard()
}

// Names lists compound names alphabetically.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.compounds))
	for n := range c.compounds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
