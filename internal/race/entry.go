// Package race runs lap-by-lap race and qualifying simulations.
package race

import (
	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/domain/personnel"
	"github.com/teamprincipal/paddock/internal/domain/tire"
)

// Entry couples a driver and a car for one race and carries the mutable
// race state.
type Entry struct {
	Driver personnel.Driver // snapshot taken at entry
	// Car is shared with the team's research graph, so upgrades completed
	// between races are visible without rebuilding entries.
	Car  *car.Car
	Team string

	Strategy  []string // compounds still to fit, front first
	Compound  tire.Compound
	Wear      float64 // percent, [0, 100]
	PitStops  int
	TotalTime float64
	LastLap   float64
}

// NewEntry builds an entry. The first strategy compound is fitted at the
// start; an empty strategy starts on Medium, or Hard if the catalog has no
// Medium. Names the catalog does not know resolve to Hard.
func NewEntry(d *personnel.Driver, c *car.Car, team string, strategy []string, catalog *tire.Catalog) *Entry {
	e := &Entry{
		Driver:   *d,
		Car:      c,
		Team:     team,
		Strategy: append([]string(nil), strategy...),
	}
	if len(e.Strategy) > 0 {
		e.Compound = catalog.Resolve(e.Strategy[0])
		e.Strategy = e.Strategy[1:]
	} else if m, ok := catalog.Lookup(tire.Medium); ok {
		e.Compound = m
	} else {
		e.Compound = catalog.Hard()
	}
	return e
}

// popStrategy removes and returns the next planned compound name.
func (e *Entry) popStrategy() string {
	next := e.Strategy[0]
	e.Strategy = e.Strategy[1:]
	return next
}
