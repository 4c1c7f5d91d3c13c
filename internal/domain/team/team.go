// Package team holds the starting constructors and the staff market.
// This package is PURE and must NOT import any infrastructure packages.
package team

import (
	"fmt"
	"strings"

	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/domain/personnel"
)

// DefaultBudget is every constructor's opening balance and the cost cap.
const DefaultBudget int64 = 140_000_000

// Team is a constructor entry: one car shared by its two drivers.
type Team struct {
	Name    string
	Budget  int64
	Car     *car.Car
	Drivers []*personnel.Driver
}

// Initial returns the ten constructors of the opening grid, in pit-lane order.
// Each call builds fresh values.
func Initial() []Team {
	d := personnel.NewDriver
	return []Team{
		{"Red Bull Racing", DefaultBudget, car.NewWithStats(95, 95, 95, 90, 95, 90), []*personnel.Driver{
			d("Max Verstappen", 55_000_000, 98, 99, 98, 95),
			d("Sergio Perez", 10_000_000, 85, 86, 80, 89),
		}},
		{"Ferrari", DefaultBudget, car.NewWithStats(92, 90, 88, 85, 94, 88), []*personnel.Driver{
			d("Charles Leclerc", 34_000_000, 94, 97, 88, 88),
			d("Carlos Sainz", 12_000_000, 90, 90, 92, 90),
		}},
		{"McLaren", DefaultBudget, car.NewWithStats(94, 92, 90, 93, 93, 95), []*personnel.Driver{
			d("Lando Norris", 20_000_000, 93, 95, 93, 91),
			d("Oscar Piastri", 8_000_000, 89, 92, 88, 85),
		}},
		{"Mercedes", DefaultBudget, car.NewWithStats(88, 93, 85, 88, 94, 96), []*personnel.Driver{
			d("Lewis Hamilton", 45_000_000, 95, 94, 96, 98),
			d("George Russell", 18_000_000, 91, 92, 90, 88),
		}},
		{"Aston Martin", DefaultBudget, car.NewWithStats(85, 87, 82, 85, 93, 90), []*personnel.Driver{
			d("Fernando Alonso", 18_000_000, 92, 90, 95, 94),
			d("Lance Stroll", 3_000_000, 81, 82, 75, 80),
		}},
		{"Alpine", DefaultBudget, car.NewWithStats(78, 80, 80, 80, 85, 88), []*personnel.Driver{
			d("Pierre Gasly", 6_000_000, 86, 87, 86, 84),
			d("Esteban Ocon", 6_000_000, 86, 86, 85, 86),
		}},
		{"Williams", DefaultBudget, car.NewWithStats(75, 88, 75, 78, 93, 85), []*personnel.Driver{
			d("Alex Albon", 3_000_000, 87, 89, 85, 87),
			d("Logan Sargeant", 1_000_000, 75, 76, 70, 72),
		}},
		{"RB", DefaultBudget, car.NewWithStats(80, 80, 80, 80, 95, 90), []*personnel.Driver{
			d("Yuki Tsunoda", 2_000_000, 84, 87, 78, 82),
			d("Daniel Ricciardo", 2_000_000, 83, 84, 83, 83),
		}},
		{"Sauber", DefaultBudget, car.NewWithStats(70, 75, 75, 75, 85, 88), []*personnel.Driver{
			d("Valtteri Bottas", 10_000_000, 86, 88, 85, 84),
			d("Zhou Guanyu", 2_000_000, 80, 81, 83, 84),
		}},
		{"Haas", DefaultBudget, car.NewWithStats(82, 80, 78, 70, 88, 80), []*personnel.Driver{
			d("Nico Hulkenberg", 2_000_000, 85, 88, 84, 81),
			d("Kevin Magnussen", 5_000_000, 82, 84, 78, 80),
		}},
	}
}

// Find returns the named constructor from the opening grid.
func Find(name string) (Team, bool) {
	for _, t := range Initial() {
		if t.Name == name {
			return t, true
		}
	}
	return Team{}, false
}

// Tier is the competitiveness of a custom-built team.
type Tier string

const (
	TierFrontRunner Tier = "front runner"
	TierMidfield    Tier = "midfield"
	TierBackmarker  Tier = "backmarker"
)

// Custom builds a new constructor whose car and budget follow the tier.
// Unknown tiers are treated as backmarkers.
func Custom(name string, tier Tier, drivers ...*personnel.Driver) Team {
	t := Team{Name: name, Drivers: drivers}
	switch Tier(strings.ToLower(string(tier))) {
	case TierFrontRunner:
		t.Car = car.NewWithStats(92, 90, 90, 88, 93, 90)
		t.Budget = 140_000_000
	case TierMidfield:
		t.Car = car.NewWithStats(82, 80, 80, 78, 85, 82)
		t.Budget = 80_000_000
	default:
		t.Car = car.NewWithStats(72, 70, 70, 68, 75, 70)
		t.Budget = 50_000_000
	}
	return t
}

// Validate checks that a constructor can enter a race.
func (t Team) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("team has no name")
	}
	if t.Car == nil {
		return fmt.Errorf("team %s has no car", t.Name)
	}
	if len(t.Drivers) != 2 {
		return fmt.Errorf("team %s needs 2 drivers, has %d", t.Name, len(t.Drivers))
	}
	return nil
}
