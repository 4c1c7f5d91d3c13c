// Package championship keeps the drivers' and constructors' tables.
package championship

import (
	"sort"

	"github.com/teamprincipal/paddock/internal/race"
)

// PointsSystem awards the top ten finishers.
var PointsSystem = [...]int{25, 18, 15, 12, 10, 8, 6, 4, 2, 1}

// PointsFor returns the points for a 1-based finishing position.
func PointsFor(position int) int {
	if position < 1 || position > len(PointsSystem) {
		return 0
	}
	return PointsSystem[position-1]
}

// Row is one line of a sorted table.
type Row struct {
	Name   string `json:"name" cbor:"name"`
	Points int    `json:"points" cbor:"points"`
}

// Award is a points award from one race.
type Award struct {
	Position int
	Driver   string
	Team     string
	Points   int
}

// SeasonRecord archives a finished season.
type SeasonRecord struct {
	Season              int    `json:"season" cbor:"season"`
	DriverChampion      string `json:"driver_champion" cbor:"driver_champion"`
	DriverPoints        int    `json:"driver_points" cbor:"driver_points"`
	ConstructorChampion string `json:"constructor_champion" cbor:"constructor_champion"`
	ConstructorPoints   int    `json:"constructor_points" cbor:"constructor_points"`
}

// Ledger tracks points across a season.
type Ledger struct {
	Season       int            `json:"season" cbor:"season"`
	Drivers      map[string]int `json:"driver_standings" cbor:"driver_standings"`
	Constructors map[string]int `json:"constructor_standings" cbor:"constructor_standings"`
	History      []SeasonRecord `json:"history" cbor:"history"`
}

// NewLedger starts season one with empty tables.
func NewLedger() *Ledger {
	return &Ledger{
		Season:       1,
		Drivers:      make(map[string]int),
		Constructors: make(map[string]int),
	}
}

// Score credits points from a classified race and returns the awards made.
func (l *Ledger) Score(standings []race.Standing) []Award {
	var awards []Award
	for i, s := range standings {
		pts := PointsFor(i + 1)
		if pts == 0 {
			break
		}
		l.Drivers[s.Driver] += pts
		l.Constructors[s.Team] += pts
		awards = append(awards, Award{Position: i + 1, Driver: s.Driver, Team: s.Team, Points: pts})
	}
	return awards
}

// DriverStandings returns the drivers' table, points descending.
func (l *Ledger) DriverStandings() []Row {
	return sorted(l.Drivers)
}

// ConstructorStandings returns the constructors' table, points descending.
func (l *Ledger) ConstructorStandings() []Row {
	return sorted(l.Constructors)
}

func sorted(m map[string]int) []Row {
	rows := make([]Row, 0, len(m))
	for name, pts := range m {
		rows = append(rows, Row{Name: name, Points: pts})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// EndSeason archives the champions, clears both tables and moves to the
// next season. A season with no points is archived without champions.
func (l *Ledger) EndSeason() SeasonRecord {
	rec := SeasonRecord{Season: l.Season}
	if d := l.DriverStandings(); len(d) > 0 {
		rec.DriverChampion, rec.DriverPoints = d[0].Name, d[0].Points
	}
	if c := l.ConstructorStandings(); len(c) > 0 {
		rec.ConstructorChampion, rec.ConstructorPoints = c[0].Name, c[0].Points
	}
	l.History = append(l.History, rec)

	l.Drivers = make(map[string]int)
	l.Constructors = make(map[string]int)
	l.Season++
	return rec
}
