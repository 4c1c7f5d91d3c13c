package race

import "sort"

// GridSlot is a qualifying result.
type GridSlot struct {
	Position int     `json:"position" cbor:"position"`
	Driver   string  `json:"driver" cbor:"driver"`
	Team     string  `json:"team" cbor:"team"`
	LapTime  float64 `json:"lap_time" cbor:"lap_time"`
}

// Qualify runs one flying lap per entry on its starting tires and returns
// the entries in grid order with the grid itself. Entries are not mutated.
func (s *Simulator) Qualify(entries []*Entry) ([]*Entry, []GridSlot) {
	type timed struct {
		entry *Entry
		lap   float64
	}
	runs := make([]timed, 0, len(entries))
	for _, e := range entries {
		runs = append(runs, timed{entry: e, lap: s.LapTime(e)})
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].lap < runs[j].lap })

	ordered := make([]*Entry, 0, len(runs))
	grid := make([]GridSlot, 0, len(runs))
	for i, r := range runs {
		ordered = append(ordered, r.entry)
		grid = append(grid, GridSlot{
			Position: i + 1,
			Driver:   r.entry.Driver.Name,
			Team:     r.entry.Team,
			LapTime:  r.lap,
		})
	}
	return ordered, grid
}
