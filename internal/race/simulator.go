package race

import (
	"math/rand"
	"sort"

	"github.com/teamprincipal/paddock/internal/domain/rules"
	"github.com/teamprincipal/paddock/internal/domain/tire"
	"github.com/teamprincipal/paddock/internal/domain/track"
	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/platform/logger"
)

// LapRecord is one entry's line in a lap snapshot.
type LapRecord struct {
	Driver    string  `json:"driver" cbor:"driver"`
	Team      string  `json:"team" cbor:"team"`
	LapTime   float64 `json:"lap_time" cbor:"lap_time"`
	TotalTime float64 `json:"total_time" cbor:"total_time"`
	Gap       float64 `json:"gap" cbor:"gap"` // to the leader
	PitStops  int     `json:"pit_stops" cbor:"pit_stops"`
	Wear      float64 `json:"wear" cbor:"wear"`
	Compound  string  `json:"compound" cbor:"compound"`
}

// Lap is the running order after one lap.
type Lap struct {
	Number int         `json:"lap" cbor:"lap"`
	Order  []LapRecord `json:"order" cbor:"order"`
}

// Standing is one line of the final classification.
type Standing struct {
	Position  int     `json:"position" cbor:"position"`
	Driver    string  `json:"driver" cbor:"driver"`
	Team      string  `json:"team" cbor:"team"`
	TotalTime float64 `json:"total_time" cbor:"total_time"`
	PitStops  int     `json:"pit_stops" cbor:"pit_stops"`
}

// Result is a completed race.
type Result struct {
	Round     int        `json:"round" cbor:"round"`
	Track     string     `json:"track" cbor:"track"`
	Grid      []GridSlot `json:"grid,omitempty" cbor:"grid,omitempty"`
	Laps      []Lap      `json:"laps" cbor:"laps"`
	Standings []Standing `json:"standings" cbor:"standings"`
}

// Simulator runs races on one track. It is single-threaded; one Run
// completes before it returns.
type Simulator struct {
	track   track.Track
	catalog *tire.Catalog
	rng     *rand.Rand
	logger  *logger.Logger

	sink  events.Appender
	round int
}

// NewSimulator creates a simulator. All randomness is drawn from rng.
func NewSimulator(t track.Track, catalog *tire.Catalog, rng *rand.Rand, log *logger.Logger) *Simulator {
	if log == nil {
		log = logger.Discard()
	}
	return &Simulator{
		track:   t,
		catalog: catalog,
		rng:     rng,
		logger:  log,
	}
}

// SetEventSink routes pit stops and the race result to sink.
func (s *Simulator) SetEventSink(sink events.Appender, round int) {
	s.sink = sink
	s.round = round
}

// LapTime computes one lap for e at its current wear and compound. It
// draws from the random source for the mistake roll but does not mutate e.
//
// The result is floored at zero: unclamped research can push a car's
// advantage past the base lap time.
func (s *Simulator) LapTime(e *Entry) float64 {
	weighted := rules.WeightedPerformance(e.Car, s.track)

	var mistake float64
	if s.rng.Float64() < rules.MistakeChance(e.Driver.Consistency) {
		mistake = s.rng.Float64() * rules.MistakePenaltyMax
	}

	lap := s.track.BaseLapTime -
		rules.CarAdvantage(weighted) -
		rules.DriverAdvantage(e.Driver.Speed) +
		mistake +
		rules.TirePenalty(e.Wear) -
		e.Compound.PaceAdvantage
	if lap < 0 {
		lap = 0
	}
	return lap
}

// Run simulates every lap and returns the lap log and final standings.
// Entries are mutated in place. With no entries the result is empty; with
// zero laps every entry is classified at zero time.
func (s *Simulator) Run(entries []*Entry) Result {
	res := Result{
		Round:     s.round,
		Track:     s.track.Name,
		Laps:      []Lap{},
		Standings: []Standing{},
	}
	if len(entries) == 0 {
		return res
	}

	order := append([]*Entry(nil), entries...)
	for lap := 1; lap <= s.track.Laps; lap++ {
		for _, e := range order {
			s.runLap(e, lap)
		}
		sortByTime(order)
		res.Laps = append(res.Laps, snapshot(lap, order))
	}

	sortByTime(order)
	for i, e := range order {
		res.Standings = append(res.Standings, Standing{
			Position:  i + 1,
			Driver:    e.Driver.Name,
			Team:      e.Team,
			TotalTime: e.TotalTime,
			PitStops:  e.PitStops,
		})
	}

	if s.track.Laps > 0 {
		winner := res.Standings[0]
		s.logger.Event(string(events.EventTypeRaceFinished), winner.Team,
			winner.Driver+" wins at "+s.track.Name)
		s.emit(events.EventTypeRaceFinished, winner.Team, winner.Driver, events.RaceFinishedPayload{
			Round:      s.round,
			Track:      s.track.Name,
			Winner:     winner.Driver,
			WinnerTeam: winner.Team,
			TotalTime:  winner.TotalTime,
		})
	}
	return res
}

func (s *Simulator) runLap(e *Entry, lap int) {
	lapTime := s.LapTime(e)

	delta := rules.WearDelta(e.Compound.WearRate, e.Car.Chassis.TirePreservation, e.Driver.TireManagement)
	e.Wear = rules.AddWear(e.Wear, delta)

	switch {
	case e.Wear > rules.PitWearThreshold && len(e.Strategy) > 0:
		lapTime += rules.PitStopPenalty
		worn := e.Wear
		name := e.popStrategy()
		if _, ok := s.catalog.Lookup(name); !ok {
			s.logger.Warn("unknown compound in strategy, fitting Hard",
				"driver", e.Driver.Name, "compound", name)
		}
		s.pit(e, s.catalog.Resolve(name), lap, worn, false)
	case e.Wear > rules.EmergencyWearThreshold:
		lapTime += rules.EmergencyPitPenalty
		s.pit(e, s.catalog.Hard(), lap, e.Wear, true)
	}

	e.LastLap = lapTime
	e.TotalTime += lapTime
}

func (s *Simulator) pit(e *Entry, next tire.Compound, lap int, worn float64, emergency bool) {
	e.Wear = 0
	e.Compound = next
	e.PitStops++
	s.emit(events.EventTypePitStop, e.Team, e.Driver.Name, events.PitStopPayload{
		Track:     s.track.Name,
		Lap:       lap,
		Compound:  next.Name,
		Wear:      worn,
		Emergency: emergency,
	})
}

func (s *Simulator) emit(t events.EventType, actor, target string, payload interface{}) {
	if s.sink == nil {
		return
	}
	s.sink.Append(events.NewEvent(t, actor, target, payload))
}

func sortByTime(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalTime < entries[j].TotalTime
	})
}

func snapshot(lap int, order []*Entry) Lap {
	leader := order[0].TotalTime
	out := Lap{Number: lap, Order: make([]LapRecord, 0, len(order))}
	for _, e := range order {
		out.Order = append(out.Order, LapRecord{
			Driver:    e.Driver.Name,
			Team:      e.Team,
			LapTime:   e.LastLap,
			TotalTime: e.TotalTime,
			Gap:       e.TotalTime - leader,
			PitStops:  e.PitStops,
			Wear:      e.Wear,
			Compound:  e.Compound.Name,
		})
	}
	return out
}
