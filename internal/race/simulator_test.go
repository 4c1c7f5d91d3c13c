package race

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/domain/personnel"
	"github.com/teamprincipal/paddock/internal/domain/rules"
	"github.com/teamprincipal/paddock/internal/domain/team"
	"github.com/teamprincipal/paddock/internal/domain/tire"
	"github.com/teamprincipal/paddock/internal/domain/track"
	"github.com/teamprincipal/paddock/internal/events"
)

func flatTrack(laps int) track.Track {
	return track.Track{Name: "Test Ring", Laps: laps, BaseLapTime: 90, AeroWeight: 1, ChassisWeight: 1, PowertrainWeight: 1}
}

func newSim(t track.Track, seed int64) *Simulator {
	return NewSimulator(t, tire.DefaultCatalog(), rand.New(rand.NewSource(seed)), nil)
}

func TestSingleLapIsDeterministicWithPerfectConsistency(t *testing.T) {
	cat := tire.DefaultCatalog()
	d := personnel.NewDriver("Steady", 1, 90, 90, 100, 50)
	e := NewEntry(d, car.New(), "Test", nil, cat)

	res := newSim(flatTrack(1), 1).Run([]*Entry{e})

	// weighted (100+100+130)/6 = 55
	want := 90 - 55.0/100*4.75 - 0.9*2.0 - 0.6
	require.Len(t, res.Standings, 1)
	assert.InDelta(t, want, res.Standings[0].TotalTime, 1e-9)
	assert.Equal(t, 0, res.Standings[0].PitStops)
	require.Len(t, res.Laps, 1)
	assert.InDelta(t, want, res.Laps[0].Order[0].LapTime, 1e-9)
	assert.Zero(t, res.Laps[0].Order[0].Gap)
	assert.Equal(t, tire.Medium, res.Laps[0].Order[0].Compound)
}

// noPreservation makes Soft wear exactly 2.1 * 1.6 = 3.36 per lap.
func noPreservation() (*car.Car, *personnel.Driver) {
	return car.NewWithStats(50, 50, 50, 0, 50, 50), personnel.NewDriver("Chewer", 1, 80, 80, 100, 0)
}

func TestPlannedPitStop(t *testing.T) {
	c, d := noPreservation()
	e := NewEntry(d, c, "Test", []string{tire.Soft, tire.Hard}, tire.DefaultCatalog())
	require.Equal(t, tire.Soft, e.Compound.Name)

	res := newSim(flatTrack(30), 1).Run([]*Entry{e})

	assert.Equal(t, 1, e.PitStops)
	assert.Equal(t, tire.Hard, e.Compound.Name)
	assert.Empty(t, e.Strategy)

	// 21 laps of Soft take wear to 70.56, over the threshold
	lap21 := res.Laps[20].Order[0]
	assert.Equal(t, 1, lap21.PitStops)
	assert.Zero(t, lap21.Wear)
	assert.Greater(t, lap21.LapTime, rules.PitStopPenalty)
	assert.Equal(t, 0, res.Laps[19].Order[0].PitStops)
}

func TestEmergencyStopFitsHard(t *testing.T) {
	c, d := noPreservation()
	e := NewEntry(d, c, "Test", []string{tire.Soft}, tire.DefaultCatalog())

	res := newSim(flatTrack(40), 1).Run([]*Entry{e})

	// 29 laps of Soft: 97.44 > 95
	assert.Equal(t, 1, e.PitStops)
	assert.Equal(t, tire.Hard, e.Compound.Name)
	lap29 := res.Laps[28].Order[0]
	assert.Zero(t, lap29.Wear)
	assert.Equal(t, tire.Hard, lap29.Compound)
	assert.Equal(t, tire.Soft, res.Laps[27].Order[0].Compound)
}

func TestWearStaysInRange(t *testing.T) {
	c, d := noPreservation()
	cat, err := tire.NewCatalog(
		tire.Compound{Name: tire.Hard, WearRate: 0.7},
		tire.Compound{Name: "Glue", PaceAdvantage: 3, WearRate: 40},
	)
	require.NoError(t, err)
	e := NewEntry(d, c, "Test", []string{"Glue"}, cat)

	res := NewSimulator(flatTrack(50), cat, rand.New(rand.NewSource(3)), nil).Run([]*Entry{e})

	for _, lap := range res.Laps {
		for _, rec := range lap.Order {
			assert.GreaterOrEqual(t, rec.Wear, 0.0)
			assert.LessOrEqual(t, rec.Wear, 100.0)
		}
	}
}

func TestUnknownCompoundResolvesToHard(t *testing.T) {
	c, d := noPreservation()
	e := NewEntry(d, c, "Test", []string{"Wet", "Intermediate"}, tire.DefaultCatalog())
	assert.Equal(t, tire.Hard, e.Compound.Name)

	newSim(flatTrack(60), 1).Run([]*Entry{e})
	assert.Equal(t, tire.Hard, e.Compound.Name)
	assert.GreaterOrEqual(t, e.PitStops, 1)
}

func TestEmptyInputs(t *testing.T) {
	res := newSim(flatTrack(50), 1).Run(nil)
	assert.Empty(t, res.Laps)
	assert.Empty(t, res.Standings)

	d := personnel.NewDriver("Parked", 1, 80, 80, 80, 80)
	e := NewEntry(d, car.New(), "Test", nil, tire.DefaultCatalog())
	res = newSim(flatTrack(0), 1).Run([]*Entry{e})
	assert.Empty(t, res.Laps)
	require.Len(t, res.Standings, 1)
	assert.Zero(t, res.Standings[0].TotalTime)
}

func fullGrid(rng *rand.Rand) []*Entry {
	strategies := [][]string{{tire.Medium, tire.Hard}, {tire.Soft, tire.Hard}, {tire.Soft, tire.Medium, tire.Medium}}
	cat := tire.DefaultCatalog()
	var entries []*Entry
	for _, tm := range team.Initial() {
		for _, d := range tm.Drivers {
			entries = append(entries, NewEntry(d, tm.Car, tm.Name, strategies[rng.Intn(len(strategies))], cat))
		}
	}
	return entries
}

func TestStandingsOrderAndLength(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		entries := fullGrid(rng)
		tr := track.Calendar()[seed]

		res := NewSimulator(tr, tire.DefaultCatalog(), rng, nil).Run(entries)

		require.Len(t, res.Standings, len(entries))
		require.Len(t, res.Laps, tr.Laps)
		for i := 1; i < len(res.Standings); i++ {
			assert.LessOrEqual(t, res.Standings[i-1].TotalTime, res.Standings[i].TotalTime)
			assert.Equal(t, i+1, res.Standings[i].Position)
		}
		last := res.Laps[len(res.Laps)-1]
		assert.Zero(t, last.Order[0].Gap)
		for _, rec := range last.Order {
			assert.GreaterOrEqual(t, rec.Gap, 0.0)
		}
	}
}

func TestTotalTimeIsMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	entries := fullGrid(rng)
	res := NewSimulator(flatTrack(30), tire.DefaultCatalog(), rng, nil).Run(entries)

	prev := map[string]float64{}
	for _, lap := range res.Laps {
		for _, rec := range lap.Order {
			assert.GreaterOrEqual(t, rec.TotalTime, prev[rec.Driver])
			prev[rec.Driver] = rec.TotalTime
		}
	}
}

func TestSameSeedSameRace(t *testing.T) {
	run := func() Result {
		rng := rand.New(rand.NewSource(77))
		return NewSimulator(track.Calendar()[0], tire.DefaultCatalog(), rng, nil).Run(fullGrid(rng))
	}
	assert.Equal(t, run(), run())
}

func TestCarIsShared(t *testing.T) {
	c := car.New()
	d := personnel.NewDriver("Driver", 1, 80, 80, 100, 80)
	e := NewEntry(d, c, "Test", nil, tire.DefaultCatalog())
	sim := newSim(flatTrack(1), 1)

	before := sim.LapTime(e)
	c.Apply(car.PowerOutput, 60)
	assert.Less(t, sim.LapTime(e), before)
}

func TestLapTimeFlooredAtZero(t *testing.T) {
	c := car.NewWithStats(50_000, 50_000, 50_000, 100, 50_000, 100)
	d := personnel.NewDriver("Driver", 1, 80, 80, 100, 80)
	e := NewEntry(d, c, "Test", nil, tire.DefaultCatalog())

	res := newSim(flatTrack(3), 1).Run([]*Entry{e})

	assert.Zero(t, newSim(flatTrack(1), 1).LapTime(e))
	assert.Zero(t, res.Standings[0].TotalTime)
}

func TestPitStopEvents(t *testing.T) {
	log := events.NewEventLog(nil)
	c, d := noPreservation()
	e := NewEntry(d, c, "Haas", []string{tire.Soft, tire.Hard}, tire.DefaultCatalog())

	sim := newSim(flatTrack(30), 1)
	sim.SetEventSink(log, 4)
	sim.Run([]*Entry{e})

	pits := log.GetByType(events.EventTypePitStop)
	require.Len(t, pits, 1)
	p := pits[0].Payload.(events.PitStopPayload)
	assert.Equal(t, 21, p.Lap)
	assert.Equal(t, tire.Hard, p.Compound)
	assert.False(t, p.Emergency)

	fin := log.GetByType(events.EventTypeRaceFinished)
	require.Len(t, fin, 1)
	assert.Equal(t, 4, fin[0].Payload.(events.RaceFinishedPayload).Round)
}

func TestQualifyOrdersGrid(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	entries := fullGrid(rng)
	sim := NewSimulator(track.Calendar()[1], tire.DefaultCatalog(), rng, nil)

	ordered, grid := sim.Qualify(entries)
	require.Len(t, ordered, len(entries))
	require.Len(t, grid, len(entries))
	for i := 1; i < len(grid); i++ {
		assert.LessOrEqual(t, grid[i-1].LapTime, grid[i].LapTime)
		assert.Equal(t, grid[i].Driver, ordered[i].Driver.Name)
	}
	for _, e := range entries {
		assert.Zero(t, e.TotalTime)
	}
}
