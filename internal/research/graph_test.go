package research

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/domain/rules"
	"github.com/teamprincipal/paddock/internal/events"
)

type fixedBonus int

func (b fixedBonus) RDBonus() int { return int(b) }

// branchDefs is the A -> {B | C} fork.
func branchDefs() []Definition {
	return []Definition{
		{ID: "A", RPCost: 100, BaseWorkload: 200, Effects: map[string]int{"aero.downforce": 5}},
		{ID: "B", RPCost: 10, BaseWorkload: 50, Dependencies: []string{"A"}, MutuallyExclusive: []string{"C"},
			Effects: map[string]int{"aero.downforce": 10, "aero.drag_efficiency": -4}},
		{ID: "C", RPCost: 10, BaseWorkload: 50, Dependencies: []string{"A"}, MutuallyExclusive: []string{"B"},
			Effects: map[string]int{"aero.drag_efficiency": 10}},
	}
}

func newTestGraph(t *testing.T, defs []Definition, cfg Config) (*Graph, *car.Car) {
	t.Helper()
	c := car.New()
	g, err := NewGraph(c, defs, cfg)
	require.NoError(t, err)
	return g, c
}

func state(t *testing.T, g *Graph, id string) State {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %s", id)
	return n.State
}

func TestBranchExample(t *testing.T) {
	g, c := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50, ResourcePoints: 150})

	assert.Equal(t, StateAvailable, state(t, g, "A"))
	assert.Equal(t, StateLocked, state(t, g, "B"))

	require.NoError(t, g.StartProject("A", false))
	assert.Equal(t, 50, g.ResourcePoints())
	assert.Equal(t, StateInProgress, state(t, g, "A"))
	assert.Equal(t, map[string]int{"A": 0}, g.Active())

	require.NoError(t, g.AllocateEngineers("A", 50))
	assert.Empty(t, g.AdvanceTime(3))
	assert.Equal(t, []string{"A"}, g.AdvanceTime(1))

	assert.Equal(t, StateCompleted, state(t, g, "A"))
	assert.Equal(t, StateAvailable, state(t, g, "B"))
	assert.Equal(t, StateAvailable, state(t, g, "C"))
	assert.Equal(t, 55, c.Aero.Downforce)
	assert.Empty(t, g.Active())

	require.NoError(t, g.StartProject("B", false))
	assert.Equal(t, StateMutuallyLocked, state(t, g, "C"))

	err := g.StartProject("C", false)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMutualLockSurvivesCompletion(t *testing.T) {
	g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 10})
	require.NoError(t, g.StartProject("A", true))
	require.NoError(t, g.AllocateEngineers("A", 10))
	g.AdvanceTime(20)

	require.NoError(t, g.StartProject("C", true))
	require.NoError(t, g.AllocateEngineers("C", 10))
	g.AdvanceTime(5)

	assert.Equal(t, StateCompleted, state(t, g, "C"))
	assert.Equal(t, StateMutuallyLocked, state(t, g, "B"))
	g.UpdateAvailability()
	assert.Equal(t, StateMutuallyLocked, state(t, g, "B"))
}

func TestStartLocksLockedSiblings(t *testing.T) {
	defs := []Definition{
		{ID: "root", BaseWorkload: 10},
		{ID: "x", BaseWorkload: 10, MutuallyExclusive: []string{"y"}},
		{ID: "y", BaseWorkload: 10, Dependencies: []string{"root"}},
	}
	g, _ := newTestGraph(t, defs, Config{TotalEngineers: 10})

	require.NoError(t, g.StartProject("x", true))
	assert.Equal(t, StateMutuallyLocked, state(t, g, "y"))

	require.NoError(t, g.StartProject("root", true))
	require.NoError(t, g.AllocateEngineers("root", 10))
	g.AdvanceTime(1)
	assert.Equal(t, StateMutuallyLocked, state(t, g, "y"), "dependencies completing must not revive a locked node")
}

func TestStartProjectFailuresDoNotMutate(t *testing.T) {
	g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50, ResourcePoints: 99})
	before := g.Snapshot()

	err := g.StartProject("A", false)
	assert.ErrorIs(t, err, ErrInsufficientResources)

	err = g.StartProject("B", false)
	assert.ErrorIs(t, err, ErrInvalidState)

	err = g.StartProject("nope", false)
	assert.ErrorIs(t, err, ErrUnknownNode)

	assert.Equal(t, before, g.Snapshot())
}

func TestStartProjectBypassFunds(t *testing.T) {
	g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50})

	require.NoError(t, g.StartProject("A", true))
	assert.Equal(t, 0, g.ResourcePoints())
	assert.ErrorIs(t, g.StartProject("A", true), ErrInvalidState)
}

func TestAllocateEngineers(t *testing.T) {
	defs := []Definition{
		{ID: "p", BaseWorkload: 100},
		{ID: "q", BaseWorkload: 100},
		{ID: "r", BaseWorkload: 100},
	}
	g, _ := newTestGraph(t, defs, Config{TotalEngineers: 50})
	require.NoError(t, g.StartProject("p", true))
	require.NoError(t, g.StartProject("q", true))

	err := g.AllocateEngineers("r", 1)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, g.AllocateEngineers("p", 30))
	assert.ErrorIs(t, g.AllocateEngineers("q", 21), ErrCapacityExceeded)
	require.NoError(t, g.AllocateEngineers("q", 20))
	assert.Equal(t, 0, g.IdleEngineers())

	// reassigning a project may reuse its own engineers
	require.NoError(t, g.AllocateEngineers("p", 30))
	require.NoError(t, g.AllocateEngineers("p", 10))
	assert.Equal(t, 20, g.IdleEngineers())

	assert.ErrorIs(t, g.AllocateEngineers("p", -1), ErrNegativeEngineers)
	assert.Equal(t, map[string]int{"p": 10, "q": 20}, g.Active())
}

func TestAdvanceTimeAppliesEffectsOnce(t *testing.T) {
	g, c := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50})
	require.NoError(t, g.StartProject("A", true))
	require.NoError(t, g.AllocateEngineers("A", 50))

	g.AdvanceTime(10)
	g.AdvanceTime(10)
	assert.Equal(t, 55, c.Aero.Downforce)

	n, _ := g.Node("A")
	assert.Equal(t, 500.0, n.InvestedWork)
	assert.Equal(t, 1.0, n.Progress())
}

func TestAdvanceTimeZeroOrNegativeUnits(t *testing.T) {
	g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50})
	require.NoError(t, g.StartProject("A", true))
	require.NoError(t, g.AllocateEngineers("A", 50))

	assert.Nil(t, g.AdvanceTime(0))
	assert.Nil(t, g.AdvanceTime(-3))
	n, _ := g.Node("A")
	assert.Zero(t, n.InvestedWork)
}

func TestSimultaneousCompletionsInDefinitionOrder(t *testing.T) {
	defs := []Definition{
		{ID: "z", BaseWorkload: 10, Effects: map[string]int{"powertrain.power_output": 1}},
		{ID: "a", BaseWorkload: 10, Effects: map[string]int{"powertrain.power_output": 1}},
		{ID: "m", BaseWorkload: 10, Effects: map[string]int{"powertrain.power_output": 1}},
	}
	g, c := newTestGraph(t, defs, Config{TotalEngineers: 30})
	for _, id := range []string{"m", "a", "z"} {
		require.NoError(t, g.StartProject(id, true))
		require.NoError(t, g.AllocateEngineers(id, 10))
	}

	assert.Equal(t, []string{"z", "a", "m"}, g.AdvanceTime(1))
	assert.Equal(t, 53, c.Powertrain.PowerOutput)
}

func TestLeadBonusOnlyForPositiveDeltas(t *testing.T) {
	defs := []Definition{{
		ID:           "mix",
		BaseWorkload: 1,
		Effects: map[string]int{
			"aero.downforce":           10,
			"aero.drag_efficiency":     -5,
			"powertrain.power_output":  4,
			"chassis.weight_reduction": 3,
		},
	}}
	g, c := newTestGraph(t, defs, Config{TotalEngineers: 1})
	g.SetLeads(fixedBonus(3), fixedBonus(2))

	require.NoError(t, g.StartProject("mix", true))
	require.NoError(t, g.AllocateEngineers("mix", 1))
	g.AdvanceTime(1)

	assert.Equal(t, 50+10+3, c.Aero.Downforce)
	assert.Equal(t, 50-5, c.Aero.DragEfficiency)
	assert.Equal(t, 50+4+2, c.Powertrain.PowerOutput)
	assert.Equal(t, 50+3, c.Chassis.WeightReduction, "chassis has no lead")
}

func TestEffectsAreUnclamped(t *testing.T) {
	defs := []Definition{{ID: "big", BaseWorkload: 1, Effects: map[string]int{"aero.downforce": 80}}}
	g, c := newTestGraph(t, defs, Config{TotalEngineers: 1})
	require.NoError(t, g.StartProject("big", true))
	require.NoError(t, g.AllocateEngineers("big", 1))
	g.AdvanceTime(1)
	assert.Equal(t, 130, c.Aero.Downforce)
}

func TestDefinitionErrors(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
	}{
		{"unknown dependency", []Definition{{ID: "a", BaseWorkload: 1, Dependencies: []string{"ghost"}}}},
		{"unknown exclusion", []Definition{{ID: "a", BaseWorkload: 1, MutuallyExclusive: []string{"ghost"}}}},
		{"duplicate", []Definition{{ID: "a", BaseWorkload: 1}, {ID: "a", BaseWorkload: 1}}},
		{"empty id", []Definition{{BaseWorkload: 1}}},
		{"zero workload", []Definition{{ID: "a"}}},
		{"negative cost", []Definition{{ID: "a", BaseWorkload: 1, RPCost: -1}}},
		{"bad stat path", []Definition{{ID: "a", BaseWorkload: 1, Effects: map[string]int{"aero.wings": 1}}}},
		{"self dependency", []Definition{{ID: "a", BaseWorkload: 1, Dependencies: []string{"a"}}}},
		{"cycle", []Definition{
			{ID: "a", BaseWorkload: 1, Dependencies: []string{"c"}},
			{ID: "b", BaseWorkload: 1, Dependencies: []string{"a"}},
			{ID: "c", BaseWorkload: 1, Dependencies: []string{"b"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(car.New(), tt.defs, Config{TotalEngineers: 1})
			var defErr *DefinitionError
			assert.True(t, errors.As(err, &defErr), "got %v", err)
		})
	}
}

func TestNewGraphNeedsRandForAutonomous(t *testing.T) {
	_, err := NewGraph(car.New(), branchDefs(), Config{Autonomous: true})
	assert.Error(t, err)
}

func TestAutonomousSelection(t *testing.T) {
	cfg := Config{
		TotalEngineers: 50,
		ResourcePoints: 150,
		Autonomous:     true,
		Difficulty:     rules.DifficultyHard,
		Rand:           rand.New(rand.NewSource(1)),
	}
	g, _ := newTestGraph(t, branchDefs(), cfg)

	g.UpdateAvailability()
	assert.Equal(t, map[string]int{"A": 50}, g.Active(), "only A is affordable and it takes all idle engineers")
	assert.Equal(t, 50, g.ResourcePoints())

	// 50 engineers x 1.25 on Hard
	g.AdvanceTime(1)
	n, _ := g.Node("A")
	assert.Equal(t, 62.5, n.InvestedWork)
}

func threeRoots() []Definition {
	return []Definition{
		{ID: "X", RPCost: 10, BaseWorkload: 100},
		{ID: "Y", RPCost: 10, BaseWorkload: 100},
		{ID: "Z", RPCost: 10, BaseWorkload: 100},
	}
}

func staffed(active map[string]int) (projects, engineers int) {
	for _, n := range active {
		if n > 0 {
			projects++
		}
		engineers += n
	}
	return projects, engineers
}

func TestAutonomousStartsEveryAffordableRoot(t *testing.T) {
	cfg := Config{TotalEngineers: 30, ResourcePoints: 100, Autonomous: true, Rand: rand.New(rand.NewSource(7))}
	g, _ := newTestGraph(t, threeRoots(), cfg)

	g.UpdateAvailability()

	assert.ElementsMatch(t, []string{"X", "Y", "Z"}, g.ActiveIDs())
	assert.Equal(t, 70, g.ResourcePoints())
	projects, engineers := staffed(g.Active())
	assert.Equal(t, 1, projects, "idle engineers go to a single project")
	assert.Equal(t, 30, engineers)
	assert.Zero(t, g.IdleEngineers())
}

func TestAutonomousStartCascades(t *testing.T) {
	cfg := Config{TotalEngineers: 30, ResourcePoints: 25, Autonomous: true, Rand: rand.New(rand.NewSource(7))}
	g, _ := newTestGraph(t, threeRoots(), cfg)

	require.NoError(t, g.StartProject("X", false))

	// 25 RP pays for X and one more root
	assert.Len(t, g.Active(), 2)
	assert.Contains(t, g.Active(), "X")
	assert.Equal(t, 5, g.ResourcePoints())
	assert.Zero(t, g.IdleEngineers())
}

func TestAutonomousCascadeHonoursExclusion(t *testing.T) {
	defs := []Definition{
		{ID: "P", RPCost: 10, BaseWorkload: 100, MutuallyExclusive: []string{"Q"}},
		{ID: "Q", RPCost: 10, BaseWorkload: 100, MutuallyExclusive: []string{"P"}},
		{ID: "R", RPCost: 10, BaseWorkload: 100},
	}
	cfg := Config{TotalEngineers: 10, ResourcePoints: 100, Autonomous: true, Rand: rand.New(rand.NewSource(3))}
	g, _ := newTestGraph(t, defs, cfg)

	g.UpdateAvailability()

	assert.Len(t, g.Active(), 2)
	assert.Contains(t, g.Active(), "R")
	p, q := state(t, g, "P"), state(t, g, "Q")
	assert.ElementsMatch(t, []State{StateInProgress, StateMutuallyLocked}, []State{p, q})
	assert.Equal(t, 80, g.ResourcePoints())
}

func TestPlayerStartDoesNotCascade(t *testing.T) {
	g, _ := newTestGraph(t, threeRoots(), Config{TotalEngineers: 30, ResourcePoints: 100})

	require.NoError(t, g.StartProject("X", false))

	assert.Equal(t, map[string]int{"X": 0}, g.Active())
	assert.Equal(t, StateAvailable, state(t, g, "Y"))
	assert.Equal(t, 30, g.IdleEngineers())
}

func TestAutonomousSkipsUnaffordable(t *testing.T) {
	cfg := Config{TotalEngineers: 50, ResourcePoints: 5, Autonomous: true, Rand: rand.New(rand.NewSource(1))}
	g, _ := newTestGraph(t, branchDefs(), cfg)

	g.UpdateAvailability()
	assert.Empty(t, g.Active())
	assert.Equal(t, 5, g.ResourcePoints())
}

func TestDifficultyIgnoredForPlayerGraph(t *testing.T) {
	g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50, Difficulty: rules.DifficultyEasy})
	require.NoError(t, g.StartProject("A", true))
	require.NoError(t, g.AllocateEngineers("A", 40))
	g.AdvanceTime(1)
	n, _ := g.Node("A")
	assert.Equal(t, 40.0, n.InvestedWork)
}

func TestAutonomousIsReplayable(t *testing.T) {
	run := func() Snapshot {
		cfg := Config{TotalEngineers: 50, ResourcePoints: 400, Autonomous: true, Rand: rand.New(rand.NewSource(42))}
		g, _ := newTestGraph(t, wideDefs(), cfg)
		for week := 0; week < 30; week++ {
			g.AddResourcePoints(120)
			g.AdvanceTime(1)
			g.UpdateAvailability()
		}
		return g.Snapshot()
	}
	assert.Equal(t, run(), run())
}

func wideDefs() []Definition {
	return []Definition{
		{ID: "r1", RPCost: 50, BaseWorkload: 60},
		{ID: "r2", RPCost: 80, BaseWorkload: 90, MutuallyExclusive: []string{"r3"}},
		{ID: "r3", RPCost: 80, BaseWorkload: 90, MutuallyExclusive: []string{"r2"}},
		{ID: "c1", RPCost: 100, BaseWorkload: 120, Dependencies: []string{"r1"}},
		{ID: "c2", RPCost: 120, BaseWorkload: 150, Dependencies: []string{"r1", "r2"}},
		{ID: "c3", RPCost: 90, BaseWorkload: 70, Dependencies: []string{"r3"}, MutuallyExclusive: []string{"c1"}},
		{ID: "d1", RPCost: 200, BaseWorkload: 200, Dependencies: []string{"c1"}},
	}
}

var stateRank = map[State]int{
	StateLocked:         0,
	StateAvailable:      1,
	StateInProgress:     2,
	StateCompleted:      3,
	StateMutuallyLocked: 3,
}

func allowedTransition(from, to State) bool {
	if from == to {
		return true
	}
	switch from {
	case StateLocked:
		return to == StateAvailable || to == StateMutuallyLocked
	case StateAvailable:
		return to == StateInProgress || to == StateMutuallyLocked
	case StateInProgress:
		return to == StateCompleted
	}
	return false
}

func TestInvariantsUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g, _ := newTestGraph(t, wideDefs(), Config{TotalEngineers: 40, ResourcePoints: 1000})
	ids := []string{"r1", "r2", "r3", "c1", "c2", "c3", "d1", "ghost"}

	prev := map[string]Node{}
	for _, n := range g.Nodes() {
		prev[n.ID] = n
	}

	for step := 0; step < 500; step++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(3) {
		case 0:
			_ = g.StartProject(id, rng.Intn(2) == 0)
		case 1:
			_ = g.AllocateEngineers(id, rng.Intn(50))
		case 2:
			g.AdvanceTime(rng.Intn(3))
		}

		active := g.Active()
		sum := 0
		for _, n := range active {
			sum += n
		}
		require.LessOrEqual(t, sum, g.TotalEngineers())

		for _, n := range g.Nodes() {
			_, isActive := active[n.ID]
			require.Equal(t, n.State == StateInProgress, isActive, "node %s", n.ID)

			before := prev[n.ID]
			require.True(t, allowedTransition(before.State, n.State), "%s: %s -> %s", n.ID, before.State, n.State)
			require.GreaterOrEqual(t, stateRank[n.State], stateRank[before.State])
			require.GreaterOrEqual(t, n.InvestedWork, before.InvestedWork)
			prev[n.ID] = n
		}
	}
}

func TestEventsEmitted(t *testing.T) {
	log := events.NewEventLog(nil)
	g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 10})
	g.SetEventSink(log, "Williams")

	require.NoError(t, g.StartProject("A", true))
	require.NoError(t, g.AllocateEngineers("A", 10))
	g.AdvanceTime(20)
	require.NoError(t, g.StartProject("B", true))

	var types []events.EventType
	for _, e := range log.Replay() {
		types = append(types, e.Type)
		assert.Equal(t, "Williams", e.ActorID)
	}
	assert.Equal(t, []events.EventType{
		events.EventTypeResearchStarted,
		events.EventTypeEngineersAllocated,
		events.EventTypeResearchCompleted,
		events.EventTypeResearchStarted,
		events.EventTypeResearchLocked,
	}, types)

	done := log.GetByType(events.EventTypeResearchCompleted)[0].Payload.(events.ResearchPayload)
	assert.Equal(t, map[string]int{"aero.downforce": 5}, done.Effects)
}
