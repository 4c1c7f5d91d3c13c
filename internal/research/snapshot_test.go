package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamprincipal/paddock/internal/domain/rules"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50, ResourcePoints: 300})
	require.NoError(t, g.StartProject("A", false))
	require.NoError(t, g.AllocateEngineers("A", 50))
	g.AdvanceTime(4)
	require.NoError(t, g.StartProject("B", false))
	require.NoError(t, g.AllocateEngineers("B", 20))
	g.AdvanceTime(1)

	snap := g.Snapshot()

	fresh, c := newTestGraph(t, branchDefs(), Config{TotalEngineers: 1})
	require.NoError(t, fresh.Restore(snap))

	assert.Equal(t, snap, fresh.Snapshot())
	assert.Equal(t, StateMutuallyLocked, state(t, fresh, "C"))
	assert.Equal(t, 50, c.Aero.Downforce, "restore does not replay effects")

	// restored graph keeps working
	fresh.AdvanceTime(2)
	assert.Equal(t, StateCompleted, state(t, fresh, "B"))
}

func TestRestoreRejectsBrokenSnapshots(t *testing.T) {
	base := func() Snapshot {
		return Snapshot{
			TotalEngineers: 10,
			Active:         map[string]int{"A": 5},
			Difficulty:     rules.DifficultyNormal,
			Nodes: []NodeState{
				{ID: "A", State: StateInProgress, InvestedWork: 20},
				{ID: "B", State: StateLocked},
				{ID: "C", State: StateLocked},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"over capacity", func(s *Snapshot) { s.Active["A"] = 11 }},
		{"active not in progress", func(s *Snapshot) { s.Nodes[0].State = StateAvailable }},
		{"in progress without assignment", func(s *Snapshot) { s.Active = map[string]int{} }},
		{"unknown active id", func(s *Snapshot) { s.Active["ghost"] = 1 }},
		{"bad state", func(s *Snapshot) { s.Nodes[1].State = "HALF_DONE" }},
		{"negative work", func(s *Snapshot) { s.Nodes[0].InvestedWork = -1 }},
		{"negative engineers", func(s *Snapshot) { s.Active["A"] = -2 }},
		{"autonomous without rand", func(s *Snapshot) { s.Autonomous = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50, ResourcePoints: 7})
			before := g.Snapshot()

			s := base()
			tt.mutate(&s)
			assert.Error(t, g.Restore(s))
			assert.Equal(t, before, g.Snapshot(), "failed restore must not mutate")
		})
	}

	g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50})
	assert.NoError(t, g.Restore(base()))
}

func TestRestoreToleratesTreeChanges(t *testing.T) {
	g, _ := newTestGraph(t, branchDefs(), Config{TotalEngineers: 50})
	err := g.Restore(Snapshot{
		TotalEngineers: 50,
		Nodes: []NodeState{
			{ID: "A", State: StateCompleted, InvestedWork: 200},
			{ID: "retired_node", State: StateCompleted},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, state(t, g, "A"))
	assert.Equal(t, StateLocked, state(t, g, "B"), "missing nodes reset to their initial state")
	g.UpdateAvailability()
	assert.Equal(t, StateAvailable, state(t, g, "B"))
}
