package research

import (
	"fmt"

	"github.com/teamprincipal/paddock/internal/domain/rules"
)

// NodeState is the mutable part of a node. The static parts come from the
// tree definitions.
type NodeState struct {
	ID           string  `json:"id" cbor:"id"`
	State        State   `json:"state" cbor:"state"`
	InvestedWork float64 `json:"invested_work" cbor:"invested_work"`
}

// Snapshot is everything needed to rebuild a graph's session state.
type Snapshot struct {
	ResourcePoints int              `json:"resource_points" cbor:"resource_points"`
	TotalEngineers int              `json:"total_engineers" cbor:"total_engineers"`
	Active         map[string]int   `json:"active_projects" cbor:"active_projects"`
	Difficulty     rules.Difficulty `json:"difficulty" cbor:"difficulty"`
	Autonomous     bool             `json:"autonomous" cbor:"autonomous"`
	Nodes          []NodeState      `json:"nodes" cbor:"nodes"`
}

// Snapshot captures the graph's mutable state.
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		ResourcePoints: g.resourcePoints,
		TotalEngineers: g.totalEngineers,
		Active:         g.Active(),
		Difficulty:     g.difficulty,
		Autonomous:     g.autonomous,
		Nodes:          make([]NodeState, 0, len(g.order)),
	}
	for _, id := range g.order {
		n := g.nodes[id]
		s.Nodes = append(s.Nodes, NodeState{ID: id, State: n.State, InvestedWork: n.InvestedWork})
	}
	return s
}

// Restore replaces the graph's mutable state with s. Nodes absent from s
// return to their initial state and unknown node ids are ignored, so saves
// survive tree additions. The snapshot is checked against the capacity and
// active-project invariants before anything is applied.
func (g *Graph) Restore(s Snapshot) error {
	if s.TotalEngineers < 0 {
		return fmt.Errorf("restore: negative engineer pool")
	}
	if s.Autonomous && g.rng == nil {
		return fmt.Errorf("restore: autonomous graph needs a random source")
	}

	states := make(map[string]NodeState, len(g.order))
	for _, id := range g.order {
		states[id] = NodeState{ID: id, State: g.nodes[id].initialState()}
	}
	for _, ns := range s.Nodes {
		if _, ok := g.nodes[ns.ID]; !ok {
			continue
		}
		if !ns.State.valid() {
			return fmt.Errorf("restore: node %s has unknown state %q", ns.ID, ns.State)
		}
		if ns.InvestedWork < 0 {
			return fmt.Errorf("restore: node %s has negative invested work", ns.ID)
		}
		states[ns.ID] = ns
	}

	sum := 0
	for id, engineers := range s.Active {
		ns, ok := states[id]
		if !ok {
			return fmt.Errorf("restore: active project %s: %w", id, ErrUnknownNode)
		}
		if ns.State != StateInProgress {
			return fmt.Errorf("restore: active project %s is %s", id, ns.State)
		}
		if engineers < 0 {
			return fmt.Errorf("restore: active project %s: %w", id, ErrNegativeEngineers)
		}
		sum += engineers
	}
	if sum > s.TotalEngineers {
		return fmt.Errorf("restore: %w: %d assigned, pool of %d", ErrCapacityExceeded, sum, s.TotalEngineers)
	}
	for id, ns := range states {
		if _, ok := s.Active[id]; ns.State == StateInProgress && !ok {
			return fmt.Errorf("restore: node %s in progress without an assignment", id)
		}
	}

	for id, ns := range states {
		n := g.nodes[id]
		n.State = ns.State
		n.InvestedWork = ns.InvestedWork
	}
	g.active = make(map[string]int, len(s.Active))
	for id, engineers := range s.Active {
		g.active[id] = engineers
	}
	g.resourcePoints = s.ResourcePoints
	g.totalEngineers = s.TotalEngineers
	g.autonomous = s.Autonomous
	if s.Difficulty != "" {
		g.difficulty = s.Difficulty
	}
	return nil
}
