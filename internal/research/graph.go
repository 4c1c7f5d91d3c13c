package research

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/domain/rules"
	"github.com/teamprincipal/paddock/internal/events"
)

// BonusProvider is a department lead that boosts beneficial research
// effects in its area.
type BonusProvider interface {
	RDBonus() int
}

// Config holds the per-graph settings fixed at construction.
type Config struct {
	TotalEngineers int
	ResourcePoints int
	// Autonomous graphs pick and staff their own projects.
	Autonomous bool
	Difficulty rules.Difficulty
	// Rand drives autonomous choices. Required when Autonomous is set.
	Rand *rand.Rand
}

// Graph owns one car's research tree.
//
// A Graph is not safe for concurrent use. Independent graphs share no state
// and may be advanced from separate goroutines.
type Graph struct {
	car   *car.Car
	order []string // definition order; drives every deterministic iteration
	nodes map[string]*Node

	resourcePoints int
	totalEngineers int
	active         map[string]int

	autonomous bool
	difficulty rules.Difficulty
	rng        *rand.Rand

	aeroLead       BonusProvider
	powertrainLead BonusProvider

	sink events.Appender
	team string
}

// NewGraph validates the definitions and builds a graph bound to c.
func NewGraph(c *car.Car, defs []Definition, cfg Config) (*Graph, error) {
	if c == nil {
		return nil, &DefinitionError{Reason: "graph needs a car"}
	}
	if cfg.TotalEngineers < 0 {
		return nil, &DefinitionError{Reason: "total engineers must not be negative"}
	}
	if cfg.Autonomous && cfg.Rand == nil {
		return nil, &DefinitionError{Reason: "autonomous graph needs a random source"}
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = rules.DifficultyNormal
	}

	g := &Graph{
		car:            c,
		nodes:          make(map[string]*Node, len(defs)),
		resourcePoints: cfg.ResourcePoints,
		totalEngineers: cfg.TotalEngineers,
		active:         make(map[string]int),
		autonomous:     cfg.Autonomous,
		difficulty:     cfg.Difficulty,
		rng:            cfg.Rand,
	}

	for _, def := range defs {
		if def.ID == "" {
			return nil, &DefinitionError{Reason: "node without id"}
		}
		if _, dup := g.nodes[def.ID]; dup {
			return nil, &DefinitionError{NodeID: def.ID, Reason: "duplicate id"}
		}
		if def.RPCost < 0 {
			return nil, &DefinitionError{NodeID: def.ID, Reason: "negative rp cost"}
		}
		if def.BaseWorkload <= 0 {
			return nil, &DefinitionError{NodeID: def.ID, Reason: "workload must be positive"}
		}
		n, err := newNode(def)
		if err != nil {
			return nil, err
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	if err := g.validateLinks(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) validateLinks() error {
	for _, id := range g.order {
		n := g.nodes[id]
		for _, dep := range n.Dependencies {
			if dep == id {
				return &DefinitionError{NodeID: id, Reason: "depends on itself"}
			}
			if _, ok := g.nodes[dep]; !ok {
				return &DefinitionError{NodeID: id, Reason: fmt.Sprintf("unknown dependency %q", dep)}
			}
		}
		for _, ex := range n.MutuallyExclusive {
			if ex == id {
				return &DefinitionError{NodeID: id, Reason: "excludes itself"}
			}
			if _, ok := g.nodes[ex]; !ok {
				return &DefinitionError{NodeID: id, Reason: fmt.Sprintf("unknown exclusion %q", ex)}
			}
		}
	}

	// depth-first search for dependency cycles
	const (
		unvisited = iota
		visiting
		done
	)
	mark := make(map[string]int, len(g.nodes))
	var visit func(id string) error
	visit = func(id string) error {
		switch mark[id] {
		case visiting:
			return &DefinitionError{NodeID: id, Reason: "dependency cycle"}
		case done:
			return nil
		}
		mark[id] = visiting
		for _, dep := range g.nodes[id].Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		mark[id] = done
		return nil
	}
	for _, id := range g.order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// SetLeads binds the department leads whose bonus applies to aero and
// powertrain effects. Either may be nil.
func (g *Graph) SetLeads(aero, powertrain BonusProvider) {
	g.aeroLead = aero
	g.powertrainLead = powertrain
}

// SetEventSink routes node transitions to sink, tagged with the team name.
func (g *Graph) SetEventSink(sink events.Appender, team string) {
	g.sink = sink
	g.team = team
}

// SetRand replaces the random source used by autonomous selection.
func (g *Graph) SetRand(rng *rand.Rand) {
	g.rng = rng
}

// Car returns the bound vehicle.
func (g *Graph) Car() *car.Car { return g.car }

func (g *Graph) ResourcePoints() int { return g.resourcePoints }

// AddResourcePoints credits (or, if negative, debits) the balance.
func (g *Graph) AddResourcePoints(rp int) { g.resourcePoints += rp }

func (g *Graph) TotalEngineers() int { return g.totalEngineers }

// SetTotalEngineers resizes the engineering pool. It fails if the pool
// would no longer cover current assignments.
func (g *Graph) SetTotalEngineers(total int) error {
	if total < g.assigned() {
		return fmt.Errorf("%w: %d engineers assigned, pool of %d requested",
			ErrCapacityExceeded, g.assigned(), total)
	}
	g.totalEngineers = total
	return nil
}

// IdleEngineers is the capacity not assigned to any project.
func (g *Graph) IdleEngineers() int { return g.totalEngineers - g.assigned() }

func (g *Graph) Autonomous() bool { return g.autonomous }

func (g *Graph) Difficulty() rules.Difficulty { return g.difficulty }

func (g *Graph) SetDifficulty(d rules.Difficulty) { g.difficulty = d }

// Node returns a copy of one node.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Nodes returns copies of all nodes in definition order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].clone())
	}
	return out
}

// Active returns a copy of the in-progress project assignments.
func (g *Graph) Active() map[string]int {
	out := make(map[string]int, len(g.active))
	for id, n := range g.active {
		out[id] = n
	}
	return out
}

func (g *Graph) assigned() int {
	sum := 0
	for _, n := range g.active {
		sum += n
	}
	return sum
}

// UpdateAvailability unlocks every Locked node whose dependencies are all
// Completed. Autonomous graphs then choose and staff a project.
func (g *Graph) UpdateAvailability() {
	g.propagate()
	if g.autonomous {
		g.autoSelect()
	}
}

func (g *Graph) propagate() {
	for _, id := range g.order {
		n := g.nodes[id]
		if n.State != StateLocked {
			continue
		}
		ready := true
		for _, dep := range n.Dependencies {
			if g.nodes[dep].State != StateCompleted {
				ready = false
				break
			}
		}
		if ready {
			n.State = StateAvailable
		}
	}
}

// autoSelect starts one affordable Available node picked uniformly at
// random, then hands every idle engineer to one randomly chosen active
// project.
func (g *Graph) autoSelect() {
	var candidates []string
	for _, id := range g.order {
		n := g.nodes[id]
		if n.State == StateAvailable && n.RPCost <= g.resourcePoints {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) > 0 {
		pick := candidates[g.rng.Intn(len(candidates))]
		// cannot fail: the node is Available and affordable
		_ = g.StartProject(pick, false)
	}

	idle := g.IdleEngineers()
	if idle <= 0 || len(g.active) == 0 {
		return
	}
	var running []string
	for _, id := range g.order {
		if _, ok := g.active[id]; ok {
			running = append(running, id)
		}
	}
	target := running[g.rng.Intn(len(running))]
	_ = g.AllocateEngineers(target, g.active[target]+idle)
}

// StartProject moves an Available node to InProgress. Unless bypassFunds is
// set the node's cost is debited from the resource point balance; with
// bypassFunds the caller has already charged an external ledger.
//
// Starting a node permanently locks every Locked or Available node in its
// exclusion set, whether or not the started node ever completes. Availability
// is then re-evaluated, so an autonomous graph keeps starting projects while
// it can afford them.
func (g *Graph) StartProject(id string, bypassFunds bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if n.State != StateAvailable {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, n.State)
	}
	if !bypassFunds {
		if g.resourcePoints < n.RPCost {
			return fmt.Errorf("%w: %s costs %d, balance %d",
				ErrInsufficientResources, id, n.RPCost, g.resourcePoints)
		}
		g.resourcePoints -= n.RPCost
	}

	n.State = StateInProgress
	g.active[id] = 0
	g.emit(events.EventTypeResearchStarted, id, events.ResearchPayload{NodeID: id, Name: n.Name})

	for _, ex := range n.MutuallyExclusive {
		sib, ok := g.nodes[ex]
		if !ok {
			continue
		}
		if sib.State == StateLocked || sib.State == StateAvailable {
			sib.State = StateMutuallyLocked
			g.emit(events.EventTypeResearchLocked, ex, events.ResearchPayload{NodeID: ex, Name: sib.Name, LockedBy: id})
		}
	}

	// On autonomous graphs this re-enters StartProject through autoSelect
	// until no affordable Available node is left.
	g.UpdateAvailability()
	return nil
}

// AllocateEngineers sets the engineer count on an active project. The new
// count may use any engineers not assigned to other projects.
func (g *Graph) AllocateEngineers(id string, engineers int) error {
	current, ok := g.active[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotActive, id)
	}
	if engineers < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeEngineers, engineers)
	}
	free := g.totalEngineers - (g.assigned() - current)
	if engineers > free {
		return fmt.Errorf("%w: %d requested for %s, %d available",
			ErrCapacityExceeded, engineers, id, free)
	}

	g.active[id] = engineers
	g.emit(events.EventTypeEngineersAllocated, id, events.ResearchPayload{NodeID: id, Engineers: engineers})
	return nil
}

// AdvanceTime adds engineers x units of work to every active project and
// completes those that reach their workload. Autonomous graphs scale the
// work by their difficulty. It returns the completed ids in definition
// order.
func (g *Graph) AdvanceTime(units int) []string {
	if units <= 0 {
		return nil
	}
	rate := 1.0
	if g.autonomous {
		rate = g.difficulty.Multiplier()
	}

	var finished []string
	for _, id := range g.order {
		engineers, ok := g.active[id]
		if !ok {
			continue
		}
		n := g.nodes[id]
		n.InvestedWork += float64(engineers) * rate * float64(units)
		if n.InvestedWork >= n.BaseWorkload {
			finished = append(finished, id)
		}
	}

	for _, id := range finished {
		g.complete(g.nodes[id])
	}
	return finished
}

func (g *Graph) complete(n *Node) {
	delete(g.active, n.ID)
	n.State = StateCompleted

	applied := make(map[string]int, len(n.Effects))
	for _, eff := range n.Effects {
		delta := eff.Delta
		// trade-off penalties are never softened
		if delta > 0 {
			delta += g.bonus(eff.Stat.Category())
		}
		g.car.Apply(eff.Stat, delta)
		applied[eff.Stat.String()] = delta
	}
	g.emit(events.EventTypeResearchCompleted, n.ID, events.ResearchPayload{NodeID: n.ID, Name: n.Name, Effects: applied})

	g.UpdateAvailability()
}

func (g *Graph) bonus(cat car.Category) int {
	var lead BonusProvider
	switch cat {
	case car.CategoryAero:
		lead = g.aeroLead
	case car.CategoryPowertrain:
		lead = g.powertrainLead
	}
	if lead == nil {
		return 0
	}
	return lead.RDBonus()
}

func (g *Graph) emit(t events.EventType, nodeID string, p events.ResearchPayload) {
	if g.sink == nil {
		return
	}
	g.sink.Append(events.NewEvent(t, g.team, nodeID, p))
}

// Counts tallies nodes by state, for display.
func (g *Graph) Counts() map[State]int {
	out := make(map[State]int)
	for _, n := range g.nodes {
		out[n.State]++
	}
	return out
}

// ActiveIDs returns the in-progress node ids sorted lexically.
func (g *Graph) ActiveIDs() []string {
	ids := make([]string, 0, len(g.active))
	for id := range g.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
