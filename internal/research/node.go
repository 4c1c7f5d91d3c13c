// Package research implements the dependency-gated research tree that each
// team develops its car through.
package research

import (
	"sort"

	"github.com/teamprincipal/paddock/internal/domain/car"
)

// State is a node's lifecycle position.
//
//	Locked -> Available -> InProgress -> Completed
//	Available (or Locked) -> MutuallyLocked   when an exclusive sibling starts
//
// Completed and MutuallyLocked are terminal.
type State string

const (
	StateLocked         State = "LOCKED"
	StateAvailable      State = "AVAILABLE"
	StateInProgress     State = "IN_PROGRESS"
	StateCompleted      State = "COMPLETED"
	StateMutuallyLocked State = "MUTUALLY_LOCKED"
)

func (s State) valid() bool {
	switch s {
	case StateLocked, StateAvailable, StateInProgress, StateCompleted, StateMutuallyLocked:
		return true
	}
	return false
}

// Definition is the static description of a node as read from a tree file.
type Definition struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	RPCost            int            `json:"rp_cost"`
	BaseWorkload      float64        `json:"base_workload"`
	Dependencies      []string       `json:"dependencies"`
	MutuallyExclusive []string       `json:"mutually_exclusive"`
	Effects           map[string]int `json:"effects"` // "aero.downforce" -> delta
}

// Effect is one resolved stat change.
type Effect struct {
	Stat  car.Stat `json:"stat"`
	Delta int      `json:"delta"`
}

// Node is a research project inside a Graph.
type Node struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	RPCost            int      `json:"rp_cost"`
	BaseWorkload      float64  `json:"base_workload"`
	Dependencies      []string `json:"dependencies"`
	MutuallyExclusive []string `json:"mutually_exclusive"`
	Effects           []Effect `json:"effects"`
	State             State    `json:"state"`
	InvestedWork      float64  `json:"invested_work"`
}

// Progress returns the completed share of the workload in [0, 1].
func (n Node) Progress() float64 {
	if n.InvestedWork >= n.BaseWorkload {
		return 1
	}
	return n.InvestedWork / n.BaseWorkload
}

func (n *Node) initialState() State {
	if len(n.Dependencies) == 0 {
		return StateAvailable
	}
	return StateLocked
}

func (n *Node) clone() Node {
	out := *n
	out.Dependencies = append([]string(nil), n.Dependencies...)
	out.MutuallyExclusive = append([]string(nil), n.MutuallyExclusive...)
	out.Effects = append([]Effect(nil), n.Effects...)
	return out
}

func newNode(def Definition) (*Node, error) {
	n := &Node{
		ID:                def.ID,
		Name:              def.Name,
		Description:       def.Description,
		RPCost:            def.RPCost,
		BaseWorkload:      def.BaseWorkload,
		Dependencies:      append([]string(nil), def.Dependencies...),
		MutuallyExclusive: append([]string(nil), def.MutuallyExclusive...),
	}

	for path, delta := range def.Effects {
		stat, err := car.ParseStat(path)
		if err != nil {
			return nil, &DefinitionError{NodeID: def.ID, Reason: err.Error()}
		}
		n.Effects = append(n.Effects, Effect{Stat: stat, Delta: delta})
	}
	// map iteration order is random; apply effects in stat order
	sort.Slice(n.Effects, func(i, j int) bool { return n.Effects[i].Stat < n.Effects[j].Stat })

	n.State = n.initialState()
	return n, nil
}
