// Package finance tracks a team's balance against the cost cap.
package finance

import (
	"errors"
	"fmt"

	"github.com/teamprincipal/paddock/internal/research"
)

var (
	ErrInsufficientFunds = errors.New("finance: insufficient funds")
	ErrCostCapBreached   = errors.New("finance: cost cap would be breached")
	ErrInvalidAmount     = errors.New("finance: amount must be positive")
)

const (
	DefaultBudget  int64 = 140_000_000
	DefaultCostCap int64 = 140_000_000

	// PrizePerPoint is paid for each championship point scored.
	PrizePerPoint int64 = 100_000
	// ResearchDollarsPerRP converts a node's resource point cost into money
	// when the player buys research outright.
	ResearchDollarsPerRP int64 = 10_000
)

// Ledger is a team's bank account.
type Ledger struct {
	Balance       int64 `json:"balance" cbor:"balance"`
	CostCap       int64 `json:"cost_cap" cbor:"cost_cap"`
	SpentUnderCap int64 `json:"spent_under_cap" cbor:"spent_under_cap"`
}

// NewLedger opens an account under the default cost cap.
func NewLedger(balance int64) *Ledger {
	return &Ledger{Balance: balance, CostCap: DefaultCostCap}
}

// Spend debits amount. Spending that counts towards the cap fails if it
// would take the season's capped spend over the limit. Nothing changes on
// failure.
func (l *Ledger) Spend(amount int64, countsTowardsCap bool) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if amount > l.Balance {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, amount, l.Balance)
	}
	if countsTowardsCap && l.SpentUnderCap+amount > l.CostCap {
		return fmt.Errorf("%w: %d spent of %d", ErrCostCapBreached, l.SpentUnderCap, l.CostCap)
	}

	l.Balance -= amount
	if countsTowardsCap {
		l.SpentUnderCap += amount
	}
	return nil
}

// AddFunds credits sponsorship or prize money.
func (l *Ledger) AddFunds(amount int64) {
	l.Balance += amount
}

// AwardPrize pays prize money for championship points.
func (l *Ledger) AwardPrize(points int) int64 {
	prize := int64(points) * PrizePerPoint
	l.AddFunds(prize)
	return prize
}

// ResetSeason clears the capped spend for a new season.
func (l *Ledger) ResetSeason() {
	l.SpentUnderCap = 0
}

// BuyResearch pays for a research project from the bank account instead of
// resource points, then starts it on the graph. If the graph refuses the
// project the money is refunded.
func (l *Ledger) BuyResearch(g *research.Graph, nodeID string) error {
	n, ok := g.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", research.ErrUnknownNode, nodeID)
	}
	if n.State != research.StateAvailable {
		return fmt.Errorf("%w: %s is %s", research.ErrInvalidState, nodeID, n.State)
	}

	price := int64(n.RPCost) * ResearchDollarsPerRP
	if price > 0 {
		if err := l.Spend(price, true); err != nil {
			return err
		}
	}
	if err := g.StartProject(nodeID, true); err != nil {
		if price > 0 {
			l.Balance += price
			l.SpentUnderCap -= price
		}
		return err
	}
	return nil
}
