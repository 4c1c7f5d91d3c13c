package engine

import (
	"fmt"

	"github.com/teamprincipal/paddock/internal/championship"
	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/domain/personnel"
	"github.com/teamprincipal/paddock/internal/domain/rules"
	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/finance"
	"github.com/teamprincipal/paddock/internal/research"
)

// StartResearch starts a project paid for in resource points.
func (s *Season) StartResearch(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.player.Graph.StartProject(nodeID, false); err != nil {
		return err
	}
	s.metrics.RecordResearch(1, 0)
	return nil
}

// BuyResearch starts a project paid for from the bank account.
func (s *Season) BuyResearch(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.finance.BuyResearch(s.player.Graph, nodeID); err != nil {
		return err
	}
	s.metrics.RecordResearch(1, 0)
	return nil
}

// AllocateEngineers staffs one of the player's active projects.
func (s *Season) AllocateEngineers(nodeID string, engineers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Graph.AllocateEngineers(nodeID, engineers)
}

// Research returns a copy of the player's research nodes.
func (s *Season) Research() []research.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Graph.Nodes()
}

// HireDriver signs a market driver into seat 0 or 1. The salary counts
// towards the cost cap and the replaced driver returns to the market.
func (s *Season) HireDriver(name string, seat int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seat < 0 || seat >= len(s.player.Drivers) {
		return fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	}
	d, ok := s.market.FindDriver(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDriver, name)
	}
	if err := s.finance.Spend(d.Salary, true); err != nil {
		return err
	}
	s.takeDriver(name)
	old := s.player.Drivers[seat]
	s.player.Drivers[seat] = d
	s.market.Drivers = append(s.market.Drivers, old)

	s.logger.Event("DRIVER_SIGNED", s.player.Name, d.Name+" replaces "+old.Name)
	return nil
}

// HireStaff signs a technical director, department lead or race engineer
// from the market. The previous holder of the seat returns to the market.
func (s *Season) HireStaff(role personnel.Role, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch role {
	case personnel.RoleTechnicalDirector:
		list, m, ok := take(s.market.TechnicalDirectors, name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStaff, name)
		}
		if err := s.finance.Spend(m.Salary, true); err != nil {
			return err
		}
		s.market.TechnicalDirectors = list
		if s.staff.TechnicalDirector != nil {
			s.market.TechnicalDirectors = append(s.market.TechnicalDirectors, s.staff.TechnicalDirector)
		}
		s.staff.TechnicalDirector = m
	case personnel.RoleHeadOfAero, personnel.RolePowertrainLead:
		pool := &s.market.HeadsOfAero
		seat := &s.staff.HeadOfAero
		if role == personnel.RolePowertrainLead {
			pool = &s.market.PowertrainLeads
			seat = &s.staff.PowertrainLead
		}
		list, m, ok := take(*pool, name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStaff, name)
		}
		if err := s.finance.Spend(m.Salary, true); err != nil {
			return err
		}
		*pool = list
		if *seat != nil {
			*pool = append(*pool, *seat)
		}
		*seat = m
		s.linkLeads()
	case personnel.RoleRaceEngineer:
		list, m, ok := take(s.market.RaceEngineers, name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStaff, name)
		}
		if err := s.finance.Spend(m.Salary, true); err != nil {
			return err
		}
		s.market.RaceEngineers = list
		if s.staff.RaceEngineer != nil {
			s.market.RaceEngineers = append(s.market.RaceEngineers, s.staff.RaceEngineer)
		}
		s.staff.RaceEngineer = m
	default:
		return fmt.Errorf("%w: no market for %s", ErrUnknownStaff, role)
	}

	s.logger.Event("STAFF_SIGNED", s.player.Name, string(role)+": "+name)
	return nil
}

func (s *Season) takeDriver(name string) (*personnel.Driver, bool) {
	list, d, ok := take(s.market.Drivers, name)
	if ok {
		s.market.Drivers = list
	}
	return d, ok
}

// take removes the named member from list. The input slice is not modified.
func take[T personnel.Member](list []T, name string) ([]T, T, bool) {
	for i, m := range list {
		if m.Base().Name == name {
			out := make([]T, 0, len(list)-1)
			out = append(out, list[:i]...)
			out = append(out, list[i+1:]...)
			return out, m, true
		}
	}
	var zero T
	return list, zero, false
}

// State is the player's dashboard.
type State struct {
	Season     int              `json:"season"`
	Week       int              `json:"week"`
	Round      int              `json:"round"` // races run this season
	NextTrack  string           `json:"next_track,omitempty"`
	Difficulty rules.Difficulty `json:"difficulty"`

	Team    string             `json:"team"`
	Car     car.Car            `json:"car"`
	Overall int                `json:"overall_performance"`
	Drivers []personnel.Driver `json:"drivers"`
	Staff   []personnel.Record `json:"staff"`
	Finance finance.Ledger     `json:"finance"`

	ResourcePoints int            `json:"resource_points"`
	TotalEngineers int            `json:"total_engineers"`
	IdleEngineers  int            `json:"idle_engineers"`
	ActiveProjects map[string]int `json:"active_projects"`

	DriverStandings      []championship.Row `json:"driver_standings"`
	ConstructorStandings []championship.Row `json:"constructor_standings"`
	History              []RoundSummary     `json:"history"`
}

// State returns a copy of the player's view of the session.
func (s *Season) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Season:               s.season,
		Week:                 s.week,
		Round:                s.round,
		Difficulty:           s.difficulty,
		Team:                 s.player.Name,
		Car:                  *s.player.Car,
		Overall:              s.player.Car.OverallPerformance(),
		Finance:              *s.finance,
		ResourcePoints:       s.player.Graph.ResourcePoints(),
		TotalEngineers:       s.player.Graph.TotalEngineers(),
		IdleEngineers:        s.player.Graph.IdleEngineers(),
		ActiveProjects:       s.player.Graph.Active(),
		DriverStandings:      s.championship.DriverStandings(),
		ConstructorStandings: s.championship.ConstructorStandings(),
		History:              append([]RoundSummary(nil), s.history...),
	}
	if s.round < len(s.calendar) {
		st.NextTrack = s.calendar[s.round].Name
	}
	for _, d := range s.player.Drivers {
		st.Drivers = append(st.Drivers, *d)
	}
	for _, m := range s.staff.members() {
		st.Staff = append(st.Staff, personnel.ToRecord(m))
	}
	return st
}

// Summary returns the stored summary of a race run this season.
func (s *Season) Summary(round int) (RoundSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.history {
		if h.Round == round {
			return h, true
		}
	}
	return RoundSummary{}, false
}

// Calendar returns the race calendar length and the number of races run.
func (s *Season) Calendar() (total, run int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calendar), s.round
}

// PlayerTeam returns the player's constructor name.
func (s *Season) PlayerTeam() string {
	return s.player.Name
}

// Events returns the session's event log.
func (s *Season) Events() *events.EventLog {
	return s.eventLog
}

// TeamSummary is one constructor on the grid.
type TeamSummary struct {
	Name    string `json:"name"`
	Overall int    `json:"overall_performance"`
	Player  bool   `json:"player"`
}

// Teams returns each constructor in grid order.
func (s *Season) Teams() []TeamSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TeamSummary, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, TeamSummary{Name: t.Name, Overall: t.Car.OverallPerformance(), Player: t.Player})
	}
	return out
}
