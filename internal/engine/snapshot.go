package engine

import (
	"errors"
	"fmt"
	"maps"

	"github.com/teamprincipal/paddock/internal/championship"
	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/domain/personnel"
	"github.com/teamprincipal/paddock/internal/domain/rules"
	"github.com/teamprincipal/paddock/internal/domain/team"
	"github.com/teamprincipal/paddock/internal/finance"
	"github.com/teamprincipal/paddock/internal/research"
)

// TeamState is the saved form of one constructor. Research is stored in its
// own tables by the save repository, so it is left out of the blob.
type TeamState struct {
	Name     string             `json:"name" cbor:"name"`
	Player   bool               `json:"player" cbor:"player"`
	Car      car.Car            `json:"car" cbor:"car"`
	Drivers  []personnel.Record `json:"drivers" cbor:"drivers"`
	Research research.Snapshot  `json:"research" cbor:"-"`
}

// Snapshot is a whole session.
type Snapshot struct {
	Seed       int64            `json:"seed" cbor:"seed"`
	Season     int              `json:"season" cbor:"season"`
	Week       int              `json:"week" cbor:"week"`
	Round      int              `json:"round" cbor:"round"`
	Difficulty rules.Difficulty `json:"difficulty" cbor:"difficulty"`

	Teams  []TeamState        `json:"teams" cbor:"teams"`
	Staff  []personnel.Record `json:"staff" cbor:"staff"`
	Market []personnel.Record `json:"market" cbor:"market"`

	Championship championship.Ledger `json:"championship" cbor:"championship"`
	Finance      finance.Ledger      `json:"finance" cbor:"finance"`
	History      []RoundSummary      `json:"history" cbor:"history"`
}

// Snapshot captures the session. The result shares no mutable state with
// the season.
func (s *Season) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Seed:       s.seed,
		Season:     s.season,
		Week:       s.week,
		Round:      s.round,
		Difficulty: s.difficulty,
		Championship: championship.Ledger{
			Season:       s.championship.Season,
			Drivers:      maps.Clone(s.championship.Drivers),
			Constructors: maps.Clone(s.championship.Constructors),
			History:      append([]championship.SeasonRecord(nil), s.championship.History...),
		},
		Finance: *s.finance,
		History: append([]RoundSummary(nil), s.history...),
	}
	for _, t := range s.teams {
		ts := TeamState{
			Name:     t.Name,
			Player:   t.Player,
			Car:      *t.Car,
			Research: t.Graph.Snapshot(),
		}
		for _, d := range t.Drivers {
			ts.Drivers = append(ts.Drivers, personnel.ToRecord(d))
		}
		snap.Teams = append(snap.Teams, ts)
	}
	for _, m := range s.staff.members() {
		snap.Staff = append(snap.Staff, personnel.ToRecord(m))
	}
	for _, m := range s.market.Drivers {
		snap.Market = append(snap.Market, personnel.ToRecord(m))
	}
	for _, m := range s.market.TechnicalDirectors {
		snap.Market = append(snap.Market, personnel.ToRecord(m))
	}
	for _, m := range s.market.HeadsOfAero {
		snap.Market = append(snap.Market, personnel.ToRecord(m))
	}
	for _, m := range s.market.PowertrainLeads {
		snap.Market = append(snap.Market, personnel.ToRecord(m))
	}
	for _, m := range s.market.RaceEngineers {
		snap.Market = append(snap.Market, personnel.ToRecord(m))
	}
	return snap
}

// Resume rebuilds a session from a snapshot. Options supply the tree,
// calendar, catalog and infrastructure; seed and difficulty come from the
// snapshot.
func Resume(snap Snapshot, opts Options) (*Season, error) {
	opts.defaults()
	if snap.Season < 1 || snap.Week < 1 {
		return nil, fmt.Errorf("resume: bad game clock season %d week %d", snap.Season, snap.Week)
	}
	if snap.Round < 0 || snap.Round > len(opts.Calendar) {
		return nil, fmt.Errorf("resume: round %d outside a %d race calendar", snap.Round, len(opts.Calendar))
	}
	difficulty := snap.Difficulty
	if difficulty == "" {
		difficulty = rules.DifficultyNormal
	}

	ledger := snap.Championship
	if ledger.Drivers == nil {
		ledger.Drivers = make(map[string]int)
	}
	if ledger.Constructors == nil {
		ledger.Constructors = make(map[string]int)
	}
	if ledger.Season == 0 {
		ledger.Season = snap.Season
	}
	fin := snap.Finance

	s := &Season{
		seed:         snap.Seed,
		season:       snap.Season,
		week:         snap.Week,
		round:        snap.Round,
		difficulty:   difficulty,
		tree:         opts.Tree,
		calendar:     opts.Calendar,
		catalog:      opts.Catalog,
		championship: &ledger,
		finance:      &fin,
		history:      append([]RoundSummary(nil), snap.History...),
		eventLog:     opts.EventLog,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
	s.eventLog.SetGameTime(s.season, s.week)

	// the player is moved to the front whatever its saved position
	var player *TeamState
	var ai []TeamState
	for i := range snap.Teams {
		if snap.Teams[i].Player {
			if player != nil {
				return nil, errors.New("resume: more than one player team")
			}
			player = &snap.Teams[i]
			continue
		}
		ai = append(ai, snap.Teams[i])
	}
	if player == nil {
		return nil, errors.New("resume: no player team")
	}

	pe, err := s.resumeTeam(*player, -1)
	if err != nil {
		return nil, err
	}
	s.player = pe
	s.teams = append(s.teams, pe)
	for i, ts := range ai {
		e, err := s.resumeTeam(ts, i)
		if err != nil {
			return nil, err
		}
		s.teams = append(s.teams, e)
	}

	if err := s.resumeStaff(snap.Staff); err != nil {
		return nil, err
	}
	if err := s.resumeMarket(snap.Market); err != nil {
		return nil, err
	}
	s.linkLeads()

	s.logger.Info("season resumed",
		"team", s.player.Name,
		"season", s.season,
		"week", s.week,
		"round", s.round)
	return s, nil
}

// resumeTeam rebuilds one constructor. aiIndex is its position among the AI
// teams, or -1 for the player.
func (s *Season) resumeTeam(ts TeamState, aiIndex int) (*Entrant, error) {
	c := ts.Car
	e := &Entrant{Name: ts.Name, Car: &c, Player: aiIndex < 0}
	for _, rec := range ts.Drivers {
		m, err := personnel.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("resume %s: %w", ts.Name, err)
		}
		d, ok := m.(*personnel.Driver)
		if !ok {
			return nil, fmt.Errorf("resume %s: %s is not a driver", ts.Name, rec.Profile.Name)
		}
		e.Drivers = append(e.Drivers, d)
	}
	if err := (team.Team{Name: e.Name, Car: e.Car, Drivers: e.Drivers}).Validate(); err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}

	cfg := research.Config{
		TotalEngineers: ts.Research.TotalEngineers,
		Difficulty:     s.difficulty,
	}
	if !e.Player {
		cfg.Autonomous = true
		cfg.Rand = s.rand(streamResearch, aiIndex)
	}
	g, err := research.NewGraph(e.Car, s.tree, cfg)
	if err != nil {
		return nil, fmt.Errorf("resume %s research: %w", ts.Name, err)
	}
	if err := g.Restore(ts.Research); err != nil {
		return nil, fmt.Errorf("resume %s: %w", ts.Name, err)
	}
	e.Graph = g
	if e.Player {
		g.SetEventSink(s.eventLog, e.Name)
	} else {
		e.buffer = &eventBuffer{}
		g.SetEventSink(e.buffer, e.Name)
	}
	return e, nil
}

func (s *Season) resumeStaff(recs []personnel.Record) error {
	for _, rec := range recs {
		m, err := personnel.FromRecord(rec)
		if err != nil {
			return fmt.Errorf("resume staff: %w", err)
		}
		switch v := m.(type) {
		case *personnel.TechnicalDirector:
			s.staff.TechnicalDirector = v
		case *personnel.RaceEngineer:
			s.staff.RaceEngineer = v
		case *personnel.DepartmentLead:
			if v.Dept == personnel.RolePowertrainLead {
				s.staff.PowertrainLead = v
			} else {
				s.staff.HeadOfAero = v
			}
		default:
			return fmt.Errorf("resume staff: unexpected %s %s", rec.Role, rec.Profile.Name)
		}
	}
	return nil
}

func (s *Season) resumeMarket(recs []personnel.Record) error {
	for _, rec := range recs {
		m, err := personnel.FromRecord(rec)
		if err != nil {
			return fmt.Errorf("resume market: %w", err)
		}
		switch v := m.(type) {
		case *personnel.Driver:
			s.market.Drivers = append(s.market.Drivers, v)
		case *personnel.TechnicalDirector:
			s.market.TechnicalDirectors = append(s.market.TechnicalDirectors, v)
		case *personnel.RaceEngineer:
			s.market.RaceEngineers = append(s.market.RaceEngineers, v)
		case *personnel.DepartmentLead:
			if v.Dept == personnel.RolePowertrainLead {
				s.market.PowertrainLeads = append(s.market.PowertrainLeads, v)
			} else {
				s.market.HeadsOfAero = append(s.market.HeadsOfAero, v)
			}
		}
	}
	return nil
}
