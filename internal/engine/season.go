package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/teamprincipal/paddock/internal/championship"
	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/domain/personnel"
	"github.com/teamprincipal/paddock/internal/domain/rules"
	"github.com/teamprincipal/paddock/internal/domain/team"
	"github.com/teamprincipal/paddock/internal/domain/tire"
	"github.com/teamprincipal/paddock/internal/domain/track"
	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/finance"
	"github.com/teamprincipal/paddock/internal/platform/logger"
	"github.com/teamprincipal/paddock/internal/platform/metrics"
	"github.com/teamprincipal/paddock/internal/race"
	"github.com/teamprincipal/paddock/internal/research"
	"github.com/teamprincipal/paddock/internal/research/tree"
)

var (
	ErrSeasonComplete = errors.New("engine: every round of the season has been run")
	ErrUnknownDriver  = errors.New("engine: driver not on the market")
	ErrUnknownStaff   = errors.New("engine: staff member not on the market")
	ErrInvalidSeat    = errors.New("engine: seat must be 0 or 1")
)

// Options configures a new session. Zero values fall back to the built-in
// tree, calendar and tire catalog.
type Options struct {
	Seed           int64
	Difficulty     rules.Difficulty
	TotalEngineers int

	// Team names the player's constructor. A name from the opening grid
	// takes that team over; any other name builds a custom team of Tier
	// with the named market Drivers.
	Team    string
	Tier    team.Tier
	Drivers []string

	Tree     []research.Definition
	Calendar []track.Track
	Catalog  *tire.Catalog

	EventLog *events.EventLog
	Logger   *logger.Logger
	Metrics  *metrics.Collector
}

func (o *Options) defaults() {
	if o.Difficulty == "" {
		o.Difficulty = rules.DifficultyNormal
	}
	if o.Tree == nil {
		o.Tree = tree.Default()
	}
	if o.Calendar == nil {
		o.Calendar = track.Calendar()
	}
	if o.Catalog == nil {
		o.Catalog = tire.DefaultCatalog()
	}
	if o.EventLog == nil {
		o.EventLog = events.NewEventLog(nil)
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Get()
	}
}

// Entrant is one constructor on the grid.
type Entrant struct {
	Name    string
	Car     *car.Car
	Drivers []*personnel.Driver
	Graph   *research.Graph
	Player  bool

	// AI graphs write here while they tick concurrently.
	buffer *eventBuffer
}

// Staff is the player's non-driving personnel. Any post may be vacant.
type Staff struct {
	TechnicalDirector *personnel.TechnicalDirector
	HeadOfAero        *personnel.DepartmentLead
	PowertrainLead    *personnel.DepartmentLead
	RaceEngineer      *personnel.RaceEngineer
}

func (st Staff) members() []personnel.Member {
	var out []personnel.Member
	if st.TechnicalDirector != nil {
		out = append(out, st.TechnicalDirector)
	}
	if st.HeadOfAero != nil {
		out = append(out, st.HeadOfAero)
	}
	if st.PowertrainLead != nil {
		out = append(out, st.PowertrainLead)
	}
	if st.RaceEngineer != nil {
		out = append(out, st.RaceEngineer)
	}
	return out
}

// RoundSummary is what a season keeps of each race.
type RoundSummary struct {
	Round      int             `json:"round" cbor:"round"`
	Track      string          `json:"track" cbor:"track"`
	Winner     string          `json:"winner" cbor:"winner"`
	WinnerTeam string          `json:"winner_team" cbor:"winner_team"`
	Standings  []race.Standing `json:"standings" cbor:"standings"`
}

// Season is a running game session.
type Season struct {
	mu sync.Mutex

	seed       int64
	season     int
	week       int
	round      int // index of the next race in the calendar
	difficulty rules.Difficulty

	tree     []research.Definition
	calendar []track.Track
	catalog  *tire.Catalog

	teams  []*Entrant // player first, then the AI grid
	player *Entrant
	staff  Staff
	market team.Market

	championship *championship.Ledger
	finance      *finance.Ledger
	history      []RoundSummary

	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
}

// NewSeason builds a fresh session at season 1, week 1.
func NewSeason(opts Options) (*Season, error) {
	opts.defaults()
	s := &Season{
		seed:         opts.Seed,
		season:       1,
		week:         1,
		difficulty:   opts.Difficulty,
		tree:         opts.Tree,
		calendar:     opts.Calendar,
		catalog:      opts.Catalog,
		market:       team.FreeAgents(),
		championship: championship.NewLedger(),
		eventLog:     opts.EventLog,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
	s.eventLog.SetGameTime(s.season, s.week)

	grid := team.Initial()
	var mine team.Team
	idx := -1
	for i, t := range grid {
		if t.Name == opts.Team {
			idx = i
			break
		}
	}
	if idx >= 0 {
		mine = grid[idx]
		grid = append(grid[:idx], grid[idx+1:]...)
	} else {
		drivers, err := s.signRookies(opts.Drivers)
		if err != nil {
			return nil, err
		}
		mine = team.Custom(opts.Team, opts.Tier, drivers...)
	}
	if err := mine.Validate(); err != nil {
		return nil, err
	}
	s.finance = finance.NewLedger(mine.Budget)

	pg, err := research.NewGraph(mine.Car, s.tree, research.Config{
		TotalEngineers: opts.TotalEngineers,
		Difficulty:     s.difficulty,
	})
	if err != nil {
		return nil, fmt.Errorf("player research: %w", err)
	}
	pg.SetEventSink(s.eventLog, mine.Name)
	s.player = &Entrant{Name: mine.Name, Car: mine.Car, Drivers: mine.Drivers, Graph: pg, Player: true}
	s.teams = append(s.teams, s.player)
	s.linkLeads()

	for i, t := range grid {
		g, err := research.NewGraph(t.Car, s.tree, research.Config{
			TotalEngineers: rules.StandardEngineers,
			Autonomous:     true,
			Difficulty:     s.difficulty,
			Rand:           s.rand(streamResearchOpening, i),
		})
		if err != nil {
			return nil, fmt.Errorf("%s research: %w", t.Name, err)
		}
		e := &Entrant{Name: t.Name, Car: t.Car, Drivers: t.Drivers, Graph: g, buffer: &eventBuffer{}}
		g.SetEventSink(e.buffer, t.Name)
		g.UpdateAvailability()
		s.teams = append(s.teams, e)
	}
	s.flushAI()

	s.logger.Info("season created",
		"team", s.player.Name,
		"budget", "$"+humanize.Comma(s.finance.Balance),
		"difficulty", s.difficulty,
		"seed", s.seed)
	return s, nil
}

// signRookies takes the named drivers off the market, topping up from the
// front of the market when fewer than two are named.
func (s *Season) signRookies(names []string) ([]*personnel.Driver, error) {
	var out []*personnel.Driver
	for _, name := range names {
		if len(out) == 2 {
			break
		}
		d, ok := s.takeDriver(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, name)
		}
		out = append(out, d)
	}
	for len(out) < 2 && len(s.market.Drivers) > 0 {
		d := s.market.Drivers[0]
		s.market.Drivers = s.market.Drivers[1:]
		out = append(out, d)
	}
	return out, nil
}

func (s *Season) linkLeads() {
	var aero, pu research.BonusProvider
	if s.staff.HeadOfAero != nil {
		aero = s.staff.HeadOfAero
	}
	if s.staff.PowertrainLead != nil {
		pu = s.staff.PowertrainLead
	}
	s.player.Graph.SetLeads(aero, pu)
}

func (s *Season) aiTeams() []*Entrant {
	return s.teams[1:]
}

func (s *Season) directorRating() int {
	if s.staff.TechnicalDirector == nil {
		return 0
	}
	return s.staff.TechnicalDirector.Rating
}

func ratings(drivers []*personnel.Driver) []int {
	out := make([]int, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, d.Rating)
	}
	return out
}

// AdvanceWeek runs one week of the research cycle for every team.
func (s *Season) AdvanceWeek(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.advanceWeek()
}

// advanceWeek credits research income, ages the player's staff and moves
// every graph on by one week. It cannot fail part way: the context is
// checked by callers before any state changes.
func (s *Season) advanceWeek() error {
	start := time.Now()

	income := rules.WeeklyResourcePoints(ratings(s.player.Drivers), s.directorRating())
	s.player.Graph.AddResourcePoints(income)

	aging := s.rand(streamAging, 0)
	for _, d := range s.player.Drivers {
		d.AgeWeeks(1, aging)
	}
	for _, m := range s.staff.members() {
		m.AgeWeeks(1, aging)
	}

	completed := len(s.player.Graph.AdvanceTime(1))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, t := range s.aiTeams() {
		rng := s.rand(streamResearch, i)
		g.Go(func() error {
			t.Graph.SetRand(rng)
			t.Graph.AddResourcePoints(rules.WeeklyResourcePoints(ratings(t.Drivers), rules.AIDirectorRating))
			t.Graph.AdvanceTime(1)
			t.Graph.UpdateAvailability()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("advance week: %w", err)
	}
	started, aiCompleted := s.flushAI()
	s.metrics.RecordResearch(started, completed+aiCompleted)

	s.week++
	s.eventLog.SetGameTime(s.season, s.week)
	s.eventLog.Append(events.NewEvent(events.EventTypeWeekAdvanced, s.player.Name, "", events.WeekPayload{
		ResourcePoints: income,
		Balance:        s.player.Graph.ResourcePoints(),
	}))

	s.logger.Debug("week advanced",
		"season", s.season,
		"week", s.week,
		"income", income,
		"took", time.Since(start))
	return nil
}

// flushAI moves buffered AI research events into the log in grid order and
// returns how many projects were started and completed.
func (s *Season) flushAI() (started, completed int) {
	for _, t := range s.aiTeams() {
		for _, e := range t.buffer.drain() {
			switch e.Type {
			case events.EventTypeResearchStarted:
				started++
			case events.EventTypeResearchCompleted:
				completed++
			}
			s.eventLog.Append(e)
		}
	}
	return started, completed
}

// Tick is one step of the automatic clock: the next race weekend, or the
// end of the season once the calendar is exhausted.
func (s *Season) Tick(ctx context.Context) error {
	s.mu.Lock()
	done := s.round >= len(s.calendar)
	s.mu.Unlock()

	if done {
		s.EndSeason()
		return nil
	}
	_, err := s.RunRound(ctx, nil)
	if errors.Is(err, ErrSeasonComplete) {
		return nil
	}
	return err
}

// EndSeason archives the champions, resets the cost cap and starts the
// next season at round one.
func (s *Season) EndSeason() championship.SeasonRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.championship.EndSeason()
	s.finance.ResetSeason()
	s.season++
	s.week = 1
	s.round = 0
	s.history = nil
	s.eventLog.SetGameTime(s.season, s.week)
	s.eventLog.Append(events.NewEvent(events.EventTypeSeasonEnded, rec.ConstructorChampion, rec.DriverChampion, rec))

	s.logger.Info("season ended",
		"season", rec.Season,
		"driver_champion", rec.DriverChampion,
		"constructor_champion", rec.ConstructorChampion)
	return rec
}

type eventBuffer struct {
	events []events.GameEvent
}

func (b *eventBuffer) Append(e events.GameEvent) {
	b.events = append(b.events, e)
}

func (b *eventBuffer) drain() []events.GameEvent {
	out := b.events
	b.events = nil
	return out
}
