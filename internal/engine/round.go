package engine

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/teamprincipal/paddock/internal/championship"
	"github.com/teamprincipal/paddock/internal/domain/tire"
	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/race"
)

// DefaultStrategy is used for player drivers without an explicit plan.
var DefaultStrategy = []string{tire.Medium, tire.Hard}

// AIStrategies are the plans AI drivers pick from at random each race.
var AIStrategies = [][]string{
	{tire.Medium, tire.Hard},
	{tire.Soft, tire.Hard},
	{tire.Soft, tire.Medium, tire.Medium},
}

// RoundReport is the outcome of one race weekend.
type RoundReport struct {
	Result race.Result           `json:"result"`
	Awards []championship.Award `json:"awards"`
	Prize  int64                 `json:"prize"` // paid to the player
}

// RunRound runs the next race weekend: qualifying, the race, championship
// points and prize money, then the week's research tick. strategies maps
// player driver names to their tire plans.
func (s *Season) RunRound(ctx context.Context, strategies map[string][]string) (RoundReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return RoundReport{}, err
	}
	if s.round >= len(s.calendar) {
		return RoundReport{}, ErrSeasonComplete
	}

	start := time.Now()
	tr := s.calendar[s.round]
	number := s.round + 1

	pick := s.rand(streamStrategy, 0)
	var entries []*race.Entry
	for _, t := range s.teams {
		for _, d := range t.Drivers {
			plan := AIStrategies[pick.Intn(len(AIStrategies))]
			if t.Player {
				plan = DefaultStrategy
				if p, ok := strategies[d.Name]; ok {
					plan = p
				}
			}
			entries = append(entries, race.NewEntry(d, t.Car, t.Name, plan, s.catalog))
		}
	}

	sim := race.NewSimulator(tr, s.catalog, s.rand(streamRace, 0), s.logger)
	sim.SetEventSink(s.eventLog, number)
	grid, slots := sim.Qualify(entries)
	res := sim.Run(grid)
	res.Grid = slots

	awards := s.championship.Score(res.Standings)
	var playerPoints int
	for _, a := range awards {
		s.eventLog.Append(events.NewEvent(events.EventTypePointsAwarded, a.Team, a.Driver, events.PointsPayload{
			Position: a.Position,
			Team:     a.Team,
			Points:   a.Points,
		}))
		if a.Team == s.player.Name {
			playerPoints += a.Points
		}
	}
	var prize int64
	if playerPoints > 0 {
		prize = s.finance.AwardPrize(playerPoints)
	}

	pits := 0
	for _, st := range res.Standings {
		pits += st.PitStops
	}
	s.metrics.RecordRace(tr.Laps, pits, time.Since(start))

	summary := RoundSummary{Round: number, Track: tr.Name, Standings: res.Standings}
	if len(res.Standings) > 0 {
		summary.Winner = res.Standings[0].Driver
		summary.WinnerTeam = res.Standings[0].Team
	}
	s.history = append(s.history, summary)
	s.round++

	s.logger.Info("race complete",
		"round", number,
		"track", tr.Name,
		"winner", summary.Winner,
		"best_player_finish", s.bestFinish(res.Standings),
		"prize", "$"+humanize.Comma(prize))

	report := RoundReport{Result: res, Awards: awards, Prize: prize}
	return report, s.advanceWeek()
}

func (s *Season) bestFinish(standings []race.Standing) string {
	for _, st := range standings {
		if st.Team == s.player.Name {
			return humanize.Ordinal(st.Position)
		}
	}
	return "-"
}
