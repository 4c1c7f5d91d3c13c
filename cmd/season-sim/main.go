// Package main runs whole seasons headless. Same seed, same championship:
// it doubles as a determinism check and a balance tool for the grid.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/teamprincipal/paddock/internal/domain/team"
	"github.com/teamprincipal/paddock/internal/domain/track"
	"github.com/teamprincipal/paddock/internal/engine"
	"github.com/teamprincipal/paddock/internal/platform/config"
	"github.com/teamprincipal/paddock/internal/platform/logger"
	"github.com/teamprincipal/paddock/internal/platform/metrics"
	"github.com/teamprincipal/paddock/internal/research"
	"github.com/teamprincipal/paddock/internal/research/tree"
)

func main() {
	if err := run(); err != nil {
		config.Exitf("season-sim: %v", err)
	}
}

func run() error {
	var configPath, logLevel string
	var seed int64
	var seasons, rounds int
	var autopilot bool

	flagSet := pflag.NewFlagSet("season-sim", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "YAML config file for team, drivers and difficulty")
	flagSet.Int64Var(&seed, "seed", 0, "simulation seed (overrides game.seed)")
	flagSet.IntVar(&seasons, "seasons", 1, "number of seasons to run")
	flagSet.IntVar(&rounds, "rounds", 0, "races per season (0 runs the full calendar)")
	flagSet.BoolVar(&autopilot, "autopilot", true, "let the player team pick research on its own")
	flagSet.StringVar(&logLevel, "log-level", "warn", "engine log level")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("seed") {
		cfg.Game.Seed = seed
	}
	calendar := track.Calendar()
	if rounds > 0 && rounds < len(calendar) {
		calendar = calendar[:rounds]
	}
	defs, err := tree.Load(cfg.Game.ResearchTree)
	if err != nil {
		return err
	}

	s, err := engine.NewSeason(engine.Options{
		Seed:           cfg.Game.Seed,
		Difficulty:     cfg.Difficulty(),
		TotalEngineers: cfg.Game.TotalEngineers,
		Team:           cfg.Game.Team,
		Tier:           team.Tier(cfg.Game.Tier),
		Drivers:        cfg.Game.Drivers,
		Tree:           defs,
		Calendar:       calendar,
		Logger:         logger.New(logger.Options{Level: logLevel, Output: os.Stderr}),
		Metrics:        metrics.New(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Printf("PADDOCK SEASON SIMULATOR  seed=%d  team=%s  difficulty=%s\n",
		cfg.Game.Seed, s.PlayerTeam(), cfg.Difficulty())
	fmt.Println(strings.Repeat("=", 60))

	for i := 0; i < seasons; i++ {
		if err := runSeason(ctx, s, autopilot); err != nil {
			return err
		}
	}
	return nil
}

func runSeason(ctx context.Context, s *engine.Season, autopilot bool) error {
	season := s.State().Season
	fmt.Printf("\nSEASON %d\n", season)

	for {
		if autopilot {
			pickResearch(s)
		}
		report, err := s.RunRound(ctx, nil)
		if errors.Is(err, engine.ErrSeasonComplete) {
			break
		}
		if err != nil {
			return err
		}

		res := report.Result
		winner := res.Standings[0]
		fmt.Printf("  R%-2d %-36s %-22s %s\n", res.Round, res.Track, winner.Driver, winner.Team)
		for _, st := range res.Standings {
			if st.Team == s.PlayerTeam() {
				fmt.Printf("      %s for %s (%d stops)\n", humanize.Ordinal(st.Position), st.Driver, st.PitStops)
			}
		}
	}

	st := s.State()
	rec := s.EndSeason()
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("  Drivers' champion:      %s\n", rec.DriverChampion)
	fmt.Printf("  Constructors' champion: %s\n", rec.ConstructorChampion)
	for i, row := range st.ConstructorStandings {
		marker := " "
		if row.Name == st.Team {
			marker = "*"
		}
		fmt.Printf("  %s %-5s %-24s %4d pts\n", marker, humanize.Ordinal(i+1), row.Name, row.Points)
	}
	fmt.Printf("  Bank: $%s  Car overall: %d  R&D completed: %d\n",
		humanize.Comma(st.Finance.Balance), st.Overall, completed(s.Research()))
	return nil
}

// pickResearch starts the cheapest affordable project when the player has
// nothing running, and puts every idle engineer on it.
func pickResearch(s *engine.Season) {
	st := s.State()
	if len(st.ActiveProjects) > 0 || st.IdleEngineers == 0 {
		return
	}
	var pick *research.Node
	for _, n := range s.Research() {
		if n.State != research.StateAvailable || n.RPCost > st.ResourcePoints {
			continue
		}
		if pick == nil || n.RPCost < pick.RPCost {
			pick = &n
		}
	}
	if pick == nil {
		return
	}
	if err := s.StartResearch(pick.ID); err != nil {
		return
	}
	_ = s.AllocateEngineers(pick.ID, st.IdleEngineers)
}

func completed(nodes []research.Node) int {
	n := 0
	for _, node := range nodes {
		if node.State == research.StateCompleted {
			n++
		}
	}
	return n
}
