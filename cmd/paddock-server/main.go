// Package main is the entry point for the paddock game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/teamprincipal/paddock/internal/domain/team"
	"github.com/teamprincipal/paddock/internal/domain/track"
	"github.com/teamprincipal/paddock/internal/engine"
	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/infra/cache"
	"github.com/teamprincipal/paddock/internal/infra/storage"
	"github.com/teamprincipal/paddock/internal/network"
	"github.com/teamprincipal/paddock/internal/platform/config"
	"github.com/teamprincipal/paddock/internal/platform/logger"
	"github.com/teamprincipal/paddock/internal/platform/metrics"
	"github.com/teamprincipal/paddock/internal/research/tree"
)

func main() {
	if err := run(); err != nil {
		config.Exitf("paddock-server: %v", err)
	}
}

func run() error {
	var configPath, addr string
	var seed int64
	var fresh bool

	flagSet := pflag.NewFlagSet("paddock-server", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "YAML config file (PADDOCK_* variables override it)")
	flagSet.StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	flagSet.Int64Var(&seed, "seed", 0, "seed for a new career (overrides game.seed)")
	flagSet.BoolVar(&fresh, "new", false, "start a new career even if the save slot exists")
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
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if flagSet.Changed("seed") {
		cfg.Game.Seed = seed
	}

	appLogger := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	m := metrics.Get()

	appLogger.Info("initializing sqlite database", "path", cfg.Storage.DBPath)
	db, err := storage.InitSQLite(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Tuning.DBMaxOpenConns)

	eventRepo := storage.NewSQLiteEventRepository(db)
	sessions := storage.NewSQLiteSessionRepository(db)

	eventLog := events.NewEventLog(eventRepo.Persister(cfg.Storage.SaveSlot, 5*time.Second, m))
	eventLog.OnPersistError(func(e events.GameEvent, err error) {
		appLogger.Error("event ledger write failed", "event", e.ID, "type", e.Type, "error", err)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	season, err := bootstrapSeason(ctx, cfg, sessions, eventLog, appLogger, m, fresh)
	if err != nil {
		return err
	}

	results, err := cache.NewResultCache(cfg.Server.ResultCacheSize, m)
	if err != nil {
		return err
	}

	appLogger.Info("bootstrapping websocket hub")
	hub := network.NewHub(appLogger, cfg.Tuning, m)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	if cfg.Server.AutoTick {
		ticker := engine.NewTicker(cfg.Server.TickInterval, season.Tick, appLogger, m)
		go ticker.Start(ctx)
		defer ticker.Stop()
	}
	if cfg.Storage.AutosaveInterval > 0 {
		autosave := engine.NewTicker(cfg.Storage.AutosaveInterval, func(ctx context.Context) error {
			return sessions.Save(ctx, cfg.Storage.SaveSlot, season.Snapshot())
		}, appLogger.With("task", "autosave"), metrics.New())
		go autosave.Start(ctx)
		defer autosave.Stop()
	}

	api := network.NewSeasonAPI(season, sessions, storage.NewReconstructor(eventRepo), results, cfg.Storage.SaveSlot, appLogger)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/metrics", m.Handler())
	mux.HandleFunc("/metrics/prometheus", m.PrometheusHandler())

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("http api and websocket listening", "addr", cfg.Server.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	appLogger.Info("shutting down")
	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("http shutdown", "error", err)
	}
	if err := sessions.Save(shutdownCtx, cfg.Storage.SaveSlot, season.Snapshot()); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	appLogger.Info("session saved", "slot", cfg.Storage.SaveSlot)
	return nil
}

// bootstrapSeason resumes the configured save slot, or starts a new career
// when the slot is empty.
func bootstrapSeason(ctx context.Context, cfg *config.Config, sessions storage.SessionRepository,
	eventLog *events.EventLog, log *logger.Logger, m *metrics.Collector, fresh bool) (*engine.Season, error) {
	defs, err := tree.Load(cfg.Game.ResearchTree)
	if err != nil {
		return nil, err
	}
	opts := engine.Options{
		Seed:           cfg.Game.Seed,
		Difficulty:     cfg.Difficulty(),
		TotalEngineers: cfg.Game.TotalEngineers,
		Team:           cfg.Game.Team,
		Tier:           team.Tier(cfg.Game.Tier),
		Drivers:        cfg.Game.Drivers,
		Tree:           defs,
		Calendar:       track.Calendar(),
		EventLog:       eventLog,
		Logger:         log,
		Metrics:        m,
	}

	if !fresh {
		snap, err := sessions.Load(ctx, cfg.Storage.SaveSlot)
		switch {
		case err == nil:
			log.Info("resuming career", "slot", cfg.Storage.SaveSlot, "season", snap.Season, "week", snap.Week)
			return engine.Resume(snap, opts)
		case !errors.Is(err, storage.ErrSlotNotFound):
			return nil, err
		}
	}

	log.Info("starting new career", "team", cfg.Game.Team, "seed", cfg.Game.Seed, "difficulty", opts.Difficulty)
	return engine.NewSeason(opts)
}
