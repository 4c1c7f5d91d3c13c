// Package config loads paddock configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// PADDOCK_* environment variables. Command-line flags are applied by each
// binary on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/teamprincipal/paddock/internal/domain/rules"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the master configuration.
type Config struct {
	Environment Environment `yaml:"environment" env:"PADDOCK_ENV"`

	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Game    GameConfig    `yaml:"game"`
	Log     LogConfig     `yaml:"log"`
	Tuning  TuningConfig  `yaml:"tuning"`
}

// ServerConfig configures the HTTP and websocket surface.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"PADDOCK_ADDR"`

	// AutoTick advances one week every TickInterval of wall-clock time.
	AutoTick     bool          `yaml:"auto_tick" env:"PADDOCK_AUTO_TICK"`
	TickInterval time.Duration `yaml:"tick_interval" env:"PADDOCK_TICK_INTERVAL"`

	// ResultCacheSize is the number of race results kept in memory.
	ResultCacheSize int `yaml:"result_cache_size" env:"PADDOCK_RESULT_CACHE_SIZE"`
}

// StorageConfig configures the SQLite save database.
type StorageConfig struct {
	DBPath   string `yaml:"db_path" env:"PADDOCK_DB_PATH"`
	SaveSlot string `yaml:"save_slot" env:"PADDOCK_SAVE_SLOT"`
	// AutosaveInterval writes the session to SaveSlot periodically. Zero
	// turns autosave off.
	AutosaveInterval time.Duration `yaml:"autosave_interval" env:"PADDOCK_AUTOSAVE_INTERVAL"`
}

// GameConfig configures a new session.
type GameConfig struct {
	// Team is the player's constructor. An existing grid name takes that
	// team over; any other name builds a custom team of the given Tier.
	Team    string   `yaml:"team" env:"PADDOCK_TEAM"`
	Tier    string   `yaml:"tier" env:"PADDOCK_TIER"`
	Drivers []string `yaml:"drivers" env:"PADDOCK_DRIVERS" envSeparator:","`

	Difficulty     string `yaml:"difficulty" env:"PADDOCK_DIFFICULTY"`
	Seed           int64  `yaml:"seed" env:"PADDOCK_SEED"`
	TotalEngineers int    `yaml:"total_engineers" env:"PADDOCK_ENGINEERS"`
	// ResearchTree is a JSONC tree file. Empty uses the built-in tree.
	ResearchTree string `yaml:"research_tree" env:"PADDOCK_RESEARCH_TREE"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"PADDOCK_LOG_LEVEL"`
	Format string `yaml:"format" env:"PADDOCK_LOG_FORMAT"`
}

// TuningConfig holds buffer and pool sizes.
type TuningConfig struct {
	BroadcastBuffer  int           `yaml:"broadcast_buffer" env:"PADDOCK_BROADCAST_BUFFER"`
	ClientSendBuffer int           `yaml:"client_send_buffer" env:"PADDOCK_CLIENT_SEND_BUFFER"`
	DBMaxOpenConns   int           `yaml:"db_max_open_conns" env:"PADDOCK_DB_MAX_OPEN_CONNS"`
	PollInterval     time.Duration `yaml:"poll_interval" env:"PADDOCK_POLL_INTERVAL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Addr:            ":8080",
			TickInterval:    time.Minute,
			ResultCacheSize: 64,
		},
		Storage: StorageConfig{
			DBPath:           "paddock.db",
			SaveSlot:         "slot1",
			AutosaveInterval: 5 * time.Minute,
		},
		Game: GameConfig{
			Team:           "Player Racing",
			Tier:           "midfield",
			Drivers:        []string{"Liam Lawson", "Oliver Bearman"},
			Difficulty:     string(rules.DifficultyNormal),
			Seed:           1,
			TotalEngineers: rules.StandardEngineers,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tuning: DefaultTuning(),
	}
}

// DefaultTuning scales pools with the CPU count.
func DefaultTuning() TuningConfig {
	return TuningConfig{
		BroadcastBuffer:  256,
		ClientSendBuffer: 64,
		DBMaxOpenConns:   runtime.NumCPU(),
		PollInterval:     100 * time.Millisecond,
	}
}

// LowResourceTuning is for development machines and tests.
func LowResourceTuning() TuningConfig {
	return TuningConfig{
		BroadcastBuffer:  16,
		ClientSendBuffer: 8,
		DBMaxOpenConns:   1,
		PollInterval:     250 * time.Millisecond,
	}
}

// ParseEnv loads configuration from environment variables. Unset
// variables leave the target's current values alone.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if _, err := rules.ParseDifficulty(c.Game.Difficulty); err != nil {
		errs = append(errs, err)
	}
	if c.Game.Team == "" {
		errs = append(errs, errors.New("game.team is required"))
	}
	if c.Game.TotalEngineers < 0 {
		errs = append(errs, errors.New("game.total_engineers must not be negative"))
	}
	if c.Server.ResultCacheSize <= 0 {
		errs = append(errs, errors.New("server.result_cache_size must be positive"))
	}
	if c.Server.AutoTick && c.Server.TickInterval <= 0 {
		errs = append(errs, errors.New("server.tick_interval must be positive when auto_tick is on"))
	}
	if c.Storage.AutosaveInterval < 0 {
		errs = append(errs, errors.New("storage.autosave_interval must not be negative"))
	}
	if c.Storage.SaveSlot == "" {
		errs = append(errs, errors.New("storage.save_slot is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Difficulty returns the validated difficulty.
func (c *Config) Difficulty() rules.Difficulty {
	d, err := rules.ParseDifficulty(c.Game.Difficulty)
	if err != nil {
		return rules.DifficultyNormal
	}
	return d
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
