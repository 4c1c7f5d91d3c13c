package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamprincipal/paddock/internal/domain/rules"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paddock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, rules.DifficultyNormal, cfg.Difficulty())
	assert.Equal(t, rules.StandardEngineers, cfg.Game.TotalEngineers)
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9000"
  tick_interval: 30s
game:
  team: Williams
  difficulty: Hard
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.TickInterval)
	assert.Equal(t, "Williams", cfg.Game.Team)
	assert.Equal(t, rules.DifficultyHard, cfg.Difficulty())
	assert.Equal(t, "slot1", cfg.Storage.SaveSlot, "untouched keys keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.Storage.AutosaveInterval)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "game:\n  seed: 5\n  difficulty: Hard\n")
	t.Setenv("PADDOCK_SEED", "99")
	t.Setenv("PADDOCK_DRIVERS", "Alex Palou,Colton Herta")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.Game.Seed)
	assert.Equal(t, []string{"Alex Palou", "Colton Herta"}, cfg.Game.Drivers)
	assert.Equal(t, "Hard", cfg.Game.Difficulty)
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("PADDOCK_SEED", "not-a-number")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"difficulty", func(c *Config) { c.Game.Difficulty = "Insane" }},
		{"team", func(c *Config) { c.Game.Team = "" }},
		{"engineers", func(c *Config) { c.Game.TotalEngineers = -1 }},
		{"cache", func(c *Config) { c.Server.ResultCacheSize = 0 }},
		{"tick", func(c *Config) { c.Server.AutoTick = true; c.Server.TickInterval = 0 }},
		{"slot", func(c *Config) { c.Storage.SaveSlot = "" }},
		{"autosave", func(c *Config) { c.Storage.AutosaveInterval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestBadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "server: [unterminated"))
	assert.Error(t, err)
}
