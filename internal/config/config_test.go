package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Scheduler.StaleBound)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.HazardRetry)
	assert.Equal(t, 50*time.Millisecond, cfg.Tick.Rate)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NotZero(t, cfg.Server.StartTime)
	assert.Equal(t, "127.0.0.1:7400", cfg.Network.BindAddress)
	assert.Empty(t, cfg.Network.PasswordHash)
}

func TestParse_OverridesDurations(t *testing.T) {
	raw := []byte(`
[tick]
rate = "100ms"

[scheduler]
stale_bound = "2m"
sweep_interval = "750ms"

[data]
hot_reload = false
`)
	cfg, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Tick.Rate)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.StaleBound)
	assert.Equal(t, 750*time.Millisecond, cfg.Scheduler.SweepInterval)
	assert.False(t, cfg.Data.HotReload)
	// untouched keys keep their defaults
	assert.Equal(t, 1000*time.Millisecond, cfg.Scheduler.GroundDotInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_BadSyntax(t *testing.T) {
	p := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(p, []byte("[tick\nrate = 1"), 0o644))

	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestParse_DebugTraceSpawns(t *testing.T) {
	raw := []byte(`
[data]
spawns = "custom/spawns.yaml"

[debug]
trace_spawns = ["hollow_king@0", "ember_wyrm@1"]
`)
	cfg, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "custom/spawns.yaml", cfg.Data.Spawns)
	assert.Equal(t, []string{"hollow_king@0", "ember_wyrm@1"}, cfg.Debug.TraceSpawns)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "server.toml"))
	require.NoError(t, err)

	assert.Equal(t, "encounter", cfg.Server.Name)
	assert.True(t, cfg.Network.Enabled)
	assert.Equal(t, 16, cfg.Network.MaxPacketsPerTick)
	assert.Equal(t, time.Second, cfg.Scheduler.GroundDotInterval)
	assert.Empty(t, cfg.Debug.TraceSpawns)
}
