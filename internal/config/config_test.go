package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wtas/internal/ir"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "scripts", cfg.ScriptsDir)
	assert.Equal(t, "127.0.0.1:7878", cfg.Listen)
	assert.Equal(t, "wtas.db", cfg.Database)
	assert.Equal(t, uint32(60), cfg.WarmupTicks)
	assert.Equal(t, 64, cfg.InboxSize)
	assert.Equal(t, 256, cfg.OutboxSize)
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, ir.DefaultTraceDrawOptions(), cfg.Trace)
}

func TestParse_OverridesKeepDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
scripts_dir: routes
warmup_ticks: 0
tick_rate: 30
trace:
  z_offset: 1.5
  interval: between:10:20
`))
	require.NoError(t, err)

	assert.Equal(t, "routes", cfg.ScriptsDir)
	assert.Equal(t, uint32(0), cfg.WarmupTicks, "explicit zero is not replaced by the default")
	assert.Equal(t, 30, cfg.TickRate)
	assert.Equal(t, "127.0.0.1:7878", cfg.Listen)
	assert.Equal(t, float32(1.5), cfg.Trace.ZOffset)
	assert.Equal(t, float32(0.05), cfg.Trace.SphereRadius)
	assert.Equal(t, ir.Between(10, 20), cfg.Trace.Interval)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"unknown key", "listne: x\n", "listne"},
		{"unknown trace key", "trace:\n  radius: 1\n", "radius"},
		{"zero tick rate", "tick_rate: 0\n", "tick_rate"},
		{"negative warmup", "warmup_ticks: -1\n", "warmup_ticks"},
		{"bad listen", "listen: localhost\n", "listen"},
		{"bad interval", "trace:\n  interval: middle:3\n", "interval"},
		{"negative radius", "trace:\n  sphere_radius: -1\n", "sphere_radius"},
		{"wrong type", "inbox_size: lots\n", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, IsError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("database: runs.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "runs.db", cfg.Database)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg, err = LoadOptional(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(path, []byte("tick_rate: 0\n"), 0o644))
	_, err = LoadOptional(path)
	assert.True(t, IsError(err), "a present but invalid file is still an error")
}

func TestTickInterval(t *testing.T) {
	cfg := Default()
	cfg.TickRate = 50
	assert.Equal(t, 20*time.Millisecond, cfg.TickInterval())
}
