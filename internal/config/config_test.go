package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"timelinelayout/internal/events"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TIMELINE_CONFIG_PATH", "TIMELINE_LOG_LEVEL", "TIMELINE_DB_PATH",
		"TIMELINE_TRANSPORT", "TIMELINE_SERVER_HOST", "TIMELINE_SERVER_PORT",
		"TIMELINE_WIDTH", "TIMELINE_ZOOM", "TIMELINE_ENABLE_BREAKS",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, 400.0, cfg.Engine.BreakThreshold)
	require.True(t, cfg.Timeline.EnableBreaks)
}

func TestLoad_FileKeepsUnsetDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "timeline.yaml", `
layout:
  width: 900
timeline:
  zoom: 150
  enable_breaks: false
  type_colors:
    Release: "#123456"
engine:
  card_width: 180
event_marker:
  shape: diamond
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 900, cfg.Layout.Width)
	require.Equal(t, 600, cfg.Layout.Height)
	require.Equal(t, 150.0, cfg.Timeline.Zoom)
	require.False(t, cfg.Timeline.EnableBreaks)
	require.Equal(t, 180.0, cfg.Engine.CardWidth)
	require.Equal(t, 48.0, cfg.Engine.BreakWidth)
	require.Equal(t, "diamond", cfg.EventMarker.Shape)
	require.Equal(t, map[events.Type]string{events.TypeRelease: "#123456"}, cfg.TypeColors())
}

func TestLoad_PathFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "c.yaml", "log:\n  level: debug\n")
	t.Setenv("TIMELINE_CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "c.yaml", "server:\n  port: 9000\n")
	t.Setenv("TIMELINE_SERVER_PORT", "9100")
	t.Setenv("TIMELINE_TRANSPORT", "http")
	t.Setenv("TIMELINE_DB_PATH", "/tmp/x.db")
	t.Setenv("TIMELINE_ZOOM", "75")
	t.Setenv("TIMELINE_ENABLE_BREAKS", "false")
	t.Setenv("TIMELINE_WIDTH", "640")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "http", cfg.Server.Transport)
	require.Equal(t, "/tmp/x.db", cfg.DB.Path)
	require.Equal(t, 75.0, cfg.Timeline.Zoom)
	require.False(t, cfg.Timeline.EnableBreaks)
	require.Equal(t, 640, cfg.Layout.Width)
}

func TestLoad_BadEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMELINE_SERVER_PORT", "eighty")

	_, err := Load("")
	require.ErrorContains(t, err, "TIMELINE_SERVER_PORT")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Layout.Width = 0 }},
		{"negative zoom", func(c *Config) { c.Timeline.Zoom = -1 }},
		{"unknown shape", func(c *Config) { c.EventMarker.Shape = "star" }},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown transport", func(c *Config) { c.Server.Transport = "grpc" }},
		{"bad palette", func(c *Config) { c.Timeline.Palette = []string{"blue"} }},
		{"bad type colour", func(c *Config) { c.Timeline.TypeColors = map[string]string{"note": "#12"} }},
		{"zoom range inverted", func(c *Config) { c.Engine.MaxZoom = 10 }},
		{"zero card width", func(c *Config) { c.Engine.CardWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
	require.NoError(t, Default().Validate())
}

func TestLoadDotEnv(t *testing.T) {
	const key = "TIMELINE_DOTENV_TEST_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=from-file\n")
	require.NoError(t, LoadDotEnv(path))
	require.Equal(t, "from-file", os.Getenv(key))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
