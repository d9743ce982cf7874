package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"timelinelayout/internal/config"
	"timelinelayout/internal/events"
)

const sampleCSV = `year,month,title,description,type
2001,3,Founded,Company founded,milestone
2001,,Seed round,,funding
2005,9,First release,Version 1.0 shipped,release
2023,1,Rewrite,,release
`

func writeEvents(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TIMELINE_CONFIG_PATH", "")
	t.Setenv("TIMELINE_DB_PATH", filepath.Join(t.TempDir(), "data", "timelines.db"))
	t.Setenv("TIMELINE_LOG_LEVEL", "error")
}

func TestRunRender_SVG(t *testing.T) {
	isolateEnv(t)
	input := writeEvents(t)
	output := filepath.Join(t.TempDir(), "out.svg")

	var stdout bytes.Buffer
	require.NoError(t, runRender([]string{"--events", input, "--output", output}, &stdout))
	require.Contains(t, stdout.String(), "generated successfully")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "<svg") || strings.Contains(string(data), "<svg "))
	require.Equal(t, 4, strings.Count(string(data), `class="event"`))
	require.Contains(t, string(data), "axis-break")
}

func TestRunRender_JSONToStdout(t *testing.T) {
	isolateEnv(t)
	input := writeEvents(t)

	var stdout bytes.Buffer
	require.NoError(t, runRender([]string{"--csv", input, "--format", "json", "--output", "-", "--breaks=false"}, &stdout))

	var doc struct {
		Segments []json.RawMessage `json:"segments"`
		Events   []json.RawMessage `json:"events"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	require.Len(t, doc.Events, 4)
	require.Len(t, doc.Segments, 1)
}

func TestRunRender_Errors(t *testing.T) {
	isolateEnv(t)

	err := runRender(nil, &bytes.Buffer{})
	require.ErrorContains(t, err, "events file is required")

	input := writeEvents(t)
	err = runRender([]string{"--events", input, "--timeline", "x"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "not both")

	err = runRender([]string{"--events", input, "--format", "png", "--output", "-"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "unknown format")
}

func TestRunImport_ThenRenderStoredTimeline(t *testing.T) {
	isolateEnv(t)
	input := writeEvents(t)

	var stdout bytes.Buffer
	require.NoError(t, runImport([]string{"--events", input}, &stdout))
	require.Contains(t, stdout.String(), `Imported 4 events into timeline "history"`)

	stdout.Reset()
	require.NoError(t, runRender([]string{"--timeline", "history", "--format", "json", "--output", "-"}, &stdout))

	var doc struct {
		Events []json.RawMessage `json:"events"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	require.Len(t, doc.Events, 4)
}

func TestServerConfig_UsesRenderViewport(t *testing.T) {
	cfg := config.Default()
	cfg.Layout.Width = 1000
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sc := serverConfig(cfg, nil, logger)
	require.Equal(t, 880.0, sc.ContainerWidth)

	list := []events.Event{
		{ID: "a", Year: 2001, Title: "one"},
		{ID: "b", Year: 2004, Title: "two"},
	}
	_, bounds := computeLayout(list, cfg, logger)
	require.Equal(t, bounds.AvailableWidth, sc.ContainerWidth)
}

func TestEnsureDBDir(t *testing.T) {
	require.NoError(t, ensureDBDir(":memory:"))
	require.NoError(t, ensureDBDir("local.db"))

	path := filepath.Join(t.TempDir(), "nested", "dir", "t.db")
	require.NoError(t, ensureDBDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel(""))
}
