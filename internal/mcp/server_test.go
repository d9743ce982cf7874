package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"timelinelayout/internal/layout"
	"timelinelayout/internal/store"
)

func newTestStore(t *testing.T) *store.Repository {
	t.Helper()
	db, err := store.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })
	return store.NewRepository(db)
}

func connect(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	if cfg.Params == (layout.Params{}) {
		cfg.Params = layout.DefaultParams()
	}
	server := NewServer(cfg)

	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any, out any) *sdkmcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "tool %s returned no text content", name)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(text.Text), out))
	}
	return result
}

func TestNewServer_ListsTools(t *testing.T) {
	ctx := context.Background()

	cs := connect(t, Config{Store: newTestStore(t)})
	res, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{
		"calculate_smart_layout", "calculate_zoom_bounds", "generate_time_segments",
		"import_events", "list_timelines",
	}, names)

	bare := connect(t, Config{})
	res, err = bare.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 3)
}

func TestCalculateZoomBounds(t *testing.T) {
	cs := connect(t, Config{ContainerWidth: 1200})

	var bounds layout.ZoomBounds
	res := callTool(t, cs, "calculate_zoom_bounds", map[string]any{"event_count": 4}, &bounds)
	require.False(t, res.IsError)
	require.Equal(t, 347.0, bounds.FitZoom)
	require.Equal(t, 300.0, bounds.PerfectZoom)

	res = callTool(t, cs, "calculate_zoom_bounds", map[string]any{"event_count": 10, "container_width": 1200}, &bounds)
	require.False(t, res.IsError)
	require.Equal(t, 30.0, bounds.MinZoom)
}

func TestGenerateTimeSegments(t *testing.T) {
	cs := connect(t, Config{})

	var scale layout.TimeScale
	res := callTool(t, cs, "generate_time_segments", map[string]any{
		"events": []map[string]any{
			{"year": 2000, "title": "first"},
			{"year": 2023, "title": "second"},
		},
		"pixels_per_year": 200,
	}, &scale)
	require.False(t, res.IsError)
	require.Len(t, scale.Segments, 3)
	require.Equal(t, layout.Break, scale.Segments[1].Kind)
	require.Equal(t, 448.0, scale.TotalWidth)

	res = callTool(t, cs, "generate_time_segments", map[string]any{
		"events": []map[string]any{
			{"year": 2000, "title": "first"},
			{"year": 2023, "title": "second"},
		},
		"pixels_per_year": 200,
		"enable_breaks":   false,
	}, &scale)
	require.False(t, res.IsError)
	require.Len(t, scale.Segments, 1)
}

func TestCalculateSmartLayout(t *testing.T) {
	cs := connect(t, Config{})

	var result layout.Result
	res := callTool(t, cs, "calculate_smart_layout", map[string]any{
		"events": []map[string]any{
			{"id": "c", "year": 2021, "title": "c"},
			{"id": "b", "year": 2020, "title": "b"},
			{"id": "a", "year": 2020, "title": "a"},
		},
		"pixels_per_year": 500,
	}, &result)
	require.False(t, res.IsError)
	require.Equal(t, 1000.0, result.TotalWidth)
	require.Len(t, result.Events, 3)

	require.Equal(t, "a", result.Events[0].ID)
	require.Equal(t, layout.Track{Position: layout.Top, Layer: 0}, result.Events[0].Track)
	require.Equal(t, "b", result.Events[1].ID)
	require.Equal(t, 262.0, result.Events[1].PixelCenter)
	require.Equal(t, layout.Track{Position: layout.Bottom, Layer: 0}, result.Events[1].Track)
}

func TestCalculateSmartLayout_InvalidEvent(t *testing.T) {
	cs := connect(t, Config{})

	var apiErr APIError
	res := callTool(t, cs, "calculate_smart_layout", map[string]any{
		"events": []map[string]any{{"year": 2020, "month": 13, "title": "bad"}},
	}, &apiErr)
	require.True(t, res.IsError)
	require.Equal(t, "INVALID_EVENT", apiErr.Code)
}

func TestImportAndUseStoredTimeline(t *testing.T) {
	cs := connect(t, Config{Store: newTestStore(t)})

	var imported struct {
		Timeline store.Timeline `json:"timeline"`
		Imported int            `json:"imported"`
	}
	res := callTool(t, cs, "import_events", map[string]any{
		"name": "product",
		"events": []map[string]any{
			{"year": 2019, "title": "v1"},
			{"year": 2022, "month": 3, "title": "v2", "type": "release"},
		},
	}, &imported)
	require.False(t, res.IsError)
	require.Equal(t, 2, imported.Imported)
	require.Equal(t, 2, imported.Timeline.EventCount)

	var listed struct {
		Timelines []store.Timeline `json:"timelines"`
	}
	res = callTool(t, cs, "list_timelines", map[string]any{}, &listed)
	require.False(t, res.IsError)
	require.Len(t, listed.Timelines, 1)
	require.Equal(t, "product", listed.Timelines[0].Name)

	var result layout.Result
	res = callTool(t, cs, "calculate_smart_layout", map[string]any{"timeline_id": imported.Timeline.ID}, &result)
	require.False(t, res.IsError)
	require.Len(t, result.Events, 2)

	// importing again under the same name replaces the events
	res = callTool(t, cs, "import_events", map[string]any{
		"name":   "product",
		"events": []map[string]any{{"year": 2024, "title": "v3"}},
	}, &imported)
	require.False(t, res.IsError)
	require.Equal(t, 1, imported.Timeline.EventCount)
}

func TestImportEvents_FromFile(t *testing.T) {
	cs := connect(t, Config{Store: newTestStore(t)})

	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("year,month,title\n2001,2,alpha\n2005,,beta\n"), 0o644))

	var imported struct {
		Imported int `json:"imported"`
	}
	res := callTool(t, cs, "import_events", map[string]any{"name": "from-file", "path": path}, &imported)
	require.False(t, res.IsError)
	require.Equal(t, 2, imported.Imported)
}

func TestToolErrors(t *testing.T) {
	cs := connect(t, Config{Store: newTestStore(t)})

	var apiErr APIError
	res := callTool(t, cs, "calculate_smart_layout", map[string]any{"timeline_id": "missing"}, &apiErr)
	require.True(t, res.IsError)
	require.Equal(t, "TIMELINE_NOT_FOUND", apiErr.Code)

	res = callTool(t, cs, "import_events", map[string]any{"name": " "}, &apiErr)
	require.True(t, res.IsError)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)

	res = callTool(t, cs, "calculate_zoom_bounds", map[string]any{"event_count": -1}, &apiErr)
	require.True(t, res.IsError)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)
}

func TestTimelineIDWithoutStore(t *testing.T) {
	cs := connect(t, Config{})

	var apiErr APIError
	res := callTool(t, cs, "generate_time_segments", map[string]any{"timeline_id": "x"}, &apiErr)
	require.True(t, res.IsError)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)
}

// lockedBuffer is written from the server's goroutines while the test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTrafficLogging(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cs := connect(t, Config{Logger: logger})

	res := callTool(t, cs, "calculate_zoom_bounds", map[string]any{"event_count": 4, "container_width": 1200}, nil)
	require.False(t, res.IsError)

	logs := buf.String()
	require.Contains(t, logs, "mcp traffic")
	require.Contains(t, logs, "method=tools/call")
	require.Contains(t, logs, "stage=request")
	require.Contains(t, logs, "stage=response")
	require.Contains(t, logs, "event_count")
}

func TestTrafficLogging_QuietAboveDebug(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cs := connect(t, Config{Logger: logger})

	callTool(t, cs, "calculate_zoom_bounds", map[string]any{"event_count": 4, "container_width": 1200}, nil)
	require.NotContains(t, buf.String(), "mcp traffic")
}

func TestHTTPHandler_Health(t *testing.T) {
	handler := NewHTTPHandler(NewServer(Config{Params: layout.DefaultParams()}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
