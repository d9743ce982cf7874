// Package mcp exposes the layout engine and the timeline store as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"timelinelayout/internal/events"
	"timelinelayout/internal/layout"
	"timelinelayout/internal/store"
)

// TimelineStore defines the storage operations needed by the tools.
type TimelineStore interface {
	CreateTimeline(ctx context.Context, name string) (*store.Timeline, error)
	GetTimeline(ctx context.Context, id string) (*store.Timeline, error)
	GetTimelineByName(ctx context.Context, name string) (*store.Timeline, error)
	ListTimelines(ctx context.Context) ([]store.Timeline, error)
	SaveEvents(ctx context.Context, timelineID string, list []events.Event) error
	ListEvents(ctx context.Context, timelineID string) ([]events.Event, error)
}

// Config contains server configuration.
type Config struct {
	Store          TimelineStore // nil disables the storage tools
	Params         layout.Params
	Palette        []string
	TypeColors     map[events.Type]string
	ContainerWidth float64 // default width for calculate_zoom_bounds
	Version        string
	Logger         *slog.Logger
}

const serverInstructions = `Timeline layout tools.

Events carry a year, an optional month (1-12) and a title. Pass them inline
as "events" or reference a stored timeline with "timeline_id".

1. calculate_zoom_bounds gives min, max and perfect zoom for a container width.
2. calculate_smart_layout places events on the axis and assigns each a track
   (top/bottom, layer 0/1) and a colour.
3. generate_time_segments returns only the compressed time axis.

Use import_events to store events under a name and list_timelines to find them.`

// NewServer creates an MCP server with every tool registered.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "timeline-layout",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &tools{cfg: cfg})
	return server
}

// NewHTTPHandler serves the streamable HTTP transport on /mcp and a
// liveness check on /health.
func NewHTTPHandler(server *sdkmcp.Server) http.Handler {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
		},
	)

	router := http.NewServeMux()
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/", mcpHandler)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return router
}
