package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"timelinelayout/internal/events"
	"timelinelayout/internal/layout"
	"timelinelayout/internal/store"
)

// EventInput is an event as supplied by a client. Missing ids are generated.
type EventInput struct {
	ID          string   `json:"id,omitempty" jsonschema:"stable event identifier; generated when omitted"`
	Year        int      `json:"year" jsonschema:"calendar year"`
	Month       *int     `json:"month,omitempty" jsonschema:"month 1-12; omit when only the year is known"`
	Title       string   `json:"title" jsonschema:"card title"`
	Description *string  `json:"description,omitempty" jsonschema:"card body text"`
	Type        string   `json:"type,omitempty" jsonschema:"event type such as release or milestone"`
	Highlight   []string `json:"highlight,omitempty" jsonschema:"terms to emphasise in the description"`
}

// EventsRef selects the events a tool works on.
type EventsRef struct {
	Events     []EventInput
	TimelineID string
}

// ScaleInput configures the time axis.
type ScaleInput struct {
	Zoom          float64
	PixelsPerYear float64
	EnableBreaks  *bool
	ViewportWidth float64
}

type SegmentsInput struct {
	Events        []EventInput `json:"events,omitempty" jsonschema:"inline events"`
	TimelineID    string       `json:"timeline_id,omitempty" jsonschema:"id of a stored timeline; overrides events"`
	Zoom          float64      `json:"zoom,omitempty" jsonschema:"zoom percentage; 100 when omitted"`
	PixelsPerYear float64      `json:"pixels_per_year,omitempty" jsonschema:"axis density; overrides zoom when positive"`
	EnableBreaks  *bool        `json:"enable_breaks,omitempty" jsonschema:"compress long empty gaps; default true"`
	ViewportWidth float64      `json:"viewport_width,omitempty" jsonschema:"visible width in pixels; stops dense ranges widening past it"`
}

func (in SegmentsInput) ref() EventsRef {
	return EventsRef{Events: in.Events, TimelineID: in.TimelineID}
}

func (in SegmentsInput) scale() ScaleInput {
	return ScaleInput{Zoom: in.Zoom, PixelsPerYear: in.PixelsPerYear, EnableBreaks: in.EnableBreaks, ViewportWidth: in.ViewportWidth}
}

type LayoutInput struct {
	Events        []EventInput `json:"events,omitempty" jsonschema:"inline events"`
	TimelineID    string       `json:"timeline_id,omitempty" jsonschema:"id of a stored timeline; overrides events"`
	Zoom          float64      `json:"zoom,omitempty" jsonschema:"zoom percentage; 100 when omitted"`
	PixelsPerYear float64      `json:"pixels_per_year,omitempty" jsonschema:"axis density; overrides zoom when positive"`
	EnableBreaks  *bool        `json:"enable_breaks,omitempty" jsonschema:"compress long empty gaps; default true"`
	ViewportWidth float64      `json:"viewport_width,omitempty" jsonschema:"visible width in pixels; stops dense ranges widening past it"`
	Palette       []string     `json:"palette,omitempty" jsonschema:"hex colours cycled per distinct year"`
}

func (in LayoutInput) ref() EventsRef {
	return EventsRef{Events: in.Events, TimelineID: in.TimelineID}
}

func (in LayoutInput) scale() ScaleInput {
	return ScaleInput{Zoom: in.Zoom, PixelsPerYear: in.PixelsPerYear, EnableBreaks: in.EnableBreaks, ViewportWidth: in.ViewportWidth}
}

type ZoomInput struct {
	Events         []EventInput `json:"events,omitempty" jsonschema:"inline events"`
	TimelineID     string       `json:"timeline_id,omitempty" jsonschema:"id of a stored timeline; overrides events"`
	EventCount     *int         `json:"event_count,omitempty" jsonschema:"number of events; used instead of events when given"`
	ContainerWidth float64      `json:"container_width,omitempty" jsonschema:"viewport width in pixels"`
}

func (in ZoomInput) ref() EventsRef {
	return EventsRef{Events: in.Events, TimelineID: in.TimelineID}
}

type ImportInput struct {
	Name   string       `json:"name" jsonschema:"timeline name; an existing timeline of that name is replaced"`
	Events []EventInput `json:"events,omitempty" jsonschema:"events to store"`
	Path   string       `json:"path,omitempty" jsonschema:"CSV, YAML or JSON file readable by the server"`
}

type ListInput struct{}

type tools struct {
	cfg Config
}

func registerTools(server *sdkmcp.Server, t *tools) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "generate_time_segments",
		Description: "Build the compressed time axis: continuous segments with their own pixels-per-year and fixed-width breaks over long empty gaps",
	}, t.generateTimeSegments)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "calculate_smart_layout",
		Description: "Place events on the axis, spread same-date events apart and assign each a display track and colour",
	}, t.calculateSmartLayout)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "calculate_zoom_bounds",
		Description: "Derive the minimum, maximum and perfect zoom for an event count and container width",
	}, t.calculateZoomBounds)

	if t.cfg.Store == nil {
		return
	}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "import_events",
		Description: "Store events under a timeline name, replacing any events already stored for it",
	}, t.importEvents)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_timelines",
		Description: "List stored timelines with their event counts",
	}, t.listTimelines)
}

func (t *tools) generateTimeSegments(ctx context.Context, _ *sdkmcp.CallToolRequest, in SegmentsInput) (*sdkmcp.CallToolResult, any, error) {
	list, err := t.resolve(ctx, in.ref())
	if err != nil {
		return errorResult(err), nil, nil
	}

	years := make([]int, len(list))
	for i, e := range list {
		years[i] = e.Year
	}
	scale := layout.BuildTimeScale(years, t.scaleOptions(in.scale()), t.cfg.Params)
	return jsonResult(scale)
}

func (t *tools) calculateSmartLayout(ctx context.Context, _ *sdkmcp.CallToolRequest, in LayoutInput) (*sdkmcp.CallToolResult, any, error) {
	list, err := t.resolve(ctx, in.ref())
	if err != nil {
		return errorResult(err), nil, nil
	}

	palette := in.Palette
	if len(palette) == 0 {
		palette = t.cfg.Palette
	}
	opts := t.scaleOptions(in.scale())
	res := layout.Calculate(list, layout.LayoutOptions{
		Palette:       palette,
		TypeColors:    t.cfg.TypeColors,
		PixelsPerYear: opts.PixelsPerYear,
		EnableBreaks:  opts.EnableBreaks,
		ViewportWidth: opts.ViewportWidth,
	}, t.cfg.Params)
	return jsonResult(res)
}

func (t *tools) calculateZoomBounds(ctx context.Context, _ *sdkmcp.CallToolRequest, in ZoomInput) (*sdkmcp.CallToolResult, any, error) {
	count := 0
	if in.EventCount != nil {
		if *in.EventCount < 0 {
			return errorResult(fmt.Errorf("%w: event_count must not be negative", errInvalidInput)), nil, nil
		}
		count = *in.EventCount
	} else {
		list, err := t.resolve(ctx, in.ref())
		if err != nil {
			return errorResult(err), nil, nil
		}
		count = len(list)
	}

	width := in.ContainerWidth
	if width <= 0 {
		width = t.cfg.ContainerWidth
	}
	return jsonResult(layout.CalculateZoomBounds(count, width, t.cfg.Params))
}

type importResult struct {
	Timeline store.Timeline `json:"timeline"`
	Imported int            `json:"imported"`
}

func (t *tools) importEvents(ctx context.Context, _ *sdkmcp.CallToolRequest, in ImportInput) (*sdkmcp.CallToolResult, any, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return errorResult(fmt.Errorf("%w: name is required", errInvalidInput)), nil, nil
	}

	var (
		list []events.Event
		err  error
	)
	switch {
	case in.Path != "" && len(in.Events) > 0:
		err = fmt.Errorf("%w: give either events or path, not both", errInvalidInput)
	case in.Path != "":
		list, err = events.LoadFile(in.Path)
	default:
		list, err = toEvents(in.Events)
	}
	if err != nil {
		return errorResult(err), nil, nil
	}

	tl, err := t.cfg.Store.GetTimelineByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		tl, err = t.cfg.Store.CreateTimeline(ctx, name)
	}
	if err != nil {
		return errorResult(err), nil, nil
	}
	if err := t.cfg.Store.SaveEvents(ctx, tl.ID, list); err != nil {
		return errorResult(err), nil, nil
	}

	tl, err = t.cfg.Store.GetTimeline(ctx, tl.ID)
	if err != nil {
		return errorResult(err), nil, nil
	}
	t.cfg.Logger.Info("timeline imported", "timeline_id", tl.ID, "name", tl.Name, "events", len(list))
	return jsonResult(importResult{Timeline: *tl, Imported: len(list)})
}

type listResult struct {
	Timelines []store.Timeline `json:"timelines"`
}

func (t *tools) listTimelines(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListInput) (*sdkmcp.CallToolResult, any, error) {
	list, err := t.cfg.Store.ListTimelines(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(listResult{Timelines: list})
}

// resolve loads the referenced timeline or converts the inline events.
func (t *tools) resolve(ctx context.Context, ref EventsRef) ([]events.Event, error) {
	if ref.TimelineID == "" {
		return toEvents(ref.Events)
	}
	if t.cfg.Store == nil {
		return nil, fmt.Errorf("%w: timeline_id given but no store is configured", errInvalidInput)
	}
	return t.cfg.Store.ListEvents(ctx, ref.TimelineID)
}

func (t *tools) scaleOptions(in ScaleInput) layout.ScaleOptions {
	ppy := in.PixelsPerYear
	if ppy <= 0 {
		ppy = layout.PixelsPerYear(in.Zoom, t.cfg.Params)
	}
	breaks := true
	if in.EnableBreaks != nil {
		breaks = *in.EnableBreaks
	}
	return layout.ScaleOptions{
		PixelsPerYear: ppy,
		EnableBreaks:  breaks,
		ViewportWidth: in.ViewportWidth,
	}
}

func toEvents(in []EventInput) ([]events.Event, error) {
	list := make([]events.Event, len(in))
	for i, e := range in {
		list[i] = events.Event{
			ID:          e.ID,
			Year:        e.Year,
			Month:       e.Month,
			Title:       e.Title,
			Description: e.Description,
			Type:        events.Type(strings.ToLower(e.Type)),
			Highlight:   e.Highlight,
		}
	}
	return events.Normalize(list)
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
