package layout

import (
	"math"
	"sort"

	"timelinelayout/internal/events"
)

// Position is the side of the axis a card sits on.
type Position string

const (
	Top    Position = "top"
	Bottom Position = "bottom"
)

// Track is one of the four card lanes. Layer 1 is further from the axis.
type Track struct {
	Position Position `json:"position"`
	Layer    int      `json:"layer"`
}

// Tracks lists the lanes in tie-breaking order.
var Tracks = [4]Track{
	{Position: Top, Layer: 0},
	{Position: Bottom, Layer: 0},
	{Position: Top, Layer: 1},
	{Position: Bottom, Layer: 1},
}

// LayoutEvent is an event with its computed placement.
type LayoutEvent struct {
	events.Event
	Track                   Track   `json:"track"`
	PixelCenter             float64 `json:"pixel_center"`
	TimelinePositionPercent float64 `json:"timeline_position_percent"`
	ColorToken              string  `json:"color"`
}

// Result is the output of CalculateSmartLayout. Events are in axis order.
type Result struct {
	Events     []LayoutEvent `json:"events"`
	TotalWidth float64       `json:"total_width"`
	Scale      TimeScale     `json:"time_scale"`
}

// LayoutOptions carries the optional inputs of CalculateSmartLayout.
type LayoutOptions struct {
	Palette       []string
	TypeColors    map[events.Type]string
	PixelsPerYear float64
	EnableBreaks  bool
	ViewportWidth float64
}

// CalculateSmartLayout places every event on the axis and assigns it a
// track. The input slice is not modified and may be in any order.
func CalculateSmartLayout(list []events.Event, palette []string, pixelsPerYear float64, enableBreaks bool, p Params) Result {
	return Calculate(list, LayoutOptions{
		Palette:       palette,
		PixelsPerYear: pixelsPerYear,
		EnableBreaks:  enableBreaks,
	}, p)
}

// Calculate is CalculateSmartLayout with the full option set.
func Calculate(list []events.Event, opts LayoutOptions, p Params) Result {
	years := make([]int, len(list))
	for i, e := range list {
		years[i] = e.Year
	}
	scale := BuildTimeScale(years, ScaleOptions{
		PixelsPerYear: opts.PixelsPerYear,
		EnableBreaks:  opts.EnableBreaks,
		ViewportWidth: opts.ViewportWidth,
	}, p)

	if len(list) == 0 {
		return Result{Events: []LayoutEvent{}, Scale: scale}
	}

	placed := positionAndColor(list, scale, opts)
	totalWidth := nudge(placed, scale.TotalWidth, p)
	assignTracks(placed, p)

	for i := range placed {
		placed[i].TimelinePositionPercent = placed[i].PixelCenter / totalWidth * 100
	}

	return Result{Events: placed, TotalWidth: totalWidth, Scale: scale}
}

// positionAndColor maps each event to its raw pixel center and returns the
// events sorted by that center, id breaking ties.
func positionAndColor(list []events.Event, scale TimeScale, opts LayoutOptions) []LayoutEvent {
	yearIndex := distinctYearIndex(list)
	shades := make(map[int]int)

	placed := make([]LayoutEvent, len(list))
	for i, e := range list {
		placed[i] = LayoutEvent{
			Event:       e,
			PixelCenter: MapDateToPixel(e.Year, e.Month, scale),
		}
	}

	sort.SliceStable(placed, func(i, j int) bool {
		if placed[i].PixelCenter != placed[j].PixelCenter {
			return placed[i].PixelCenter < placed[j].PixelCenter
		}
		return placed[i].ID < placed[j].ID
	})

	for i := range placed {
		e := placed[i].Event
		if color, ok := opts.TypeColors[e.Type]; ok && color != "" {
			placed[i].ColorToken = color
			continue
		}
		placed[i].ColorToken = paletteColor(opts.Palette, yearIndex[e.Year], shades[e.Year])
		shades[e.Year]++
	}
	return placed
}

func distinctYearIndex(list []events.Event) map[int]int {
	seen := make(map[int]bool)
	var years []int
	for _, e := range list {
		if !seen[e.Year] {
			seen[e.Year] = true
			years = append(years, e.Year)
		}
	}
	sort.Ints(years)

	index := make(map[int]int, len(years))
	for i, y := range years {
		index[y] = i
	}
	return index
}

// nudge enforces MinNodeSpacing between neighbours by moving events right
// only. It returns the content width including trailing padding.
// The drift is unbounded: a long dense run pushes later events away from
// their dates.
func nudge(placed []LayoutEvent, scaleWidth float64, p Params) float64 {
	for i := 1; i < len(placed); i++ {
		prev := placed[i-1].PixelCenter
		if placed[i].PixelCenter-prev < p.MinNodeSpacing {
			placed[i].PixelCenter = prev + p.MinNodeSpacing
		}
	}
	last := placed[len(placed)-1].PixelCenter
	return math.Max(scaleWidth, last+p.TrailingPadding)
}

// span is a claimed pixel interval on a track.
type span struct {
	start, end float64
}

func (s span) center() float64 {
	return (s.start + s.end) / 2
}

// occupancy records the card spans committed to each track during one pass.
type occupancy [len(Tracks)][]span

// assignTracks greedily picks the cheapest track for each event. placed
// must be in ascending pixel order; the zigzag and crowding terms compare
// against the previous placement.
func assignTracks(placed []LayoutEvent, p Params) {
	var occ occupancy
	var lastPos Position
	half := p.CardWidth / 2

	for i := range placed {
		center := placed[i].PixelCenter
		card := span{start: center - half, end: center + half}

		best := 0
		bestCost := math.Inf(1)
		for t, track := range Tracks {
			cost := trackCost(occ, t, card, lastPos, p)
			if track.Layer == 1 {
				cost += connectorCost(occ, track.Position, center, p)
			}
			if cost < bestCost {
				best, bestCost = t, cost
			}
		}

		occ[best] = append(occ[best], card)
		placed[i].Track = Tracks[best]
		lastPos = Tracks[best].Position
	}
}

// trackCost scores placing card on track t, excluding the connector term.
func trackCost(occ occupancy, t int, card span, lastPos Position, p Params) float64 {
	track := Tracks[t]
	cost := float64(track.Layer) * p.LayerPenalty
	if track.Position == lastPos {
		cost += p.ZigzagPenalty
	}

	nearestEnd := math.Inf(-1)
	var overlaps []span
	for _, s := range occ[t] {
		if s.start < card.end && s.end > card.start {
			overlaps = append(overlaps, span{start: math.Max(s.start, card.start), end: math.Min(s.end, card.end)})
			continue
		}
		if s.end <= card.start && s.end > nearestEnd {
			nearestEnd = s.end
		}
	}

	if len(overlaps) > 0 {
		ratio := coveredLength(overlaps) / (card.end - card.start)
		cost += p.OverlapBase + p.OverlapWeight*ratio*ratio
	} else if card.start-nearestEnd < p.CrowdDistance {
		cost += p.CrowdPenalty
	}
	return cost
}

// connectorCost penalises a layer-1 card whose connector would cross a
// layer-0 card on the same side centred close to it.
func connectorCost(occ occupancy, pos Position, center float64, p Params) float64 {
	inner := 0
	if pos == Bottom {
		inner = 1
	}
	for _, s := range occ[inner] {
		if center >= s.start && center <= s.end && math.Abs(s.center()-center) <= p.ConnectorRadius {
			return p.ConnectorPenalty
		}
	}
	return 0
}

// coveredLength returns the length of the union of the given spans.
func coveredLength(spans []span) float64 {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	total := 0.0
	cur := spans[0]
	for _, s := range spans[1:] {
		if s.start <= cur.end {
			cur.end = math.Max(cur.end, s.end)
			continue
		}
		total += cur.end - cur.start
		cur = s
	}
	return total + cur.end - cur.start
}
