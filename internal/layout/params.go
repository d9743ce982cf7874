// Package layout computes the horizontal layout of a version timeline: the
// compressed time scale, date to pixel mapping, track assignment for event
// cards and the zoom range the content supports.
//
// Every function in this package is pure. Callers rerun the whole pipeline
// whenever events, zoom, the break toggle or the container width change.
package layout

// Params holds every threshold and penalty weight used by the engine.
// DefaultParams returns the tuned values; tests and configuration may
// override individual fields.
type Params struct {
	// Time scale
	BreakThreshold   float64 `yaml:"break_threshold"`    // pixel gap at which an axis break is inserted
	MinYearGap       float64 `yaml:"min_year_gap"`       // year gaps below this never break
	BreakWidth       float64 `yaml:"break_width"`        // fixed width of a break marker
	EventSlotWidth   float64 `yaml:"event_slot_width"`   // width reserved per event in a dense range
	SingleEventWidth float64 `yaml:"single_event_width"` // minimum width of a range holding one event

	// Nudging
	MinNodeSpacing  float64 `yaml:"min_node_spacing"`
	TrailingPadding float64 `yaml:"trailing_padding"`

	// Track cost model
	CardWidth        float64 `yaml:"card_width"`
	LayerPenalty     float64 `yaml:"layer_penalty"`
	ZigzagPenalty    float64 `yaml:"zigzag_penalty"`
	CrowdPenalty     float64 `yaml:"crowd_penalty"`
	CrowdDistance    float64 `yaml:"crowd_distance"`
	OverlapBase      float64 `yaml:"overlap_base"`
	OverlapWeight    float64 `yaml:"overlap_weight"`
	ConnectorPenalty float64 `yaml:"connector_penalty"`
	ConnectorRadius  float64 `yaml:"connector_radius"`

	// Zoom bounds
	TrackFactor       float64 `yaml:"track_factor"`      // parallel tracks assumed for natural width
	OverlapTolerance  float64 `yaml:"overlap_tolerance"` // share of a card allowed to be hidden at min zoom
	MinZoomFloor      float64 `yaml:"min_zoom_floor"`
	MaxZoom           float64 `yaml:"max_zoom"`
	DefaultZoom       float64 `yaml:"default_zoom"`
	ReservedWidth     float64 `yaml:"reserved_width"` // edge and label margins excluded from the viewport
	BasePixelsPerYear float64 `yaml:"base_pixels_per_year"`
}

// DefaultParams returns the standard engine tuning.
func DefaultParams() Params {
	return Params{
		BreakThreshold:   400,
		MinYearGap:       1,
		BreakWidth:       48,
		EventSlotWidth:   28,
		SingleEventWidth: 28,

		MinNodeSpacing:  12,
		TrailingPadding: 50,

		CardWidth:        216,
		LayerPenalty:     800,
		ZigzagPenalty:    50,
		CrowdPenalty:     200,
		CrowdDistance:    10,
		OverlapBase:      1000,
		OverlapWeight:    30000,
		ConnectorPenalty: 500,
		ConnectorRadius:  40,

		TrackFactor:       2.5,
		OverlapTolerance:  0.7,
		MinZoomFloor:      20,
		MaxZoom:           300,
		DefaultZoom:       100,
		ReservedWidth:     0,
		BasePixelsPerYear: 200,
	}
}

// PixelsPerYear converts a zoom percentage into the axis density fed to
// the scale builder.
func PixelsPerYear(zoom float64, p Params) float64 {
	if zoom <= 0 {
		zoom = p.DefaultZoom
	}
	return p.BasePixelsPerYear * zoom / 100
}
