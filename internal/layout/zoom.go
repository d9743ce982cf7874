package layout

import "math"

// ZoomBounds is the zoom range a timeline supports, in percent.
type ZoomBounds struct {
	MinZoom        float64 `json:"min_zoom"`
	MaxZoom        float64 `json:"max_zoom"`
	PerfectZoom    float64 `json:"perfect_zoom"`
	FitZoom        float64 `json:"fit_zoom"`
	NaturalWidth   float64 `json:"natural_width"`
	AvailableWidth float64 `json:"available_width"`
}

// Clamp limits zoom to [MinZoom, MaxZoom].
func (b ZoomBounds) Clamp(zoom float64) float64 {
	return math.Min(math.Max(zoom, b.MinZoom), b.MaxZoom)
}

// CalculateZoomBounds derives the zoom range from the event count and the
// container width. NaturalWidth, the 100% reference, lays all cards across
// TrackFactor parallel tracks with no overlap; the minimum zoom is where
// cards are squeezed until only (1 - OverlapTolerance) of each shows.
func CalculateZoomBounds(eventCount int, containerWidth float64, p Params) ZoomBounds {
	available := math.Max(1, containerWidth-p.ReservedWidth)
	perTrack := float64(eventCount) / p.TrackFactor * p.CardWidth

	natural := math.Max(p.CardWidth, perTrack)
	limit := math.Max(p.CardWidth, perTrack*(1-p.OverlapTolerance))

	fitZoom := math.Round(available / natural * 100)
	limitZoom := math.Round(limit / natural * 100)
	minZoom := math.Max(p.MinZoomFloor, limitZoom)

	perfect := p.DefaultZoom
	if fitZoom >= p.DefaultZoom {
		perfect = fitZoom
	}
	perfect = math.Min(math.Max(perfect, minZoom), p.MaxZoom)

	return ZoomBounds{
		MinZoom:        minZoom,
		MaxZoom:        p.MaxZoom,
		PerfectZoom:    perfect,
		FitZoom:        fitZoom,
		NaturalWidth:   natural,
		AvailableWidth: available,
	}
}
