package layout

import (
	"math"
	"sort"

	"timelinelayout/internal/events"
)

// SegmentKind distinguishes real time spans from elided gaps.
type SegmentKind string

const (
	Continuous SegmentKind = "continuous"
	Break      SegmentKind = "break"
)

// TimeSegment is one contiguous stretch of the axis. Continuous segments
// map years linearly with their own local Scale (pixels per year); Break
// segments have a fixed width and Scale 0.
type TimeSegment struct {
	StartYear  float64     `json:"start_year"`
	EndYear    float64     `json:"end_year"`
	PixelStart float64     `json:"pixel_start"`
	PixelWidth float64     `json:"pixel_width"`
	Scale      float64     `json:"scale"`
	Kind       SegmentKind `json:"kind"`
}

// PixelEnd returns the right edge of the segment.
func (s TimeSegment) PixelEnd() float64 {
	return s.PixelStart + s.PixelWidth
}

// TimeScale is the full axis coordinate system.
type TimeScale struct {
	Segments   []TimeSegment `json:"segments"`
	TotalWidth float64       `json:"total_width"`
}

// Breaks counts the break segments.
func (ts TimeScale) Breaks() int {
	n := 0
	for _, seg := range ts.Segments {
		if seg.Kind == Break {
			n++
		}
	}
	return n
}

// ScaleOptions controls BuildTimeScale.
type ScaleOptions struct {
	PixelsPerYear float64
	EnableBreaks  bool
	// ViewportWidth is optional. When positive, a range whose natural width
	// already fills the viewport is not widened for event density.
	ViewportWidth float64
}

// yearRange is a run of years [first, last] placed on one continuous segment.
// It covers the time interval [first, last+1).
type yearRange struct {
	first, last int
	count       int
}

// GenerateTimeSegments builds the time scale for a set of events.
func GenerateTimeSegments(list []events.Event, pixelsPerYear float64, enableBreaks bool, p Params) TimeScale {
	years := make([]int, len(list))
	for i, e := range list {
		years[i] = e.Year
	}
	return BuildTimeScale(years, ScaleOptions{PixelsPerYear: pixelsPerYear, EnableBreaks: enableBreaks}, p)
}

// BuildTimeScale turns event years (duplicates allowed) into segments laid
// out left to right with no gaps or overlaps.
func BuildTimeScale(years []int, opts ScaleOptions, p Params) TimeScale {
	if len(years) == 0 {
		return TimeScale{Segments: []TimeSegment{}}
	}

	ranges := detectRanges(years, opts, p)

	segments := make([]TimeSegment, 0, 2*len(ranges)-1)
	cursor := 0.0
	for i, r := range ranges {
		if i > 0 {
			prev := ranges[i-1]
			segments = append(segments, TimeSegment{
				StartYear:  float64(prev.last + 1),
				EndYear:    float64(r.first),
				PixelStart: cursor,
				PixelWidth: p.BreakWidth,
				Scale:      0,
				Kind:       Break,
			})
			cursor += p.BreakWidth
		}

		// a range [first..last] covers [first, last+1), never less than a year
		span := float64(r.last + 1 - r.first)
		width := rangeWidth(r, span, opts, p)
		segments = append(segments, TimeSegment{
			StartYear:  float64(r.first),
			EndYear:    float64(r.last + 1),
			PixelStart: cursor,
			PixelWidth: width,
			Scale:      width / span,
			Kind:       Continuous,
		})
		cursor += width
	}

	return TimeScale{Segments: segments, TotalWidth: cursor}
}

// detectRanges merges sorted distinct years into ranges. A year joins the
// open range when the empty gap before it is narrower than the break
// threshold in pixels or shorter than MinYearGap in years.
func detectRanges(years []int, opts ScaleOptions, p Params) []yearRange {
	counts := make(map[int]int, len(years))
	for _, y := range years {
		counts[y]++
	}
	distinct := make([]int, 0, len(counts))
	for y := range counts {
		distinct = append(distinct, y)
	}
	sort.Ints(distinct)

	if !opts.EnableBreaks {
		r := yearRange{first: distinct[0], last: distinct[len(distinct)-1]}
		r.count = len(years)
		return []yearRange{r}
	}

	var ranges []yearRange
	current := yearRange{first: distinct[0], last: distinct[0], count: counts[distinct[0]]}
	for _, y := range distinct[1:] {
		gapYears := float64(y - (current.last + 1))
		if gapYears*opts.PixelsPerYear < p.BreakThreshold || gapYears < p.MinYearGap {
			current.last = y
			current.count += counts[y]
			continue
		}
		ranges = append(ranges, current)
		current = yearRange{first: y, last: y, count: counts[y]}
	}
	return append(ranges, current)
}

// rangeWidth is the larger of the natural width and the width the range's
// events need to sit side by side.
func rangeWidth(r yearRange, span float64, opts ScaleOptions, p Params) float64 {
	natural := span * opts.PixelsPerYear
	if opts.ViewportWidth > 0 && natural >= opts.ViewportWidth {
		return natural
	}

	required := p.SingleEventWidth
	if r.count > 1 {
		required = (float64(r.count) - 0.5) * p.EventSlotWidth
	}
	return math.Max(natural, required)
}
