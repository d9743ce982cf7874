package layout

// TimeValue converts a year and optional month into continuous time. A
// missing month maps to mid-year.
func TimeValue(year int, month *int) float64 {
	if month == nil {
		return float64(year) + 0.5
	}
	return float64(year) + float64(*month-1)/12
}

// MapDateToPixel returns the axis offset of a date. It has no side effects
// and can be used without running a full layout, e.g. for a "today" marker.
func MapDateToPixel(year int, month *int, scale TimeScale) float64 {
	return MapTimeToPixel(TimeValue(year, month), scale)
}

// MapTimeToPixel is MapDateToPixel for an already converted time value.
func MapTimeToPixel(t float64, scale TimeScale) float64 {
	segs := scale.Segments
	if len(segs) == 0 {
		return 0
	}

	for _, seg := range segs {
		if seg.Kind == Continuous && t >= seg.StartYear && t <= seg.EndYear {
			return seg.PixelStart + (t-seg.StartYear)*seg.Scale
		}
	}
	for _, seg := range segs {
		if seg.Kind == Break && t > seg.StartYear && t < seg.EndYear {
			return seg.PixelStart + seg.PixelWidth/2
		}
	}

	if t < segs[0].StartYear {
		return 0
	}
	return scale.TotalWidth
}

// MapPixelToYear inverts the mapping for pixels inside a continuous
// segment. It reports false for pixels on a break or outside the axis.
func MapPixelToYear(px float64, scale TimeScale) (float64, bool) {
	for _, seg := range scale.Segments {
		if seg.Kind != Continuous || seg.Scale == 0 {
			continue
		}
		if px >= seg.PixelStart && px <= seg.PixelEnd() {
			return seg.StartYear + (px-seg.PixelStart)/seg.Scale, true
		}
	}
	return 0, false
}
