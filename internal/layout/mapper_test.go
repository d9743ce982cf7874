package layout

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"timelinelayout/internal/events"
)

func TestTimeValue(t *testing.T) {
	require.Equal(t, 2020.5, TimeValue(2020, nil))
	require.Equal(t, 2020.0, TimeValue(2020, events.Month(1)))
	require.InDelta(t, 2020+6.0/12, TimeValue(2020, events.Month(7)), 1e-12)
}

func TestMapDateToPixel(t *testing.T) {
	p := DefaultParams()
	scale := GenerateTimeSegments(yearsOf(2000, 2023), 200, true, p)

	tests := []struct {
		name  string
		year  int
		month *int
		want  float64
	}{
		{"mid year without month", 2000, nil, 100},
		{"january starts the year", 2023, events.Month(1), 248},
		{"december", 2023, events.Month(12), 248 + 200*11.0/12},
		{"inside a break maps to its midpoint", 2010, nil, 224},
		{"before the axis", 1990, nil, 0},
		{"after the axis", 2030, nil, 448},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, MapDateToPixel(tt.year, tt.month, scale), 1e-9)
		})
	}
}

func TestMapDateToPixel_EmptyScale(t *testing.T) {
	require.Zero(t, MapDateToPixel(2020, nil, TimeScale{}))
}

func TestMapPixelToYear(t *testing.T) {
	p := DefaultParams()
	scale := GenerateTimeSegments(yearsOf(2000, 2023), 200, true, p)

	year, ok := MapPixelToYear(100, scale)
	require.True(t, ok)
	require.InDelta(t, 2000.5, year, 1e-9)

	_, ok = MapPixelToYear(224, scale)
	require.False(t, ok, "pixel on a break")

	_, ok = MapPixelToYear(-5, scale)
	require.False(t, ok)
	_, ok = MapPixelToYear(1000, scale)
	require.False(t, ok)
}

func TestMapDateToPixel_RoundTrip(t *testing.T) {
	p := DefaultParams()
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		years := randomYears(r)
		scale := BuildTimeScale(years, ScaleOptions{PixelsPerYear: 50 + r.Float64()*500, EnableBreaks: true}, p)

		for _, y := range years {
			month := 1 + r.Intn(12)
			px := MapDateToPixel(y, &month, scale)
			got, ok := MapPixelToYear(px, scale)
			require.True(t, ok, "year %d month %d", y, month)
			require.InDelta(t, TimeValue(y, &month), got, 1.0/12)
		}
	}
}

func TestMapDateToPixel_Monotone(t *testing.T) {
	p := DefaultParams()
	scale := GenerateTimeSegments(yearsOf(1990, 1991, 2005, 2024), 300, true, p)

	prev := -1.0
	for y := 1985; y <= 2030; y++ {
		for m := 1; m <= 12; m++ {
			month := m
			px := MapDateToPixel(y, &month, scale)
			require.GreaterOrEqual(t, px, prev)
			prev = px
		}
	}
}
