package layout

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette is used when the caller supplies no palette.
var DefaultPalette = []string{
	"#4285f4", "#db4437", "#f4b400", "#0f9d58",
	"#ab47bc", "#00acc1", "#ff7043", "#5c6bc0",
}

// shadeStep is the HCL lightness added per additional event in the same year.
const shadeStep = 0.06

// paletteColor picks the colour for the shade-th event of the yearIndex-th
// distinct year. Events of one year keep the base hue and differ only in
// lightness.
func paletteColor(palette []string, yearIndex, shade int) string {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	base := palette[yearIndex%len(palette)]
	if shade == 0 {
		return base
	}

	c, err := colorful.Hex(base)
	if err != nil {
		return base
	}
	h, chroma, l := c.Hcl()
	l += float64(shade%4) * shadeStep
	if l > 0.95 {
		l = 0.95
	}
	return colorful.Hcl(h, chroma, l).Clamped().Hex()
}
