// Package render draws a computed timeline layout as SVG or serialises it
// as JSON for other front ends.
package render

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"timelinelayout/internal/config"
	"timelinelayout/internal/layout"
)

// minTickSpacing keeps year labels on a compressed axis from running together.
const minTickSpacing = 40

// canvas holds the pixel geometry shared by every drawing helper.
type canvas struct {
	cfg       config.Config
	width     int
	height    int
	originX   float64 // axis pixel 0
	axisY     int
	cardWidth float64
}

func newCanvas(res layout.Result, cfg config.Config) canvas {
	l := cfg.Layout
	extent := l.EventSpacing + l.LayerSpacing + l.CardHeight

	width := int(math.Ceil(res.TotalWidth)) + l.MarginLeft + l.MarginRight
	if width < l.Width {
		width = l.Width
	}
	height := l.MarginTop + 2*extent + l.MarginBottom
	if height < l.Height {
		height = l.Height
	}

	return canvas{
		cfg:       cfg,
		width:     width,
		height:    height,
		originX:   float64(l.MarginLeft),
		axisY:     height / 2,
		cardWidth: cfg.Engine.CardWidth,
	}
}

func (c canvas) x(px float64) int {
	return int(math.Round(c.originX + px))
}

// WriteSVG renders res as a standalone SVG document.
func WriteSVG(w io.Writer, res layout.Result, cfg config.Config) error {
	c := newCanvas(res, cfg)

	var svg strings.Builder
	fmt.Fprintf(&svg, `<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
<defs>
<style>
.title-text { font-family: %s; font-size: %dpx; font-weight: bold; fill: %s; }
.notes-text { font-family: %s; font-size: %dpx; fill: %s; }
.date-text { font-family: %s; font-size: %dpx; fill: %s; }
.year-text { font-family: %s; font-size: %dpx; fill: %s; }
</style>
</defs>
`, c.width, c.height, cfg.Colors.Background,
		cfg.Font.Family, cfg.Font.Size+1, cfg.Colors.Text,
		cfg.Font.Family, cfg.Font.Size-2, cfg.Colors.Notes,
		cfg.Font.Family, cfg.Font.Size-1, cfg.Colors.Text,
		cfg.Font.Family, cfg.Font.Size-2, cfg.Colors.Timeline)

	drawAxis(&svg, c, res.Scale)
	for _, e := range res.Events {
		drawEventCard(&svg, c, e)
	}

	svg.WriteString("</svg>\n")
	_, err := io.WriteString(w, svg.String())
	return err
}

// drawAxis draws continuous segments as solid lines with year ticks and
// breaks as a dashed gap crossed by two slashes.
func drawAxis(svg *strings.Builder, c canvas, scale layout.TimeScale) {
	y := c.axisY
	for _, seg := range scale.Segments {
		x1, x2 := c.x(seg.PixelStart), c.x(seg.PixelEnd())
		if seg.Kind == layout.Break {
			fmt.Fprintf(svg, `<line class="axis-break" x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="%d" stroke-dasharray="4,4"/>`+"\n",
				x1, y, x2, y, c.cfg.Colors.Timeline, c.cfg.Timeline.LineWidth)
			mid := (x1 + x2) / 2
			for _, dx := range []int{-4, 4} {
				fmt.Fprintf(svg, `<line class="break-glyph" x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="%d"/>`+"\n",
					mid+dx-4, y+8, mid+dx+4, y-8, c.cfg.Colors.Timeline, c.cfg.Timeline.LineWidth)
			}
			continue
		}

		fmt.Fprintf(svg, `<line class="axis" x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="%d"/>`+"\n",
			x1, y, x2, y, c.cfg.Colors.Timeline, c.cfg.Timeline.LineWidth)
		drawYearTicks(svg, c, seg)
	}
}

func drawYearTicks(svg *strings.Builder, c canvas, seg layout.TimeSegment) {
	step := 1
	if seg.Scale > 0 && seg.Scale < minTickSpacing {
		step = int(math.Ceil(minTickSpacing / seg.Scale))
	}

	first, last := int(seg.StartYear), int(seg.EndYear)
	for year := first; year <= last; year += step {
		x := c.x(seg.PixelStart + float64(year-first)*seg.Scale)
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1"/>`+"\n",
			x, c.axisY-5, x, c.axisY+5, c.cfg.Colors.Timeline)
		if year < last {
			fmt.Fprintf(svg, `<text class="year-text" x="%d" y="%d" text-anchor="start">%d</text>`+"\n",
				x+3, c.axisY+16, year)
		}
	}
}

// cardTop returns the y of the card edge nearest the axis and the y of the
// card's top side.
func (c canvas) cardTop(track layout.Track) (edge, top int) {
	l := c.cfg.Layout
	dist := l.EventSpacing + track.Layer*l.LayerSpacing
	if track.Position == layout.Top {
		edge = c.axisY - dist
		return edge, edge - l.CardHeight
	}
	edge = c.axisY + dist
	return edge, edge
}

func drawEventCard(svg *strings.Builder, c canvas, e layout.LayoutEvent) {
	cfg := c.cfg
	x := c.x(e.PixelCenter)
	edge, top := c.cardTop(e.Track)
	left := int(math.Round(c.originX + e.PixelCenter - c.cardWidth/2))
	width := int(math.Round(c.cardWidth))

	fmt.Fprintf(svg, `<g class="event" data-id="%s" data-track="%s-%d">`+"\n",
		escapeXML(e.ID), e.Track.Position, e.Track.Layer)
	fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1"/>`+"\n",
		x, c.axisY, x, edge, e.ColorToken)
	fmt.Fprintf(svg, `<rect x="%d" y="%d" width="%d" height="%d" rx="4" fill="%s" stroke="%s" stroke-width="1.5"/>`+"\n",
		left, top, width, cfg.Layout.CardHeight, cfg.Colors.Card, e.ColorToken)

	drawEventMarker(svg, x, c.axisY, e.ColorToken, cfg)

	lineHeight := cfg.Font.Size + 3
	textX := left + 8
	textY := top + lineHeight
	maxChars := charsThatFit(c.cardWidth-16, cfg.Font.Size)

	fmt.Fprintf(svg, `<text class="title-text" x="%d" y="%d">%s</text>`+"\n",
		textX, textY, escapeXML(truncate(e.Title, maxChars)))
	textY += lineHeight

	if cfg.Timeline.ShowDates {
		fmt.Fprintf(svg, `<text class="date-text" x="%d" y="%d">%s</text>`+"\n", textX, textY, e.DateLabel())
		textY += lineHeight
	}

	bottom := top + cfg.Layout.CardHeight
	lines := wrapText(strings.Fields(e.DescriptionText()), charsThatFit(c.cardWidth-16, cfg.Font.Size-2))
	for _, line := range lines {
		if textY > bottom-4 {
			break
		}
		fmt.Fprintf(svg, `<text class="notes-text" x="%d" y="%d">%s</text>`+"\n",
			textX, textY, emphasize(line, e.Highlight, cfg.Colors.Highlight))
		textY += cfg.Font.Size
	}

	svg.WriteString("</g>\n")
}

func drawEventMarker(svg *strings.Builder, x, y int, fill string, cfg config.Config) {
	size := cfg.EventMarker.Size
	stroke := cfg.EventMarker.StrokeColor
	strokeWidth := cfg.EventMarker.StrokeWidth

	switch strings.ToLower(cfg.EventMarker.Shape) {
	case "square":
		fmt.Fprintf(svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="%s" stroke-width="%d"/>`+"\n",
			x-size, y-size, size*2, size*2, fill, stroke, strokeWidth)
	case "diamond":
		fmt.Fprintf(svg, `<polygon points="%d,%d %d,%d %d,%d %d,%d" fill="%s" stroke="%s" stroke-width="%d"/>`+"\n",
			x, y-size, x+size, y, x, y+size, x-size, y, fill, stroke, strokeWidth)
	case "triangle":
		height := int(float64(size) * 1.5)
		fmt.Fprintf(svg, `<polygon points="%d,%d %d,%d %d,%d" fill="%s" stroke="%s" stroke-width="%d"/>`+"\n",
			x, y-height, x-size, y+height/2, x+size, y+height/2, fill, stroke, strokeWidth)
	default:
		fmt.Fprintf(svg, `<circle cx="%d" cy="%d" r="%d" fill="%s" stroke="%s" stroke-width="%d"/>`+"\n",
			x, y, size, fill, stroke, strokeWidth)
	}
}

// charsThatFit estimates how many characters of the given font size fit in
// width pixels, assuming an average glyph of 0.6em.
func charsThatFit(width float64, fontSize int) int {
	if fontSize <= 0 {
		return 1
	}
	n := int(width / (float64(fontSize) * 0.6))
	if n < 1 {
		return 1
	}
	return n
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

// wrapText wraps words into lines of at most maxWidth characters. A word
// longer than maxWidth gets a line of its own.
func wrapText(words []string, maxWidth int) []string {
	if len(words) == 0 {
		return []string{}
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= maxWidth {
			currentLine.WriteString(" " + word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	return lines
}

// emphasize escapes line and wraps every case-insensitive occurrence of a
// highlight term in a bold tspan.
func emphasize(line string, terms []string, color string) string {
	lower := strings.ToLower(line)
	if len(lower) != len(line) {
		return escapeXML(line)
	}
	marked := make([]bool, len(line))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(lower[from:], term)
			if i < 0 {
				break
			}
			for j := from + i; j < from+i+len(term); j++ {
				marked[j] = true
			}
			from += i + len(term)
		}
	}

	var out strings.Builder
	for i := 0; i < len(line); {
		j := i
		for j < len(line) && marked[j] == marked[i] {
			j++
		}
		chunk := escapeXML(line[i:j])
		if marked[i] {
			fmt.Fprintf(&out, `<tspan font-weight="bold" fill="%s">%s</tspan>`, color, chunk)
		} else {
			out.WriteString(chunk)
		}
		i = j
	}
	return out.String()
}

// escapeXML replaces the five XML special characters with entities.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

// OutputFilename returns outputFile when set, otherwise the input's base
// name with its extension replaced by ext (e.g. "data.csv" -> "data.svg").
func OutputFilename(inputFile, outputFile, ext string) string {
	if outputFile != "" {
		return outputFile
	}
	base := filepath.Base(inputFile)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
