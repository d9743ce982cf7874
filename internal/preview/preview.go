// Package preview shows a timeline layout in the terminal and lets the
// user change zoom, toggle axis breaks and scroll. Every change reruns the
// full layout pipeline.
package preview

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"timelinelayout/internal/events"
	"timelinelayout/internal/layout"
)

const (
	// ColumnPixels is the number of layout pixels one terminal cell shows.
	ColumnPixels = 8

	zoomStep   = 10
	scrollStep = 4
)

// Options configures a Model.
type Options struct {
	Params       layout.Params
	Palette      []string
	TypeColors   map[events.Type]string
	EnableBreaks bool
	Zoom         float64 // 0 starts at the perfect zoom
}

// Model is the preview state. It is not safe for concurrent use.
type Model struct {
	list   []events.Event
	opts   Options
	zoom   float64
	breaks bool
	offset int

	width, height int

	bounds layout.ZoomBounds
	result layout.Result
}

// NewModel creates a model for list. Call Resize before drawing.
func NewModel(list []events.Event, opts Options) *Model {
	return &Model{
		list:   list,
		opts:   opts,
		zoom:   opts.Zoom,
		breaks: opts.EnableBreaks,
	}
}

// Zoom returns the current zoom percentage.
func (m *Model) Zoom() float64 { return m.zoom }

// Breaks reports whether axis breaks are enabled.
func (m *Model) Breaks() bool { return m.breaks }

// Bounds returns the zoom range for the current terminal width.
func (m *Model) Bounds() layout.ZoomBounds { return m.bounds }

// Result returns the most recent layout.
func (m *Model) Result() layout.Result { return m.result }

// Offset returns the horizontal scroll position in columns.
func (m *Model) Offset() int { return m.offset }

// Resize recomputes the zoom bounds for a new terminal size and relays out.
func (m *Model) Resize(width, height int) {
	m.width, m.height = width, height
	m.bounds = layout.CalculateZoomBounds(len(m.list), float64(width*ColumnPixels), m.opts.Params)
	if m.zoom == 0 {
		m.zoom = m.bounds.PerfectZoom
	}
	m.zoom = m.bounds.Clamp(m.zoom)
	m.relayout()
}

func (m *Model) relayout() {
	m.result = layout.Calculate(m.list, layout.LayoutOptions{
		Palette:       m.opts.Palette,
		TypeColors:    m.opts.TypeColors,
		PixelsPerYear: layout.PixelsPerYear(m.zoom, m.opts.Params),
		EnableBreaks:  m.breaks,
		ViewportWidth: float64(m.width * ColumnPixels),
	}, m.opts.Params)
	m.clampOffset()
}

func (m *Model) contentColumns() int {
	return int(math.Ceil(m.result.TotalWidth / ColumnPixels))
}

func (m *Model) clampOffset() {
	maxOffset := m.contentColumns() - m.width
	if m.offset > maxOffset {
		m.offset = maxOffset
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// HandleKey applies a key press. It reports true when the user asked to quit.
func (m *Model) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyLeft:
		m.offset -= scrollStep
		m.clampOffset()
		return false
	case tcell.KeyRight:
		m.offset += scrollStep
		m.clampOffset()
		return false
	case tcell.KeyHome:
		m.offset = 0
		return false
	case tcell.KeyRune:
	default:
		return false
	}

	switch ev.Rune() {
	case 'q':
		return true
	case '+', '=':
		m.setZoom(m.zoom + zoomStep)
	case '-', '_':
		m.setZoom(m.zoom - zoomStep)
	case '0':
		m.setZoom(m.bounds.PerfectZoom)
	case 'b':
		m.breaks = !m.breaks
		m.relayout()
	}
	return false
}

func (m *Model) setZoom(zoom float64) {
	zoom = m.bounds.Clamp(zoom)
	if zoom == m.zoom {
		return
	}
	m.zoom = zoom
	m.relayout()
}

// rows of the four tracks and the axis for the current height
func (m *Model) rows() (axis int, tracks map[layout.Track]int) {
	axis = m.height / 2
	return axis, map[layout.Track]int{
		{Position: layout.Top, Layer: 0}:    axis - 2,
		{Position: layout.Top, Layer: 1}:    axis - 4,
		{Position: layout.Bottom, Layer: 0}: axis + 2,
		{Position: layout.Bottom, Layer: 1}: axis + 4,
	}
}

func (m *Model) column(px float64) int {
	return int(px/ColumnPixels) - m.offset
}

// visibleColumns returns the on-screen column range [from, to) covered by
// the pixel span [start, end). from >= to when none of it is visible.
func (m *Model) visibleColumns(start, end float64) (from, to int) {
	return max(m.column(start), 0), min(m.column(end), m.width)
}

// Draw paints the current layout onto s.
func (m *Model) Draw(s tcell.Screen) {
	s.Clear()
	axisStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	dim := tcell.StyleDefault.Dim(true)

	axis, trackRows := m.rows()

	for _, seg := range m.result.Scale.Segments {
		glyph := '─'
		if seg.Kind == layout.Break {
			glyph = '≈'
		}
		from, to := m.visibleColumns(seg.PixelStart, seg.PixelEnd())
		for x := from; x < to; x++ {
			m.put(s, x, axis, glyph, axisStyle)
		}
		if seg.Kind == layout.Continuous {
			m.text(s, m.column(seg.PixelStart), axis+1, fmt.Sprintf("%d", int(seg.StartYear)), dim)
		}
	}

	cardCols := int(m.opts.Params.CardWidth / ColumnPixels)
	for _, e := range m.result.Events {
		style := tcell.StyleDefault.Foreground(tcell.GetColor(e.ColorToken))
		x := m.column(e.PixelCenter)
		row := trackRows[e.Track]

		step := 1
		if row < axis {
			step = -1
		}
		for y := axis + step; y != row; y += step {
			m.put(s, x, y, '│', style)
		}
		m.put(s, x, axis, '●', style)

		label := runewidth.Truncate(e.Title, cardCols, "…")
		m.text(s, x-runewidth.StringWidth(label)/2, row, label, style.Bold(true))
	}

	m.drawStatus(s)
}

func (m *Model) drawStatus(s tcell.Screen) {
	breaks := "off"
	if m.breaks {
		breaks = "on"
	}
	status := fmt.Sprintf(" zoom %.0f%% [%.0f-%.0f]  breaks %s  events %d  width %.0fpx",
		m.zoom, m.bounds.MinZoom, m.bounds.MaxZoom, breaks, len(m.result.Events), m.result.TotalWidth)
	if year, ok := layout.MapPixelToYear(float64((m.offset+m.width/2)*ColumnPixels), m.result.Scale); ok {
		status += fmt.Sprintf("  centre %.1f", year)
	}
	m.text(s, 0, 0, status, tcell.StyleDefault.Reverse(true))
	m.text(s, 0, m.height-1, " +/- zoom  0 reset  b breaks  ←/→ scroll  q quit", tcell.StyleDefault.Dim(true))
}

func (m *Model) put(s tcell.Screen, x, y int, r rune, style tcell.Style) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return
	}
	s.SetContent(x, y, r, nil, style)
}

func (m *Model) text(s tcell.Screen, x, y int, str string, style tcell.Style) {
	for _, r := range str {
		m.put(s, x, y, r, style)
		x += runewidth.RuneWidth(r)
	}
}

// Run draws m on s and processes input until the user quits or the screen
// stops delivering events. The caller owns s and must have initialised it.
func Run(s tcell.Screen, m *Model) error {
	w, h := s.Size()
	m.Resize(w, h)

	for {
		m.Draw(s)
		s.Show()

		switch ev := s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			s.Sync()
			m.Resize(ev.Size())
		case *tcell.EventKey:
			if m.HandleKey(ev) {
				return nil
			}
		}
	}
}
