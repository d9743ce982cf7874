package render

import (
	"encoding/json"
	"io"

	"timelinelayout/internal/layout"
)

// Document is the JSON form of a computed layout.
type Document struct {
	TotalWidth float64              `json:"total_width"`
	Segments   []layout.TimeSegment `json:"segments"`
	Events     []layout.LayoutEvent `json:"events"`
	Zoom       *layout.ZoomBounds   `json:"zoom,omitempty"`
}

// NewDocument builds the JSON document for res. zoom may be nil.
func NewDocument(res layout.Result, zoom *layout.ZoomBounds) Document {
	doc := Document{
		TotalWidth: res.TotalWidth,
		Segments:   res.Scale.Segments,
		Events:     res.Events,
		Zoom:       zoom,
	}
	if doc.Segments == nil {
		doc.Segments = []layout.TimeSegment{}
	}
	if doc.Events == nil {
		doc.Events = []layout.LayoutEvent{}
	}
	return doc
}

// WriteJSON writes res as indented JSON.
func WriteJSON(w io.Writer, res layout.Result, zoom *layout.ZoomBounds) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(res, zoom))
}
