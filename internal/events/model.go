// Package events holds the timeline event model and the loaders that read
// events from CSV, YAML and JSON files.
package events

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEvent indicates an event that cannot be placed on the timeline.
var ErrInvalidEvent = errors.New("invalid event")

// Type classifies an event. The layout engine only uses it to look up an
// explicit colour; renderers may style by it too.
type Type string

const (
	TypeRelease   Type = "release"
	TypeMilestone Type = "milestone"
	TypeFeature   Type = "feature"
	TypeNote      Type = "note"
)

// Event is a single dated entry on the version timeline. Month is nil when
// only the year is known.
type Event struct {
	ID          string   `json:"id" yaml:"id"`
	Year        int      `json:"year" yaml:"year"`
	Month       *int     `json:"month,omitempty" yaml:"month,omitempty"`
	Title       string   `json:"title" yaml:"title"`
	Description *string  `json:"description,omitempty" yaml:"description,omitempty"`
	Type        Type     `json:"type,omitempty" yaml:"type,omitempty"`
	Highlight   []string `json:"highlight,omitempty" yaml:"highlight,omitempty"`
}

// DateLabel formats the event date as YYYY or YYYY-MM.
func (e Event) DateLabel() string {
	if e.Month == nil {
		return fmt.Sprintf("%d", e.Year)
	}
	return fmt.Sprintf("%d-%02d", e.Year, *e.Month)
}

// DescriptionText returns the description or an empty string.
func (e Event) DescriptionText() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}

// Validate checks the fields the layout depends on.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: event %q has no title", ErrInvalidEvent, e.ID)
	}
	if e.Month != nil && (*e.Month < 1 || *e.Month > 12) {
		return fmt.Errorf("%w: event %q has month %d outside 1-12", ErrInvalidEvent, e.ID, *e.Month)
	}
	return nil
}

// ValidateAll validates every event and rejects duplicate ids.
func ValidateAll(list []Event) error {
	seen := make(map[string]bool, len(list))
	for _, e := range list {
		if err := e.Validate(); err != nil {
			return err
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidEvent, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// Month returns a pointer to m, for building events in code.
func Month(m int) *int {
	return &m
}

// Text returns a pointer to s.
func Text(s string) *string {
	return &s
}
