// Package config loads timeline settings from defaults, an optional YAML
// file and TIMELINE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"timelinelayout/internal/events"
	"timelinelayout/internal/layout"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete configuration for rendering, previewing and
// serving timelines.
type Config struct {
	Font        FontConfig     `yaml:"font"`
	Colors      ColorConfig    `yaml:"colors"`
	Layout      LayoutConfig   `yaml:"layout"`
	Timeline    TimelineConfig `yaml:"timeline"`
	EventMarker MarkerConfig   `yaml:"event_marker"`
	Engine      layout.Params  `yaml:"engine"`
	Log         LogConfig      `yaml:"log"`
	DB          DBConfig       `yaml:"db"`
	Server      ServerConfig   `yaml:"server"`
}

type FontConfig struct {
	Family string `yaml:"family"` // e.g. "Arial, sans-serif"
	Size   int    `yaml:"size"`   // base size in pixels
}

type ColorConfig struct {
	Background string `yaml:"background"`
	Timeline   string `yaml:"timeline"` // axis line and break glyphs
	Text       string `yaml:"text"`
	Notes      string `yaml:"notes"` // descriptions
	Highlight  string `yaml:"highlight"`
	Card       string `yaml:"card"` // card fill
}

// LayoutConfig sizes the rendered canvas. Width is also the container
// width the zoom bounds are derived from.
type LayoutConfig struct {
	Width        int `yaml:"width"`
	Height       int `yaml:"height"` // minimum; grows to fit both layers
	MarginTop    int `yaml:"margin_top"`
	MarginBottom int `yaml:"margin_bottom"`
	MarginLeft   int `yaml:"margin_left"`
	MarginRight  int `yaml:"margin_right"`
	EventSpacing int `yaml:"event_spacing"` // axis to layer-0 card edge
	LayerSpacing int `yaml:"layer_spacing"` // extra distance for layer-1 cards
	CardHeight   int `yaml:"card_height"`
}

type TimelineConfig struct {
	Zoom         float64           `yaml:"zoom"` // percent; 0 picks the perfect zoom
	EnableBreaks bool              `yaml:"enable_breaks"`
	ShowDates    bool              `yaml:"show_dates"`
	LineWidth    int               `yaml:"line_width"`
	Palette      []string          `yaml:"palette"`
	TypeColors   map[string]string `yaml:"type_colors"`
}

type MarkerConfig struct {
	Shape       string `yaml:"shape"` // circle, square, diamond or triangle
	Size        int    `yaml:"size"`
	StrokeColor string `yaml:"stroke_color"`
	StrokeWidth int    `yaml:"stroke_width"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Transport string `yaml:"transport"` // stdio or http
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Font: FontConfig{
			Family: "Arial, sans-serif",
			Size:   12,
		},
		Colors: ColorConfig{
			Background: "#ffffff",
			Timeline:   "#333333",
			Text:       "#333333",
			Notes:      "#666666",
			Highlight:  "#d93025",
			Card:       "#f8f9fa",
		},
		Layout: LayoutConfig{
			Width:        1200,
			Height:       600,
			MarginTop:    50,
			MarginBottom: 50,
			MarginLeft:   60,
			MarginRight:  60,
			EventSpacing: 40,
			LayerSpacing: 90,
			CardHeight:   70,
		},
		Timeline: TimelineConfig{
			EnableBreaks: true,
			ShowDates:    true,
			LineWidth:    2,
			Palette:      append([]string(nil), layout.DefaultPalette...),
		},
		EventMarker: MarkerConfig{
			Shape:       "circle",
			Size:        8,
			StrokeColor: "#333333",
			StrokeWidth: 2,
		},
		Engine: layout.DefaultParams(),
		Log:    LogConfig{Level: "info"},
		DB:     DBConfig{Path: "timelines.db"},
		Server: ServerConfig{
			Transport: "stdio",
			Host:      "127.0.0.1",
			Port:      8080,
		},
	}
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none
// are named) into the process environment. Missing files are ignored and
// variables already set are left alone.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load builds the configuration. path may be empty, in which case
// TIMELINE_CONFIG_PATH is consulted; with neither the defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TIMELINE_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TIMELINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TIMELINE_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("TIMELINE_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}
	if v := os.Getenv("TIMELINE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TIMELINE_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TIMELINE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("TIMELINE_WIDTH"); v != "" {
		width, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TIMELINE_WIDTH: %w", err)
		}
		cfg.Layout.Width = width
	}
	if v := os.Getenv("TIMELINE_ZOOM"); v != "" {
		zoom, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TIMELINE_ZOOM: %w", err)
		}
		cfg.Timeline.Zoom = zoom
	}
	if v := os.Getenv("TIMELINE_ENABLE_BREAKS"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TIMELINE_ENABLE_BREAKS: %w", err)
		}
		cfg.Timeline.EnableBreaks = on
	}
	return nil
}

var markerShapes = map[string]bool{"circle": true, "square": true, "diamond": true, "triangle": true}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.Layout.Width <= 0:
		return fmt.Errorf("%w: layout.width must be positive, got %d", ErrInvalidConfig, c.Layout.Width)
	case c.Timeline.Zoom < 0:
		return fmt.Errorf("%w: timeline.zoom must not be negative", ErrInvalidConfig)
	case !markerShapes[c.EventMarker.Shape]:
		return fmt.Errorf("%w: unknown event_marker.shape %q", ErrInvalidConfig, c.EventMarker.Shape)
	case !logLevels[strings.ToLower(c.Log.Level)]:
		return fmt.Errorf("%w: unknown log.level %q", ErrInvalidConfig, c.Log.Level)
	case c.Server.Transport != "stdio" && c.Server.Transport != "http":
		return fmt.Errorf("%w: server.transport must be stdio or http, got %q", ErrInvalidConfig, c.Server.Transport)
	case c.Engine.CardWidth <= 0 || c.Engine.BasePixelsPerYear <= 0:
		return fmt.Errorf("%w: engine.card_width and engine.base_pixels_per_year must be positive", ErrInvalidConfig)
	case c.Engine.MaxZoom < c.Engine.MinZoomFloor:
		return fmt.Errorf("%w: engine.max_zoom %v is below engine.min_zoom_floor %v", ErrInvalidConfig, c.Engine.MaxZoom, c.Engine.MinZoomFloor)
	}

	for _, hex := range c.Timeline.Palette {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("%w: palette colour %q: %v", ErrInvalidConfig, hex, err)
		}
	}
	for typ, hex := range c.Timeline.TypeColors {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("%w: type colour for %q: %v", ErrInvalidConfig, typ, err)
		}
	}
	return nil
}

// TypeColors converts the configured per-type colours for the layout engine.
func (c Config) TypeColors() map[events.Type]string {
	out := make(map[events.Type]string, len(c.Timeline.TypeColors))
	for typ, hex := range c.Timeline.TypeColors {
		out[events.Type(strings.ToLower(typ))] = hex
	}
	return out
}
