package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"timelinelayout/internal/config"
	"timelinelayout/internal/events"
	"timelinelayout/internal/layout"
	"timelinelayout/internal/mcp"
	"timelinelayout/internal/preview"
	"timelinelayout/internal/render"
	"timelinelayout/internal/store"
)

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configFile string
	debug      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "YAML configuration file (optional)")
	fs.BoolVar(&c.debug, "debug", false, "Enable debug logging")
}

func (c *commonFlags) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger := newLogger(os.Stderr, cfg.Log.Level, c.debug)
	logger.Debug("configuration loaded", "path", c.configFile, "width", cfg.Layout.Width, "breaks", cfg.Timeline.EnableBreaks)
	return cfg, logger, nil
}

// eventSource selects events from a file or from a stored timeline.
type eventSource struct {
	file     string
	timeline string
}

func (s *eventSource) register(fs *flag.FlagSet) {
	fs.StringVar(&s.file, "events", "", "Events file: .csv, .yaml, .yml or .json")
	fs.StringVar(&s.file, "csv", "", "Alias for --events")
	fs.StringVar(&s.timeline, "timeline", "", "Name or id of a stored timeline (instead of --events)")
}

func (s *eventSource) load(ctx context.Context, cfg config.Config) ([]events.Event, error) {
	switch {
	case s.file != "" && s.timeline != "":
		return nil, errors.New("use either --events or --timeline, not both")
	case s.file != "":
		return events.LoadFile(s.file)
	case s.timeline != "":
		db, repo, err := openStore(ctx, cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		tl, err := repo.GetTimelineByName(ctx, s.timeline)
		if errors.Is(err, store.ErrNotFound) {
			tl, err = repo.GetTimeline(ctx, s.timeline)
		}
		if err != nil {
			return nil, err
		}
		return repo.ListEvents(ctx, tl.ID)
	default:
		return nil, errors.New("an events file is required. Use --events to specify the file")
	}
}

func runRender(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	var (
		common commonFlags
		source eventSource
	)
	common.register(fs)
	source.register(fs)
	outputFile := fs.String("output", "", "Output filename (default: events file name with .svg or .json)")
	format := fs.String("format", "svg", "Output format: svg or json")
	zoom := fs.Float64("zoom", 0, "Zoom percentage (default: perfect zoom for the width)")
	width := fs.Int("width", 0, "Container width in pixels (default: layout.width)")
	breaks := fs.Bool("breaks", true, "Compress long empty gaps with axis breaks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	if *width > 0 {
		cfg.Layout.Width = *width
	}
	if *zoom > 0 {
		cfg.Timeline.Zoom = *zoom
	}
	if flagSet(fs, "breaks") {
		cfg.Timeline.EnableBreaks = *breaks
	}

	ctx := context.Background()
	list, err := source.load(ctx, cfg)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return errors.New("no events found")
	}
	logger.Info("events loaded", "count", len(list), "file", source.file, "timeline", source.timeline)

	res, bounds := computeLayout(list, cfg, logger)

	ext := "." + strings.ToLower(*format)
	name := source.file
	if name == "" {
		name = source.timeline
	}
	outputPath := render.OutputFilename(name, *outputFile, ext)

	var out strings.Builder
	switch ext {
	case ".svg":
		err = render.WriteSVG(&out, res, cfg)
	case ".json":
		err = render.WriteJSON(&out, res, &bounds)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		return fmt.Errorf("rendering %s: %w", *format, err)
	}

	if outputPath == "-" {
		_, err = io.WriteString(stdout, out.String())
		return err
	}
	if err := os.WriteFile(outputPath, []byte(out.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	fmt.Fprintf(stdout, "Timeline %s generated successfully: %s\n", strings.ToUpper(*format), outputPath)
	return nil
}

// computeLayout derives the zoom bounds for the configured width, settles
// on a zoom and runs the full layout.
func computeLayout(list []events.Event, cfg config.Config, logger *slog.Logger) (layout.Result, layout.ZoomBounds) {
	viewport := viewportWidth(cfg)
	bounds := layout.CalculateZoomBounds(len(list), viewport, cfg.Engine)

	zoom := cfg.Timeline.Zoom
	if zoom == 0 {
		zoom = bounds.PerfectZoom
	}
	if clamped := bounds.Clamp(zoom); clamped != zoom {
		logger.Warn("zoom outside supported range", "requested", zoom, "used", clamped, "min", bounds.MinZoom, "max", bounds.MaxZoom)
		zoom = clamped
	}

	res := layout.Calculate(list, layout.LayoutOptions{
		Palette:       cfg.Timeline.Palette,
		TypeColors:    cfg.TypeColors(),
		PixelsPerYear: layout.PixelsPerYear(zoom, cfg.Engine),
		EnableBreaks:  cfg.Timeline.EnableBreaks,
		ViewportWidth: viewport,
	}, cfg.Engine)

	logger.Debug("layout computed",
		"zoom", zoom, "perfect_zoom", bounds.PerfectZoom, "segments", len(res.Scale.Segments),
		"breaks", res.Scale.Breaks(), "total_width", res.TotalWidth)
	return res, bounds
}

// viewportWidth is the drawable axis width: the configured width less the
// left and right margins.
func viewportWidth(cfg config.Config) float64 {
	return float64(cfg.Layout.Width - cfg.Layout.MarginLeft - cfg.Layout.MarginRight)
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	var (
		common commonFlags
		source eventSource
	)
	common.register(fs)
	source.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := common.load()
	if err != nil {
		return err
	}
	list, err := source.load(context.Background(), cfg)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initialising terminal: %w", err)
	}
	defer screen.Fini()

	model := preview.NewModel(list, preview.Options{
		Params:       cfg.Engine,
		Palette:      cfg.Timeline.Palette,
		TypeColors:   cfg.TypeColors(),
		EnableBreaks: cfg.Timeline.EnableBreaks,
		Zoom:         cfg.Timeline.Zoom,
	})
	return preview.Run(screen, model)
}

func runImport(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	file := fs.String("events", "", "Events file: .csv, .yaml, .yml or .json (required)")
	name := fs.String("name", "", "Timeline name (default: events file name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("an events file is required. Use --events to specify the file")
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	list, err := events.LoadFile(*file)
	if err != nil {
		return err
	}

	timelineName := *name
	if timelineName == "" {
		timelineName = strings.TrimSuffix(filepath.Base(*file), filepath.Ext(*file))
	}

	ctx := context.Background()
	db, repo, err := openStore(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	tl, err := repo.GetTimelineByName(ctx, timelineName)
	if errors.Is(err, store.ErrNotFound) {
		tl, err = repo.CreateTimeline(ctx, timelineName)
	}
	if err != nil {
		return err
	}
	if err := repo.SaveEvents(ctx, tl.ID, list); err != nil {
		return err
	}

	logger.Info("timeline imported", "timeline_id", tl.ID, "db", cfg.DB.Path)
	fmt.Fprintf(stdout, "Imported %d events into timeline %q (%s)\n", len(list), tl.Name, tl.ID)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	transport := fs.String("transport", "", "stdio or http (default: server.transport)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := common.load()
	if err != nil {
		return err
	}
	if *transport != "" {
		cfg.Server.Transport = *transport
	}
	// stdout carries JSON-RPC in stdio mode, so logs always go to stderr
	logger := newLogger(os.Stderr, cfg.Log.Level, common.debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, repo, err := openStore(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	server := mcp.NewServer(serverConfig(cfg, repo, logger))

	switch cfg.Server.Transport {
	case "stdio":
		logger.Info("starting stdio transport", "db", cfg.DB.Path)
		if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	case "http":
		return serveHTTP(ctx, logger, server, cfg.Server.Host, cfg.Server.Port)
	default:
		return fmt.Errorf("unknown transport %q", cfg.Server.Transport)
	}
}

func serverConfig(cfg config.Config, repo mcp.TimelineStore, logger *slog.Logger) mcp.Config {
	return mcp.Config{
		Store:          repo,
		Params:         cfg.Engine,
		Palette:        cfg.Timeline.Palette,
		TypeColors:     cfg.TypeColors(),
		ContainerWidth: viewportWidth(cfg),
		Version:        version,
		Logger:         logger,
	}
}

func serveHTTP(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: mcp.NewHTTPHandler(server),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, path string) (*store.DB, *store.Repository, error) {
	if err := ensureDBDir(path); err != nil {
		return nil, nil, fmt.Errorf("preparing database path: %w", err)
	}
	db, err := store.New(path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store.NewRepository(db), nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
