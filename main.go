/*
Command timeline lays out dated events on a horizontal, compressible time
axis and renders the result.

Subcommands:

	render   write the layout as SVG or JSON (default)
	preview  interactive terminal preview with zoom and break controls
	serve    run the MCP tool server over stdio or HTTP
	import   store events from a file in the SQLite timeline store

Configuration comes from an optional YAML file, TIMELINE_* environment
variables and a .env file in the working directory.
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"timelinelayout/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cmd, args := "render", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "render":
		err = runRender(args, os.Stdout)
	case "preview":
		err = runPreview(args)
	case "serve":
		err = runServe(args)
	case "import":
		err = runImport(args, os.Stdout)
	case "help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s [render|preview|serve|import] [options]\n", os.Args[0])
	fmt.Fprintf(w, "\nRun '%s <command> --help' for the options of a command.\n", os.Args[0])
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s --events timeline.csv --output timeline.svg\n", os.Args[0])
	fmt.Fprintf(w, "  %s render --events timeline.yaml --format json --zoom 150\n", os.Args[0])
	fmt.Fprintf(w, "  %s preview --events timeline.csv\n", os.Args[0])
	fmt.Fprintf(w, "  %s import --events timeline.csv --name product\n", os.Args[0])
	fmt.Fprintf(w, "  %s serve --transport http\n", os.Args[0])
}

// newLogger writes text logs to w. debug forces the debug level.
func newLogger(w io.Writer, level string, debug bool) *slog.Logger {
	lvl := parseLogLevel(level)
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
