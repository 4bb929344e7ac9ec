package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options describes sink handler construction parameters.
type Options struct {
	// Level is the minimum level written by the sink.
	Level slog.Level
	// Format selects "console" (default) or "json".
	Format string
	// Writers receive formatted output. Empty means stdout.
	Writers []io.Writer
	// Extra handlers are teed after the formatter, e.g. the activity journal.
	Extra []slog.Handler
	// AddSource appends file:line to each record.
	AddSource bool
}

// NewHandler builds the formatter handler over opts.Writers and tees it with
// any extra handlers.
func NewHandler(opts Options) (slog.Handler, error) {
	var writer io.Writer
	switch len(opts.Writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = opts.Writers[0]
	default:
		writer = io.MultiWriter(opts.Writers...)
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(opts.Level)

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(writer, levelVar, opts.AddSource)
	case "console":
		handler = newPrettyHandler(writer, levelVar, opts.AddSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if len(opts.Extra) == 0 {
		return handler, nil
	}
	return TeeHandler(append([]slog.Handler{handler}, opts.Extra...)...), nil
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	handler, err := NewHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

// NewStderr returns the console logger used before the funnel exists.
func NewStderr(level slog.Level) *slog.Logger {
	return slog.New(newPrettyHandler(os.Stderr, level, false))
}
