package logging

import (
	"context"
	"log/slog"
	"strings"
)

// LevelCritical sits above slog.LevelError for failures that stop a worker
// from doing anything useful.
const LevelCritical = slog.LevelError + 4

// ParseLevel maps a configured level name onto a slog level. "warn" is
// accepted as an alias of "warning".
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warning", "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "critical":
		return LevelCritical, true
	default:
		return slog.LevelInfo, false
	}
}

// LevelName is the lower-case configured name for level.
func LevelName(level slog.Level) string {
	switch {
	case level >= LevelCritical:
		return "critical"
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

func levelLabel(level slog.Level) string {
	return strings.ToUpper(LevelName(level))
}

// minLevelHandler drops records below a floor before they reach next.
type minLevelHandler struct {
	next  slog.Handler
	floor slog.Level
}

func (h minLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.floor && h.next.Enabled(ctx, level)
}

func (h minLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.floor {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h minLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return minLevelHandler{next: h.next.WithAttrs(attrs), floor: h.floor}
}

func (h minLevelHandler) WithGroup(name string) slog.Handler {
	return minLevelHandler{next: h.next.WithGroup(name), floor: h.floor}
}

// WithLevelOverride returns a logger that drops records below level while
// keeping the wrapped logger's attributes and destination. Overriding an
// already overridden logger replaces the floor rather than stacking.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return slog.New(NoopHandler{})
	}
	next := logger.Handler()
	if inner, ok := next.(minLevelHandler); ok {
		next = inner.next
	}
	return slog.New(minLevelHandler{next: next, floor: level})
}
