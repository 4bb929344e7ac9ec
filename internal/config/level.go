package config

import (
	"fmt"
	"log/slog"

	"watchpost/internal/logging"
)

// Level is a configured log severity: debug, info, warning, error or
// critical. The empty value inherits logging.level.
type Level string

// UnmarshalText rejects unknown level names so a typo fails the config load.
func (l *Level) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*l = ""
		return nil
	}
	parsed, ok := logging.ParseLevel(string(text))
	if !ok {
		return fmt.Errorf("unknown log level %q (want debug, info, warning, error or critical)", text)
	}
	*l = Level(logging.LevelName(parsed))
	return nil
}

// MarshalText writes the canonical name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l), nil
}

// Slog maps the level onto slog, falling back to fallback when unset.
func (l Level) Slog(fallback slog.Level) slog.Level {
	if l == "" {
		return fallback
	}
	level, ok := logging.ParseLevel(string(l))
	if !ok {
		return fallback
	}
	return level
}
