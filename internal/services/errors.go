package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrTransientIO   = errors.New("transient io failure")
	ErrExternalTool  = errors.New("external tool error")
	ErrTransport     = errors.New("transport failure")
	ErrConfiguration = errors.New("configuration error")
	ErrNotReady      = errors.New("not ready")
)

// Wrap builds an error message that includes worker context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, worker, operation, message string, err error) error {
	detail := buildDetail(worker, operation, message)
	if marker == nil {
		marker = ErrTransientIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Severity maps a failed unit of work to the level it is logged at. Transient
// filesystem problems and sensors that are still settling are warnings;
// everything else is an error.
func Severity(err error) slog.Level {
	switch {
	case err == nil:
		return slog.LevelInfo
	case errors.Is(err, ErrTransientIO), errors.Is(err, ErrNotReady):
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType returns the event_type label used when logging err.
func EventType(err error) string {
	switch {
	case errors.Is(err, ErrTransientIO):
		return "transient_io_failure"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrExternalTool):
		return "external_tool_failure"
	case errors.Is(err, ErrTransport):
		return "transport_failure"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	default:
		return "step_failed"
	}
}

func buildDetail(worker, operation, message string) string {
	parts := make([]string, 0, 3)
	if worker = strings.TrimSpace(worker); worker != "" {
		parts = append(parts, worker)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
