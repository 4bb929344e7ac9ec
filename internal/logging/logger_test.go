package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"watchpost/internal/logging"
)

func TestConsoleFormatPrefixesWorker(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: slog.LevelInfo, Format: "console", Writers: []io.Writer{&buf}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.With(logging.String(logging.FieldWorker, "sensor")).Info("motion detected", logging.Int("pin", 17))
	logger.Debug("hidden")

	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug record written at info level: %q", line)
	}
	if !strings.Contains(line, " INFO sensor: motion detected pin=17") {
		t.Fatalf("unexpected console line %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("source location should be omitted: %q", line)
	}
}

func TestConsoleFormatQuotesAndCritical(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: slog.LevelDebug, Writers: []io.Writer{&buf}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Log(context.Background(), logging.LevelCritical, "camera gone", logging.Error(errors.New("device busy")))
	if !strings.Contains(buf.String(), `CRITICAL camera gone error="device busy"`) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: slog.LevelInfo, Format: "json", Writers: []io.Writer{&buf}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("disk slow", logging.String(logging.FieldWorker, "retention"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json line: %v (%q)", err, buf.String())
	}
	if payload["level"] != "warning" || payload["msg"] != "disk slow" || payload["worker"] != "retention" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts in %v", payload)
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"INFO":     slog.LevelInfo,
		"warning":  slog.LevelWarn,
		"warn":     slog.LevelWarn,
		"error":    slog.LevelError,
		"critical": logging.LevelCritical,
	}
	for name, want := range cases {
		got, ok := logging.ParseLevel(name)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", name, got, ok, want)
		}
	}
	if _, ok := logging.ParseLevel("verbose"); ok {
		t.Fatal("expected unknown level to be rejected")
	}
	if logging.LevelName(logging.LevelCritical) != "critical" || logging.LevelName(slog.LevelWarn) != "warning" {
		t.Fatal("unexpected level names")
	}
}

func TestWithLevelOverrideFilters(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Level: slog.LevelDebug, Writers: []io.Writer{&buf}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger := logging.WithLevelOverride(base, slog.LevelWarn)
	logger.Info("quiet")
	logger.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Fatalf("override not applied: %q", buf.String())
	}
}
