package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"watchpost/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a fresh temp directory with short
// intervals suited to tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Logging.File = filepath.Join(base, "logs", "watchpost.log")
	cfgVal.Logging.Journal = filepath.Join(base, "journal.db")
	cfgVal.Logging.Console = false
	cfgVal.Paths.LockFile = filepath.Join(base, "run", "watchpost.lock")
	cfgVal.Paths.PIDFile = filepath.Join(base, "run", "watchpost.pid")
	cfgVal.Sensor.GPIORoot = filepath.Join(base, "gpio")
	cfgVal.Sensor.DisableMarker = filepath.Join(base, "disable")
	cfgVal.Sensor.PollIntervalMS = 5
	cfgVal.Capture.VideoDir = filepath.Join(base, "video")
	cfgVal.Capture.NotificationDir = filepath.Join(base, "notify")
	cfgVal.Capture.TickMS = 5
	cfgVal.Convert.PollIntervalMS = 5
	cfgVal.Notify.PollIntervalMS = 5
	cfgVal.Notify.Transport = config.TransportNone
	cfgVal.Retention.IntervalSeconds = 1
	cfgVal.Shutdown.GraceSeconds = 0
	cfgVal.Shutdown.JoinTimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithNtfyTopic switches notifications to ntfy at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notify.Transport = config.TransportNtfy
		b.cfg.Notify.Ntfy.Topic = topic
	}
}

// WithSensorDisabled turns the motion sensor off.
func WithSensorDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sensor.Enabled = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external tools are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"MP4Box", "rpicam-vid", "rpicam-still"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Capture.VideoDir)
}
