package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"watchpost/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Logging configures the funnel's destinations.
type Logging struct {
	Level       Level  `toml:"level"`
	Format      string `toml:"format"`
	File        string `toml:"file"`
	BackupCount int    `toml:"backup_count"`
	MaxSizeMB   int    `toml:"max_size_mb"`
	Console     bool   `toml:"console"`
	Journal     string `toml:"journal"`
}

// Paths holds daemon bookkeeping files.
type Paths struct {
	LockFile string `toml:"lock_file"`
	PIDFile  string `toml:"pid_file"`
}

// Sensor configures the PIR motion sensor.
type Sensor struct {
	LogLevel          Level  `toml:"log_level"`
	Enabled           bool   `toml:"enabled"`
	GPIORoot          string `toml:"gpio_root"`
	GPIOBase          int    `toml:"gpio_base"`
	Pin               int    `toml:"pin"`
	MinTriggerSeconds int    `toml:"min_trigger_seconds"`
	DisableMarker     string `toml:"disable_marker"`
	PollIntervalMS    int    `toml:"poll_interval_ms"`
}

// Capture configures the camera and output directories.
//
// VideoQuality and ImageQuality only take effect through the {quality}
// placeholder of record_command and still_command respectively. The default
// recorder writes h264, which rpicam-vid sizes with --bitrate rather than
// --quality, so the default record_command does not reference it.
type Capture struct {
	LogLevel           Level    `toml:"log_level"`
	VideoDir           string   `toml:"video_dir"`
	NotificationDir    string   `toml:"notification_dir"`
	VideoQuality       int      `toml:"video_quality"`
	ImageQuality       int      `toml:"image_quality"`
	HFlip              bool     `toml:"hflip"`
	VFlip              bool     `toml:"vflip"`
	RecordCommand      []string `toml:"record_command"`
	StillCommand       []string `toml:"still_command"`
	TickMS             int      `toml:"tick_ms"`
	StopTimeoutSeconds int      `toml:"stop_timeout_seconds"`
	RetrySeconds       int      `toml:"retry_seconds"`
}

// Convert configures the h264 to mp4 remux.
type Convert struct {
	LogLevel       Level  `toml:"log_level"`
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
}

// SMTP holds mail transport settings.
type SMTP struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	User           string   `toml:"user"`
	Password       string   `toml:"password"`
	From           string   `toml:"from"`
	To             []string `toml:"to"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Ntfy holds ntfy push settings.
type Ntfy struct {
	Topic          string `toml:"topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Notify configures delivery of motion stills.
type Notify struct {
	LogLevel       Level  `toml:"log_level"`
	Transport      string `toml:"transport"`
	Subject        string `toml:"subject"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
	SMTP           SMTP   `toml:"smtp"`
	Ntfy           Ntfy   `toml:"ntfy"`
}

// Retention configures the cleanup sweep.
type Retention struct {
	LogLevel        Level `toml:"log_level"`
	Enabled         bool  `toml:"enabled"`
	DaysToKeep      int   `toml:"days_to_keep"`
	IntervalSeconds int   `toml:"interval_seconds"`
}

// Shutdown bounds the ordered stop sequence.
type Shutdown struct {
	GraceSeconds       int `toml:"grace_seconds"`
	JoinTimeoutSeconds int `toml:"join_timeout_seconds"`
}

// Transport names accepted by notify.transport.
const (
	TransportSMTP = "smtp"
	TransportNtfy = "ntfy"
	TransportNone = "none"
)

// Config encapsulates all configuration values for watchpost.
type Config struct {
	Logging   Logging   `toml:"logging"`
	Paths     Paths     `toml:"paths"`
	Sensor    Sensor    `toml:"sensor"`
	Capture   Capture   `toml:"capture"`
	Convert   Convert   `toml:"convert"`
	Notify    Notify    `toml:"notify"`
	Retention Retention `toml:"retention"`
	Shutdown  Shutdown  `toml:"shutdown"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/watchpost/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has every path expanded. The string result is the file consulted
// and the bool reports whether it existed; a missing file yields defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("%w: parse %s: %s", services.ErrConfiguration, resolvedPath, strict.String())
			}
			return nil, "", false, fmt.Errorf("%w: parse %s: %w", services.ErrConfiguration, resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("watchpost.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// Encode renders the effective configuration as TOML. The SMTP password is
// masked.
func (c *Config) Encode() ([]byte, error) {
	clone := *c
	if clone.Notify.SMTP.Password != "" {
		clone.Notify.SMTP.Password = "********"
	}
	data, err := toml.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// LevelFor resolves a worker's log level against logging.level.
func (c *Config) LevelFor(level Level) slog.Level {
	return level.Slog(c.Logging.Level.Slog(slog.LevelInfo))
}

// MinTrigger is the debounce window between accepted triggers.
func (s Sensor) MinTrigger() time.Duration {
	return time.Duration(s.MinTriggerSeconds) * time.Second
}

// Line is the sysfs GPIO number of the sensor pin.
func (s Sensor) Line() int {
	return s.GPIOBase + s.Pin
}

// PollInterval is the pause between sensor reads.
func (s Sensor) PollInterval() time.Duration {
	return millis(s.PollIntervalMS)
}

// Tick is the interval between trigger checks inside a segment.
func (c Capture) Tick() time.Duration {
	return millis(c.TickMS)
}

// StopTimeout bounds how long the recorder gets to exit after SIGINT.
func (c Capture) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

// Retry is the pause after a segment could not be started.
func (c Capture) Retry() time.Duration {
	return time.Duration(c.RetrySeconds) * time.Second
}

// Timeout bounds one conversion.
func (c Convert) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval is the pause between convert queue checks.
func (c Convert) PollInterval() time.Duration {
	return millis(c.PollIntervalMS)
}

// PollInterval is the pause between notify queue checks.
func (n Notify) PollInterval() time.Duration {
	return millis(n.PollIntervalMS)
}

// Horizon is how long artifacts are kept.
func (r Retention) Horizon() time.Duration {
	return time.Duration(r.DaysToKeep) * 24 * time.Hour
}

// Interval is the pause between sweeps.
func (r Retention) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// Grace is the pause between stopping notify and stopping convert.
func (s Shutdown) Grace() time.Duration {
	return time.Duration(s.GraceSeconds) * time.Second
}

// JoinTimeout bounds each worker join; zero waits indefinitely.
func (s Shutdown) JoinTimeout() time.Duration {
	return time.Duration(s.JoinTimeoutSeconds) * time.Second
}

func millis(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// EnsureDirectories creates the directories the daemon writes into.
// Creation is idempotent.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Capture.VideoDir,
		c.Capture.NotificationDir,
		filepath.Dir(c.Logging.File),
		filepath.Dir(c.Paths.LockFile),
	}
	if c.Paths.PIDFile != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.PIDFile))
	}
	if c.Logging.Journal != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.Journal))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
