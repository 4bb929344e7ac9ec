package config

import (
	"fmt"
	"strings"

	"watchpost/internal/services"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", services.ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateLogging,
		c.validatePaths,
		c.validateSensor,
		c.validateCapture,
		c.validateConvert,
		c.validateNotify,
		c.validateRetention,
		c.validateShutdown,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return invalid("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Logging.File == "" {
		return invalid("logging.file must be set")
	}
	if c.Logging.BackupCount < 0 {
		return invalid("logging.backup_count must be >= 0")
	}
	if c.Logging.MaxSizeMB < 0 {
		return invalid("logging.max_size_mb must be >= 0")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LockFile == "" {
		return invalid("paths.lock_file must be set")
	}
	return nil
}

func (c *Config) validateSensor() error {
	if !c.Sensor.Enabled {
		return nil
	}
	if c.Sensor.GPIORoot == "" {
		return invalid("sensor.gpio_root must be set when sensor.enabled is true")
	}
	if c.Sensor.Pin < 0 || c.Sensor.GPIOBase < 0 {
		return invalid("sensor.pin and sensor.gpio_base must be >= 0")
	}
	if c.Sensor.MinTriggerSeconds < 0 {
		return invalid("sensor.min_trigger_seconds must be >= 0")
	}
	if c.Sensor.PollIntervalMS <= 0 {
		return invalid("sensor.poll_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.VideoDir == "" {
		return invalid("capture.video_dir must be set")
	}
	if c.Capture.NotificationDir == "" {
		return invalid("capture.notification_dir must be set")
	}
	if c.Capture.VideoQuality < 0 || c.Capture.VideoQuality > 100 {
		return invalid("capture.video_quality must be between 0 and 100")
	}
	if c.Capture.ImageQuality < 1 || c.Capture.ImageQuality > 100 {
		return invalid("capture.image_quality must be between 1 and 100")
	}
	if len(c.Capture.RecordCommand) == 0 || strings.TrimSpace(c.Capture.RecordCommand[0]) == "" {
		return invalid("capture.record_command must name a program")
	}
	if len(c.Capture.StillCommand) == 0 || strings.TrimSpace(c.Capture.StillCommand[0]) == "" {
		return invalid("capture.still_command must name a program")
	}
	if c.Capture.TickMS <= 0 {
		return invalid("capture.tick_ms must be positive")
	}
	if c.Capture.StopTimeoutSeconds <= 0 {
		return invalid("capture.stop_timeout_seconds must be positive")
	}
	if c.Capture.RetrySeconds <= 0 {
		return invalid("capture.retry_seconds must be positive")
	}
	return nil
}

func (c *Config) validateConvert() error {
	if strings.TrimSpace(c.Convert.Binary) == "" {
		return invalid("convert.binary must be set")
	}
	if c.Convert.TimeoutSeconds <= 0 {
		return invalid("convert.timeout_seconds must be positive")
	}
	if c.Convert.PollIntervalMS <= 0 {
		return invalid("convert.poll_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateNotify() error {
	if c.Notify.PollIntervalMS <= 0 {
		return invalid("notify.poll_interval_ms must be positive")
	}
	switch c.Notify.Transport {
	case TransportNone:
		return nil
	case TransportSMTP:
		smtp := c.Notify.SMTP
		if smtp.Host == "" {
			return invalid("notify.smtp.host must be set when notify.transport is smtp")
		}
		if smtp.Port <= 0 || smtp.Port > 65535 {
			return invalid("notify.smtp.port must be a valid TCP port")
		}
		if smtp.From == "" {
			return invalid("notify.smtp.from must be set when notify.transport is smtp")
		}
		if len(smtp.To) == 0 {
			return invalid("notify.smtp.to must list at least one recipient")
		}
		if smtp.TimeoutSeconds <= 0 {
			return invalid("notify.smtp.timeout_seconds must be positive")
		}
		return nil
	case TransportNtfy:
		if c.Notify.Ntfy.Topic == "" {
			return invalid("notify.ntfy.topic must be set when notify.transport is ntfy")
		}
		if c.Notify.Ntfy.RequestTimeout <= 0 {
			return invalid("notify.ntfy.request_timeout must be positive")
		}
		return nil
	default:
		return invalid("notify.transport must be smtp, ntfy or none, got %q", c.Notify.Transport)
	}
}

func (c *Config) validateRetention() error {
	if !c.Retention.Enabled {
		return nil
	}
	if c.Retention.DaysToKeep < 1 {
		return invalid("retention.days_to_keep must be at least 1")
	}
	if c.Retention.IntervalSeconds <= 0 {
		return invalid("retention.interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateShutdown() error {
	if c.Shutdown.GraceSeconds < 0 {
		return invalid("shutdown.grace_seconds must be >= 0")
	}
	if c.Shutdown.JoinTimeoutSeconds < 0 {
		return invalid("shutdown.join_timeout_seconds must be >= 0 (0 waits indefinitely)")
	}
	return nil
}
