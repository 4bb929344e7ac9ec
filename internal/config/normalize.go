package config

import (
	"fmt"
	"os"
	"strings"
)

// SMTPPasswordEnv overrides notify.smtp.password when set.
const SMTPPasswordEnv = "WATCHPOST_SMTP_PASSWORD"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeNotify()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"logging.file", &c.Logging.File},
		{"logging.journal", &c.Logging.Journal},
		{"paths.lock_file", &c.Paths.LockFile},
		{"paths.pid_file", &c.Paths.PIDFile},
		{"sensor.gpio_root", &c.Sensor.GPIORoot},
		{"sensor.disable_marker", &c.Sensor.DisableMarker},
		{"capture.video_dir", &c.Capture.VideoDir},
		{"capture.notification_dir", &c.Capture.NotificationDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) normalizeNotify() {
	c.Notify.Transport = strings.ToLower(strings.TrimSpace(c.Notify.Transport))
	if c.Notify.Transport == "" {
		c.Notify.Transport = TransportNone
	}
	c.Notify.SMTP.Host = strings.TrimSpace(c.Notify.SMTP.Host)
	c.Notify.SMTP.From = strings.TrimSpace(c.Notify.SMTP.From)
	recipients := c.Notify.SMTP.To[:0]
	for _, to := range c.Notify.SMTP.To {
		if to = strings.TrimSpace(to); to != "" {
			recipients = append(recipients, to)
		}
	}
	c.Notify.SMTP.To = recipients
	if value, ok := os.LookupEnv(SMTPPasswordEnv); ok && value != "" {
		c.Notify.SMTP.Password = value
	}
	c.Notify.Ntfy.Topic = strings.TrimSpace(c.Notify.Ntfy.Topic)
}
