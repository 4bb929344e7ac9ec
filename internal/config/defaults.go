package config

const (
	defaultDataDir  = "~/.local/share/watchpost"
	defaultGPIORoot = "/sys/class/gpio"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Level:       "info",
			Format:      "console",
			File:        defaultDataDir + "/logs/watchpost.log",
			BackupCount: 7,
			MaxSizeMB:   50,
			Console:     true,
			Journal:     defaultDataDir + "/journal.db",
		},
		Paths: Paths{
			LockFile: defaultDataDir + "/watchpost.lock",
			PIDFile:  defaultDataDir + "/watchpost.pid",
		},
		Sensor: Sensor{
			Enabled:           true,
			GPIORoot:          defaultGPIORoot,
			Pin:               17,
			MinTriggerSeconds: 60,
			DisableMarker:     "~/.config/watchpost/disable",
			PollIntervalMS:    100,
		},
		Capture: Capture{
			VideoDir:        "~/watchpost/video",
			NotificationDir: "~/watchpost/notify",
			VideoQuality:    25,
			ImageQuality:    80,
			RecordCommand: []string{
				"rpicam-vid", "--nopreview", "--timeout", "0",
				"--width", "1640", "--height", "1232", "--framerate", "25",
				"--codec", "h264", "--inline", "--output", "{output}",
			},
			StillCommand: []string{
				"rpicam-still", "--nopreview", "--immediate",
				"--quality", "{quality}", "--output", "{output}",
			},
			TickMS:             100,
			StopTimeoutSeconds: 10,
			RetrySeconds:       5,
		},
		Convert: Convert{
			Binary:         "MP4Box",
			TimeoutSeconds: 120,
			PollIntervalMS: 100,
		},
		Notify: Notify{
			Transport:      TransportNone,
			Subject:        "Motion detected",
			PollIntervalMS: 100,
			SMTP: SMTP{
				Port:           587,
				TimeoutSeconds: 30,
			},
			Ntfy: Ntfy{
				RequestTimeout: 10,
			},
		},
		Retention: Retention{
			Enabled:         true,
			DaysToKeep:      7,
			IntervalSeconds: 30,
		},
		Shutdown: Shutdown{
			GraceSeconds:       5,
			JoinTimeoutSeconds: 90,
		},
	}
}
