package sensor

import (
	"context"
	"log/slog"
	"time"

	"watchpost/internal/capture"
	"watchpost/internal/config"
	"watchpost/internal/fileutil"
	"watchpost/internal/logging"
	"watchpost/internal/mq"
	"watchpost/internal/services"
)

// Task is the sensor worker body.
type Task struct {
	detector      Detector
	out           *mq.Queue[capture.Trigger]
	logger        *slog.Logger
	minTrigger    time.Duration
	disableMarker string
	now           func() time.Time

	opened       bool
	lastAccepted time.Time
}

// NewTask wires detector to the trigger queue using the sensor section of cfg.
func NewTask(cfg *config.Config, detector Detector, out *mq.Queue[capture.Trigger], logger *slog.Logger) *Task {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Task{
		detector:      detector,
		out:           out,
		logger:        logger,
		minTrigger:    cfg.Sensor.MinTrigger(),
		disableMarker: cfg.Sensor.DisableMarker,
		now:           time.Now,
	}
}

// Prepare opens the detector and succeeds once the line reads low.
func (t *Task) Prepare(context.Context) error {
	if !t.opened {
		if err := t.detector.Open(); err != nil {
			return services.Wrap(services.ErrTransientIO, "sensor", "open", "detector unavailable", err)
		}
		t.opened = true
	}
	level, err := t.detector.Level()
	if err != nil {
		return services.Wrap(services.ErrTransientIO, "sensor", "read level", "", err)
	}
	if level != 0 {
		return services.Wrap(services.ErrNotReady, "sensor", "settle", "line still high", nil)
	}
	// Discard edges latched while settling.
	if _, err := t.detector.Triggered(); err != nil {
		return services.Wrap(services.ErrTransientIO, "sensor", "arm", "", err)
	}
	t.logger.Info("sensor ready")
	return nil
}

// Step checks for one edge and forwards at most one trigger.
func (t *Task) Step(context.Context) error {
	triggered, err := t.detector.Triggered()
	if err != nil {
		return services.Wrap(services.ErrTransientIO, "sensor", "poll", "", err)
	}
	if !triggered {
		return nil
	}
	now := t.now()
	if !t.lastAccepted.IsZero() && now.Sub(t.lastAccepted) < t.minTrigger {
		t.logger.Debug("trigger suppressed",
			logging.Duration("since_last", now.Sub(t.lastAccepted)),
			logging.Duration("min_interval", t.minTrigger),
		)
		return nil
	}
	t.lastAccepted = now
	t.logger.Info("motion detected")
	if fileutil.Exists(t.disableMarker) {
		t.logger.Info("real-time notifications disabled", logging.Path(t.disableMarker))
		return nil
	}
	t.out.Send(capture.Trigger{At: now})
	t.logger.Debug("trigger sent", logging.Time("at", now))
	return nil
}

// Finish releases the detector.
func (t *Task) Finish(context.Context) error {
	if !t.opened {
		return nil
	}
	t.opened = false
	if err := t.detector.Close(); err != nil {
		return services.Wrap(services.ErrTransientIO, "sensor", "close", "", err)
	}
	return nil
}
