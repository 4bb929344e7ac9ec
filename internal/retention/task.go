package retention

import (
	"context"
	"log/slog"
	"time"

	"watchpost/internal/config"
	"watchpost/internal/logging"
)

// Task is the retention worker body. Each step is one sweep; the worker
// interval spaces them out.
type Task struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewTask builds the retention worker body from cfg.
func NewTask(cfg *config.Config, logger *slog.Logger) *Task {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Task{
		opts: Options{
			NotificationDir: cfg.Capture.NotificationDir,
			VideoDir:        cfg.Capture.VideoDir,
			Horizon:         cfg.Retention.Horizon(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Step runs one sweep.
func (t *Task) Step(context.Context) error {
	opts := t.opts
	opts.Now = t.now()
	result := Sweep(opts, t.logger)
	if n := len(result.Removed) + len(result.RemovedDirs) + len(result.Errors); n > 0 {
		t.logger.Info("retention sweep complete",
			logging.Int("removed", len(result.Removed)),
			logging.Int("removed_dirs", len(result.RemovedDirs)),
			logging.Int("errors", len(result.Errors)),
		)
	}
	return nil
}
