package capture

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"watchpost/internal/config"
	"watchpost/internal/fileutil"
	"watchpost/internal/logging"
	"watchpost/internal/mq"
	"watchpost/internal/services"
)

// Queues groups the channels capture reads from and writes to.
type Queues struct {
	Triggers      *mq.Queue[Trigger]
	Notifications *mq.Queue[Artifact]
	Videos        *mq.Queue[Artifact]
}

// Task is the capture worker body.
type Task struct {
	camera       Camera
	queues       Queues
	logger       *slog.Logger
	videoDir     string
	notifyDir    string
	videoQuality int
	imageQuality int
	tick         time.Duration
	stillTimeout time.Duration
	segment      time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// NewTask wires camera to the capture queues using the capture section of cfg.
// A nil Triggers queue (record-only mode) disables stills.
func NewTask(cfg *config.Config, camera Camera, queues Queues, logger *slog.Logger) *Task {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Task{
		camera:       camera,
		queues:       queues,
		logger:       logger,
		videoDir:     cfg.Capture.VideoDir,
		notifyDir:    cfg.Capture.NotificationDir,
		videoQuality: cfg.Capture.VideoQuality,
		imageQuality: cfg.Capture.ImageQuality,
		tick:         cfg.Capture.Tick(),
		stillTimeout: cfg.Capture.StopTimeout(),
		segment:      segmentLength,
		now:          time.Now,
		sleep:        time.Sleep,
	}
}

// Prepare creates the output roots.
func (t *Task) Prepare(context.Context) error {
	for _, dir := range []string{t.videoDir, t.notifyDir} {
		if err := fileutil.EnsureDir(dir); err != nil {
			return services.Wrap(services.ErrTransientIO, "capture", "prepare", "create output directory", err)
		}
	}
	return nil
}

// Step records one segment, from now until the minute changes.
func (t *Task) Step(ctx context.Context) error {
	start := t.now()
	path := SegmentPath(t.videoDir, start)
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return services.Wrap(services.ErrTransientIO, "capture", "segment", "create hour directory", err)
	}
	if err := t.camera.StartRecording(ctx, path, t.videoQuality); err != nil {
		return err
	}
	t.logger.Debug("segment started", logging.Path(path), logging.Int("minute", start.Minute()))

	slot := start.Truncate(t.segment)
	for t.now().Truncate(t.segment).Equal(slot) {
		if t.queues.Triggers != nil {
			if trigger, ok := t.queues.Triggers.TryReceive(); ok {
				t.captureStill(ctx, trigger)
			}
		}
		t.sleep(t.tick)
	}

	stopErr := t.camera.StopRecording()
	if !fileutil.Exists(path) {
		if stopErr != nil {
			return stopErr
		}
		return services.Wrap(services.ErrExternalTool, "capture", "segment", "recorder produced no file", nil)
	}
	t.queues.Videos.Send(Artifact{Path: path, Kind: KindVideo})
	t.logger.Info("segment recorded", logging.ArtifactEvent("recorded"), logging.Path(path))
	return stopErr
}

func (t *Task) captureStill(ctx context.Context, trigger Trigger) {
	taken := t.now()
	path := StillPath(t.notifyDir, taken)
	stillCtx, cancel := context.WithTimeout(ctx, t.stillTimeout)
	defer cancel()
	if err := t.camera.Still(stillCtx, path, t.imageQuality); err != nil {
		logging.ErrorWithContext(t.logger, "still capture failed", services.EventType(err),
			logging.Error(err),
			logging.Path(path),
			logging.String(logging.FieldErrorHint, "check the still command and camera"),
		)
		return
	}
	t.queues.Notifications.Send(Artifact{Path: path, Kind: KindNotification})
	t.logger.Info("still captured",
		logging.ArtifactEvent("captured"),
		logging.Path(path),
		logging.Duration("trigger_delay", taken.Sub(trigger.At)),
	)
}

// Finish stops a recording left running by a failed step.
func (t *Task) Finish(context.Context) error {
	return t.camera.Close()
}
