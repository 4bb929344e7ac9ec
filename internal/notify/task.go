package notify

import (
	"context"
	"log/slog"
	"time"

	"watchpost/internal/capture"
	"watchpost/internal/logging"
	"watchpost/internal/mq"
	"watchpost/internal/notifications"
	"watchpost/internal/services"
)

// Task is the notify worker body.
type Task struct {
	sender  notifications.Sender
	stills  *mq.Queue[capture.Artifact]
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// NewTask wires sender to the notification artifact queue.
func NewTask(sender notifications.Sender, stills *mq.Queue[capture.Artifact], subject string, logger *slog.Logger) *Task {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Task{sender: sender, stills: stills, subject: subject, logger: logger, now: time.Now}
}

// Step delivers at most one pending still.
func (t *Task) Step(ctx context.Context) error {
	artifact, ok := t.stills.TryReceive()
	if !ok {
		return nil
	}
	taken, ok := capture.StillTime(artifact.Path)
	if !ok {
		taken = t.now()
	}
	msg := notifications.MotionMessage(t.subject, artifact.Path, taken)
	started := t.now()
	if err := t.sender.Send(ctx, msg); err != nil {
		logging.ErrorWithContext(t.logger, "notification failed", services.EventType(err),
			logging.Error(err),
			logging.Path(artifact.Path),
			logging.String(logging.FieldErrorHint, "check notify transport settings"),
		)
		return nil
	}
	t.logger.Info("notification sent",
		logging.ArtifactEvent("notified"),
		logging.Path(artifact.Path),
		logging.Duration("elapsed", t.now().Sub(started)),
	)
	return nil
}
