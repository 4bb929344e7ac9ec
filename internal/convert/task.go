package convert

import (
	"context"
	"log/slog"

	"watchpost/internal/capture"
	"watchpost/internal/fileutil"
	"watchpost/internal/logging"
	"watchpost/internal/mq"
	"watchpost/internal/services"
)

// Task is the convert worker body.
type Task struct {
	converter Converter
	videos    *mq.Queue[capture.Artifact]
	logger    *slog.Logger
}

// NewTask builds the worker body converting artifacts taken from videos.
func NewTask(converter Converter, videos *mq.Queue[capture.Artifact], logger *slog.Logger) *Task {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Task{converter: converter, videos: videos, logger: logger}
}

// Step converts at most one pending segment.
func (t *Task) Step(ctx context.Context) error {
	artifact, ok := t.videos.TryReceive()
	if !ok {
		return nil
	}
	input := artifact.Path
	output := fileutil.ReplaceExt(input, ".mp4")

	if err := t.converter.Convert(ctx, input, output); err != nil {
		logging.ErrorWithContext(t.logger, "conversion failed", services.EventType(err),
			logging.Error(err),
			logging.Path(input),
			logging.String(logging.FieldErrorHint, "segment kept as h264"),
		)
		if err := fileutil.RemoveIfExists(output); err != nil {
			logging.WarnWithContext(t.logger, "remove partial conversion failed", "transient_io_failure",
				logging.Error(err),
				logging.Path(output),
				logging.String(logging.FieldImpact, "a truncated mp4 sits next to the kept h264"),
			)
		}
		return nil
	}
	t.logger.Info("segment converted", logging.ArtifactEvent("converted"), logging.Path(output),
		logging.String("source", input))

	if err := fileutil.RemoveIfExists(input); err != nil {
		logging.WarnWithContext(t.logger, "remove converted segment failed", "transient_io_failure",
			logging.Error(err),
			logging.Path(input),
		)
	}
	return nil
}
