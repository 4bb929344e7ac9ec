package logging

import (
	"context"
	"log/slog"

	"watchpost/internal/services"
)

const (
	// FieldWorker names the worker that produced a record.
	FieldWorker = "worker"
	// FieldRunID identifies one daemon run.
	FieldRunID = "run_id"
	// FieldPath is the file an artifact record refers to.
	FieldPath = "path"
	// FieldArtifactEvent names an artifact lifecycle transition (captured, converted, ...).
	FieldArtifactEvent = "artifact_event"
	// FieldEventType classifies warnings and errors.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if worker, ok := services.WorkerFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorker, worker))
	}
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	return fields
}
