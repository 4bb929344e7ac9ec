package ledger

import (
	"context"
	"log/slog"
	"strings"

	"watchpost/internal/logging"
)

// Handler is a slog.Handler that journals records tagged with
// logging.FieldArtifactEvent and ignores everything else.
type Handler struct {
	store *Store
	attrs []slog.Attr
}

// NewHandler returns a journal handler over store.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Enabled(context.Context, slog.Level) bool {
	return h.store != nil
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	ev := Event{Time: record.Time}
	var detail []string
	collect := func(attr slog.Attr) {
		attr.Value = attr.Value.Resolve()
		switch attr.Key {
		case logging.FieldArtifactEvent:
			ev.Name = attr.Value.String()
		case logging.FieldWorker:
			ev.Worker = attr.Value.String()
		case logging.FieldPath:
			ev.Path = attr.Value.String()
		case logging.FieldRunID:
		default:
			detail = append(detail, attr.Key+"="+attr.Value.String())
		}
	}
	for _, attr := range h.attrs {
		collect(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		collect(attr)
		return true
	})
	if ev.Name == "" {
		return nil
	}
	if len(detail) == 0 {
		ev.Detail = record.Message
	} else {
		ev.Detail = record.Message + " " + strings.Join(detail, " ")
	}
	_, err := h.store.Append(ctx, ev)
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{store: h.store, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

// WithGroup is a no-op: journal fields are always top-level.
func (h *Handler) WithGroup(string) slog.Handler { return h }
