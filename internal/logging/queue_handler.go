package logging

import (
	"context"
	"log/slog"

	"watchpost/internal/mq"
)

// queueHandler turns log calls into Entry values on the log queue.
type queueHandler struct {
	queue  *mq.Queue[Entry]
	worker string
	attrs  []slog.Attr
	groups []string
}

// NewQueueLogger returns a logger whose records are enqueued for the Funnel.
// Records below level are dropped on the calling goroutine.
func NewQueueLogger(queue *mq.Queue[Entry], worker string, level slog.Level) *slog.Logger {
	base := slog.New(&queueHandler{queue: queue, worker: worker})
	return WithLevelOverride(base, level)
}

func (h *queueHandler) Enabled(context.Context, slog.Level) bool {
	return h.queue != nil
}

func (h *queueHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.queue == nil {
		return nil
	}
	own := make([]slog.Attr, 0, record.NumAttrs()+2)
	for _, attr := range ContextFields(ctx) {
		if attr.Key == FieldWorker {
			continue
		}
		own = append(own, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		own = append(own, resolveAttr(attr))
		return true
	})

	attrs := make([]slog.Attr, 0, len(h.attrs)+len(own))
	attrs = append(attrs, h.attrs...)
	attrs = append(attrs, nestInGroups(h.groups, own)...)

	h.queue.Send(RecordEntry(Record{
		Time:    record.Time,
		Worker:  h.worker,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	}))
	return nil
}

func (h *queueHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	resolved := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		resolved = append(resolved, resolveAttr(attr))
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), nestInGroups(h.groups, resolved)...)
	return &clone
}

func (h *queueHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func resolveAttr(attr slog.Attr) slog.Attr {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		members := attr.Value.Group()
		resolved := make([]slog.Attr, 0, len(members))
		for _, member := range members {
			resolved = append(resolved, resolveAttr(member))
		}
		attr.Value = slog.GroupValue(resolved...)
	}
	return attr
}

func nestInGroups(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(groups) == 0 || len(attrs) == 0 {
		return attrs
	}
	for i := len(groups) - 1; i >= 0; i-- {
		attrs = []slog.Attr{{Key: groups[i], Value: slog.GroupValue(attrs...)}}
	}
	return attrs
}
