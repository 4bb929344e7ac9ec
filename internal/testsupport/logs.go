package testsupport

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LoggedRecord is one captured log call with its attributes flattened.
type LoggedRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogRecorder is a slog.Handler that keeps every record in memory.
type LogRecorder struct {
	mu      *sync.Mutex
	records *[]LoggedRecord
	attrs   []slog.Attr
}

// NewLogRecorder returns a recorder and a debug-level logger writing to it.
func NewLogRecorder() (*LogRecorder, *slog.Logger) {
	rec := &LogRecorder{mu: &sync.Mutex{}, records: &[]LoggedRecord{}}
	return rec, slog.New(rec)
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(r.attrs)+record.NumAttrs())
	for _, attr := range r.attrs {
		attrs[attr.Key] = attr.Value.String()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.String()
		return true
	})
	r.mu.Lock()
	*r.records = append(*r.records, LoggedRecord{Level: record.Level, Message: record.Message, Attrs: attrs})
	r.mu.Unlock()
	return nil
}

func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, r.attrs...), attrs...)
	return &LogRecorder{mu: r.mu, records: r.records, attrs: merged}
}

func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Records returns a copy of everything captured so far.
func (r *LogRecorder) Records() []LoggedRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LoggedRecord(nil), (*r.records)...)
}

// Messages returns the captured messages in order.
func (r *LogRecorder) Messages() []string {
	records := r.Records()
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Message)
	}
	return out
}

// Count reports how many records carry msg.
func (r *LogRecorder) Count(msg string) int {
	n := 0
	for _, rec := range r.Records() {
		if rec.Message == msg {
			n++
		}
	}
	return n
}

// Find returns the first record whose message contains substr.
func (r *LogRecorder) Find(substr string) (LoggedRecord, bool) {
	for _, rec := range r.Records() {
		if strings.Contains(rec.Message, substr) {
			return rec, true
		}
	}
	return LoggedRecord{}, false
}

// WaitFor polls until a record with msg appears or the timeout passes.
func (r *LogRecorder) WaitFor(msg string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if r.Count(msg) > 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
