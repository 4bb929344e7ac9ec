package logging

import (
	"log/slog"
	"time"
)

// Record is a snapshot of one log call taken on the producing goroutine.
// Attribute values are resolved before the record is queued.
type Record struct {
	Time    time.Time
	Worker  string
	Level   slog.Level
	Message string
	Attrs   []slog.Attr
}

// Slog rebuilds a slog.Record carrying the worker name and attributes.
func (r Record) Slog() slog.Record {
	rec := slog.NewRecord(r.Time, r.Level, r.Message, 0)
	if r.Worker != "" {
		rec.AddAttrs(slog.String(FieldWorker, r.Worker))
	}
	rec.AddAttrs(r.Attrs...)
	return rec
}

// Entry is an item on the log queue: either a Record or the close signal.
type Entry struct {
	record *Record
	close  bool
}

// RecordEntry wraps r for the log queue.
func RecordEntry(r Record) Entry {
	return Entry{record: &r}
}

// CloseEntry is the signal that tells the Funnel to finish.
func CloseEntry() Entry {
	return Entry{close: true}
}

// IsClose reports whether e is the close signal.
func (e Entry) IsClose() bool {
	return e.close
}

// Record returns the wrapped record. The boolean is false for the close signal.
func (e Entry) Record() (Record, bool) {
	if e.close || e.record == nil {
		return Record{}, false
	}
	return *e.record, true
}
