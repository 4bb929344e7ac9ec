package logging_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"watchpost/internal/logging"
	"watchpost/internal/mq"
	"watchpost/internal/services"
)

type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "poison" {
		return errors.New("disk full")
	}
	return nil
}
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h failingHandler) WithGroup(string) slog.Handler      { return h }

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEntryVariants(t *testing.T) {
	closeEntry := logging.CloseEntry()
	if !closeEntry.IsClose() {
		t.Fatal("close entry should report IsClose")
	}
	if _, ok := closeEntry.Record(); ok {
		t.Fatal("close entry must not carry a record")
	}
	entry := logging.RecordEntry(logging.Record{Message: "hi", Worker: "sensor"})
	rec, ok := entry.Record()
	if entry.IsClose() || !ok || rec.Message != "hi" {
		t.Fatalf("unexpected record entry %+v", rec)
	}
}

func TestQueueLoggerSnapshotsRecords(t *testing.T) {
	queue := mq.New[logging.Entry]("logs")
	logger := logging.NewQueueLogger(queue, "capture", slog.LevelInfo)

	logger.Debug("dropped")
	logger.With(logging.String("segment", "15.h264")).WithGroup("still").Info("captured", logging.Int("quality", 90))
	ctx := services.WithRunID(context.Background(), "run-1")
	logger.InfoContext(ctx, "with run id")

	if queue.Len() != 2 {
		t.Fatalf("expected 2 queued entries, got %d", queue.Len())
	}
	first, _ := queue.TryReceive()
	rec, ok := first.Record()
	if !ok {
		t.Fatal("expected a record entry")
	}
	if rec.Worker != "capture" || rec.Message != "captured" || rec.Level != slog.LevelInfo {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(rec.Attrs) != 2 || rec.Attrs[0].Key != "segment" || rec.Attrs[1].Key != "still" {
		t.Fatalf("unexpected attrs %v", rec.Attrs)
	}
	if got := rec.Attrs[1].Value.Group()[0]; got.Key != "quality" || got.Value.Int64() != 90 {
		t.Fatalf("grouped attr not preserved: %v", got)
	}

	second, _ := queue.TryReceive()
	rec, _ = second.Record()
	found := false
	for _, attr := range rec.Attrs {
		if attr.Key == logging.FieldRunID && attr.Value.String() == "run-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("run id from context not captured: %v", rec.Attrs)
	}
}

func TestFunnelWritesInOrderAndStopsOnClose(t *testing.T) {
	queue := mq.New[logging.Entry]("logs")
	var out lockedBuffer
	sink, err := logging.NewHandler(logging.Options{Level: slog.LevelDebug, Writers: []io.Writer{&out}})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	funnel := logging.NewFunnel(queue, sink, io.Discard)
	if err := funnel.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := funnel.Start(); err == nil {
		t.Fatal("second start should fail")
	}

	sensor := logging.NewQueueLogger(queue, "sensor", slog.LevelDebug)
	capture := logging.NewQueueLogger(queue, "capture", slog.LevelDebug)
	sensor.Info("Sensor started")
	capture.Info("Capture started")
	sensor.Info("motion detected")

	if !funnel.Close(2 * time.Second) {
		t.Fatal("funnel did not stop")
	}
	if !funnel.Close(time.Second) {
		t.Fatal("second close should also report stopped")
	}

	closes := 0
	for queue.Len() > 0 {
		entry, _ := queue.TryReceive()
		if entry.IsClose() {
			closes++
		}
	}
	if closes != 0 {
		t.Fatalf("close entry enqueued more than once (%d left over)", closes)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{"sensor: Sensor started", "capture: Capture started", "sensor: motion detected", "funnel: log funnel stopped"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), out.String())
	}
	for i, suffix := range want {
		if !strings.HasSuffix(lines[i], suffix) {
			t.Fatalf("line %d = %q, want suffix %q", i, lines[i], suffix)
		}
	}
	if funnel.Written() != 4 {
		t.Fatalf("expected 4 written records, got %d", funnel.Written())
	}
}

func TestFunnelReportsSinkFailuresAndContinues(t *testing.T) {
	queue := mq.New[logging.Entry]("logs")
	var fallback lockedBuffer
	funnel := logging.NewFunnel(queue, failingHandler{}, &fallback)
	if err := funnel.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	logger := logging.NewQueueLogger(queue, "convert", slog.LevelInfo)
	logger.Info("poison")
	logger.Info("fine")
	if !funnel.Close(2 * time.Second) {
		t.Fatal("funnel did not stop")
	}
	if !strings.Contains(fallback.String(), "disk full") {
		t.Fatalf("failure not reported to fallback: %q", fallback.String())
	}
	if funnel.Written() != 2 {
		t.Fatalf("expected the remaining records to be written, got %d", funnel.Written())
	}
}

func TestFunnelCloseWithoutStart(t *testing.T) {
	queue := mq.New[logging.Entry]("logs")
	funnel := logging.NewFunnel(queue, nil, io.Discard)
	if !funnel.Close(time.Millisecond) {
		t.Fatal("closing an unstarted funnel should not block")
	}
	if queue.Len() != 1 {
		t.Fatalf("expected the close entry to be queued once, got %d", queue.Len())
	}
}
