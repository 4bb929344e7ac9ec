package notify

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"watchpost/internal/capture"
	"watchpost/internal/mq"
	"watchpost/internal/notifications"
	"watchpost/internal/services"
	"watchpost/internal/testsupport"
)

type recordingSender struct {
	sent []notifications.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg notifications.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestStepSendsOneStillPerCall(t *testing.T) {
	stills := mq.New[capture.Artifact]("notifications")
	at := time.Date(2026, 10, 15, 8, 15, 57, 0, time.Local)
	first := capture.StillPath("/n", at)
	second := capture.StillPath("/n", at.Add(2*time.Second))
	stills.Send(capture.Artifact{Path: first, Kind: capture.KindNotification})
	stills.Send(capture.Artifact{Path: second, Kind: capture.KindNotification})

	sender := &recordingSender{}
	rec, logger := testsupport.NewLogRecorder()
	task := NewTask(sender, stills, "Porch", logger)

	if err := task.Step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Attachment != first {
		t.Fatalf("expected first still only, got %+v", sender.sent)
	}
	if sender.sent[0].Subject != "Porch" || sender.sent[0].Body != "Motion detected at 2026-10-15 08:15:57" {
		t.Fatalf("unexpected message %+v", sender.sent[0])
	}
	if err := task.Step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := []string{sender.sent[0].Attachment, sender.sent[1].Attachment}; !slices.Equal(got, []string{first, second}) {
		t.Fatalf("stills delivered out of order: %v", got)
	}
	if rec.Count("notification sent") != 2 {
		t.Fatalf("expected two success records, got %v", rec.Messages())
	}
}

func TestStepDropsFailedDelivery(t *testing.T) {
	stills := mq.New[capture.Artifact]("notifications")
	stills.Send(capture.Artifact{Path: "/n/x.jpg", Kind: capture.KindNotification})
	sender := &recordingSender{err: services.Wrap(services.ErrTransport, "notify", "smtp", "connect", errors.New("refused"))}
	rec, logger := testsupport.NewLogRecorder()
	task := NewTask(sender, stills, "", logger)

	if err := task.Step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if stills.Len() != 0 {
		t.Fatal("failed still must not be requeued")
	}
	record, ok := rec.Find("notification failed")
	if !ok || record.Attrs["event_type"] != "transport_failure" {
		t.Fatalf("failure not logged as transport failure: %+v", record)
	}
	if err := task.Step(context.Background()); err != nil || len(sender.sent) != 1 {
		t.Fatalf("no retry expected, sends=%d err=%v", len(sender.sent), err)
	}
}
