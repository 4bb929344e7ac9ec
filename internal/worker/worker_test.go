package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"watchpost/internal/services"
	"watchpost/internal/testsupport"
	"watchpost/internal/worker"
)

type countingTask struct {
	mu        sync.Mutex
	steps     int
	prepares  int
	prepareOK int
	finished  int
	stepErr   error
	panicOnce atomic.Bool
	ctxWorker string
}

func (c *countingTask) Prepare(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepares++
	if c.prepares <= c.prepareOK {
		return services.Wrap(services.ErrNotReady, "test", "prepare", "line high", nil)
	}
	return nil
}

func (c *countingTask) Step(ctx context.Context) error {
	if c.panicOnce.CompareAndSwap(true, false) {
		panic("boom")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps++
	if name, ok := services.WorkerFromContext(ctx); ok {
		c.ctxWorker = name
	}
	return c.stepErr
}

func (c *countingTask) Finish(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished++
	return nil
}

func (c *countingTask) counts() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prepares, c.steps, c.finished
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestWorkerLifecycleLogsAndJoins(t *testing.T) {
	rec, logger := testsupport.NewLogRecorder()
	task := &countingTask{}
	w := worker.New("sensor", task, time.Millisecond, logger)

	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUntil(t, func() bool { _, steps, _ := task.counts(); return steps >= 3 })

	if !w.Join(2 * time.Second) {
		t.Fatal("worker did not stop")
	}
	if !w.Join(time.Second) {
		t.Fatal("second join should also succeed")
	}

	_, _, finished := task.counts()
	if finished != 1 {
		t.Fatalf("expected Finish once, got %d", finished)
	}
	if rec.Count("Sensor started") != 1 || rec.Count("Sensor stopped") != 1 {
		t.Fatalf("missing lifecycle records: %v", rec.Messages())
	}
	if rec.Count("Sensor asked to exit") != 1 {
		t.Fatalf("expected exactly one exit request record, got %v", rec.Messages())
	}
	if task.ctxWorker != "sensor" {
		t.Fatalf("step context missing worker name, got %q", task.ctxWorker)
	}
}

func TestWorkerStartTwice(t *testing.T) {
	w := worker.New("convert", &countingTask{}, time.Millisecond, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Join(time.Second)
	if err := w.Start(); !errors.Is(err, worker.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestJoinNeverStartedReturnsImmediately(t *testing.T) {
	rec, logger := testsupport.NewLogRecorder()
	w := worker.New("notify", &countingTask{}, time.Millisecond, logger)
	if !w.Join(0) {
		t.Fatal("join of unstarted worker should report stopped")
	}
	if !w.Token().IsSet() {
		t.Fatal("join should still set the token")
	}
	if len(rec.Messages()) != 0 {
		t.Fatalf("unexpected records %v", rec.Messages())
	}
}

func TestPrepareRetriedUntilSuccess(t *testing.T) {
	rec, logger := testsupport.NewLogRecorder()
	task := &countingTask{prepareOK: 3}
	w := worker.New("sensor", task, time.Millisecond, logger)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUntil(t, func() bool { _, steps, _ := task.counts(); return steps >= 1 })
	w.Join(time.Second)

	prepares, _, _ := task.counts()
	if prepares != 4 {
		t.Fatalf("expected 4 prepare attempts, got %d", prepares)
	}
	if rec.Count("prepare failed") != 1 {
		t.Fatalf("repeated identical prepare failures should log once, got %v", rec.Messages())
	}
	failure, _ := rec.Find("prepare failed")
	if failure.Level != slog.LevelWarn {
		t.Fatalf("not-ready prepare should be a warning, got %v", failure.Level)
	}
	if rec.Count("Sensor ready") != 1 {
		t.Fatalf("expected ready record after recovery, got %v", rec.Messages())
	}
}

func TestStepErrorsAreLoggedAndLoopContinues(t *testing.T) {
	rec, logger := testsupport.NewLogRecorder()
	task := &countingTask{stepErr: services.Wrap(services.ErrExternalTool, "convert", "MP4Box", "exit 1", nil)}
	w := worker.New("convert", task, time.Millisecond, logger)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUntil(t, func() bool { _, steps, _ := task.counts(); return steps >= 3 })
	w.Join(time.Second)

	failure, ok := rec.Find("step failed")
	if !ok {
		t.Fatalf("expected step failure record, got %v", rec.Messages())
	}
	if failure.Level != slog.LevelError {
		t.Fatalf("external tool failure should log at error, got %v", failure.Level)
	}
	if failure.Attrs["event_type"] != "external_tool_failure" {
		t.Fatalf("unexpected event_type %q", failure.Attrs["event_type"])
	}
}

func TestStepPanicIsRecovered(t *testing.T) {
	rec, logger := testsupport.NewLogRecorder()
	task := &countingTask{}
	task.panicOnce.Store(true)
	w := worker.New("capture", task, time.Millisecond, logger)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUntil(t, func() bool { _, steps, _ := task.counts(); return steps >= 1 })
	if !w.Join(time.Second) {
		t.Fatal("worker did not stop after panic")
	}
	if _, ok := rec.Find("step failed"); !ok {
		t.Fatalf("panic not reported: %v", rec.Messages())
	}
}

func TestStopObservedBetweenSteps(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var steps atomic.Int32
	task := worker.TaskFunc(func(context.Context) error {
		if steps.Add(1) == 1 {
			close(entered)
			<-release
		}
		return nil
	})
	w := worker.New("capture", task, 0, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-entered
	w.RequestStop()
	if w.Join(20 * time.Millisecond) {
		t.Fatal("join should time out while a step is in progress")
	}
	close(release)
	if !w.Join(time.Second) {
		t.Fatal("worker did not stop after the step completed")
	}
	if got := steps.Load(); got != 1 {
		t.Fatalf("no step may start after stop was requested, ran %d", got)
	}
}

func TestBaseContextIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seen := make(chan error, 1)
	task := worker.TaskFunc(func(ctx context.Context) error {
		select {
		case seen <- ctx.Err():
		default:
		}
		return nil
	})
	w := worker.New("retention", task, time.Millisecond, nil, worker.WithBaseContext(ctx))
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Join(time.Second)
	if err := <-seen; err != nil {
		t.Fatalf("step context should not be cancelled, got %v", err)
	}
}

func TestWorkerBacksOffAfterFailedStep(t *testing.T) {
	rec, logger := testsupport.NewLogRecorder()
	var steps atomic.Int64
	failing := worker.TaskFunc(func(context.Context) error {
		steps.Add(1)
		return services.Wrap(services.ErrExternalTool, "capture", "start recording", "camera busy", nil)
	})
	w := worker.New("capture", failing, 0, logger, worker.WithErrorBackoff(40*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if !w.Join(time.Second) {
		t.Fatal("worker did not stop")
	}

	got := steps.Load()
	if got < 1 || got > 5 {
		t.Fatalf("expected a handful of attempts in 100ms, got %d", got)
	}
	if n := rec.Count("step failed"); int64(n) != got {
		t.Fatalf("expected one failure record per attempt, got %d records for %d steps", n, got)
	}
}

func TestWorkerBackoffDoesNotDelayStop(t *testing.T) {
	_, logger := testsupport.NewLogRecorder()
	attempted := make(chan struct{}, 1)
	failing := worker.TaskFunc(func(context.Context) error {
		select {
		case attempted <- struct{}{}:
		default:
		}
		return errors.New("no camera")
	})
	w := worker.New("capture", failing, 0, logger, worker.WithErrorBackoff(10*time.Second))
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-attempted

	start := time.Now()
	if !w.Join(time.Second) {
		t.Fatal("worker should stop during its backoff")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("stop took %s", elapsed)
	}
}

func TestWorkerBackoffSkippedAfterSuccess(t *testing.T) {
	_, logger := testsupport.NewLogRecorder()
	task := &countingTask{}
	w := worker.New("convert", task, time.Millisecond, logger, worker.WithErrorBackoff(10*time.Second))
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUntil(t, func() bool {
		_, steps, _ := task.counts()
		return steps >= 3
	})
	w.Join(time.Second)
}
