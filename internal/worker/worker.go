package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"watchpost/internal/logging"
	"watchpost/internal/services"
)

// ErrAlreadyStarted is returned when Start is called twice on one worker.
var ErrAlreadyStarted = errors.New("worker already started")

// Task performs one bounded unit of work per call.
type Task interface {
	Step(ctx context.Context) error
}

// Preparer is implemented by tasks that need setup before the first step.
// Prepare is retried on every iteration until it returns nil.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Finisher is implemented by tasks that release resources when the loop ends.
type Finisher interface {
	Finish(ctx context.Context) error
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func(ctx context.Context) error

// Step calls f(ctx).
func (f TaskFunc) Step(ctx context.Context) error { return f(ctx) }

// Option configures optional Worker behavior.
type Option func(*Worker)

// WithBaseContext sets the context passed to Prepare, Step and Finish. Its
// cancellation is ignored; only the token stops the worker.
func WithBaseContext(ctx context.Context) Option {
	return func(w *Worker) {
		if ctx != nil {
			w.baseCtx = context.WithoutCancel(ctx)
		}
	}
}

// WithErrorBackoff makes the loop wait at least d after a failed Prepare or
// Step instead of its normal interval.
func WithErrorBackoff(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.errorBackoff = d
		}
	}
}

// Worker is a handle on one running task.
type Worker struct {
	name     string
	display  string
	task     Task
	interval time.Duration
	logger   *slog.Logger
	baseCtx  context.Context

	errorBackoff time.Duration

	token   *Token
	done    chan struct{}
	started atomic.Bool
	askOnce sync.Once
}

// New constructs a stopped worker. A nil logger discards output.
func New(name string, task Task, interval time.Duration, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval < 0 {
		interval = 0
	}
	w := &Worker{
		name:     name,
		display:  cases.Title(language.English).String(name),
		task:     task,
		interval: interval,
		logger:   logger,
		baseCtx:  context.Background(),
		token:    NewToken(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.baseCtx = services.WithWorker(w.baseCtx, name)
	return w
}

// Name returns the lower-case worker name.
func (w *Worker) Name() string { return w.name }

// DisplayName returns the title-cased name used in lifecycle records.
func (w *Worker) DisplayName() string { return w.display }

// Token exposes the worker's stop flag.
func (w *Worker) Token() *Token { return w.token }

// Done is closed once the worker loop has returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Started reports whether Start succeeded.
func (w *Worker) Started() bool { return w.started.Load() }

// Start launches the worker goroutine.
func (w *Worker) Start() error {
	if w.task == nil {
		return fmt.Errorf("%s: no task configured", w.name)
	}
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", w.name, ErrAlreadyStarted)
	}
	go w.run()
	return nil
}

// RequestStop sets the token without waiting.
func (w *Worker) RequestStop() {
	w.token.Set()
}

// Join asks the worker to exit and waits for its loop to return. A zero
// timeout waits indefinitely. The result reports whether the worker stopped
// within the timeout.
func (w *Worker) Join(timeout time.Duration) bool {
	if !w.started.Load() {
		w.RequestStop()
		return true
	}
	w.askOnce.Do(func() {
		w.logger.Info(w.display + " asked to exit")
	})
	w.RequestStop()
	if timeout <= 0 {
		<-w.done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.done:
		return true
	case <-timer.C:
		return false
	}
}

func (w *Worker) run() {
	defer close(w.done)
	w.logger.Info(w.display + " started")

	preparer, needsPrepare := w.task.(Preparer)
	var lastPrepareErr string
	for !w.token.IsSet() {
		var err error
		if needsPrepare {
			err = w.guard("prepare", func() error { return preparer.Prepare(w.baseCtx) })
			if err == nil {
				needsPrepare = false
				if lastPrepareErr != "" {
					w.logger.Info(w.display + " ready")
				}
			} else if msg := err.Error(); msg != lastPrepareErr {
				lastPrepareErr = msg
				w.report("prepare failed", err)
			} else {
				w.logger.Debug("prepare still failing", logging.Error(err))
			}
		} else if err = w.guard("step", func() error { return w.task.Step(w.baseCtx) }); err != nil {
			w.report("step failed", err)
		}
		if w.token.Wait(w.pause(err != nil)) {
			break
		}
	}

	if finisher, ok := w.task.(Finisher); ok {
		if err := w.guard("finish", func() error { return finisher.Finish(w.baseCtx) }); err != nil {
			w.report("finish failed", err)
		}
	}
	w.logger.Info(w.display + " stopped")
}

func (w *Worker) pause(failed bool) time.Duration {
	if failed && w.errorBackoff > w.interval {
		return w.errorBackoff
	}
	return w.interval
}

// guard runs fn and converts a panic into an error.
func (w *Worker) guard(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %s panicked: %v", w.name, phase, r)
		}
	}()
	return fn()
}

func (w *Worker) report(msg string, err error) {
	attrs := []logging.Attr{
		logging.Error(err),
		logging.String(logging.FieldEventType, services.EventType(err)),
	}
	if services.Severity(err) <= slog.LevelWarn {
		logging.WarnWithContext(w.logger, msg, services.EventType(err),
			append(attrs,
				logging.String(logging.FieldErrorHint, "the next iteration retries"),
				logging.String(logging.FieldImpact, "this unit of work was skipped"),
			)...)
		return
	}
	logging.ErrorWithContext(w.logger, msg, services.EventType(err),
		append(attrs, logging.String(logging.FieldErrorHint, "see error for details"))...)
}
