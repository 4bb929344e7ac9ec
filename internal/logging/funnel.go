package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"watchpost/internal/mq"
)

// FunnelWorker is the worker name stamped on records the Funnel writes itself.
const FunnelWorker = "funnel"

// Funnel is the single consumer of the log queue.
type Funnel struct {
	queue    *mq.Queue[Entry]
	sink     slog.Handler
	fallback io.Writer

	started   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	written   atomic.Int64
}

// NewFunnel wires a funnel between queue and sink. Failures to write a record
// are reported to fallback, stderr when nil.
func NewFunnel(queue *mq.Queue[Entry], sink slog.Handler, fallback io.Writer) *Funnel {
	if sink == nil {
		sink = NoopHandler{}
	}
	if fallback == nil {
		fallback = os.Stderr
	}
	return &Funnel{
		queue:    queue,
		sink:     sink,
		fallback: fallback,
		done:     make(chan struct{}),
	}
}

// Start launches the funnel goroutine.
func (f *Funnel) Start() error {
	if f.queue == nil {
		return errors.New("log funnel: no queue")
	}
	if !f.started.CompareAndSwap(false, true) {
		return errors.New("log funnel already started")
	}
	go f.run()
	return nil
}

// Close enqueues the close signal, once, and waits up to timeout for the
// funnel to drain everything queued before it. A zero timeout waits
// indefinitely. Records enqueued after the close signal are not written.
func (f *Funnel) Close(timeout time.Duration) bool {
	f.closeOnce.Do(func() {
		if f.queue != nil {
			f.queue.Send(CloseEntry())
		}
	})
	if !f.started.Load() {
		return true
	}
	if timeout <= 0 {
		<-f.done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.done:
		return true
	case <-timer.C:
		return false
	}
}

// Done is closed when the funnel goroutine has returned.
func (f *Funnel) Done() <-chan struct{} { return f.done }

// Written reports how many records reached the sink.
func (f *Funnel) Written() int64 { return f.written.Load() }

func (f *Funnel) run() {
	defer close(f.done)
	ctx := context.Background()
	for {
		entry, err := f.queue.Receive(ctx)
		if err != nil {
			f.report(fmt.Errorf("receive: %w", err))
			return
		}
		if entry.IsClose() {
			f.write(ctx, Record{
				Time:    time.Now(),
				Worker:  FunnelWorker,
				Level:   slog.LevelInfo,
				Message: "log funnel stopped",
			})
			return
		}
		if rec, ok := entry.Record(); ok {
			f.write(ctx, rec)
		}
	}
}

func (f *Funnel) write(ctx context.Context, rec Record) {
	defer func() {
		if r := recover(); r != nil {
			f.report(fmt.Errorf("format record %q: %v", rec.Message, r))
		}
	}()
	if !f.sink.Enabled(ctx, rec.Level) {
		return
	}
	if err := f.sink.Handle(ctx, rec.Slog()); err != nil {
		f.report(fmt.Errorf("write record %q: %w", rec.Message, err))
		return
	}
	f.written.Add(1)
}

func (f *Funnel) report(err error) {
	fmt.Fprintf(f.fallback, "watchpost: log funnel: %v\n", err)
}
