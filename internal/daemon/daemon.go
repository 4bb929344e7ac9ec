package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"watchpost/internal/capture"
	"watchpost/internal/config"
	"watchpost/internal/convert"
	"watchpost/internal/deps"
	"watchpost/internal/fileutil"
	"watchpost/internal/ledger"
	"watchpost/internal/logging"
	"watchpost/internal/mq"
	"watchpost/internal/notifications"
	"watchpost/internal/notify"
	"watchpost/internal/retention"
	"watchpost/internal/sensor"
	"watchpost/internal/services"
	"watchpost/internal/worker"
)

// Worker names, also used as the "worker" log field.
const (
	SensorWorker    = "sensor"
	CaptureWorker   = "capture"
	ConvertWorker   = "convert"
	NotifyWorker    = "notify"
	RetentionWorker = "retention"
	daemonWorker    = "watchpost"
)

// ErrAlreadyRunning reports that another instance holds the lock.
var ErrAlreadyRunning = errors.New("another watchpost instance is already running")

// Backends are the external collaborators of the workers. Nil fields are
// built from the configuration.
type Backends struct {
	Detector  sensor.Detector
	Camera    capture.Camera
	Converter convert.Converter
	Sender    notifications.Sender
}

// Options configures daemon construction.
type Options struct {
	// RecordOnly runs capture and convert without sensor, notify or retention.
	RecordOnly bool
	Backends   Backends
	// Console receives a copy of the log when logging.console is set.
	// Defaults to stdout.
	Console io.Writer
	// Fallback receives funnel write failures. Defaults to stderr.
	Fallback io.Writer
}

// Status reports daemon runtime information.
type Status struct {
	Running       bool
	RunID         string
	RecordOnly    bool
	LockFile      string
	Triggers      int
	Notifications int
	Videos        int
	PendingLogs   int
	LogsWritten   int64
}

// Daemon wires queues, workers and the log funnel into one lifecycle.
type Daemon struct {
	cfg        *config.Config
	recordOnly bool
	runID      string

	logQueue      *mq.Queue[logging.Entry]
	triggers      *mq.Queue[capture.Trigger]
	notifications *mq.Queue[capture.Artifact]
	videos        *mq.Queue[capture.Artifact]

	logFile *logging.RotatingWriter
	journal *ledger.Store
	funnel  *logging.Funnel
	logger  *slog.Logger

	sensor    *worker.Worker
	capture   *worker.Worker
	convert   *worker.Worker
	notify    *worker.Worker
	retention *worker.Worker

	lock         *flock.Flock
	running      atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
	sinksOnce    sync.Once
}

// New constructs a daemon with all queues, loggers and workers built but not
// started.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires a configuration")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "init", "create directories", err)
	}

	d := &Daemon{
		cfg:           cfg,
		recordOnly:    opts.RecordOnly,
		runID:         uuid.NewString(),
		logQueue:      mq.New[logging.Entry]("log"),
		triggers:      mq.New[capture.Trigger]("triggers"),
		notifications: mq.New[capture.Artifact]("notifications"),
		videos:        mq.New[capture.Artifact]("videos"),
		lock:          flock.New(cfg.Paths.LockFile),
	}
	if err := d.buildFunnel(opts); err != nil {
		d.closeSinks()
		return nil, err
	}
	d.logger = logging.NewQueueLogger(d.logQueue, daemonWorker, cfg.LevelFor("")).
		With(logging.String(logging.FieldRunID, d.runID))
	d.buildWorkers(opts.Backends)
	return d, nil
}

func (d *Daemon) buildFunnel(opts Options) error {
	logFile, err := logging.NewRotatingWriter(d.cfg.Logging.File, d.cfg.Logging.BackupCount, d.cfg.Logging.MaxSizeMB)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "init", "open log file", err)
	}
	d.logFile = logFile

	writers := []io.Writer{logFile}
	if d.cfg.Logging.Console {
		console := opts.Console
		if console == nil {
			console = os.Stdout
		}
		writers = append(writers, console)
	}
	var extra []slog.Handler
	if d.cfg.Logging.Journal != "" {
		store, err := ledger.Open(d.cfg.Logging.Journal)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "daemon", "init", "open activity journal", err)
		}
		d.journal = store
		extra = append(extra, ledger.NewHandler(store))
	}

	sink, err := logging.NewHandler(logging.Options{
		Level:   slog.LevelDebug,
		Format:  d.cfg.Logging.Format,
		Writers: writers,
		Extra:   extra,
	})
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "init", "build log sink", err)
	}
	d.funnel = logging.NewFunnel(d.logQueue, sink, opts.Fallback)
	return nil
}

func (d *Daemon) buildWorkers(b Backends) {
	cfg := d.cfg
	base := services.WithRunID(context.Background(), d.runID)
	queueLogger := func(name string, level config.Level) *slog.Logger {
		return logging.NewQueueLogger(d.logQueue, name, cfg.LevelFor(level))
	}

	captureLog := queueLogger(CaptureWorker, cfg.Capture.LogLevel)
	if b.Camera == nil {
		b.Camera = capture.NewCommandCamera(cfg, captureLog)
	}
	triggers := d.triggers
	if d.recordOnly {
		triggers = nil
	}
	d.capture = worker.New(CaptureWorker,
		capture.NewTask(cfg, b.Camera, capture.Queues{
			Triggers:      triggers,
			Notifications: d.notifications,
			Videos:        d.videos,
		}, captureLog),
		0, captureLog, worker.WithBaseContext(base), worker.WithErrorBackoff(cfg.Capture.Retry()))

	convertLog := queueLogger(ConvertWorker, cfg.Convert.LogLevel)
	if b.Converter == nil {
		b.Converter = convert.NewMP4Box(cfg.Convert.Binary, cfg.Convert.Timeout())
	}
	d.convert = worker.New(ConvertWorker, convert.NewTask(b.Converter, d.videos, convertLog),
		cfg.Convert.PollInterval(), convertLog, worker.WithBaseContext(base))

	if d.recordOnly {
		return
	}

	if cfg.Sensor.Enabled {
		sensorLog := queueLogger(SensorWorker, cfg.Sensor.LogLevel)
		if b.Detector == nil {
			b.Detector = sensor.NewSysfsGPIO(cfg.Sensor.GPIORoot, cfg.Sensor.Line())
		}
		d.sensor = worker.New(SensorWorker, sensor.NewTask(cfg, b.Detector, d.triggers, sensorLog),
			cfg.Sensor.PollInterval(), sensorLog, worker.WithBaseContext(base))
	}

	notifyLog := queueLogger(NotifyWorker, cfg.Notify.LogLevel)
	if b.Sender == nil {
		b.Sender = notifications.NewSender(cfg)
	}
	d.notify = worker.New(NotifyWorker, notify.NewTask(b.Sender, d.notifications, cfg.Notify.Subject, notifyLog),
		cfg.Notify.PollInterval(), notifyLog, worker.WithBaseContext(base))

	if cfg.Retention.Enabled {
		retentionLog := queueLogger(RetentionWorker, cfg.Retention.LogLevel)
		d.retention = worker.New(RetentionWorker, retention.NewTask(cfg, retentionLog),
			cfg.Retention.Interval(), retentionLog, worker.WithBaseContext(base))
	}
}

// workers lists the configured workers in start order: consumers before the
// producers feeding them.
func (d *Daemon) workers() []*worker.Worker {
	var out []*worker.Worker
	for _, w := range []*worker.Worker{d.retention, d.convert, d.notify, d.capture, d.sensor} {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

// Run acquires the instance lock, starts the funnel and workers, blocks until
// ctx is done and then performs the ordered shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)
	defer d.closeSinks()

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() { _ = d.lock.Unlock() }()

	if pid := d.cfg.Paths.PIDFile; pid != "" {
		if err := fileutil.WriteFileAtomic(pid, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer os.Remove(pid)
	}

	if err := d.funnel.Start(); err != nil {
		return err
	}
	mode := "full"
	if d.recordOnly {
		mode = "record-only"
	}
	d.logger.Info("watchpost starting",
		logging.String("mode", mode),
		logging.String("lock", d.cfg.Paths.LockFile),
		logging.String("notify_transport", notifications.Describe(d.cfg)),
	)
	d.logDependencySnapshot()

	for _, w := range d.workers() {
		if err := w.Start(); err != nil {
			logging.ErrorWithContext(d.logger, "worker start failed", "daemon_start_failed",
				logging.String("target", w.Name()),
				logging.Error(err),
			)
			_ = d.Shutdown()
			return err
		}
	}

	<-ctx.Done()
	d.logger.Info("shutdown requested")
	return d.Shutdown()
}

// Shutdown runs the ordered stop protocol once. Later calls return the first
// result. Called without Run, it also releases the log file and journal.
func (d *Daemon) Shutdown() error {
	if !d.running.Load() {
		defer d.closeSinks()
	}
	d.shutdownOnce.Do(func() {
		d.stop(d.sensor)
		d.stop(d.capture)
		d.stop(d.notify)
		if grace := d.cfg.Shutdown.Grace(); grace > 0 && d.convert.Started() {
			d.logger.Debug("waiting before stopping convert", logging.Duration("grace", grace))
			time.Sleep(grace)
		}
		d.stop(d.convert)
		d.stop(d.retention)

		d.logger.Info("all workers stopped", logging.Int("pending_videos", d.videos.Len()))
		if !d.funnel.Close(d.cfg.Shutdown.JoinTimeout()) {
			d.shutdownErr = errors.New("log funnel did not stop in time")
		}
	})
	return d.shutdownErr
}

func (d *Daemon) stop(w *worker.Worker) {
	if w == nil {
		return
	}
	timeout := d.cfg.Shutdown.JoinTimeout()
	if w.Join(timeout) {
		return
	}
	logging.WarnWithContext(d.logger, "worker did not stop in time", "shutdown_timeout",
		logging.String("target", w.Name()),
		logging.Duration("timeout", timeout),
		logging.String(logging.FieldErrorHint, "an external tool may be hung"),
		logging.String(logging.FieldImpact, "shutdown continued without this worker"),
	)
}

func (d *Daemon) closeSinks() {
	d.sinksOnce.Do(d.releaseSinks)
}

func (d *Daemon) releaseSinks() {
	if d.logFile != nil {
		if err := d.logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "watchpost: close log file: %v\n", err)
		}
		d.logFile = nil
	}
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "watchpost: close journal: %v\n", err)
		}
		d.journal = nil
	}
}

// Status returns a snapshot of daemon state.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		RunID:         d.runID,
		RecordOnly:    d.recordOnly,
		LockFile:      d.cfg.Paths.LockFile,
		Triggers:      d.triggers.Len(),
		Notifications: d.notifications.Len(),
		Videos:        d.videos.Len(),
		PendingLogs:   d.logQueue.Len(),
		LogsWritten:   d.funnel.Written(),
	}
}

func (d *Daemon) logDependencySnapshot() {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range deps.CheckBinaries(deps.Requirements(d.cfg, d.recordOnly)) {
		key := snakeCase(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	attrs = append(attrs,
		logging.Bool("sensor_enabled", d.cfg.Sensor.Enabled && !d.recordOnly),
		logging.Bool("retention_enabled", d.cfg.Retention.Enabled && !d.recordOnly),
	)
	d.logger.Info("dependency snapshot", logging.Args(attrs...)...)
}

func snakeCase(name string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(name))
}
