package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"watchpost/internal/config"
	"watchpost/internal/logging"
	"watchpost/internal/services"
)

// Camera records video segments and takes stills.
type Camera interface {
	StartRecording(ctx context.Context, path string, quality int) error
	StopRecording() error
	Still(ctx context.Context, path string, quality int) error
	Close() error
}

// CommandCamera runs configurable external programs. Arguments may contain
// {output} and {quality} placeholders.
type CommandCamera struct {
	recordArgs  []string
	stillArgs   []string
	hflip       bool
	vflip       bool
	stopTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	current *recording
}

type recording struct {
	cmd    *exec.Cmd
	path   string
	stderr *bytes.Buffer
	done   chan error
}

// NewCommandCamera builds a camera from the capture section of cfg.
func NewCommandCamera(cfg *config.Config, logger *slog.Logger) *CommandCamera {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CommandCamera{
		recordArgs:  append([]string(nil), cfg.Capture.RecordCommand...),
		stillArgs:   append([]string(nil), cfg.Capture.StillCommand...),
		hflip:       cfg.Capture.HFlip,
		vflip:       cfg.Capture.VFlip,
		stopTimeout: cfg.Capture.StopTimeout(),
		logger:      logger,
	}
}

func (c *CommandCamera) expand(template []string, path string, quality int) []string {
	args := make([]string, 0, len(template)+2)
	for _, arg := range template {
		arg = strings.ReplaceAll(arg, "{output}", path)
		arg = strings.ReplaceAll(arg, "{quality}", strconv.Itoa(quality))
		args = append(args, arg)
	}
	if c.hflip {
		args = append(args, "--hflip")
	}
	if c.vflip {
		args = append(args, "--vflip")
	}
	return args
}

// StartRecording launches the recorder writing to path.
func (c *CommandCamera) StartRecording(_ context.Context, path string, quality int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return services.Wrap(services.ErrExternalTool, "capture", "start recording", "recorder already running", nil)
	}
	if len(c.recordArgs) == 0 {
		return services.Wrap(services.ErrConfiguration, "capture", "start recording", "record_command is empty", nil)
	}
	args := c.expand(c.recordArgs, path, quality)
	cmd := exec.Command(args[0], args[1:]...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = &limitedWriter{buf: stderr, limit: 8 << 10}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "capture", "start recording", args[0], err)
	}
	rec := &recording{cmd: cmd, path: path, stderr: stderr, done: make(chan error, 1)}
	go func() { rec.done <- cmd.Wait() }()
	c.current = rec
	c.logger.Debug("recorder started", logging.String("command", args[0]), logging.Path(path))
	return nil
}

// StopRecording interrupts the recorder and waits for it to finalize the
// file. It kills the process if it ignores the interrupt.
func (c *CommandCamera) StopRecording() error {
	c.mu.Lock()
	rec := c.current
	c.current = nil
	c.mu.Unlock()
	if rec == nil {
		return nil
	}

	var waitErr error
	select {
	case waitErr = <-rec.done:
		return recorderFailure("recorder exited early", waitErr, rec.stderr)
	default:
	}

	if err := rec.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		c.logger.Debug("interrupt recorder failed", logging.Error(err))
	}
	timer := time.NewTimer(c.stopTimeout)
	defer timer.Stop()
	select {
	case waitErr = <-rec.done:
	case <-timer.C:
		_ = rec.cmd.Process.Kill()
		<-rec.done
		return services.Wrap(services.ErrExternalTool, "capture", "stop recording",
			fmt.Sprintf("recorder ignored interrupt for %s and was killed", c.stopTimeout), nil)
	}
	if waitErr != nil && !interrupted(waitErr) {
		return recorderFailure("recorder failed", waitErr, rec.stderr)
	}
	return nil
}

// Still runs the still program once.
func (c *CommandCamera) Still(ctx context.Context, path string, quality int) error {
	if len(c.stillArgs) == 0 {
		return services.Wrap(services.ErrConfiguration, "capture", "still", "still_command is empty", nil)
	}
	args := c.expand(c.stillArgs, path, quality)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = args[0]
		}
		return services.Wrap(services.ErrExternalTool, "capture", "still", detail, err)
	}
	return nil
}

// Close stops any recording in progress.
func (c *CommandCamera) Close() error {
	return c.StopRecording()
}

func interrupted(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && status.Signaled() && status.Signal() == syscall.SIGINT
}

func recorderFailure(message string, err error, stderr *bytes.Buffer) error {
	if tail := strings.TrimSpace(stderr.String()); tail != "" {
		message += ": " + lastLine(tail)
	}
	if err == nil {
		err = errors.New("exit status 0")
	}
	return services.Wrap(services.ErrExternalTool, "capture", "record", message, err)
}

func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// limitedWriter keeps the first limit bytes of recorder stderr.
type limitedWriter struct {
	mu    sync.Mutex
	buf   *bytes.Buffer
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if room := w.limit - w.buf.Len(); room > 0 {
		if len(p) > room {
			w.buf.Write(p[:room])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}
