package convert

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"watchpost/internal/services"
)

// Converter turns an h264 elementary stream into an mp4 file.
type Converter interface {
	Convert(ctx context.Context, input, output string) error
}

// Executor abstracts command execution for the converter.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// MP4Box wraps the GPAC MP4Box remuxer.
type MP4Box struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// NewMP4Box constructs a converter for binary. A zero timeout disables the
// per-run deadline.
func NewMP4Box(binary string, timeout time.Duration) *MP4Box {
	return NewMP4BoxWithExecutor(binary, timeout, nil)
}

// NewMP4BoxWithExecutor allows injecting a custom executor for testing.
func NewMP4BoxWithExecutor(binary string, timeout time.Duration, executor Executor) *MP4Box {
	if executor == nil {
		executor = commandExecutor{}
	}
	return &MP4Box{binary: strings.TrimSpace(binary), timeout: timeout, exec: executor}
}

// Convert runs MP4Box -add input output.
func (m *MP4Box) Convert(ctx context.Context, input, output string) error {
	if m.binary == "" {
		return services.Wrap(services.ErrConfiguration, "convert", "mp4box", "binary not configured", nil)
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	args := []string{"-quiet", "-noprog", "-add", input, output}
	out, err := m.exec.Run(ctx, m.binary, args)
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if ctx.Err() != nil {
			detail = "timed out after " + m.timeout.String()
		}
		if detail == "" {
			detail = "mp4box failed"
		}
		return services.Wrap(services.ErrExternalTool, "convert", "mp4box", detail, err)
	}
	return nil
}
