package sensor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// SysfsGPIO drives one GPIO line through /sys/class/gpio.
type SysfsGPIO struct {
	Root string
	Line int

	value *os.File
}

// NewSysfsGPIO returns a detector for line under root.
func NewSysfsGPIO(root string, line int) *SysfsGPIO {
	return &SysfsGPIO{Root: root, Line: line}
}

func (g *SysfsGPIO) lineDir() string {
	return filepath.Join(g.Root, "gpio"+strconv.Itoa(g.Line))
}

// Open exports the line if needed, configures it as an input with rising
// edge interrupts and opens its value file.
func (g *SysfsGPIO) Open() error {
	if g.value != nil {
		return nil
	}
	dir := g.lineDir()
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err := writeSysfs(filepath.Join(g.Root, "export"), strconv.Itoa(g.Line)); err != nil {
			return fmt.Errorf("export gpio %d: %w", g.Line, err)
		}
		if err := waitForDir(dir, time.Second); err != nil {
			return fmt.Errorf("export gpio %d: %w", g.Line, err)
		}
	}
	if err := writeSysfs(filepath.Join(dir, "direction"), "in"); err != nil {
		return fmt.Errorf("set gpio %d direction: %w", g.Line, err)
	}
	if err := writeSysfs(filepath.Join(dir, "edge"), "rising"); err != nil {
		return fmt.Errorf("set gpio %d edge: %w", g.Line, err)
	}
	value, err := os.Open(filepath.Join(dir, "value"))
	if err != nil {
		return fmt.Errorf("open gpio %d value: %w", g.Line, err)
	}
	g.value = value
	// Reading once clears any edge that was latched before arming.
	if _, err := g.Level(); err != nil {
		_ = g.Close()
		return err
	}
	return nil
}

// Level reads the line value.
func (g *SysfsGPIO) Level() (int, error) {
	if g.value == nil {
		return 0, errors.New("gpio line not open")
	}
	buf := make([]byte, 8)
	n, err := g.value.ReadAt(buf, 0)
	if err != nil && n == 0 {
		return 0, fmt.Errorf("read gpio %d value: %w", g.Line, err)
	}
	switch strings.TrimSpace(string(buf[:n])) {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	default:
		return 0, fmt.Errorf("gpio %d: unexpected value %q", g.Line, buf[:n])
	}
}

// Triggered polls the value file for a pending edge without blocking. The
// kernel signals edges with POLLPRI; the value must be re-read to re-arm.
func (g *SysfsGPIO) Triggered() (bool, error) {
	if g.value == nil {
		return false, errors.New("gpio line not open")
	}
	fds := []unix.PollFd{{Fd: int32(g.value.Fd()), Events: unix.POLLPRI | unix.POLLERR}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return false, nil
		}
		return false, fmt.Errorf("poll gpio %d: %w", g.Line, err)
	}
	if n == 0 || fds[0].Revents&unix.POLLPRI == 0 {
		return false, nil
	}
	if _, err := g.Level(); err != nil {
		return false, err
	}
	return true, nil
}

// Close releases the value file. The line stays exported.
func (g *SysfsGPIO) Close() error {
	if g.value == nil {
		return nil
	}
	err := g.value.Close()
	g.value = nil
	return err
}

func writeSysfs(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func waitForDir(dir string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s did not appear", dir)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
