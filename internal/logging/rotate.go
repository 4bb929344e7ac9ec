package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingWriter is the funnel's file destination. It rolls the file over at
// local midnight and whenever lumberjack's size limit is reached, keeping a
// fixed number of old files.
type RotatingWriter struct {
	mu         sync.Mutex
	file       *lumberjack.Logger
	now        func() time.Time
	nextRotate time.Time
}

// NewRotatingWriter opens (or creates) path. backups is the number of rotated
// files kept; maxSizeMB of zero uses lumberjack's default of 100 MB.
func NewRotatingWriter(path string, backups, maxSizeMB int) (*RotatingWriter, error) {
	return newRotatingWriter(path, backups, maxSizeMB, time.Now)
}

func newRotatingWriter(path string, backups, maxSizeMB int, now func() time.Time) (*RotatingWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	if backups < 0 {
		backups = 0
	}
	w := &RotatingWriter{
		file: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: backups,
			LocalTime:  true,
		},
		now: now,
	}
	current := now()
	w.nextRotate = nextMidnight(current)
	// A file left over from an earlier day rolls over on the first write.
	if info, err := os.Stat(path); err == nil && info.Size() > 0 && info.ModTime().Before(startOfDay(current)) {
		w.nextRotate = startOfDay(current)
	}
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if current := w.now(); !current.Before(w.nextRotate) {
		if err := w.file.Rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
		w.nextRotate = nextMidnight(current)
	}
	return w.file.Write(p)
}

// Rotate forces a rollover.
func (w *RotatingWriter) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Rotate()
}

// Close closes the current file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
