package retention

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"watchpost/internal/capture"
	"watchpost/internal/logging"
)

// Options configures a single sweep.
type Options struct {
	NotificationDir string
	VideoDir        string
	Horizon         time.Duration
	Now             time.Time
}

// Result contains the outcome of a sweep.
type Result struct {
	Removed     []string
	RemovedDirs []string
	Errors      []SweepError
}

// SweepError pairs a path with the error encountered handling it.
type SweepError struct {
	Path  string
	Error error
}

var (
	stillExts = []string{".jpg"}
	videoExts = []string{".h264", ".mp4"}
)

// Sweep removes expired artifacts and prunes empty video directories.
func Sweep(opts Options, logger *slog.Logger) Result {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	cutoff := opts.Now.Add(-opts.Horizon)
	result := Result{}

	if dir := strings.TrimSpace(opts.NotificationDir); dir != "" {
		sweepStills(dir, cutoff, logger, &result)
	}
	if dir := strings.TrimSpace(opts.VideoDir); dir != "" {
		sweepVideos(dir, cutoff, protectedDirs(dir, opts.Now), logger, &result)
	}
	return result
}

func sweepStills(root string, cutoff time.Time, logger *slog.Logger, result *Result) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.fail(logger, root, err)
		}
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !hasExt(entry.Name(), stillExts) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		removeIfExpired(path, entry, cutoff, logger, result)
	}
}

func sweepVideos(root string, cutoff time.Time, protected []string, logger *slog.Logger, result *Result) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			result.fail(logger, path, err)
			return nil
		}
		if entry.IsDir() {
			if path != root {
				dirs = append(dirs, path)
			}
			return nil
		}
		if hasExt(entry.Name(), videoExts) {
			removeIfExpired(path, entry, cutoff, logger, result)
		}
		return nil
	})
	if err != nil {
		result.fail(logger, root, err)
	}

	// WalkDir visits parents before children, so the reverse order is
	// bottom-up.
	for _, dir := range slices.Backward(dirs) {
		if slices.Contains(protected, dir) {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.fail(logger, dir, err)
			}
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			result.fail(logger, dir, err)
			continue
		}
		result.RemovedDirs = append(result.RemovedDirs, dir)
		logger.Debug("removed empty directory", logging.Path(dir))
	}
}

func removeIfExpired(path string, entry fs.DirEntry, cutoff time.Time, logger *slog.Logger, result *Result) {
	info, err := entry.Info()
	if err != nil {
		if !os.IsNotExist(err) {
			result.fail(logger, path, err)
		}
		return
	}
	if !info.ModTime().Before(cutoff) {
		return
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			result.fail(logger, path, err)
		}
		return
	}
	result.Removed = append(result.Removed, path)
	logger.Info("artifact expired",
		logging.ArtifactEvent("expired"),
		logging.Path(path),
		logging.Duration("age", cutoff.Sub(info.ModTime())),
	)
}

// protectedDirs lists the date and hour directories capture writes into now
// and at the next minute boundary.
func protectedDirs(root string, now time.Time) []string {
	var out []string
	for _, at := range []time.Time{now, now.Add(time.Minute)} {
		hour := filepath.Dir(capture.SegmentPath(root, at))
		out = append(out, hour, filepath.Dir(hour))
	}
	return out
}

func hasExt(name string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
}

func (r *Result) fail(logger *slog.Logger, path string, err error) {
	r.Errors = append(r.Errors, SweepError{Path: path, Error: err})
	logging.WarnWithContext(logger, "retention sweep failed for path", "transient_io_failure",
		logging.Path(path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions on the capture directories"),
		logging.String(logging.FieldImpact, "disk space not reclaimed"),
	)
}
