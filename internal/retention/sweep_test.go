package retention

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"watchpost/internal/logging"
	"watchpost/internal/testsupport"
)

var now = time.Date(2026, 10, 15, 12, 30, 0, 0, time.Local)

func dirs(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	notify := filepath.Join(base, "notify")
	video := filepath.Join(base, "video")
	for _, d := range []string{notify, video} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return notify, video
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSweepRemovesOnlyExpiredArtifacts(t *testing.T) {
	notify, video := dirs(t)
	horizon := 7 * 24 * time.Hour
	old := now.Add(-horizon - time.Second)
	fresh := now.Add(-horizon + time.Second)

	oldStill := filepath.Join(notify, "2026-10-08-12-29-59.jpg")
	freshStill := filepath.Join(notify, "2026-10-08-12-30-01.jpg")
	oldOther := filepath.Join(notify, "readme.txt")
	oldH264 := filepath.Join(video, "2026-10-08", "12", "29.h264")
	oldMP4 := filepath.Join(video, "2026-10-08", "12", "28.mp4")
	freshMP4 := filepath.Join(video, "2026-10-08", "12", "30.mp4")
	testsupport.Touch(t, oldStill, old)
	testsupport.Touch(t, freshStill, fresh)
	testsupport.Touch(t, oldOther, old)
	testsupport.Touch(t, oldH264, old)
	testsupport.Touch(t, oldMP4, old)
	testsupport.Touch(t, freshMP4, fresh)

	result := Sweep(Options{NotificationDir: notify, VideoDir: video, Horizon: horizon, Now: now}, logging.NewNop())

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	slices.Sort(result.Removed)
	want := []string{oldStill, oldMP4, oldH264}
	slices.Sort(want)
	if !slices.Equal(result.Removed, want) {
		t.Fatalf("removed %v, want %v", result.Removed, want)
	}
	for _, keep := range []string{freshStill, oldOther, freshMP4} {
		if !exists(keep) {
			t.Fatalf("%s should survive", keep)
		}
	}
	if len(result.RemovedDirs) != 0 {
		t.Fatalf("hour directory still holds a file, removed %v", result.RemovedDirs)
	}
}

func TestSweepBoundaryIsStrict(t *testing.T) {
	notify, video := dirs(t)
	still := filepath.Join(notify, "edge.jpg")
	testsupport.Touch(t, still, now.Add(-time.Hour))

	result := Sweep(Options{NotificationDir: notify, VideoDir: video, Horizon: time.Hour, Now: now}, nil)
	if len(result.Removed) != 0 || !exists(still) {
		t.Fatal("file exactly at the cutoff must be kept")
	}
}

func TestSweepPrunesEmptyDirectoriesBottomUp(t *testing.T) {
	notify, video := dirs(t)
	old := now.Add(-48 * time.Hour)
	segment := filepath.Join(video, "2026-10-13", "12", "00.mp4")
	testsupport.Touch(t, segment, old)
	empty := filepath.Join(video, "2026-10-12", "03")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result := Sweep(Options{NotificationDir: notify, VideoDir: video, Horizon: 24 * time.Hour, Now: now}, nil)

	for _, gone := range []string{
		filepath.Join(video, "2026-10-13", "12"),
		filepath.Join(video, "2026-10-13"),
		empty,
		filepath.Join(video, "2026-10-12"),
	} {
		if exists(gone) {
			t.Fatalf("%s should be pruned", gone)
		}
	}
	if len(result.RemovedDirs) != 4 {
		t.Fatalf("expected four pruned directories, got %v", result.RemovedDirs)
	}
	if !exists(video) || !exists(notify) {
		t.Fatal("roots must never be removed")
	}
}

func TestSweepKeepsDirectoriesCaptureIsUsing(t *testing.T) {
	notify, video := dirs(t)
	current := filepath.Dir(filepath.Join(video, "2026-10-15", "12", "30.h264"))
	if err := os.MkdirAll(current, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	result := Sweep(Options{NotificationDir: notify, VideoDir: video, Horizon: time.Hour, Now: now}, nil)
	if !exists(current) || len(result.RemovedDirs) != 0 {
		t.Fatalf("current hour directory must be kept, removed %v", result.RemovedDirs)
	}
}

func TestSweepMissingRootsAreQuiet(t *testing.T) {
	base := t.TempDir()
	result := Sweep(Options{
		NotificationDir: filepath.Join(base, "nope"),
		VideoDir:        filepath.Join(base, "also-nope"),
		Horizon:         time.Hour,
		Now:             now,
	}, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestTaskStepJournalsRemovals(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Retention.DaysToKeep = 1
	still := filepath.Join(cfg.Capture.NotificationDir, "old.jpg")
	testsupport.Touch(t, still, now.Add(-72*time.Hour))

	rec, logger := testsupport.NewLogRecorder()
	task := NewTask(cfg, logger)
	task.now = func() time.Time { return now }
	if err := task.Step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	record, ok := rec.Find("artifact expired")
	if !ok || record.Attrs["artifact_event"] != "expired" || record.Attrs["path"] != still {
		t.Fatalf("removal not logged: %+v", rec.Messages())
	}
	if _, ok := rec.Find("retention sweep complete"); !ok {
		t.Fatal("summary not logged")
	}
}
