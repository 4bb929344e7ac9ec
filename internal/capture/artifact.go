package capture

import (
	"path/filepath"
	"strings"
	"time"
)

// Trigger asks capture for a notification still. It carries only the time the
// sensor fired.
type Trigger struct {
	At time.Time
}

// ArtifactKind distinguishes the two outputs of capture.
type ArtifactKind int

const (
	// KindNotification is a still taken in response to a trigger.
	KindNotification ArtifactKind = iota + 1
	// KindVideo is a finished one-minute h264 segment.
	KindVideo
)

func (k ArtifactKind) String() string {
	switch k {
	case KindNotification:
		return "notification"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Artifact is a file produced by capture. Ownership passes to the consumer.
type Artifact struct {
	Path string
	Kind ArtifactKind
}

// SegmentPath is where the segment starting at t is recorded:
// root/YYYY-MM-DD/HH/MM.h264.
func SegmentPath(root string, t time.Time) string {
	return filepath.Join(root, t.Format("2006-01-02"), t.Format("15"), t.Format("04")+".h264")
}

// StillPath is where a still taken at t is written: root/YYYY-MM-DD-HH-MM-SS.jpg.
func StillPath(root string, t time.Time) string {
	return filepath.Join(root, t.Format("2006-01-02-15-04-05")+".jpg")
}

// StillTime recovers the capture time encoded in a still's file name.
func StillTime(path string) (time.Time, bool) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := time.ParseInLocation("2006-01-02-15-04-05", name, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
