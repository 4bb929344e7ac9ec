package capture

import "time"

// segmentLength is how long one recording runs before the next starts.
// Segments end on wall-clock boundaries of this length.
var segmentLength = time.Minute

// SetSegmentLengthForTests shortens segments so daemon tests do not wait for
// the minute to change.
func SetSegmentLengthForTests(d time.Duration) func() {
	previous := segmentLength
	segmentLength = d
	return func() {
		segmentLength = previous
	}
}
