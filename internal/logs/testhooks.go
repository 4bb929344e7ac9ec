package logs

import "time"

// SetPollIntervalForTests overrides the follow poll interval.
func SetPollIntervalForTests(d time.Duration) func() {
	prev := pollInterval
	pollInterval = d
	return func() { pollInterval = prev }
}
