// Package daemon coordinates the long-running watchpost process.
//
// It owns every queue, token and worker: sensor, capture, convert, notify and
// retention, plus the log funnel that is the single writer of the log file
// and the activity journal. A flock lock prevents multiple instances.
//
// Shutdown is cooperative and ordered. Producers stop first (sensor, then
// capture), then notify, then, after a grace period, convert and retention;
// the funnel is closed last so every record logged during shutdown is
// written. A worker is never interrupted mid-step, so the worst-case latency
// is roughly
//
//	capture segment (up to 60s, plus one still and the recorder stop timeout)
//	+ shutdown.grace_seconds
//	+ one conversion (convert.timeout_seconds)
//
// with each join further capped by shutdown.join_timeout_seconds.
package daemon
