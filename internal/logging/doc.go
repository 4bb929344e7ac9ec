// Package logging assembles the slog handlers used by watchpost and owns the
// log funnel.
//
// Workers never write log output themselves. Each one logs through a queue
// logger (NewQueueLogger) that snapshots records into Entry values on a shared
// queue. A single Funnel goroutine drains that queue and replays every record
// into the sink handler: the console or JSON formatter over a rotating file,
// optionally teed to stdout and the activity journal. The Funnel exits when it
// receives the close entry, which the daemon enqueues once after every other
// worker has stopped.
//
// The package also provides the attribute helpers, context fields and the
// no-op logger shared by every other package.
package logging
