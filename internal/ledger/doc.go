// Package ledger keeps the activity journal: a small SQLite table of artifact
// lifecycle events (segment recorded, still captured, converted, notified,
// removed).
//
// Only the log funnel writes to the journal, through Handler, so the database
// has a single writer goroutine. The CLI reads it with Recent. The journal is
// an operator convenience, not a queue: losing it never affects capture.
//
// Schema changes bump schemaVersion; an old database must be deleted before
// the new schema is adopted.
package ledger
