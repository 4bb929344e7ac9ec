// Package services defines shared utilities consumed by the watchpost workers
// and their external backends.
//
// Key responsibilities:
//   - Context helpers that stamp worker names and run identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (transient IO, external tool, transport, configuration) so the worker
//     runtime can pick a log severity without inspecting messages.
//
// Use these helpers when wiring new backends so failure reporting stays
// uniform across the daemon.
package services
