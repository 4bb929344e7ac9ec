// Package worker runs the long-lived watchpost workers.
//
// Each worker owns a Token and a goroutine. The goroutine repeatedly runs one
// bounded unit of work (Task.Step) and then waits on the token for the
// worker's interval, so a stop request is observed at the next iteration
// boundary and never in the middle of a step. Steps receive a context that is
// not tied to the token; backends bound their own blocking calls.
//
// Failures returned (or panics raised) by a step are logged at the severity
// derived from services.Severity and the loop carries on with the next
// iteration. Nothing is retried inside the worker beyond Prepare, which runs
// again on every iteration until it succeeds.
package worker
