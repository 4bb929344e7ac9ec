package preflight

import (
	"context"
	"path/filepath"

	"watchpost/internal/config"
	"watchpost/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks relevant to cfg. Sensor and notification checks
// are skipped in record-only mode.
func RunAll(ctx context.Context, cfg *config.Config, recordOnly bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Video directory", cfg.Capture.VideoDir),
		CheckDirectoryAccess("Notification directory", cfg.Capture.NotificationDir),
		CheckDirectoryAccess("Log directory", filepath.Dir(cfg.Logging.File)),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg, recordOnly)) {
		results = append(results, fromStatus(status))
	}
	if recordOnly {
		return results
	}
	if cfg.Sensor.Enabled {
		results = append(results, CheckGPIO(cfg.Sensor.GPIORoot, cfg.Sensor.Line()))
	}
	results = append(results, CheckTransport(ctx, cfg.Notify))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func fromStatus(s deps.Status) Result {
	r := Result{Name: s.Name, Passed: s.Available || s.Optional, Detail: s.Detail}
	if s.Available {
		r.Detail = s.Path
	} else if s.Optional {
		r.Detail += " (optional)"
	}
	return r
}
