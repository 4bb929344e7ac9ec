package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"watchpost/internal/config"
)

// Requirement defines an external program watchpost runs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the programs the configured workers will invoke.
// Record-only mode does not take stills.
func Requirements(cfg *config.Config, recordOnly bool) []Requirement {
	reqs := []Requirement{
		{
			Name:        "Recorder",
			Command:     firstArg(cfg.Capture.RecordCommand),
			Description: "Records one-minute h264 segments",
		},
		{
			Name:        "MP4Box",
			Command:     cfg.Convert.Binary,
			Description: "Remuxes segments into mp4",
		},
	}
	if !recordOnly {
		reqs = append(reqs, Requirement{
			Name:        "Still camera",
			Command:     firstArg(cfg.Capture.StillCommand),
			Description: "Takes notification stills",
			Optional:    !cfg.Sensor.Enabled,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
