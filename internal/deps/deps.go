package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"hearingcap/internal/config"
	"hearingcap/internal/services"
)

// Requirement defines an external dependency hearingcap relies on.
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
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the external binaries configured for cfg. Only the
// transcoder is mandatory; the rest degrade individual features.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Converter.FFmpegBinary, Description: "Transcodes hearing streams to audio"},
		{Name: "FFprobe", Command: cfg.Converter.FFprobeBinary, Description: "Reads converted audio duration", Optional: true},
		{Name: "yt-dlp", Command: cfg.YouTube.YtdlpBinary, Description: "Resolves YouTube hearing audio", Optional: true},
	}
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
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Check reports every dependency for cfg, including the headless browser.
func Check(cfg *config.Config) []Status {
	statuses := CheckBinaries(Requirements(cfg))
	return append(statuses, CheckChrome(cfg.Inspector.ChromePath))
}

// MissingRequired returns an ErrConfiguration error naming every unavailable
// mandatory dependency, or nil.
func MissingRequired(statuses []Status) error {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "deps", "preflight",
		"missing required dependencies: "+strings.Join(missing, ", "), nil)
}
