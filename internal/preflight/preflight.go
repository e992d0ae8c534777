package preflight

import (
	"errors"
	"fmt"
	"strings"

	"hearingcap/internal/config"
	"hearingcap/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Audio directory", cfg.Paths.AudioDir),
		CheckCommitteeTable(cfg.Paths.CommitteesFile),
		CheckStatusMapping(cfg.Lifecycle.StatusMapping),
	}
}

// Failed joins the failed results into a configuration error, or returns nil.
func Failed(results []Result) error {
	var failures []string
	for _, result := range results {
		if !result.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "run", strings.Join(failures, "; "), errors.New("preflight failed"))
}
