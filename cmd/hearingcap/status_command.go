package main

import (
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"hearingcap/internal/config"
	"hearingcap/internal/deps"
	"hearingcap/internal/hearing"
	"hearingcap/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and store status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("System", colorize)
			if daemonRunning(cfg) {
				lines = append(lines, renderStatusLine("Daemon", statusOK, "Running", colorize))
			} else {
				lines = append(lines, renderStatusLine("Daemon", statusInfo, "Not running", colorize))
			}
			lines = append(lines, renderStatusLine("Store", statusInfo, storeLabel(cfg), colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			lines = append(lines, preflightLines(preflight.RunAll(cfg), colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(deps.Check(cfg), colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Hearings", colorize)...)
			storeErr := ctx.withStore(func(store *hearing.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				lines = append(lines, hearingStatsLines(stats, colorize)...)
				return nil
			})
			if storeErr != nil {
				lines = append(lines, renderStatusLine("Store", statusError, storeErr.Error(), colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

// daemonRunning probes the daemon lock without holding it.
func daemonRunning(cfg *config.Config) bool {
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return false
	}
	if locked {
		_ = lock.Unlock()
		return false
	}
	return true
}

func storeLabel(cfg *config.Config) string {
	if cfg.Store.Driver == "postgres" {
		return "postgres"
	}
	return "sqlite " + cfg.DatabasePath()
}

func hearingStatsLines(stats hearing.Stats, colorize bool) []string {
	lines := []string{renderStatusLine("Total", statusInfo, fmt.Sprintf("%d", stats.Total), colorize)}
	for _, stage := range hearing.Stages() {
		if count := stats.ByStage[stage]; count > 0 {
			lines = append(lines, renderStatusLine(string(stage), statusInfo, fmt.Sprintf("%d", count), colorize))
		}
	}
	if stats.Errored > 0 {
		lines = append(lines, renderStatusLine("Errored", statusWarn, fmt.Sprintf("%d (use `hearingcap hearings retry`)", stats.Errored), colorize))
	}
	return lines
}
