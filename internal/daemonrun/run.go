// Package daemonrun hosts the foreground daemon process started by `hearingcap run`.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hearingcap/internal/config"
	"hearingcap/internal/daemon"
	"hearingcap/internal/deps"
	"hearingcap/internal/hearing"
	"hearingcap/internal/logging"
	"hearingcap/internal/pipeline"
	"hearingcap/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// Ready, when set, receives the daemon once it has started.
	Ready func(*daemon.Daemon)
	// Pipeline overrides are passed through to pipeline.Build.
	Pipeline []pipeline.Option
	// Preflight replaces the daemon dependency check.
	Preflight func() error
}

// Run starts the daemon and blocks until ctx is canceled or SIGINT/SIGTERM arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	now := time.Now()
	if _, err := logging.RotateLog(cfg.Paths.LogDir, now); err != nil {
		fmt.Fprintf(os.Stderr, "warn: %v\n", err)
	}
	logger, err := logging.NewFromConfig(cfg, true)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.PruneRotatedLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, now)
	logDependencySnapshot(logger, deps.Check(cfg))

	store, err := hearing.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open hearing store", "store_open_failed",
			logging.Error(err),
			logging.String("driver", cfg.Store.Driver),
			logging.String(logging.FieldErrorHint, "check store.driver and store.dsn"),
		)
		return err
	}
	storeOwned := true
	defer func() {
		if storeOwned {
			_ = store.Close()
		}
	}()

	p, err := pipeline.Build(cfg, logger, opts.Pipeline...)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	lifecycle, err := hearing.LifecycleFromConfig(cfg, store, logger)
	if err != nil {
		return err
	}
	manager := workflow.NewManager(cfg, store, lifecycle, logger, p.Handlers(logger)...)

	var daemonOpts []daemon.Option
	if opts.Preflight != nil {
		daemonOpts = append(daemonOpts, daemon.WithPreflight(opts.Preflight))
	}
	d, err := daemon.New(cfg, store, logger, manager, daemonOpts...)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	storeOwned = false
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d)
	}
	<-signalCtx.Done()
	logger.Info("hearingcap daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	d.Stop()
	return nil
}

func logDependencySnapshot(logger *slog.Logger, statuses []deps.Status) {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		key := strings.ToLower(strings.ReplaceAll(status.Name, "-", ""))
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
