package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"hearingcap/internal/config"
	"hearingcap/internal/deps"
	"hearingcap/internal/hearing"
	"hearingcap/internal/logging"
	"hearingcap/internal/preflight"
	"hearingcap/internal/workflow"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     hearing.Repository
	workflow  *workflow.Manager
	preflight func() error

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	StoreDriver  string
	DatabasePath string
	LockFilePath string
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithPreflight replaces the dependency check run at start.
func WithPreflight(check func() error) Option {
	return func(d *Daemon) {
		if check != nil {
			d.preflight = check
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store hearing.Repository, logger *slog.Logger, wf *workflow.Manager, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		preflight: func() error {
			if err := deps.MissingRequired(deps.CheckBinaries(deps.Requirements(cfg))); err != nil {
				return err
			}
			return preflight.Failed(preflight.RunAll(cfg))
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, checks dependencies, and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another hearingcap daemon instance is already running")
	}

	if err := d.preflight(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("hearingcap daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Int("workers", d.cfg.Workflow.Workers),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock. Stage
// attempts already underway run to completion first.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.workflow.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("hearingcap daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.workflow.Status(ctx),
		StoreDriver:  d.cfg.Store.Driver,
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}
