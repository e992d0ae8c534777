package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hearingcap/internal/config"
	"hearingcap/internal/hearing"
	"hearingcap/internal/logging"
	"hearingcap/internal/services"
)

// Manager coordinates hearing processing using registered stage handlers.
type Manager struct {
	store        hearing.Repository
	lifecycle    *hearing.Lifecycle
	handlers     []Handler
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration
	retryDelay   time.Duration

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastErr     error
	lastHearing *hearing.Hearing
	inFlight    map[int64]struct{}
}

// NewManager constructs a workflow manager. Handlers run in registration order
// each poll cycle.
func NewManager(cfg *config.Config, store hearing.Repository, lifecycle *hearing.Lifecycle, logger *slog.Logger, handlers ...Handler) *Manager {
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		store:        store,
		lifecycle:    lifecycle,
		handlers:     handlers,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		workers:      workers,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		inFlight:     make(map[int64]struct{}),
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.handlers) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.loop(runCtx)
	return nil
}

// Stop prevents new stage attempts and waits for running ones to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := m.RunOnce(ctx)
		wait := m.pollInterval
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			m.setLastError(err)
			m.logger.Error("failed to fetch hearings",
				logging.Error(err),
				logging.String(logging.FieldEventType, "store_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check hearing database access"),
			)
			wait = m.retryDelay
		case processed > 0:
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// RunOnce runs one poll cycle over every handler and reports how many
// hearings were attempted.
func (m *Manager) RunOnce(ctx context.Context) (int, error) {
	processed := 0
	for _, handler := range m.handlers {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		batch, err := m.store.NextForStage(ctx, handler.Stage(), m.workers)
		if err != nil {
			return processed, err
		}
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(m.workers)
		for _, h := range batch {
			if !m.claim(h.ID) {
				continue
			}
			processed++
			group.Go(func() error {
				defer m.release(h.ID)
				m.process(groupCtx, handler, h)
				return nil
			})
		}
		_ = group.Wait()
	}
	return processed, nil
}

func (m *Manager) claim(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[id]; busy {
		return false
	}
	m.inFlight[id] = struct{}{}
	return true
}

func (m *Manager) release(id int64) {
	m.mu.Lock()
	delete(m.inFlight, id)
	m.mu.Unlock()
}

func (m *Manager) process(ctx context.Context, handler Handler, h *hearing.Hearing) {
	if ctx.Err() != nil {
		return
	}
	ctx = services.WithHearingID(ctx, h.ID)
	ctx = services.WithStage(ctx, handler.Name())
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldCommittee, h.CommitteeCode))

	start := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("title", h.Title),
		logging.String("processing_stage", string(h.Stage)),
	)

	outcome, err := handler.Execute(ctx, h)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("stage interrupted by shutdown")
			return
		}
		m.fail(ctx, logger, h, err)
		return
	}

	var opts []hearing.AdvanceOption
	if outcome.Streams != nil {
		opts = append(opts, hearing.WithStreams(outcome.Streams))
	}
	// Work that finished is recorded even when shutdown began meanwhile.
	updated, err := m.lifecycle.Advance(context.WithoutCancel(ctx), h, handler.Stage(), opts...)
	switch {
	case errors.Is(err, services.ErrStaleStage):
		logger.Info("hearing advanced elsewhere; skipping",
			logging.Args(logging.DecisionAttrs("stale_stage", "skipped", "another worker advanced the hearing")...)...)
		return
	case err != nil:
		m.fail(ctx, logger, h, err)
		return
	}
	m.setLastHearing(updated)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_stage", string(updated.Stage)),
		logging.String("status", string(updated.Status)),
		logging.Duration("stage_duration", time.Since(start)),
	)
}

func (m *Manager) fail(ctx context.Context, logger *slog.Logger, h *hearing.Hearing, err error) {
	m.setLastError(err)
	attrs := []logging.Attr{
		logging.Error(err),
		logging.String("error_kind", services.Kind(err)),
		logging.Bool("retryable", services.Retryable(err)),
		logging.String(logging.FieldErrorHint, "run `hearingcap hearings retry` after fixing the cause"),
	}
	if errors.Is(err, hearing.ErrLowConfidence) {
		attrs[3] = logging.String(logging.FieldErrorHint, "confirm the hearing and run `hearingcap hearings advance --force`")
		attrs = append(attrs, logging.Alert("review"))
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failed", attrs...)
	if setErr := m.store.SetError(context.WithoutCancel(ctx), h.ID, err.Error()); setErr != nil {
		logger.Error("failed to record stage failure", logging.Error(setErr))
	}
}
