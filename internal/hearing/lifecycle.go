package hearing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hearingcap/internal/config"
	"hearingcap/internal/logging"
	"hearingcap/internal/services"
)

var (
	// ErrTerminalStage is returned when advancing a published hearing.
	ErrTerminalStage = errors.New("hearing already published")
	// ErrLowConfidence is returned when sync confidence blocks leaving discovered.
	ErrLowConfidence = errors.New("sync confidence below threshold")
)

// Lifecycle enforces legal stage transitions on top of a Repository.
type Lifecycle struct {
	store     Repository
	mapping   StatusMapping
	threshold float64
	logger    *slog.Logger
	now       func() time.Time
}

// NewLifecycle wires a lifecycle. A nil mapping uses the default projection.
func NewLifecycle(store Repository, mapping StatusMapping, threshold float64, logger *slog.Logger) *Lifecycle {
	if mapping == nil {
		mapping = DefaultStatusMapping()
	}
	return &Lifecycle{
		store:     store,
		mapping:   mapping,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "lifecycle"),
		now:       time.Now,
	}
}

// LifecycleFromConfig validates the configured status mapping and builds a lifecycle.
func LifecycleFromConfig(cfg *config.Config, store Repository, logger *slog.Logger) (*Lifecycle, error) {
	mapping, err := NewStatusMapping(cfg.Lifecycle.StatusMapping)
	if err != nil {
		return nil, err
	}
	return NewLifecycle(store, mapping, cfg.Workflow.ConfidenceThreshold, logger), nil
}

// Mapping returns the status projection in use.
func (l *Lifecycle) Mapping() StatusMapping { return l.mapping }

// Threshold returns the confidence gate.
func (l *Lifecycle) Threshold() float64 { return l.threshold }

// AdvanceOption customizes a single Advance call.
type AdvanceOption func(*advanceOptions)

type advanceOptions struct {
	manual  bool
	streams map[string]string
}

// WithManualOverride marks an operator-requested advance, which bypasses the
// confidence gate.
func WithManualOverride() AdvanceOption {
	return func(o *advanceOptions) { o.manual = true }
}

// WithStreams replaces the stored stream map as part of the transition.
func WithStreams(streams map[string]string) AdvanceOption {
	return func(o *advanceOptions) { o.streams = streams }
}

// Advance moves h from expected to the next stage. It fails with
// services.ErrStaleStage when h (or the stored row) is not at expected.
func (l *Lifecycle) Advance(ctx context.Context, h *Hearing, expected Stage, opts ...AdvanceOption) (*Hearing, error) {
	if h == nil {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "advance", "nil hearing", nil)
	}
	var options advanceOptions
	for _, opt := range opts {
		opt(&options)
	}
	ctx = services.WithHearingID(ctx, h.ID)
	logger := logging.WithContext(ctx, l.logger)

	if !expected.Valid() {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "advance",
			fmt.Sprintf("hearing %d: unknown expected stage %q", h.ID, expected), nil)
	}
	if h.Stage != expected {
		err := staleError(h.ID, expected, h.Stage)
		logging.WarnWithContext(logger, "stale advance rejected", "stale_stage",
			logging.String("expected", string(expected)),
			logging.String("actual", string(h.Stage)),
			logging.String(logging.FieldErrorHint, "re-fetch the hearing before advancing"),
		)
		return nil, err
	}
	next, ok := expected.Next()
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "advance",
			fmt.Sprintf("hearing %d", h.ID), ErrTerminalStage)
	}
	// NaN confidence never clears the gate.
	if expected == StageDiscovered && !(h.SyncConfidence >= l.threshold) {
		if !options.manual {
			return nil, services.Wrap(services.ErrValidation, "lifecycle", "advance",
				fmt.Sprintf("hearing %d: confidence %.2f < %.2f", h.ID, h.SyncConfidence, l.threshold), ErrLowConfidence)
		}
		logger.Info("confidence gate bypassed",
			logging.Args(logging.DecisionAttrs("confidence_gate", "bypassed", "manual override")...)...)
	}

	updated, err := l.store.CompareAndSwapStage(ctx, Transition{
		ID:      h.ID,
		From:    expected,
		To:      next,
		Status:  l.mapping.StatusFor(next),
		Streams: options.streams,
		At:      l.now(),
	})
	if err != nil {
		if errors.Is(err, services.ErrStaleStage) {
			logging.WarnWithContext(logger, "stale advance rejected by store", "stale_stage",
				logging.String("expected", string(expected)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "another worker advanced this hearing"),
			)
		}
		return nil, err
	}
	logger.Info("hearing advanced",
		logging.String(logging.FieldEventType, "stage_advanced"),
		logging.String("from", string(expected)),
		logging.String("to", string(updated.Stage)),
		logging.String("status", string(updated.Status)),
		logging.Bool("manual", options.manual),
	)
	return updated, nil
}

// Reset moves a hearing back to an earlier (or the same) stage. It is the
// only way a stage may regress.
func (l *Lifecycle) Reset(ctx context.Context, id int64, target Stage) (*Hearing, error) {
	if !target.Valid() {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "reset",
			fmt.Sprintf("hearing %d: unknown stage %q", id, target), nil)
	}
	current, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Stage.Before(target) {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "reset",
			fmt.Sprintf("hearing %d: reset cannot move forward from %s to %s", id, current.Stage, target), nil)
	}
	updated, err := l.store.Reset(ctx, id, target, l.mapping.StatusFor(target))
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithHearingID(ctx, id), l.logger).Info("hearing reset",
		logging.String(logging.FieldEventType, "stage_reset"),
		logging.String("from", string(current.Stage)),
		logging.String("to", string(target)),
	)
	return updated, nil
}
