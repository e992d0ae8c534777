package hearing_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"hearingcap/internal/hearing"
	"hearingcap/internal/logging"
	"hearingcap/internal/services"
	"hearingcap/internal/testsupport"
)

func newLifecycle(repo hearing.Repository, threshold float64) *hearing.Lifecycle {
	return hearing.NewLifecycle(repo, nil, threshold, logging.NewNop())
}

func TestAdvanceWalksEveryStage(t *testing.T) {
	ctx := context.Background()
	repo := hearing.NewMemoryStore()
	lc := newLifecycle(repo, 0.5)
	h := testsupport.NewHearing(t, repo, "commerce", "Executive Session 12", "2025-06-26", 0.9, nil)

	wantStatus := []hearing.Status{hearing.StatusQueued, hearing.StatusProcessing, hearing.StatusProcessing, hearing.StatusReview, hearing.StatusComplete}
	for i, stage := range hearing.Stages()[:5] {
		updated, err := lc.Advance(ctx, h, stage)
		if err != nil {
			t.Fatalf("advance from %s: %v", stage, err)
		}
		next, _ := stage.Next()
		if updated.Stage != next || updated.Status != wantStatus[i] {
			t.Fatalf("after %s got stage=%s status=%s", stage, updated.Stage, updated.Status)
		}
		if updated.StatusUpdatedAt.Before(h.StatusUpdatedAt) {
			t.Fatal("status_updated_at moved backwards")
		}
		h = updated
	}
	if _, err := lc.Advance(ctx, h, hearing.StagePublished); !errors.Is(err, hearing.ErrTerminalStage) {
		t.Fatalf("expected ErrTerminalStage, got %v", err)
	}
}

func TestAdvanceRejectsStaleExpectedStage(t *testing.T) {
	ctx := context.Background()
	repo := hearing.NewMemoryStore()
	lc := newLifecycle(repo, 0)
	h := testsupport.NewHearing(t, repo, "commerce", "Nominations", "2025-06-26", 1, nil)
	h, _ = lc.Advance(ctx, h, hearing.StageDiscovered)
	h, _ = lc.Advance(ctx, h, hearing.StageAnalyzed)
	if h.Stage != hearing.StageCaptured {
		t.Fatalf("setup: stage %s", h.Stage)
	}

	_, err := lc.Advance(ctx, h, hearing.StageAnalyzed)
	if !errors.Is(err, services.ErrStaleStage) {
		t.Fatalf("expected StaleStage, got %v", err)
	}
	if services.Kind(err) != "StaleStage" {
		t.Fatalf("unexpected kind %q", services.Kind(err))
	}
	stored, _ := repo.GetByID(ctx, h.ID)
	if stored.Stage != hearing.StageCaptured {
		t.Fatalf("stale advance mutated stage to %s", stored.Stage)
	}
}

func TestAdvanceDetectsConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	repo := hearing.NewMemoryStore()
	lc := newLifecycle(repo, 0)
	h := testsupport.NewHearing(t, repo, "commerce", "Markup", "2025-07-01", 1, nil)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		stale     atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func(snapshot *hearing.Hearing) {
			defer wg.Done()
			_, err := lc.Advance(ctx, snapshot, hearing.StageDiscovered)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, services.ErrStaleStage):
				stale.Add(1)
			}
		}(h.Clone())
	}
	wg.Wait()
	if successes.Load() != 1 || stale.Load() != 7 {
		t.Fatalf("successes=%d stale=%d", successes.Load(), stale.Load())
	}
}

func TestConfidenceGate(t *testing.T) {
	ctx := context.Background()
	repo := hearing.NewMemoryStore()
	lc := newLifecycle(repo, 0.5)
	h := testsupport.NewHearing(t, repo, "commerce", "Field Hearing", "2025-07-02", 0.2, nil)

	_, err := lc.Advance(ctx, h, hearing.StageDiscovered)
	if !errors.Is(err, hearing.ErrLowConfidence) {
		t.Fatalf("expected ErrLowConfidence, got %v", err)
	}
	updated, err := lc.Advance(ctx, h, hearing.StageDiscovered, hearing.WithManualOverride())
	if err != nil {
		t.Fatalf("manual override: %v", err)
	}
	if updated.Stage != hearing.StageAnalyzed {
		t.Fatalf("unexpected stage %s", updated.Stage)
	}
	// The gate only guards leaving discovered.
	if _, err := lc.Advance(ctx, updated, hearing.StageAnalyzed); err != nil {
		t.Fatalf("advance past analyzed: %v", err)
	}
}

func TestConfidenceGateFailsClosedOnNaN(t *testing.T) {
	ctx := context.Background()
	repo := hearing.NewMemoryStore()
	lc := newLifecycle(repo, 0.5)
	h := testsupport.NewHearing(t, repo, "commerce", "Markup", "2025-07-03", 0.9, nil)

	h.SyncConfidence = math.NaN()
	if _, err := lc.Advance(ctx, h, hearing.StageDiscovered); !errors.Is(err, hearing.ErrLowConfidence) {
		t.Fatalf("expected ErrLowConfidence for NaN confidence, got %v", err)
	}
	stored, err := repo.GetByID(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Stage != hearing.StageDiscovered {
		t.Fatalf("hearing advanced to %s", stored.Stage)
	}

	nanGate := newLifecycle(repo, math.NaN())
	if _, err := nanGate.Advance(ctx, stored, hearing.StageDiscovered); !errors.Is(err, hearing.ErrLowConfidence) {
		t.Fatalf("expected NaN threshold to block, got %v", err)
	}
}

func TestAdvanceWithStreams(t *testing.T) {
	ctx := context.Background()
	repo := hearing.NewMemoryStore()
	lc := newLifecycle(repo, 0)
	h := testsupport.NewHearing(t, repo, "commerce", "Oversight", "2025-07-03", 1, map[string]string{"Senate": "https://www.commerce.senate.gov/2025/7/oversight"})

	streams := map[string]string{"senate_isvp": "https://www.commerce.senate.gov/2025/7/oversight"}
	updated, err := lc.Advance(ctx, h, hearing.StageDiscovered, hearing.WithStreams(streams))
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(updated.Streams) != 1 || updated.Streams["senate_isvp"] == "" {
		t.Fatalf("streams not replaced: %v", updated.Streams)
	}
}

func TestResetOnlyRegresses(t *testing.T) {
	ctx := context.Background()
	repo := hearing.NewMemoryStore()
	lc := newLifecycle(repo, 0)
	h := testsupport.NewHearing(t, repo, "commerce", "Budget", "2025-07-04", 1, nil)
	h, _ = lc.Advance(ctx, h, hearing.StageDiscovered)
	h, _ = lc.Advance(ctx, h, hearing.StageAnalyzed)
	if err := repo.SetError(ctx, h.ID, "conversion failed"); err != nil {
		t.Fatalf("SetError: %v", err)
	}

	if _, err := lc.Reset(ctx, h.ID, hearing.StageReviewed); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("forward reset should fail, got %v", err)
	}
	reset, err := lc.Reset(ctx, h.ID, hearing.StageDiscovered)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if reset.Stage != hearing.StageDiscovered || reset.Status != hearing.StatusNew || reset.Errored() {
		t.Fatalf("unexpected reset result %+v", reset)
	}
	if _, err := lc.Reset(ctx, 999, hearing.StageDiscovered); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
