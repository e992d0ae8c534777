package hearing_test

import (
	"errors"
	"testing"

	"hearingcap/internal/config"
	"hearingcap/internal/hearing"
	"hearingcap/internal/services"
)

func TestStageOrder(t *testing.T) {
	stages := hearing.Stages()
	for i := 0; i < len(stages)-1; i++ {
		next, ok := stages[i].Next()
		if !ok || next != stages[i+1] {
			t.Fatalf("%s.Next() = %s, %v", stages[i], next, ok)
		}
		if !stages[i].Before(stages[i+1]) {
			t.Fatalf("%s should precede %s", stages[i], stages[i+1])
		}
	}
	if _, ok := hearing.StagePublished.Next(); ok {
		t.Fatal("published must be terminal")
	}
}

func TestParseStage(t *testing.T) {
	stage, err := hearing.ParseStage("  Captured ")
	if err != nil || stage != hearing.StageCaptured {
		t.Fatalf("ParseStage = %q, %v", stage, err)
	}
	if _, err := hearing.ParseStage("archived"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDefaultStatusMapping(t *testing.T) {
	mapping := hearing.DefaultStatusMapping()
	want := map[hearing.Stage]hearing.Status{
		hearing.StageDiscovered:  hearing.StatusNew,
		hearing.StageAnalyzed:    hearing.StatusQueued,
		hearing.StageCaptured:    hearing.StatusProcessing,
		hearing.StageTranscribed: hearing.StatusProcessing,
		hearing.StageReviewed:    hearing.StatusReview,
		hearing.StagePublished:   hearing.StatusComplete,
	}
	for stage, status := range want {
		if got := mapping.StatusFor(stage); got != status {
			t.Errorf("StatusFor(%s) = %s, want %s", stage, got, status)
		}
	}

	mapping[hearing.StageDiscovered] = hearing.StatusReview
	if hearing.DefaultStatusMapping().StatusFor(hearing.StageDiscovered) != hearing.StatusNew {
		t.Fatal("callers must not be able to mutate the shared default")
	}
}

func TestNewStatusMappingRejectsInvalid(t *testing.T) {
	base := func() map[string]string { return config.DefaultStatusMapping() }
	cases := map[string]func(map[string]string){
		"regression":     func(m map[string]string) { m["transcribed"] = "queued" },
		"early complete": func(m map[string]string) { m["reviewed"] = "complete" },
		"late complete":  func(m map[string]string) { m["published"] = "review" },
		"missing stage":  func(m map[string]string) { delete(m, "captured") },
		"unknown stage":  func(m map[string]string) { m["archived"] = "complete" },
		"unknown status": func(m map[string]string) { m["captured"] = "running" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			raw := base()
			mutate(raw)
			if _, err := hearing.NewStatusMapping(raw); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestNewStatusMappingAcceptsCustomMonotonic(t *testing.T) {
	raw := config.DefaultStatusMapping()
	raw["analyzed"] = "new"
	raw["transcribed"] = "review"
	if _, err := hearing.NewStatusMapping(raw); err != nil {
		t.Fatalf("expected mapping accepted: %v", err)
	}
}
