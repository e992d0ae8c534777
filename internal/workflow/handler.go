package workflow

import (
	"context"

	"hearingcap/internal/hearing"
)

// Handler performs the work that moves a hearing out of Stage.
type Handler interface {
	Name() string
	Stage() hearing.Stage
	Execute(ctx context.Context, h *hearing.Hearing) (Outcome, error)
	HealthCheck(ctx context.Context) Health
}

// Outcome is what a successful handler hands back to the manager.
type Outcome struct {
	// Streams replaces the stored stream map when non-nil.
	Streams map[string]string
}

// Health summarizes the readiness of a workflow stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
