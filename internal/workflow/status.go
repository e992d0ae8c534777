package workflow

import (
	"context"

	"hearingcap/internal/hearing"
	"hearingcap/internal/logging"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastHearing *hearing.Hearing
	Stats       hearing.Stats
	StageHealth []Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running, LastHearing: m.lastHearing.Clone()}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read hearing stats", logging.Error(err))
	}
	summary.Stats = stats
	for _, handler := range m.handlers {
		summary.StageHealth = append(summary.StageHealth, handler.HealthCheck(ctx))
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastHearing(h *hearing.Hearing) {
	m.mu.Lock()
	m.lastHearing = h.Clone()
	m.mu.Unlock()
}
