package hearing

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a Repository held in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	hearings map[int64]*Hearing
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		hearings: make(map[int64]*Hearing),
		now:      time.Now,
	}
}

func (m *MemoryStore) Discover(_ context.Context, n NewHearing) (*Hearing, bool, error) {
	if err := n.Validate(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hearings {
		if h.CommitteeCode == n.CommitteeCode && h.Title == n.Title && h.Date == n.Date {
			return h.Clone(), false, nil
		}
	}
	now := m.now().UTC()
	h := &Hearing{
		ID:              m.nextID,
		CommitteeCode:   n.CommitteeCode,
		Title:           n.Title,
		Date:            n.Date,
		Type:            n.Type,
		Streams:         map[string]string{},
		SyncConfidence:  n.SyncConfidence,
		Status:          StatusNew,
		Stage:           StageDiscovered,
		StatusUpdatedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for k, v := range n.Streams {
		h.Streams[k] = v
	}
	m.hearings[h.ID] = h
	m.nextID++
	return h.Clone(), true, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id int64) (*Hearing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hearings[id]
	if !ok {
		return nil, notFoundError(id)
	}
	return h.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context, stages ...Stage) ([]*Hearing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Hearing, 0, len(m.hearings))
	for _, h := range m.hearings {
		if len(stages) > 0 && !slices.Contains(stages, h.Stage) {
			continue
		}
		out = append(out, h.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) NextForStage(_ context.Context, stage Stage, limit int) ([]*Hearing, error) {
	if limit <= 0 {
		limit = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Hearing
	for _, h := range m.hearings {
		if h.Stage == stage && !h.Errored() {
			out = append(out, h.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StatusUpdatedAt.Equal(out[j].StatusUpdatedAt) {
			return out[i].StatusUpdatedAt.Before(out[j].StatusUpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CompareAndSwapStage(_ context.Context, t Transition) (*Hearing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hearings[t.ID]
	if !ok {
		return nil, notFoundError(t.ID)
	}
	if h.Stage != t.From {
		return nil, staleError(t.ID, t.From, h.Stage)
	}
	at := t.At
	if at.IsZero() {
		at = m.now()
	}
	h.Stage = t.To
	h.Status = t.Status
	h.StatusUpdatedAt = at.UTC()
	h.UpdatedAt = at.UTC()
	h.ErrorMessage = ""
	if t.Streams != nil {
		h.Streams = make(map[string]string, len(t.Streams))
		for k, v := range t.Streams {
			h.Streams[k] = v
		}
	}
	return h.Clone(), nil
}

func (m *MemoryStore) Reset(_ context.Context, id int64, stage Stage, status Status) (*Hearing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hearings[id]
	if !ok {
		return nil, notFoundError(id)
	}
	now := m.now().UTC()
	h.Stage = stage
	h.Status = status
	h.StatusUpdatedAt = now
	h.UpdatedAt = now
	h.ErrorMessage = ""
	return h.Clone(), nil
}

func (m *MemoryStore) SetError(_ context.Context, id int64, message string) error {
	if strings.TrimSpace(message) == "" {
		message = "unknown error"
	}
	return m.setError(id, message)
}

func (m *MemoryStore) ClearError(_ context.Context, id int64) error {
	return m.setError(id, "")
}

func (m *MemoryStore) setError(id int64, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hearings[id]
	if !ok {
		return notFoundError(id)
	}
	h.ErrorMessage = message
	h.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hearings[id]; !ok {
		return false, nil
	}
	delete(m.hearings, id)
	return true, nil
}

func (m *MemoryStore) Stats(context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := Stats{ByStage: make(map[Stage]int, len(stageOrder))}
	for _, h := range m.hearings {
		stats.Total++
		stats.ByStage[h.Stage]++
		if h.Errored() {
			stats.Errored++
		}
	}
	return stats, nil
}

func (m *MemoryStore) Close() error { return nil }
