package testsupport

import (
	"context"
	"testing"

	"hearingcap/internal/config"
	"hearingcap/internal/hearing"
)

// MustOpenStore opens a hearing.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *hearing.Store {
	t.Helper()

	store, err := hearing.Open(cfg)
	if err != nil {
		t.Fatalf("hearing.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewHearing discovers a hearing for tests using the provided repository.
func NewHearing(t testing.TB, repo hearing.Repository, committee, title, date string, confidence float64, streams map[string]string) *hearing.Hearing {
	t.Helper()

	h, _, err := repo.Discover(context.Background(), hearing.NewHearing{
		CommitteeCode:  committee,
		Title:          title,
		Date:           date,
		Type:           "hearing",
		Streams:        streams,
		SyncConfidence: confidence,
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	return h
}
