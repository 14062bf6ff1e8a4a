package testsupport

import (
	"context"
	"testing"
	"time"

	"podclean/internal/config"
	"podclean/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEpisode records a pending episode for tests using the provided store.
func NewEpisode(t testing.TB, store *ledger.Store, guid, title, sourcePath string, published time.Time) *ledger.Episode {
	t.Helper()

	ep := &ledger.Episode{
		GUID:        guid,
		Title:       title,
		SourcePath:  sourcePath,
		PublishedAt: published,
	}
	if err := store.Upsert(context.Background(), ep); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	got, err := store.Get(context.Background(), guid)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	return got
}
