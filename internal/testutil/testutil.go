// Package testutil provides shared test helpers for setting up stores and
// fake publishers.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/darvall/gistcal/internal/publish"
	"github.com/darvall/gistcal/internal/store"
)

// TestStore opens a throwaway SQLite event store under t.TempDir, so the
// database and its WAL sidecar files vanish with the test.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FakePublisher records published documents instead of uploading them.
type FakePublisher struct {
	mu        sync.Mutex
	documents []string

	// Err, when set, is returned by every Publish call.
	Err error
	// RawURL overrides the reported raw URL.
	RawURL string
}

var _ publish.Publisher = (*FakePublisher)(nil)

// Publish records the document and returns a canned result.
func (f *FakePublisher) Publish(_ context.Context, document string) (*publish.Result, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	f.documents = append(f.documents, document)
	f.mu.Unlock()

	raw := f.RawURL
	if raw == "" {
		raw = "https://gist.githubusercontent.com/darvall/abc123/raw/events.ics"
	}
	return &publish.Result{
		RawURL:    raw,
		WebcalURL: "webcal://" + raw[len("https://"):],
	}, nil
}

// Documents returns every document published so far.
func (f *FakePublisher) Documents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.documents...)
}
