package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/plindberg/eskilstuna-events/internal/event"
)

func testEvents() []*event.Event {
	return []*event.Event{
		{
			ID:         "abc123def456",
			Title:      "Konsert",
			Date:       "2026-09-01",
			Time:       "19:00",
			Location:   "Stadsparken",
			Categories: []string{"Musik"},
			URL:        "https://visiteskilstuna.se/e/1",
			IsNew:      true,
		},
		{
			ID:         "fed654cba321",
			Title:      "Teater",
			Date:       "2026-09-01",
			Time:       "00:00",
			Categories: []string{},
			URL:        "https://visiteskilstuna.se/e/2",
		},
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	events := testEvents()
	if err := store.SaveSnapshot(events, "2026-09-01"); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := store.LoadSnapshot("2026-09-01")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 events, got %d", len(loaded))
	}
	if loaded[0].ID != "abc123def456" {
		t.Errorf("expected first event ID preserved, got %s", loaded[0].ID)
	}
	if !loaded[0].IsNew || loaded[1].IsNew {
		t.Error("isNew flags should round-trip")
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	events, err := store.LoadSnapshot("2026-01-01")
	if err != nil {
		t.Fatalf("missing snapshot should not error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected empty event set, got %d", len(events))
	}
}

func TestSaveSnapshotOverwritesSameDate(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.SaveSnapshot(testEvents(), "2026-09-01"); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := store.SaveSnapshot(testEvents()[:1], "2026-09-01"); err != nil {
		t.Fatalf("second SaveSnapshot failed: %v", err)
	}

	loaded, err := store.LoadSnapshot("2026-09-01")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("re-running a date should overwrite its snapshot, got %d events", len(loaded))
	}
}

func TestSaveSnapshotLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.SaveSnapshot(testEvents(), "2026-09-01"); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".events-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLatestSnapshot(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	date, events, err := store.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot on empty dir failed: %v", err)
	}
	if date != "" || len(events) != 0 {
		t.Errorf("expected no snapshot, got date=%q with %d events", date, len(events))
	}

	if err := store.SaveSnapshot(testEvents()[:1], "2026-08-30"); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := store.SaveSnapshot(testEvents(), "2026-09-01"); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	date, events, err = store.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if date != "2026-09-01" {
		t.Errorf("expected latest date 2026-09-01, got %s", date)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events in latest snapshot, got %d", len(events))
	}
}

func TestSnapshotPaths(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	want := filepath.Join(dir, "events_2026-09-01.json")
	if got := store.SnapshotPath("2026-09-01"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if got := store.LedgerPath(); got != filepath.Join(dir, "first_seen.json") {
		t.Errorf("unexpected ledger path %s", got)
	}
}
