package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/plindberg/eskilstuna-events/internal/event"
)

// Storage handles persistence of event snapshots and locates the ledger.
type Storage struct {
	dataDir string
}

// New creates a new Storage instance rooted at dataDir.
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// SnapshotPath returns the path of the snapshot file for a calendar date.
func (s *Storage) SnapshotPath(date string) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("events_%s.json", date))
}

// LedgerPath returns the path of the first-seen ledger file.
func (s *Storage) LedgerPath() string {
	return filepath.Join(s.dataDir, "first_seen.json")
}

// SaveSnapshot writes the day's canonical event set atomically.
func (s *Storage) SaveSnapshot(events []*event.Event, date string) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	path := s.SnapshotPath(date)
	tmp, err := os.CreateTemp(s.dataDir, ".events-*.json")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot loads the snapshot for a date. A missing file yields an
// empty event set.
func (s *Storage) LoadSnapshot(date string) ([]*event.Event, error) {
	data, err := os.ReadFile(s.SnapshotPath(date))
	if err != nil {
		if os.IsNotExist(err) {
			return []*event.Event{}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var events []*event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return events, nil
}

// LatestSnapshot returns the date of the lexically greatest snapshot file
// and its events. Returns an empty date when no snapshot exists.
func (s *Storage) LatestSnapshot() (string, []*event.Event, error) {
	matches, err := filepath.Glob(filepath.Join(s.dataDir, "events_*.json"))
	if err != nil {
		return "", nil, fmt.Errorf("listing snapshots: %w", err)
	}
	if len(matches) == 0 {
		return "", []*event.Event{}, nil
	}

	sort.Strings(matches)
	latest := matches[len(matches)-1]

	name := filepath.Base(latest)
	date := strings.TrimSuffix(strings.TrimPrefix(name, "events_"), ".json")

	events, err := s.LoadSnapshot(date)
	if err != nil {
		return "", nil, err
	}
	return date, events, nil
}
