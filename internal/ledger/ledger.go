// Package ledger persists the identity → first-seen mapping that is the
// system's memory across runs.
//
// The ledger is append-only: entries are added for identities never seen
// before and existing entries are never mutated or removed. One run loads
// the ledger, reconciles the day's events against an in-memory copy, and
// replaces the file atomically at the end; a failed run leaves it
// untouched.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/plindberg/eskilstuna-events/internal/event"
)

// Entry records when an identity was first observed, plus the descriptive
// fields captured at that first sighting.
type Entry struct {
	FirstSeen string `json:"first_seen"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Location  string `json:"location"`
}

// Ledger maps event IDs to their first-seen entries.
type Ledger struct {
	entries map[string]*Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*Entry)}
}

// Load reads a ledger from disk. A missing file yields an empty ledger.
func Load(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewLedger(), nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	entries := make(map[string]*Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing ledger: %w", err)
	}
	return &Ledger{entries: entries}, nil
}

// Len returns the number of known identities.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Has reports whether id has ever been observed.
func (l *Ledger) Has(id string) bool {
	_, ok := l.entries[id]
	return ok
}

// Entry returns the entry for id, or nil.
func (l *Ledger) Entry(id string) *Entry {
	return l.entries[id]
}

// Reconcile classifies the day's events against the ledger. Events whose
// identity is unknown are flagged new and appended with first_seen set to
// runDate; known identities keep their original entry untouched. Returns
// the number of entries added.
func (l *Ledger) Reconcile(events []*event.Event, runDate string) int {
	added := 0
	for _, evt := range events {
		if _, ok := l.entries[evt.ID]; ok {
			// Known identity: first_seen stays as originally recorded.
			evt.IsNew = false
			continue
		}
		evt.IsNew = true
		l.entries[evt.ID] = &Entry{
			FirstSeen: runDate,
			Title:     evt.Title,
			URL:       evt.URL,
			Date:      evt.Date,
			Time:      evt.Time,
			Location:  evt.Location,
		}
		added++
	}
	return added
}

// Save writes the ledger atomically: the new content lands in a temp file
// that replaces the old one in a single rename.
func (l *Ledger) Save(path string) error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".first_seen-*.json")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}

// NewSince returns the entries first seen on date, sorted by (date,
// title) — the feed for the "what's new since yesterday" report.
func (l *Ledger) NewSince(date string) []*Entry {
	matches := make([]*Entry, 0)
	for _, entry := range l.entries {
		if entry.FirstSeen == date {
			matches = append(matches, entry)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Date != matches[j].Date {
			return matches[i].Date < matches[j].Date
		}
		return strings.ToLower(matches[i].Title) < strings.ToLower(matches[j].Title)
	})
	return matches
}
