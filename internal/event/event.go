package event

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
)

// IDLength is the number of hex characters kept from the SHA1 digest.
const IDLength = 12

// Event is the canonical normalized record for one occurrence.
type Event struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Date       string   `json:"date"` // YYYY-MM-DD, empty if unparseable
	Time       string   `json:"time"` // HH:MM, "00:00" when unknown
	End        string   `json:"end,omitempty"`
	Location   string   `json:"location,omitempty"`
	Categories []string `json:"categories"`
	URL        string   `json:"url"`
	IsNew      bool     `json:"isNew"`
}

// GenerateID creates a deterministic short ID for an event.
// When url is non-empty the ID is a pure function of the URL; otherwise it
// is a pure function of the composite (title, date, time, location) key.
func GenerateID(url, title, date, clock, location string) string {
	key := url
	if key == "" {
		key = title + "|" + date + "|" + clock + "|" + location
	}
	sum := sha1.Sum([]byte(key))
	return fmt.Sprintf("%x", sum)[:IDLength]
}

// AssignID populates e.ID from the event's own fields.
func (e *Event) AssignID() {
	e.ID = GenerateID(e.URL, e.Title, e.Date, e.Time, e.Location)
}

// Dedup collapses events with duplicate IDs. The first occurrence wins and
// the original order of the survivors is preserved.
func Dedup(events []*Event) []*Event {
	seen := make(map[string]bool, len(events))
	unique := make([]*Event, 0, len(events))
	for _, evt := range events {
		if seen[evt.ID] {
			continue
		}
		seen[evt.ID] = true
		unique = append(unique, evt)
	}
	return unique
}

// SortForOutput orders events by (date, time, title) for stable snapshots.
func SortForOutput(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		return strings.ToLower(events[i].Title) < strings.ToLower(events[j].Title)
	})
}
