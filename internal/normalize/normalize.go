// Package normalize maps raw source records of unknown shape into the
// canonical event schema.
//
// Records arrive either as API JSON objects or as projections of rendered
// UI cards; both go through the same synonym lists. A record that fails
// required-field extraction is rejected with a *SkipError and the run
// continues without it.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/plindberg/eskilstuna-events/internal/config"
	"github.com/plindberg/eskilstuna-events/internal/event"
)

// Field synonym lists, in priority order. The upstream shapes disagree on
// which name is authoritative, so every known variant is accepted.
var (
	titleKeys    = []string{"title", "name"}
	urlKeys      = []string{"presentationUrl", "href", "url", "link"}
	dateKeys     = []string{"startDate", "date"}
	endKeys      = []string{"endDate", "end"}
	locationKeys = []string{"place", "location"}
	categoryKeys = []string{"categoryName", "category"}
)

// SkipError marks a single record that could not be normalized. It is
// recovered locally: the record is dropped, the batch continues.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "record skipped: " + e.Reason
}

func skip(format string, args ...any) *SkipError {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// Normalizer converts raw records into events.
type Normalizer struct {
	cfg config.NormalizeConfig
	now time.Time
}

// New creates a Normalizer. The reference time drives the year-rollover
// rule for UI dates that carry no explicit year.
func New(cfg config.NormalizeConfig, now time.Time) *Normalizer {
	return &Normalizer{cfg: cfg, now: now}
}

// Normalize maps one raw record to an Event, or returns a *SkipError.
func (n *Normalizer) Normalize(raw map[string]any) (*event.Event, error) {
	categories := stringList(raw, "categories")
	if cat := firstString(raw, categoryKeys); cat != "" {
		categories = append([]string{cat}, categories...)
	}
	if categories == nil {
		categories = []string{}
	}
	for _, cat := range categories {
		if n.excluded(cat) {
			return nil, skip("excluded category %q", cat)
		}
	}

	title := strings.TrimSpace(firstString(raw, titleKeys))
	if title == "" {
		return nil, skip("no title")
	}

	rawURL := strings.TrimSpace(firstString(raw, urlKeys))
	absURL, err := n.resolveURL(rawURL)
	if err != nil {
		return nil, skip("unusable url %q: %v", rawURL, err)
	}

	dateText, _ := raw["dateText"].(string)

	date := isoDate(firstString(raw, dateKeys))
	if date == "" && dateText != "" {
		date = n.localizedDate(dateText)
	}

	clock := extractTime(firstString(raw, dateKeys))
	if clock == "" {
		clock = extractTime(dateText)
	}
	if clock == "" {
		// Sentinel keeps sort ordering stable for timeless events.
		clock = "00:00"
	}

	end := extractTime(firstString(raw, endKeys))

	location := strings.TrimSpace(firstString(raw, locationKeys))
	if location == "" && dateText != "" {
		location = n.locationAfterTime(dateText)
	}

	evt := &event.Event{
		Title:      title,
		Date:       date,
		Time:       clock,
		End:        end,
		Location:   location,
		Categories: categories,
		URL:        absURL,
	}
	evt.AssignID()
	return evt, nil
}

// Batch normalizes a slice of raw records, dropping skipped ones. The
// returned count is the number of records skipped.
func (n *Normalizer) Batch(raws []map[string]any) ([]*event.Event, int) {
	events := make([]*event.Event, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		evt, err := n.Normalize(raw)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, evt)
	}
	return events, skipped
}

func (n *Normalizer) excluded(category string) bool {
	for _, excl := range n.cfg.ExcludedCategories {
		if strings.EqualFold(category, excl) {
			return true
		}
	}
	return false
}

// resolveURL makes a raw URL absolute against the configured base origin.
// An empty URL is allowed: identity then falls back to the composite key.
func (n *Normalizer) resolveURL(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw, nil
	}
	if !strings.HasPrefix(raw, "/") {
		return "", fmt.Errorf("relative url without leading slash")
	}
	base := strings.TrimSuffix(n.cfg.BaseOrigin, "/")
	if base == "" {
		return "", fmt.Errorf("no base origin configured")
	}
	return base + raw, nil
}

// firstString returns the first non-empty string value among keys.
func firstString(raw map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringList reads a []any of strings under key, preserving order.
func stringList(raw map[string]any, key string) []string {
	items, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
