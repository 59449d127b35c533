// Package discover locates the event collection inside an arbitrarily
// shaped upstream JSON response.
//
// The upstream API alternates between a bare array and a handful of
// envelope shapes. Discovery checks a fixed priority list of well-known
// container keys first and only then falls back to a bounded depth-first
// search for the first list of event-shaped objects.
package discover

import (
	"encoding/json"
	"fmt"
	"sort"
)

// MaxDepth bounds the recursive search so adversarial or cyclic-looking
// structures cannot make discovery run away.
const MaxDepth = 6

// dumpLimit caps the diagnostic payload attached to a DriftError.
const dumpLimit = 2048

// containerKeys is the priority order of known envelope keys.
var containerKeys = []string{"content", "results", "items", "data", "hits"}

// titleKeys mark a mapping as event-shaped.
var titleKeys = []string{"title", "name"}

// DriftError reports that no event-shaped collection was found. Dump holds
// a truncated rendering of the input for out-of-band inspection.
type DriftError struct {
	Dump string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("no event collection found in response (dump: %d bytes)", len(e.Dump))
}

// Events returns the list of event-shaped records contained in v, or a
// *DriftError when the shape is unrecognized.
func Events(v any) ([]map[string]any, error) {
	if records, ok := find(v, 0); ok {
		return records, nil
	}
	return nil, &DriftError{Dump: truncatedDump(v)}
}

// EmptyCollection reports whether v is an empty list, or an envelope
// whose known container key holds an empty list. An exhausted feed looks
// like this on its final page and must not be mistaken for format drift.
func EmptyCollection(v any) bool {
	switch val := v.(type) {
	case []any:
		return len(val) == 0
	case map[string]any:
		for _, key := range containerKeys {
			if child, exists := val[key]; exists {
				if items, ok := child.([]any); ok && len(items) == 0 {
					return true
				}
			}
		}
	}
	return false
}

// find walks v looking for the first list of event-shaped mappings.
func find(v any, depth int) ([]map[string]any, bool) {
	if depth > MaxDepth {
		return nil, false
	}

	switch val := v.(type) {
	case []any:
		if records, ok := eventList(val); ok {
			return records, true
		}
		for _, item := range val {
			if records, ok := find(item, depth+1); ok {
				return records, true
			}
		}
	case map[string]any:
		for _, key := range containerKeys {
			child, exists := val[key]
			if !exists {
				continue
			}
			if records, ok := find(child, depth+1); ok {
				return records, true
			}
		}
		for _, key := range sortedKeys(val) {
			if isContainerKey(key) {
				continue // already tried in priority order
			}
			if records, ok := find(val[key], depth+1); ok {
				return records, true
			}
		}
	}
	return nil, false
}

// eventList reports whether items is a non-empty list whose first element
// is a mapping with a title-like key, and projects it if so.
func eventList(items []any) ([]map[string]any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	first, ok := items[0].(map[string]any)
	if !ok || !hasTitleKey(first) {
		return nil, false
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records, true
}

func hasTitleKey(m map[string]any) bool {
	for _, key := range titleKeys {
		if s, ok := m[key].(string); ok && s != "" {
			return true
		}
	}
	return false
}

// sortedKeys keeps the fallback search deterministic; Go map iteration
// order would otherwise make "first match" vary between runs.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isContainerKey(key string) bool {
	for _, k := range containerKeys {
		if k == key {
			return true
		}
	}
	return false
}

func truncatedDump(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%.256v", v)
	}
	if len(data) > dumpLimit {
		data = data[:dumpLimit]
	}
	return string(data)
}
