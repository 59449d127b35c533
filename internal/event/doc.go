// Package event defines the canonical event record and its identity rules.
//
// Every event carries a deterministic SHA1-based ID derived from its URL,
// or from a composite of its descriptive fields when no usable URL exists.
// The same input always yields the same ID across runs and regardless of
// whether the event was extracted from the JSON API or the rendered UI.
package event
