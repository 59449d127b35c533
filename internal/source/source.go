// Package source produces raw event record batches from the upstream
// feed and decides when pagination terminates.
//
// Two adapters share one capability surface: a paginated JSON API and a
// rendered UI list driven by a "load more" control. The controller in
// Collect drives either adapter batch by batch, applying the stability
// heuristics that guard against a UI control that never signals
// completion.
package source

import "context"

// BatchSource yields raw record batches until the feed is exhausted.
//
// NextBatch returns the records of one pagination round and whether that
// round was the last one. Sources that also implement CountPoller return
// the full rendered list on every call; the controller then keeps only
// the latest batch instead of appending.
type BatchSource interface {
	NextBatch(ctx context.Context) (records []map[string]any, last bool, err error)
	Close() error
}

// CountPoller is an optional capability for sources whose "last batch"
// signal is unreliable. The controller polls the rendered item count and
// the control state to decide termination instead of trusting last alone.
type CountPoller interface {
	// ItemCount reports how many items are currently rendered.
	ItemCount(ctx context.Context) (int, error)
	// MoreAvailable reports whether the load-more control is still
	// present and enabled.
	MoreAvailable(ctx context.Context) (bool, error)
}

// Result is the outcome of a completed collection.
type Result struct {
	Records []map[string]any
	Rounds  int
	// Ambiguous is set when collection was cut off by a ceiling (stable
	// rounds with the control still present, or the hard round ceiling)
	// rather than a clean termination signal. The records are still
	// usable but completeness is not guaranteed.
	Ambiguous bool
}
