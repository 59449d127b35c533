// Package storage provides JSON-based persistence for per-day event
// snapshots.
//
// Each run writes one snapshot file per calendar date (events_DATE.json)
// into the data directory; re-running on the same date overwrites that
// date's file. Writes are atomic (temp file plus rename) so an aborted
// run never leaves a partial snapshot behind.
package storage
