// Package cli implements the command-line interface for eskilstuna-events.
//
// The cli package provides the Cobra-based CLI with the harvest run as
// the root command and a "new" subcommand that reports events first seen
// on a given date. It coordinates the source, normalize, ledger, and
// storage packages to fetch, reconcile, and persist the day's events.
package cli
