package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/plindberg/eskilstuna-events/internal/event"
	"github.com/plindberg/eskilstuna-events/internal/ledger"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult summarizes one harvest run.
type OutputResult struct {
	HarvestedAt time.Time      `json:"harvested_at"`
	Date        string         `json:"date"`
	EventCount  int            `json:"event_count"`
	NewCount    int            `json:"new_count"`
	Skipped     int            `json:"skipped,omitempty"`
	Incomplete  bool           `json:"incomplete,omitempty"`
	NewEvents   []*event.Event `json:"new_events"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.Incomplete {
		fmt.Fprintln(w, "Warning: pagination never signaled completion; the listing may be incomplete.")
	}

	fmt.Fprintf(w, "Harvested %d events for %s.\n", result.EventCount, result.Date)

	if result.NewCount == 0 {
		fmt.Fprintln(w, "No new events found.")
		return nil
	}

	fmt.Fprintf(w, "\n%d new:\n", result.NewCount)
	for _, evt := range result.NewEvents {
		fmt.Fprintf(w, "  NEW: %s\n", eventLine(evt))
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", evt.ID)
			if evt.URL != "" {
				fmt.Fprintf(w, "       URL: %s\n", evt.URL)
			}
		}
	}
	return nil
}

// NewReport is the output of the "new" subcommand.
type NewReport struct {
	Date    string          `json:"date"`
	Count   int             `json:"count"`
	Entries []*ledger.Entry `json:"entries"`
}

// WriteNewReport writes the first-seen report in the specified format.
func WriteNewReport(w io.Writer, report *NewReport, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, report)
	}

	if report.Count == 0 {
		fmt.Fprintf(w, "No events first seen on %s.\n", report.Date)
		return nil
	}

	fmt.Fprintf(w, "%d events first seen on %s:\n", report.Count, report.Date)
	for _, entry := range report.Entries {
		fmt.Fprintf(w, "  %s\n", entryLine(entry))
	}
	return nil
}

func eventLine(evt *event.Event) string {
	line := evt.Title
	meta := joinMeta(evt.Date, evt.Time, evt.Location)
	if meta != "" {
		line += " — " + meta
	}
	return line
}

func entryLine(entry *ledger.Entry) string {
	line := entry.Title
	meta := joinMeta(entry.Date, entry.Time, entry.Location)
	if meta != "" {
		line += " — " + meta
	}
	if entry.URL != "" {
		line += " (" + entry.URL + ")"
	}
	return line
}

func joinMeta(parts ...string) string {
	meta := ""
	for _, part := range parts {
		if part == "" || part == "00:00" {
			continue
		}
		if meta != "" {
			meta += " • "
		}
		meta += part
	}
	return meta
}
