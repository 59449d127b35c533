package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/plindberg/eskilstuna-events/internal/event"
	"github.com/plindberg/eskilstuna-events/internal/ledger"
)

func sampleResult() *OutputResult {
	return &OutputResult{
		HarvestedAt: time.Date(2026, time.September, 1, 6, 0, 0, 0, time.UTC),
		Date:        "2026-09-01",
		EventCount:  42,
		NewCount:    2,
		NewEvents: []*event.Event{
			{
				ID:       "abc123def456",
				Title:    "Konsert i parken",
				Date:     "2026-09-05",
				Time:     "19:00",
				Location: "Stadsparken",
				URL:      "https://visiteskilstuna.se/e/1",
				IsNew:    true,
			},
			{
				ID:    "fed654cba321",
				Title: "Teater",
				Date:  "2026-09-06",
				Time:  "00:00",
				URL:   "https://visiteskilstuna.se/e/2",
				IsNew: true,
			},
		},
	}
}

func TestWriteOutputText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatText, false); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Harvested 42 events for 2026-09-01.") {
		t.Errorf("expected summary line, got:\n%s", out)
	}
	if !strings.Contains(out, "NEW: Konsert i parken — 2026-09-05 • 19:00 • Stadsparken") {
		t.Errorf("expected new event line with meta, got:\n%s", out)
	}
	// The 00:00 sentinel time is noise, not information.
	if strings.Contains(out, "00:00") {
		t.Errorf("sentinel time should not be rendered, got:\n%s", out)
	}
	if strings.Contains(out, "abc123def456") {
		t.Errorf("IDs should only appear in verbose mode, got:\n%s", out)
	}
}

func TestWriteOutputTextVerbose(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatText, true); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "ID: abc123def456") {
		t.Errorf("expected ID in verbose output, got:\n%s", out)
	}
	if !strings.Contains(out, "URL: https://visiteskilstuna.se/e/1") {
		t.Errorf("expected URL in verbose output, got:\n%s", out)
	}
}

func TestWriteOutputTextNoNewEvents(t *testing.T) {
	result := sampleResult()
	result.NewCount = 0
	result.NewEvents = nil

	var buf bytes.Buffer
	if err := WriteOutput(&buf, result, FormatText, false); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No new events found.") {
		t.Errorf("expected no-new-events line, got:\n%s", buf.String())
	}
}

func TestWriteOutputTextIncompleteWarning(t *testing.T) {
	result := sampleResult()
	result.Incomplete = true

	var buf bytes.Buffer
	if err := WriteOutput(&buf, result, FormatText, false); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	if !strings.Contains(buf.String(), "may be incomplete") {
		t.Errorf("expected incompleteness warning, got:\n%s", buf.String())
	}
}

func TestWriteOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatJSON, false); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}

	var decoded OutputResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output should be valid JSON: %v", err)
	}
	if decoded.EventCount != 42 || decoded.NewCount != 2 {
		t.Errorf("expected counts to round-trip, got %+v", decoded)
	}
	if len(decoded.NewEvents) != 2 {
		t.Fatalf("expected 2 new events, got %d", len(decoded.NewEvents))
	}
	if !decoded.NewEvents[0].IsNew {
		t.Error("expected isNew flag in JSON output")
	}
}

func TestWriteNewReport(t *testing.T) {
	report := &NewReport{
		Date:  "2026-08-31",
		Count: 1,
		Entries: []*ledger.Entry{
			{
				FirstSeen: "2026-08-31",
				Title:     "Konsert",
				URL:       "https://visiteskilstuna.se/e/1",
				Date:      "2026-09-05",
				Time:      "19:00",
				Location:  "Stadsparken",
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteNewReport(&buf, report, FormatText); err != nil {
		t.Fatalf("WriteNewReport failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "1 events first seen on 2026-08-31:") {
		t.Errorf("expected header line, got:\n%s", out)
	}
	if !strings.Contains(out, "Konsert — 2026-09-05 • 19:00 • Stadsparken (https://visiteskilstuna.se/e/1)") {
		t.Errorf("expected entry line, got:\n%s", out)
	}

	buf.Reset()
	empty := &NewReport{Date: "2026-08-30"}
	if err := WriteNewReport(&buf, empty, FormatText); err != nil {
		t.Fatalf("WriteNewReport failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No events first seen on 2026-08-30.") {
		t.Errorf("expected empty report line, got:\n%s", buf.String())
	}
}

func TestNewEventsFilter(t *testing.T) {
	events := []*event.Event{
		{ID: "a", IsNew: true},
		{ID: "b"},
		{ID: "c", IsNew: true},
	}

	fresh := newEvents(events)
	if len(fresh) != 2 {
		t.Fatalf("expected 2 new events, got %d", len(fresh))
	}
	if fresh[0].ID != "a" || fresh[1].ID != "c" {
		t.Errorf("expected order preserved, got %s, %s", fresh[0].ID, fresh[1].ID)
	}
}
