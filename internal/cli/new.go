package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plindberg/eskilstuna-events/internal/ledger"
	"github.com/plindberg/eskilstuna-events/internal/storage"
)

var flagNewDate string

// newNewCmd creates the "new" subcommand: the events first seen on a
// given date, sorted by (date, title).
func newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "List events first seen on a date (default: yesterday)",
		RunE:  runNew,
	}

	cmd.Flags().StringVar(&flagNewDate, "date", "", "Calendar date (YYYY-MM-DD), defaults to yesterday")

	return cmd
}

func runNew(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	date := flagNewDate
	if date == "" {
		date = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}

	store, err := storage.New(flagDataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	led, err := ledger.Load(store.LedgerPath())
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	entries := led.NewSince(date)
	report := &NewReport{
		Date:    date,
		Count:   len(entries),
		Entries: entries,
	}

	if err := WriteNewReport(os.Stdout, report, format); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
