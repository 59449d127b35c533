package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plindberg/eskilstuna-events/internal/config"
	"github.com/plindberg/eskilstuna-events/internal/discover"
	"github.com/plindberg/eskilstuna-events/internal/event"
	"github.com/plindberg/eskilstuna-events/internal/ledger"
	"github.com/plindberg/eskilstuna-events/internal/logger"
	"github.com/plindberg/eskilstuna-events/internal/normalize"
	"github.com/plindberg/eskilstuna-events/internal/source"
	"github.com/plindberg/eskilstuna-events/internal/storage"
)

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNewEvents = 2
)

const (
	SourceAPI  = "api"
	SourceUI   = "ui"
	SourceAuto = "auto"
)

var (
	flagSource  string
	flagDataDir string
	flagConfig  string
	flagFormat  string
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eskilstuna-events",
		Short: "Harvest the Eskilstuna events guide and report new events",
		Long: `Harvests the public Eskilstuna event listing, normalizes it into one
canonical schema, and reconciles against the first-seen ledger to report
which events are new. One run produces one date-stamped snapshot file.`,
		RunE: runHarvest,
	}

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "data", "Data directory for snapshots and the ledger")
	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Optional YAML config file")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.Flags().StringVar(&flagSource, "source", SourceAuto, "Source transport: api, ui, or auto (api with ui fallback)")

	cmd.AddCommand(newNewCmd())

	return cmd
}

// runHarvest is the main command logic
func runHarvest(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}

	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	mode := strings.ToLower(flagSource)
	if mode != SourceAPI && mode != SourceUI && mode != SourceAuto {
		return fmt.Errorf("invalid source: %s (must be 'api', 'ui', or 'auto')", flagSource)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.New(flagDataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	led, err := ledger.Load(store.LedgerPath())
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}
	logger.Debug("Loaded ledger", logger.Fields{"entries": led.Len()})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	collected, err := collect(ctx, cfg, mode)
	if err != nil {
		// A failed run leaves the ledger and prior snapshots untouched.
		var drift *discover.DriftError
		if errors.As(err, &drift) {
			logger.Error("Source format drift", logger.Fields{"dump": drift.Dump}, err)
		}
		return fmt.Errorf("harvesting events: %w", err)
	}

	now := time.Now()
	runDate := now.Format("2006-01-02")

	norm := normalize.New(cfg.Normalize, now)
	events, skipped := norm.Batch(collected.Records)
	if skipped > 0 {
		logger.AddCounter("normalize.skipped", int64(skipped))
		logger.Warn("Skipped records during normalization", logger.Fields{
			"skipped": skipped,
		})
	}

	deduped := event.Dedup(events)
	event.SortForOutput(deduped)

	newCount := led.Reconcile(deduped, runDate)

	if err := store.SaveSnapshot(deduped, runDate); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	if err := led.Save(store.LedgerPath()); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}

	logger.Info("Harvest complete", logger.Fields{
		"date":      runDate,
		"fetched":   len(collected.Records),
		"skipped":   skipped,
		"events":    len(deduped),
		"new":       newCount,
		"rounds":    collected.Rounds,
		"ambiguous": collected.Ambiguous,
	})

	result := &OutputResult{
		HarvestedAt: now.UTC(),
		Date:        runDate,
		EventCount:  len(deduped),
		NewCount:    newCount,
		Skipped:     skipped,
		Incomplete:  collected.Ambiguous,
		NewEvents:   newEvents(deduped),
	}

	if err := WriteOutput(os.Stdout, result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if newCount > 0 {
		os.Exit(ExitNewEvents)
	}
	os.Exit(ExitSuccess)
	return nil
}

// collect drives the configured transport; auto mode falls back to the
// rendered UI when the API run fails.
func collect(ctx context.Context, cfg *config.Config, mode string) (*source.Result, error) {
	opts := source.Options{
		MaxRounds:    cfg.MaxRounds,
		PollInterval: cfg.UI.PollInterval,
		SettleWait:   cfg.UI.SettleWait,
		StableRounds: cfg.UI.StableRounds,
	}

	switch mode {
	case SourceAPI:
		return collectFrom(ctx, source.NewAPISource(cfg.API), opts)
	case SourceUI:
		return collectFrom(ctx, source.NewUISource(cfg.UI), opts)
	default:
		result, err := collectFrom(ctx, source.NewAPISource(cfg.API), opts)
		if err == nil {
			return result, nil
		}
		logger.Warn("API harvest failed, falling back to UI", logger.Fields{
			"error": err.Error(),
		})
		return collectFrom(ctx, source.NewUISource(cfg.UI), opts)
	}
}

func collectFrom(ctx context.Context, src source.BatchSource, opts source.Options) (*source.Result, error) {
	defer src.Close()
	return source.Collect(ctx, src, opts)
}

func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newEvents filters the snapshot down to the new-flagged events.
func newEvents(events []*event.Event) []*event.Event {
	fresh := make([]*event.Event, 0)
	for _, evt := range events {
		if evt.IsNew {
			fresh = append(fresh, evt)
		}
	}
	return fresh
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
