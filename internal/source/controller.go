package source

import (
	"context"
	"time"

	"github.com/plindberg/eskilstuna-events/internal/logger"
)

// Options tunes the controller's termination heuristics. The durations
// and thresholds are empirically tuned for the upstream UI; treat them
// as configuration, not constants.
type Options struct {
	// MaxRounds is the hard ceiling on pagination rounds regardless of
	// what the source reports.
	MaxRounds int
	// PollInterval and SettleWait bound the item-count growth polling
	// for CountPoller sources.
	PollInterval time.Duration
	SettleWait   time.Duration
	// StableRounds is the number of consecutive non-growing rounds after
	// which termination is forced even if the control is still present.
	StableRounds int
}

// Collect drives a BatchSource to exhaustion and returns everything it
// produced. A transport or drift error aborts collection; hitting a
// ceiling does not, but flags the result as ambiguous.
func Collect(ctx context.Context, src BatchSource, opts Options) (*Result, error) {
	result := &Result{}
	poller, cumulative := src.(CountPoller)

	stable := 0
	lastCount := 0

	for {
		if result.Rounds >= opts.MaxRounds {
			logger.Warn("Pagination hit hard round ceiling", logger.Fields{
				"rounds":  result.Rounds,
				"records": len(result.Records),
			})
			result.Ambiguous = true
			return result, nil
		}

		records, last, err := src.NextBatch(ctx)
		if err != nil {
			return nil, err
		}
		result.Rounds++

		if cumulative {
			// CountPoller sources return the full rendered list.
			result.Records = records
		} else {
			result.Records = append(result.Records, records...)
		}

		if last {
			return result, nil
		}

		if !cumulative {
			continue
		}

		// Stability check: a load-more control that never disables is
		// only trusted as long as the item count keeps growing.
		count, err := waitForGrowth(ctx, poller, lastCount, opts)
		if err != nil {
			return nil, err
		}

		if count > lastCount {
			lastCount = count
			stable = 0
			continue
		}

		present, err := poller.MoreAvailable(ctx)
		if err != nil {
			return nil, err
		}
		if !present {
			return result, nil
		}

		stable++
		if stable >= opts.StableRounds {
			logger.Warn("Pagination terminated by stability rule", logger.Fields{
				"stable_rounds": stable,
				"records":       len(result.Records),
			})
			result.Ambiguous = true
			return result, nil
		}
	}
}

// waitForGrowth polls the rendered item count until it exceeds prev or
// the settle wait expires, and returns the last observed count.
func waitForGrowth(ctx context.Context, poller CountPoller, prev int, opts Options) (int, error) {
	deadline := time.Now().Add(opts.SettleWait)
	count := prev

	for {
		var err error
		count, err = poller.ItemCount(ctx)
		if err != nil {
			return 0, err
		}
		if count > prev || !time.Now().Before(deadline) {
			return count, nil
		}
		if err := sleep(ctx, opts.PollInterval); err != nil {
			return 0, err
		}
	}
}

// sleep is a context-aware time.Sleep.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
