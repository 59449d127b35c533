package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func testOptions() Options {
	return Options{
		MaxRounds:    40,
		PollInterval: time.Millisecond,
		SettleWait:   5 * time.Millisecond,
		StableRounds: 2,
	}
}

// pagedSource mimics the API adapter: appendable batches, last signaled
// by the source itself.
type pagedSource struct {
	batches [][]map[string]any
	calls   int
	err     error
}

func (s *pagedSource) NextBatch(ctx context.Context) ([]map[string]any, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if s.calls >= len(s.batches) {
		return nil, true, nil
	}
	batch := s.batches[s.calls]
	s.calls++
	return batch, s.calls == len(s.batches), nil
}

func (s *pagedSource) Close() error { return nil }

// renderedSource mimics the UI adapter: cumulative batches plus the
// CountPoller capability.
type renderedSource struct {
	counts  []int // rendered item count after each activation
	calls   int
	present bool // control state after the final count is reached
}

func (s *renderedSource) current() int {
	idx := s.calls - 1
	if idx >= len(s.counts) {
		idx = len(s.counts) - 1
	}
	return s.counts[idx]
}

func (s *renderedSource) NextBatch(ctx context.Context) ([]map[string]any, bool, error) {
	if s.calls < len(s.counts) {
		s.calls++
	}
	n := s.current()
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{"title": fmt.Sprintf("event %d", i)}
	}
	return records, false, nil
}

func (s *renderedSource) ItemCount(ctx context.Context) (int, error) { return s.current(), nil }

func (s *renderedSource) MoreAvailable(ctx context.Context) (bool, error) { return s.present, nil }

func (s *renderedSource) Close() error { return nil }

func TestCollectPagedTerminatesOnLast(t *testing.T) {
	src := &pagedSource{batches: [][]map[string]any{
		{{"title": "a"}, {"title": "b"}},
		{{"title": "c"}},
	}}

	result, err := Collect(context.Background(), src, testOptions())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(result.Records) != 3 {
		t.Errorf("expected 3 records, got %d", len(result.Records))
	}
	if result.Rounds != 2 {
		t.Errorf("expected 2 rounds, got %d", result.Rounds)
	}
	if result.Ambiguous {
		t.Error("clean last-batch termination should not be ambiguous")
	}
	if src.calls != 2 {
		t.Errorf("expected 2 NextBatch calls, got %d", src.calls)
	}
}

func TestCollectPropagatesSourceError(t *testing.T) {
	wantErr := &TransientError{Op: "fetching page 0", Err: errors.New("boom")}
	src := &pagedSource{err: wantErr}

	_, err := Collect(context.Background(), src, testOptions())
	if err == nil {
		t.Fatal("expected error")
	}
	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransientError, got %T", err)
	}
}

func TestCollectStableCountTerminates(t *testing.T) {
	// Counts [5, 5] with the control still present: the stability rule
	// must terminate the run with 5 items instead of hanging.
	src := &renderedSource{counts: []int{5, 5, 5}, present: true}

	result, err := Collect(context.Background(), src, testOptions())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(result.Records) != 5 {
		t.Errorf("expected 5 records, got %d", len(result.Records))
	}
	if !result.Ambiguous {
		t.Error("stability-forced termination should be flagged ambiguous")
	}
}

func TestCollectControlDisappears(t *testing.T) {
	// The count stops growing and the control is gone: clean termination.
	src := &renderedSource{counts: []int{5, 5}, present: false}

	result, err := Collect(context.Background(), src, testOptions())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(result.Records) != 5 {
		t.Errorf("expected 5 records, got %d", len(result.Records))
	}
	if result.Ambiguous {
		t.Error("termination via absent control should not be ambiguous")
	}
}

func TestCollectGrowingCountsKeepFetching(t *testing.T) {
	src := &renderedSource{counts: []int{5, 10, 15, 15, 15}, present: true}

	result, err := Collect(context.Background(), src, testOptions())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(result.Records) != 15 {
		t.Errorf("expected 15 records, got %d", len(result.Records))
	}
}

func TestCollectHardRoundCeiling(t *testing.T) {
	// A source that always reports growth must still be stopped by the
	// hard ceiling.
	counts := make([]int, 100)
	for i := range counts {
		counts[i] = i + 1
	}
	src := &renderedSource{counts: counts, present: true}

	opts := testOptions()
	opts.MaxRounds = 5

	result, err := Collect(context.Background(), src, opts)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if result.Rounds != 5 {
		t.Errorf("expected exactly 5 rounds, got %d", result.Rounds)
	}
	if !result.Ambiguous {
		t.Error("ceiling-cut collection should be flagged ambiguous")
	}
}

func TestCollectHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &renderedSource{counts: []int{5, 5, 5, 5}, present: true}

	opts := testOptions()
	opts.SettleWait = time.Hour // force the poll loop to sleep

	_, err := Collect(ctx, src, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
