package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/plindberg/eskilstuna-events/internal/config"
	"github.com/plindberg/eskilstuna-events/internal/discover"
	"github.com/plindberg/eskilstuna-events/internal/logger"
)

// APISource pages through the JSON endpoint. A batch is one page; the
// batch is last when it is empty or shorter than the page size.
type APISource struct {
	cfg    config.APIConfig
	client *http.Client
	page   int
	now    func() time.Time
}

// NewAPISource creates an adapter for the paginated JSON endpoint.
func NewAPISource(cfg config.APIConfig) *APISource {
	return &APISource{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

// NextBatch fetches the next page, retrying transient failures with
// exponential backoff before giving up.
func (s *APISource) NextBatch(ctx context.Context) ([]map[string]any, bool, error) {
	var body []byte

	fetch := func() error {
		data, err := s.fetchPage(ctx)
		if err != nil {
			return err
		}
		body = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.Backoff
	retries := backoff.WithMaxRetries(policy, uint64(s.cfg.MaxRetries))

	if err := backoff.Retry(fetch, backoff.WithContext(retries, ctx)); err != nil {
		return nil, false, &TransientError{
			Op:  fmt.Sprintf("fetching page %d", s.page),
			Err: err,
		}
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		// The endpoint occasionally answers with plain text instead of
		// JSON; that is format drift, not a transport problem.
		return nil, false, &discover.DriftError{Dump: truncate(body)}
	}

	if discover.EmptyCollection(decoded) {
		return nil, true, nil
	}

	records, err := discover.Events(decoded)
	if err != nil {
		return nil, false, err
	}

	logger.Debug("Fetched API page", logger.Fields{
		"page":    s.page,
		"records": len(records),
	})

	s.page++
	return records, len(records) < s.cfg.PageSize, nil
}

// fetchPage issues one page request. Errors returned from here are
// considered retryable.
func (s *APISource) fetchPage(ctx context.Context) ([]byte, error) {
	params := url.Values{}
	params.Set("count", strconv.Itoa(s.cfg.PageSize))
	params.Set("filters", "{}")
	params.Set("page", strconv.Itoa(s.page))
	params.Set("query", "")
	// Cache-busting timestamp; the endpoint misbehaves without it.
	params.Set("timestamp", strconv.FormatInt(s.now().UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", s.cfg.Referer)
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return data, nil
}

// Close implements BatchSource; the API adapter holds no resources.
func (s *APISource) Close() error {
	return nil
}

func truncate(data []byte) string {
	const limit = 2048
	if len(data) > limit {
		data = data[:limit]
	}
	return string(data)
}
