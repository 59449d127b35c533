package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/plindberg/eskilstuna-events/internal/config"
	"github.com/plindberg/eskilstuna-events/internal/logger"
)

// Control state as reported by the in-page probe.
const (
	controlPresent  = "present"
	controlAbsent   = "absent"
	controlDisabled = "disabled"
	controlHidden   = "hidden"
	controlClicked  = "clicked"
)

// controlStateJS locates the load-more control by its visible label.
const controlStateJS = `(label) => {
	const nodes = document.querySelectorAll('button, a');
	for (const el of nodes) {
		if (!el.textContent || !el.textContent.trim().includes(label)) continue;
		if (el.disabled || el.getAttribute('aria-disabled') === 'true') return 'disabled';
		if (el.offsetParent === null) return 'hidden';
		return 'present';
	}
	return 'absent';
}`

// activateJS clicks the control when it is present and enabled.
const activateJS = `(label) => {
	const nodes = document.querySelectorAll('button, a');
	for (const el of nodes) {
		if (!el.textContent || !el.textContent.trim().includes(label)) continue;
		if (el.disabled || el.getAttribute('aria-disabled') === 'true') return 'disabled';
		if (el.offsetParent === null) return 'hidden';
		el.click();
		return 'clicked';
	}
	return 'absent';
}`

const itemCountJS = `(sel) => document.querySelectorAll(sel).length`

const fullDOMJS = `() => document.documentElement.outerHTML`

// UISource drives the rendered event list in a headless browser. One
// batch corresponds to one activation of the load-more control; every
// batch is the full list of currently rendered cards.
type UISource struct {
	cfg     config.UIConfig
	browser *rod.Browser
	page    *rod.Page
	started bool
}

// NewUISource creates an adapter for the load-more-driven UI list.
func NewUISource(cfg config.UIConfig) *UISource {
	return &UISource{cfg: cfg}
}

// NextBatch activates the load-more control once (after an initial
// navigation round) and returns the full rendered card list.
func (s *UISource) NextBatch(ctx context.Context) ([]map[string]any, bool, error) {
	if !s.started {
		if err := s.connect(ctx); err != nil {
			return nil, false, &TransientError{Op: "opening event list", Err: err}
		}
		s.started = true
	} else {
		before, err := s.ItemCount(ctx)
		if err != nil {
			return nil, false, err
		}
		state, err := s.activate(ctx)
		if err != nil {
			return nil, false, err
		}
		if state != controlClicked {
			records, err := s.collect(ctx)
			return records, true, err
		}
		if err := s.settle(ctx, before); err != nil {
			return nil, false, err
		}
	}

	records, err := s.collect(ctx)
	if err != nil {
		return nil, false, err
	}

	more, err := s.MoreAvailable(ctx)
	if err != nil {
		return nil, false, err
	}

	logger.Debug("Collected UI batch", logger.Fields{
		"records": len(records),
		"more":    more,
	})
	return records, !more, nil
}

// ItemCount implements CountPoller.
func (s *UISource) ItemCount(ctx context.Context) (int, error) {
	res, err := s.page.Context(ctx).Eval(itemCountJS, s.cfg.CardSelector)
	if err != nil {
		return 0, &TransientError{Op: "counting rendered items", Err: err}
	}
	return res.Value.Int(), nil
}

// MoreAvailable implements CountPoller: the control is present, visible,
// and enabled.
func (s *UISource) MoreAvailable(ctx context.Context) (bool, error) {
	state, err := s.controlState(ctx)
	if err != nil {
		return false, err
	}
	return state == controlPresent, nil
}

// Close shuts the browser down.
func (s *UISource) Close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}

// connect launches a headless browser and navigates to the event list.
func (s *UISource) connect(ctx context.Context) error {
	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connecting to browser: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return fmt.Errorf("creating tab: %w", err)
	}
	s.page = page

	navCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(s.cfg.URL); err != nil {
		return fmt.Errorf("navigating to %s: %w", s.cfg.URL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		logger.Warn("Page load wait timed out", logger.Fields{"url": s.cfg.URL})
	}
	return nil
}

func (s *UISource) controlState(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(controlStateJS, s.cfg.LoadMoreLabel)
	if err != nil {
		return "", &TransientError{Op: "probing load-more control", Err: err}
	}
	return res.Value.Str(), nil
}

func (s *UISource) activate(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(activateJS, s.cfg.LoadMoreLabel)
	if err != nil {
		return "", &TransientError{Op: "activating load-more control", Err: err}
	}
	return res.Value.Str(), nil
}

// settle waits for the page to finish loading after an activation: the
// item count grew, or the control disappeared and then reappeared or
// stayed absent. Bounded by the configured settle wait either way.
func (s *UISource) settle(ctx context.Context, beforeCount int) error {
	deadline := time.Now().Add(s.cfg.SettleWait)
	sawGone := false

	for time.Now().Before(deadline) {
		if err := sleep(ctx, s.cfg.PollInterval); err != nil {
			return err
		}

		count, err := s.ItemCount(ctx)
		if err != nil {
			return err
		}
		if count > beforeCount {
			return nil
		}

		state, err := s.controlState(ctx)
		if err != nil {
			return err
		}
		if state == controlPresent {
			if sawGone {
				return nil // reappeared after loading
			}
			continue
		}
		if sawGone {
			return nil // stayed gone across two polls
		}
		sawGone = true
	}
	return nil
}

// collect projects the rendered cards into raw records.
func (s *UISource) collect(ctx context.Context) ([]map[string]any, error) {
	res, err := s.page.Context(ctx).Eval(fullDOMJS)
	if err != nil {
		return nil, &TransientError{Op: "reading rendered page", Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Value.Str()))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered HTML: %w", err)
	}
	return projectCards(doc, s.cfg.CardSelector), nil
}

// projectCards maps card nodes to the raw record shape that the
// normalizer understands.
func projectCards(doc *goquery.Document, cardSelector string) []map[string]any {
	records := make([]map[string]any, 0)

	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find("h2, h3").First().Text())
		dateText := strings.TrimSpace(card.Find(".date, .eventDate").First().Text())
		category := strings.TrimSpace(card.Find(".category, .categoryName").First().Text())
		href, _ := card.Find("a").First().Attr("href")

		record := map[string]any{
			"title":    title,
			"href":     strings.TrimSpace(href),
			"dateText": dateText,
		}
		if category != "" {
			record["categoryName"] = category
		}
		records = append(records, record)
	})
	return records
}
