package scraper

import (
	"context"
	"regexp"
	"time"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/diag"
	"github.com/maltedev/listing-scraper/internal/models"
	"github.com/maltedev/listing-scraper/internal/ratelimit"
)

// Navigator loads a page and waits for proof that content rendered.
type Navigator struct {
	Attempts   int
	RetryDelay time.Duration
	Sleep      ratelimit.Sleeper
	Now        func() time.Time
}

func NewNavigator(attempts int, retryDelay time.Duration, sleep ratelimit.Sleeper) *Navigator {
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = ratelimit.Sleep
	}
	return &Navigator{
		Attempts:   attempts,
		RetryDelay: retryDelay,
		Sleep:      sleep,
		Now:        time.Now,
	}
}

// Navigate goes to url and waits up to timeout for ready. A title matching
// block ends the call at once with Blocked set. Goto and wait failures are
// retried after RetryDelay until Attempts run out.
func (n *Navigator) Navigate(ctx context.Context, page browser.Page, url, ready string, timeout time.Duration, block *regexp.Regexp, trail *diag.Trail) models.NavigationOutcome {
	for attempt := 1; attempt <= n.Attempts; attempt++ {
		if attempt > 1 {
			if err := n.Sleep(ctx, n.RetryDelay); err != nil {
				trail.Add("navigation cancelled", "url", url, "error", err)
				return models.NavigationOutcome{}
			}
		}

		start := n.Now()
		trail.Add("goto attempt", "attempt", attempt, "url", url)

		if err := page.Goto(url, timeout); err != nil {
			trail.Add("goto/wait error", "attempt", attempt, "error", err)
			continue
		}

		title, err := page.Title()
		if err != nil {
			title = ""
		}
		trail.Add("after goto", "title", title, "cur", page.URL(), "dur_ms", n.Now().Sub(start))

		if block != nil && block.MatchString(title) {
			trail.Add("block page detected by title", "title", title)
			return models.NavigationOutcome{Blocked: true}
		}

		if err := page.WaitForSelector(ready, timeout); err != nil {
			trail.Add("goto/wait error", "attempt", attempt, "error", err)
			continue
		}

		trail.Add("selector appeared", "ready", ready)
		return models.NavigationOutcome{OK: true}
	}

	return models.NavigationOutcome{}
}

// NavigateTiers tries each readiness selector as an independent Navigate
// call until one succeeds or a block page is seen.
func (n *Navigator) NavigateTiers(ctx context.Context, page browser.Page, url string, ready []string, timeout time.Duration, block *regexp.Regexp, trail *diag.Trail) models.NavigationOutcome {
	var outcome models.NavigationOutcome
	for i, sel := range ready {
		if i > 0 {
			if ctx.Err() != nil {
				break
			}
			trail.Add("readiness fallback", "ready", sel)
		}
		outcome = n.Navigate(ctx, page, url, sel, timeout, block, trail)
		if outcome.OK || outcome.Blocked {
			return outcome
		}
	}
	return outcome
}
