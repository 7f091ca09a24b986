package scraper

import (
	"context"
	"fmt"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/extract"
	"github.com/maltedev/listing-scraper/internal/models"
)

// scrapeMobile retries a platform once on its mobile site in a disposable
// session. Positions restart at 1 because this is a new session.
func (s *Service) scrapeMobile(ctx context.Context, r *run, strat extract.Strategy, renderer extract.MobileRenderer, target string) []models.Listing {
	platform := strat.Platform()

	murl, ok := renderer.MobileURL(target)
	if !ok {
		r.trail.Add(fmt.Sprintf("%s: no mobile url", platform), "target", target)
		return nil
	}
	r.trail.Add(fmt.Sprintf("%s: trying mobile fallback", platform), "url", murl)

	session, err := s.sessions.NewSession(ctx, browser.Mobile)
	if err != nil {
		r.trail.Add(fmt.Sprintf("%s: mobile session failed", platform), "error", err)
		return nil
	}
	defer s.release(session, r.trail)

	nav := s.navigator.NavigateTiers(ctx, session, murl, strat.ReadySelectors(), s.opts.MobileTimeout, strat.BlockPattern(), r.trail)
	if nav.Blocked {
		r.captcha[platform] = true
		r.trail.Add(fmt.Sprintf("%s: captcha on mobile", platform))
		return nil
	}
	if !nav.OK {
		r.trail.Add(fmt.Sprintf("%s: mobile navigation failed", platform))
		return nil
	}

	limit := s.opts.MobileLimit
	if siteCap := s.perSiteLimit(r.req); siteCap < limit {
		limit = siteCap
	}

	batch, err := s.extract(ctx, session, strat, s.mobile, s.opts.Mobile, extract.Params{
		SourceURL: murl,
		Start:     0,
		Limit:     limit,
		Timeout:   s.opts.MobileTimeout,
		Trail:     r.trail,
	})
	if err != nil {
		r.trail.Add(fmt.Sprintf("%s: mobile extraction failed", platform), "error", err)
		return nil
	}
	return batch.Listings
}
