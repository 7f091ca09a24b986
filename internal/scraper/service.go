package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/deadline"
	"github.com/maltedev/listing-scraper/internal/diag"
	"github.com/maltedev/listing-scraper/internal/extract"
	"github.com/maltedev/listing-scraper/internal/models"
	"github.com/maltedev/listing-scraper/internal/ratelimit"
)

// Service runs scrape requests against a session factory. It is safe for
// concurrent use; each call owns its sessions, deadline and trail.
type Service struct {
	sessions  SessionFactory
	registry  *extract.Registry
	opts      Options
	navigator *Navigator
	desktop   *ratelimit.Jitter
	mobile    *ratelimit.Jitter
	sleep     ratelimit.Sleeper
	clock     deadline.Clock
	logger    *slog.Logger
}

func NewService(sessions SessionFactory, registry *extract.Registry, opts Options, logger *slog.Logger) *Service {
	if registry == nil {
		registry = extract.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions:  sessions,
		registry:  registry,
		opts:      opts,
		navigator: NewNavigator(opts.NavAttempts, opts.RetryDelay, ratelimit.Sleep),
		desktop:   ratelimit.NewJitter(opts.Desktop.MinWait, opts.Desktop.MaxWait),
		mobile:    ratelimit.NewJitter(opts.Mobile.MinWait, opts.Mobile.MaxWait),
		sleep:     ratelimit.Sleep,
		clock:     time.Now,
		logger:    logger.With("component", "scraper"),
	}
}

// WithClock replaces the time source of deadlines and timestamps.
func (s *Service) WithClock(clock deadline.Clock) *Service {
	s.clock = clock
	s.navigator.Now = clock
	return s
}

// WithSleeper replaces every pause the service takes.
func (s *Service) WithSleeper(sleep ratelimit.Sleeper) *Service {
	s.sleep = sleep
	s.navigator.Sleep = sleep
	s.desktop.WithSleeper(sleep)
	s.mobile.WithSleeper(sleep)
	return s
}

func (s *Service) Registry() *extract.Registry {
	return s.registry
}

// run is the state of one request.
type run struct {
	req      *models.ScrapeRequest
	trail    *diag.Trail
	deadline *deadline.Deadline
	captcha  map[models.Platform]bool
	shot     string
}

// Scrape processes every requested platform in registry order. Partial
// results and block pages still produce a result; only faults outside the
// pipeline return an error. Sessions are closed before Scrape returns.
func (s *Service) Scrape(ctx context.Context, req *models.ScrapeRequest, trail *diag.Trail) (result *models.ScrapeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scrape panicked", "request_id", req.RequestID, "panic", r)
			result, err = nil, models.NewRunError(r)
		}
	}()

	var strategies []extract.Strategy
	for _, strat := range s.registry.Ordered() {
		if _, ok := req.Target(strat.Platform()); ok {
			strategies = append(strategies, strat)
		}
	}
	if len(strategies) == 0 {
		return nil, models.ErrNoTargets
	}

	r := &run{
		req:      req,
		trail:    trail,
		deadline: deadline.NewWithClock(s.opts.HardLimit, s.clock),
		captcha:  make(map[models.Platform]bool),
	}
	for _, p := range s.registry.Platforms() {
		r.captcha[p] = false
	}
	s.logger.Debug("scrape started",
		"request_id", req.RequestID,
		"platforms", len(strategies),
		"deadline", r.deadline.At(),
	)

	session, err := s.sessions.NewSession(ctx, browser.Desktop)
	if err != nil {
		return nil, &models.RunError{
			Message: "failed to open rendering session",
			Err:     fmt.Errorf("%w: %w", models.ErrSessionUnavailable, err),
		}
	}
	defer s.release(session, trail)

	var stages [][]models.Listing
	for _, strat := range strategies {
		platform := strat.Platform()
		target, _ := req.Target(platform)

		if ctx.Err() != nil {
			trail.Add(fmt.Sprintf("%s: skipped, request cancelled", platform))
			break
		}
		if !r.deadline.Allows(deadline.StageMinimum) {
			trail.Add(fmt.Sprintf("%s: skipped due to deadline", platform), "remaining_ms", r.deadline.Remaining())
			continue
		}

		rows := s.scrapeDesktop(ctx, r, session, strat, target)
		stages = append(stages, rows)

		if len(rows) > 0 {
			continue
		}
		renderer, ok := strat.(extract.MobileRenderer)
		if !ok {
			continue
		}
		if !r.deadline.Exceeds(deadline.MobileMinimum) {
			trail.Add(fmt.Sprintf("%s: no time for mobile fallback", platform), "remaining_ms", r.deadline.Remaining())
			continue
		}
		stages = append(stages, s.scrapeMobile(ctx, r, strat, renderer, target))
	}

	rows := Aggregate(s.perSiteLimit(req), stages...)
	s.logger.Info("scrape finished",
		"request_id", req.RequestID,
		"rows", len(rows),
		"captcha", r.captcha,
		"elapsed", r.deadline.Elapsed(),
	)
	return Assemble(rows, r.captcha, trail, r.shot), nil
}

// scrapeDesktop walks result pages of one platform in the shared session.
func (s *Service) scrapeDesktop(ctx context.Context, r *run, session browser.Session, strat extract.Strategy, target string) []models.Listing {
	platform := strat.Platform()
	limit := s.perSiteLimit(r.req)
	pages := r.req.MaxPages
	if pages <= 0 {
		pages = s.opts.MaxPages
	}

	var rows []models.Listing
	pos := 0
	for n := 1; n <= pages && len(rows) < limit; n++ {
		if !r.deadline.Allows(deadline.StageMinimum) {
			r.trail.Add(fmt.Sprintf("%s: deadline near, stop", platform), "page", n)
			break
		}

		url := PageURL(target, n)
		nav := s.navigator.NavigateTiers(ctx, session, url, strat.ReadySelectors(), s.opts.NavTimeout, strat.BlockPattern(), r.trail)
		if nav.Blocked {
			r.captcha[platform] = true
			r.trail.Add(fmt.Sprintf("%s: captcha on desktop", platform), "page", n)
			break
		}
		if !nav.OK {
			r.trail.Add(fmt.Sprintf("%s: navigation failed", platform), "page", n)
			break
		}

		s.captureScreenshot(r, session)

		batch, err := s.extract(ctx, session, strat, s.desktop, s.opts.Desktop, extract.Params{
			SourceURL: url,
			Start:     pos,
			Limit:     limit - len(rows),
			Timeout:   s.opts.NavTimeout,
			Trail:     r.trail,
		})
		if err != nil {
			r.trail.Add(fmt.Sprintf("%s: extraction failed", platform), "page", n, "error", err)
			break
		}
		pos = batch.Next
		rows = append(rows, batch.Listings...)
	}
	return rows
}

// extract paces like a person, pre-scrolls, then runs the strategy.
func (s *Service) extract(ctx context.Context, page browser.Page, strat extract.Strategy, jitter *ratelimit.Jitter, pacing Pacing, p extract.Params) (extract.Batch, error) {
	if _, err := jitter.Wait(ctx); err != nil {
		return extract.Batch{Next: p.Start}, err
	}
	for i := 0; i < pacing.PreScrollSteps; i++ {
		if err := page.ScrollToBottom(); err != nil {
			p.Trail.Add("scroll error", "error", err)
		}
		if err := s.sleep(ctx, pacing.PreScrollPause); err != nil {
			return extract.Batch{Next: p.Start}, err
		}
	}

	p.ScrollSteps = pacing.ScrollSteps
	p.ScrollPause = pacing.ScrollPause
	p.Sleep = s.sleep
	p.Now = s.clock
	return strat.Extract(ctx, page, p)
}

func (s *Service) captureScreenshot(r *run, page browser.Page) {
	if !r.req.Screenshot || r.shot != "" {
		return
	}
	jpeg, err := page.Screenshot(s.opts.ScreenshotQuality)
	if err != nil {
		r.trail.Add("screenshot failed", "error", err)
		return
	}
	r.shot = EncodeScreenshot(jpeg)
}

func (s *Service) release(session browser.Session, trail *diag.Trail) {
	if err := session.Close(); err != nil {
		trail.Add("session close error", "device", session.Device().String(), "error", err)
		s.logger.Warn("failed to close session", "device", session.Device().String(), "error", err)
	}
}

func (s *Service) perSiteLimit(req *models.ScrapeRequest) int {
	if req.PerSiteLimit > 0 {
		return req.PerSiteLimit
	}
	return s.opts.PerSiteLimit
}
