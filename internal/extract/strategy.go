package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/diag"
	"github.com/maltedev/listing-scraper/internal/models"
	"github.com/maltedev/listing-scraper/internal/ratelimit"
)

// Strategy turns one marketplace's rendered search page into listings.
type Strategy interface {
	Platform() models.Platform
	// Allows reports whether a host name (no port) belongs to the marketplace.
	Allows(host string) bool
	// ReadySelectors are tried in order, each as an independent navigation.
	ReadySelectors() []string
	// BlockPattern matches block-page titles. Nil disables detection.
	BlockPattern() *regexp.Regexp
	Extract(ctx context.Context, page browser.Page, p Params) (Batch, error)
}

// MobileRenderer is implemented by strategies with a mobile site to fall
// back to when the desktop pass yields nothing.
type MobileRenderer interface {
	MobileURL(target string) (string, bool)
}

// Params drive one extraction call.
type Params struct {
	SourceURL string
	// Start is the last position already handed out in this session.
	Start int
	// Limit caps accepted listings for this call.
	Limit       int
	Timeout     time.Duration
	ScrollSteps int
	ScrollPause time.Duration
	Trail       *diag.Trail
	Sleep       ratelimit.Sleeper
	Now         func() time.Time
}

func (p Params) withDefaults() Params {
	if p.Sleep == nil {
		p.Sleep = ratelimit.Sleep
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return p
}

// Batch is the outcome of one extraction call.
type Batch struct {
	Listings []models.Listing
	// Next is the last position handed out, to seed the following call.
	Next    int
	Skipped int
}

// Full reports whether the call cap has been reached.
func (b *Batch) Full(limit int) bool {
	return len(b.Listings) >= limit
}

// snapshot parses the current page HTML.
func snapshot(page browser.Page) (*goquery.Document, error) {
	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page content: %w", err)
	}
	return doc, nil
}

// scroll nudges lazy-loaded content into the DOM.
func scroll(ctx context.Context, page browser.Page, p Params) error {
	for i := 0; i < p.ScrollSteps; i++ {
		if err := page.ScrollToBottom(); err != nil {
			p.Trail.Add("scroll error", "step", i+1, "error", err)
		}
		if err := p.Sleep(ctx, p.ScrollPause); err != nil {
			return err
		}
	}
	return nil
}

// guardCard runs fn and turns a panic into an error so one malformed card
// cannot abort the pass.
func guardCard(fn func() (models.Listing, bool)) (l models.Listing, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("card parse panic: %v", r)
		}
	}()
	l, ok = fn()
	return l, ok, nil
}

// Registry holds strategies keyed by platform in processing order.
type Registry struct {
	order      []Strategy
	byPlatform map[models.Platform]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{byPlatform: make(map[models.Platform]Strategy, len(strategies))}
	for _, s := range strategies {
		if _, dup := r.byPlatform[s.Platform()]; dup {
			continue
		}
		r.order = append(r.order, s)
		r.byPlatform[s.Platform()] = s
	}
	return r
}

// DefaultRegistry processes Flipkart first so a block surfaces early.
func DefaultRegistry() *Registry {
	return NewRegistry(NewFlipkart(), NewAmazon())
}

func (r *Registry) Ordered() []Strategy {
	out := make([]Strategy, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Lookup(p models.Platform) (Strategy, bool) {
	s, ok := r.byPlatform[p]
	return s, ok
}

func (r *Registry) Platforms() []models.Platform {
	out := make([]models.Platform, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, s.Platform())
	}
	return out
}
