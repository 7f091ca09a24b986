package extract

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/models"
)

const (
	flipkartAnchors  = "a[href*='/p/'], a[href*='/product/']"
	flipkartGrid     = "div._1YokD2, div._2kHMtA, div.gUuXy-, div.y0S0Pe"
	flipkartDismiss  = "button._2KpZ6l._2doB4z, button:has-text('✕')"
	flipkartOrigin   = "https://www.flipkart.com"
	flipkartMobile   = "m.flipkart.com"
	dismissTimeout   = time.Second
	dismissSettle    = 200 * time.Millisecond
	plausiblePriceAt = 3000
)

var (
	flipkartBlockTitle = regexp.MustCompile(`(?i)recaptcha`)

	// Card containers in priority order.
	flipkartCards = []string{
		"div._2kHMtA",
		"div._4ddWXP",
		"div._1AtVbE",
		"div.gUuXy-",
		"div.y0S0Pe",
	}

	trackingParams = []string{"otracker", "otracker1"}
)

// Flipkart extracts search results from flipkart.com hosts. Its layout
// changes often, so every field degrades through tiers.
type Flipkart struct {
	nameTiers  []Tier[string]
	priceTiers []PriceTier
	origin     *url.URL
}

func NewFlipkart() *Flipkart {
	origin, _ := url.Parse(flipkartOrigin)
	return &Flipkart{
		nameTiers: []Tier[string]{
			TextTier("div._4rR01T"),
			TextTier("a.s1Q9rs"),
			TextTier("div.KzDlHZ"),
			TextTier("a.IRpwTa"),
			AttrTier("img", "alt"),
		},
		priceTiers: []PriceTier{
			SelectorPriceTier("class",
				MoneyTier("div._30jeq3._1_WHN1", "div._30jeq3"),
				MoneyTier("div._3I9_wc._27UcVY", "div._3I9_wc"),
			),
			{Name: "text-scan", Fill: scanRupees},
		},
		origin: origin,
	}
}

func (f *Flipkart) Platform() models.Platform {
	return models.PlatformFlipkart
}

// Allows accepts flipkart.com and its subdomains.
func (f *Flipkart) Allows(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return host == "flipkart.com" || strings.HasSuffix(host, ".flipkart.com")
}

func (f *Flipkart) ReadySelectors() []string {
	return []string{flipkartAnchors, flipkartGrid}
}

func (f *Flipkart) BlockPattern() *regexp.Regexp {
	return flipkartBlockTitle
}

// MobileURL moves target to the mobile host and drops tracking parameters.
func (f *Flipkart) MobileURL(target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return target, false
	}
	u.Host = flipkartMobile

	q := u.Query()
	stripped := false
	for _, key := range trackingParams {
		if q.Has(key) {
			q.Del(key)
			stripped = true
		}
	}
	if stripped {
		u.RawQuery = q.Encode()
	}
	return u.String(), true
}

func (f *Flipkart) Extract(ctx context.Context, page browser.Page, p Params) (Batch, error) {
	p = p.withDefaults()
	batch := Batch{Next: p.Start}

	if clicked, err := page.ClickIfPresent(flipkartDismiss, dismissTimeout); err != nil {
		p.Trail.Add("flipkart: dismiss failed", "error", err)
	} else if clicked {
		p.Trail.Add("flipkart: closed dismiss")
	}
	if err := page.PressKey("Escape"); err != nil {
		p.Trail.Add("flipkart: escape failed", "error", err)
	}
	if err := p.Sleep(ctx, dismissSettle); err != nil {
		return batch, err
	}
	if err := scroll(ctx, page, p); err != nil {
		return batch, err
	}

	doc, err := snapshot(page)
	if err != nil {
		return batch, err
	}
	return f.Parse(doc, p), nil
}

// Parse extracts listings from a parsed search page.
func (f *Flipkart) Parse(doc *goquery.Document, p Params) Batch {
	p = p.withDefaults()
	batch := Batch{Next: p.Start}
	if p.Limit <= 0 {
		return batch
	}

	anchors := doc.Find(flipkartAnchors)
	p.Trail.Add("flipkart: anchors", "n", anchors.Length())

	seen := make(map[string]bool)
	anchors.EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		productURL := resolve(f.origin, href)
		if productURL == "" || seen[productURL] {
			return true
		}
		seen[productURL] = true

		listing, ok, err := guardCard(func() (models.Listing, bool) {
			return f.card(f.container(a), productURL, batch.Next+1, p)
		})
		switch {
		case err != nil:
			batch.Skipped++
			p.Trail.Add("flipkart: anchor parse error", "index", i, "error", err)
		case !ok:
			batch.Skipped++
			p.Trail.Add("flipkart: anchor skipped", "index", i, "url", productURL)
		default:
			batch.Next = listing.ListPosition
			batch.Listings = append(batch.Listings, listing)
		}
		return !batch.Full(p.Limit)
	})

	p.Trail.Add("flipkart: extracted", "n", len(batch.Listings), "skipped", batch.Skipped)
	return batch
}

// container finds the card around an anchor, falling back to its parent.
func (f *Flipkart) container(a *goquery.Selection) *goquery.Selection {
	for _, sel := range flipkartCards {
		if card := a.Closest(sel); card.Length() > 0 {
			return card
		}
	}
	return a.Parent()
}

func (f *Flipkart) card(card *goquery.Selection, productURL string, position int, p Params) (models.Listing, bool) {
	name, _, hasName := FirstOf(card, f.nameTiers...)
	pricing, tiers := ResolvePricing(card, f.priceTiers...)

	if !hasName && !pricing.Price.Valid() {
		return models.Listing{}, false
	}
	if len(tiers) > 0 && tiers[len(tiers)-1] == "text-scan" {
		p.Trail.Add("flipkart: price from text scan", "url", productURL)
	}

	l := models.NewListing(models.PlatformFlipkart, position, p.SourceURL, p.Now())
	l.ProductName = models.FromOK(name, hasName)
	l.BrandGuess = GuessBrandOf(l.ProductName)
	l.Price = pricing.Price
	l.MRP = pricing.MRP
	l.DiscountPercent = DiscountOf(pricing.MRP, pricing.Price)
	l.ProductURL = productURL
	return l, true
}

// scanRupees reads ₹ amounts from the card text. When any amount reaches
// the plausibility threshold the smaller ones are dropped as EMI noise.
// Scanned values never contradict a price or mrp already known.
func scanRupees(card *goquery.Selection, cur Pricing) Pricing {
	amounts := RupeeAmounts(card.Text())

	var pool []float64
	for _, v := range amounts {
		if v >= plausiblePriceAt {
			pool = append(pool, v)
		}
	}
	if len(pool) == 0 {
		pool = amounts
	}

	price, hasPrice := cur.Price.Get()
	mrp, hasMRP := cur.MRP.Get()

	switch {
	case !hasPrice && !hasMRP:
		if len(pool) >= 2 {
			cur.MRP = models.Some(pool[0])
			cur.Price = models.Some(pool[1])
		} else if len(pool) == 1 {
			cur.Price = models.Some(pool[0])
		}
	case hasPrice:
		// pool is descending: take the largest amount above price.
		for _, v := range pool {
			if v > price {
				cur.MRP = models.Some(v)
				break
			}
		}
	case hasMRP:
		for _, v := range pool {
			if v < mrp {
				cur.Price = models.Some(v)
				break
			}
		}
	}
	return cur
}
