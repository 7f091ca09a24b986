package extract

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/models"
)

const (
	amazonResults   = "div.s-main-slot"
	amazonCards     = "div.s-main-slot div.s-result-item[data-component-type='s-search-result']"
	amazonLink      = "h2 a"
	amazonImage     = "img.s-image"
	amazonPrice     = "span.a-price:not(.a-text-price) span.a-offscreen"
	amazonListPrice = "span.a-text-price span.a-offscreen"
	amazonFallback  = "https://www.amazon.in"
)

var amazonBlockTitle = regexp.MustCompile(`(?i)robot check`)

// Amazon extracts search results from amazon.* hosts.
type Amazon struct {
	titleTiers []Tier[string]
	priceTiers []PriceTier
}

func NewAmazon() *Amazon {
	return &Amazon{
		titleTiers: []Tier[string]{
			TextTier("h2 a span.a-size-medium"),
			TextTier("h2 a span"),
			TextTier("h2"),
			AttrTier(amazonLink, "aria-label"),
		},
		priceTiers: []PriceTier{
			SelectorPriceTier("offscreen", MoneyTier(amazonPrice), MoneyTier(amazonListPrice)),
		},
	}
}

var amazonTLDs = []string{
	"in", "com", "co.uk", "de", "fr", "it", "es", "nl", "se", "pl",
	"ca", "com.mx", "com.br", "com.au", "co.jp", "sg", "ae", "sa",
	"eg", "com.tr", "com.be",
}

func (a *Amazon) Platform() models.Platform {
	return models.PlatformAmazon
}

// Allows accepts amazon.<tld> and its subdomains for the storefront TLDs
// in amazonTLDs.
func (a *Amazon) Allows(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, tld := range amazonTLDs {
		domain := "amazon." + tld
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (a *Amazon) ReadySelectors() []string {
	return []string{amazonResults}
}

func (a *Amazon) BlockPattern() *regexp.Regexp {
	return amazonBlockTitle
}

func (a *Amazon) Extract(ctx context.Context, page browser.Page, p Params) (Batch, error) {
	p = p.withDefaults()

	if err := page.WaitForSelector(amazonResults, p.Timeout); err != nil {
		p.Trail.Add("amazon: results container not found", "error", err)
		return Batch{Next: p.Start}, nil
	}
	if err := ctx.Err(); err != nil {
		return Batch{Next: p.Start}, err
	}

	doc, err := snapshot(page)
	if err != nil {
		return Batch{Next: p.Start}, err
	}
	return a.Parse(doc, p), nil
}

// Parse extracts listings from a parsed search page.
func (a *Amazon) Parse(doc *goquery.Document, p Params) Batch {
	p = p.withDefaults()
	base := amazonBase(p.SourceURL)
	batch := Batch{Next: p.Start}
	if p.Limit <= 0 {
		return batch
	}

	cards := doc.Find(amazonCards)
	p.Trail.Add("amazon: cards", "n", cards.Length())

	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		listing, ok, err := guardCard(func() (models.Listing, bool) {
			return a.card(card, base, batch.Next+1, p)
		})
		switch {
		case err != nil:
			batch.Skipped++
			p.Trail.Add("amazon: card parse error", "index", i, "error", err)
		case !ok:
			batch.Skipped++
			p.Trail.Add("amazon: card skipped", "index", i)
		default:
			batch.Next = listing.ListPosition
			batch.Listings = append(batch.Listings, listing)
		}
		return !batch.Full(p.Limit)
	})

	p.Trail.Add("amazon: extracted", "n", len(batch.Listings), "skipped", batch.Skipped)
	return batch
}

func (a *Amazon) card(card *goquery.Selection, base *url.URL, position int, p Params) (models.Listing, bool) {
	name, _, hasName := FirstOf(card, a.titleTiers...)

	productURL := ""
	if href, ok := card.Find(amazonLink).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		productURL = resolve(base, href)
	}
	if productURL == "" {
		if asin, ok := card.Attr("data-asin"); ok && strings.TrimSpace(asin) != "" {
			productURL = base.String() + "/dp/" + strings.TrimSpace(asin)
		}
	}

	pricing, _ := ResolvePricing(card, a.priceTiers...)

	if !hasName && !pricing.Price.Valid() && productURL == "" {
		return models.Listing{}, false
	}

	l := models.NewListing(models.PlatformAmazon, position, p.SourceURL, p.Now())
	l.ProductName = models.FromOK(name, hasName)
	l.BrandGuess = GuessBrandOf(l.ProductName)
	l.Price = pricing.Price
	l.MRP = pricing.MRP
	l.DiscountPercent = DiscountOf(pricing.MRP, pricing.Price)
	l.ProductURL = productURL
	if src, ok := card.Find(amazonImage).First().Attr("src"); ok && src != "" {
		l.ImageURL = models.Some(src)
	}
	return l, true
}

// amazonBase is the origin of the search page, so amazon.com results stay
// on amazon.com.
func amazonBase(source string) *url.URL {
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		return &url.URL{Scheme: u.Scheme, Host: u.Host}
	}
	u, _ := url.Parse(amazonFallback)
	return u
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
