package models

import (
	"time"
)

// Platform tags a marketplace.
type Platform string

const (
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
)

// Listing is one product card extracted from a search-result page.
type Listing struct {
	Date            string            `json:"date"`
	Timestamp       time.Time         `json:"timestamp"`
	Platform        Platform          `json:"platform"`
	ListPosition    int               `json:"list_position"`
	ProductName     Optional[string]  `json:"product_name"`
	BrandGuess      Optional[string]  `json:"brand_guess"`
	Price           Optional[float64] `json:"price"`
	MRP             Optional[float64] `json:"mrp"`
	DiscountPercent Optional[float64] `json:"discount_percent"`
	Rating          Optional[float64] `json:"rating"`
	ReviewCount     Optional[int]     `json:"review_count"`
	ProductURL      string            `json:"product_url"`
	ImageURL        Optional[string]  `json:"image_url"`
	SourceURL       string            `json:"source_url"`
}

// NewListing stamps capture date and time. Rating and review count stay null.
func NewListing(platform Platform, position int, sourceURL string, now time.Time) Listing {
	now = now.UTC()
	return Listing{
		Date:         now.Format("2006-01-02"),
		Timestamp:    now,
		Platform:     platform,
		ListPosition: position,
		SourceURL:    sourceURL,
	}
}

// Key is the identity used for deduplication: (platform, product_url).
func (l Listing) Key() string {
	return string(l.Platform) + "|" + l.ProductURL
}

// NavigationOutcome reports how a page load ended.
type NavigationOutcome struct {
	OK      bool
	Blocked bool
}

// ScrapeRequest is built once per inbound call and discarded afterwards.
type ScrapeRequest struct {
	RequestID    string
	Targets      map[Platform]string
	PerSiteLimit int
	MaxPages     int
	Debug        bool
	Screenshot   bool
}

func (r *ScrapeRequest) Target(p Platform) (string, bool) {
	u, ok := r.Targets[p]
	return u, ok && u != ""
}

// ScrapeResult is the JSON document returned to the caller.
type ScrapeResult struct {
	OK         bool              `json:"ok"`
	Count      int               `json:"count"`
	Rows       []Listing         `json:"rows"`
	Captcha    map[Platform]bool `json:"captcha"`
	Debug      []string          `json:"debug,omitempty"`
	Screenshot string            `json:"debug_screenshot,omitempty"`
}

// ErrorResponse is returned for 400 and 500 outcomes.
type ErrorResponse struct {
	OK    bool     `json:"ok"`
	Error string   `json:"error"`
	Debug []string `json:"debug,omitempty"`
}
