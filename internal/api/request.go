package api

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/maltedev/listing-scraper/internal/extract"
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// NormalizeURL trims raw and defaults the scheme to https. It reports
// false when the result does not parse as an absolute URL.
func NormalizeURL(raw string) (string, bool) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", false
	}
	if !schemePattern.MatchString(u) {
		u = "https://" + strings.TrimLeft(u, "/")
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	return u, true
}

// ResolveTarget normalizes raw and checks it belongs to the strategy's
// marketplace. Anything else is treated as absent.
func ResolveTarget(raw string, strat extract.Strategy) (string, bool) {
	u, ok := NormalizeURL(raw)
	if !ok {
		return "", false
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return "", false
	}
	if !strat.Allows(strings.ToLower(parsed.Hostname())) {
		return "", false
	}
	return u, true
}

// QueryParam is the query key carrying a platform's target URL.
func QueryParam(strat extract.Strategy) string {
	return string(strat.Platform()) + "_url"
}
